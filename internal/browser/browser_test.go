package browser

import (
	"errors"
	"testing"
)

func fakeOpener(calls *[]string, err error) *Opener {
	return &Opener{launch: func(name string, args ...string) error {
		*calls = append(*calls, args[len(args)-1])
		return err
	}}
}

func TestOpenRejectsNonHTTP(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://example.com", false},
		{"http://example.com", false},
		{"file:///etc/passwd", true},
		{"javascript:alert(1)", true},
		{"ftp://example.com", true},
		{"https://", true},
		{"", true},
	}

	for _, tt := range tests {
		var calls []string
		err := fakeOpener(&calls, nil).Open(tt.url)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Open(%q): expected error, got nil", tt.url)
			}
			if len(calls) != 0 {
				t.Errorf("Open(%q): launcher must not run for rejected URL", tt.url)
			}
			continue
		}
		if err != nil {
			t.Errorf("Open(%q): unexpected error %v", tt.url, err)
		}
		if len(calls) != 1 || calls[0] != tt.url {
			t.Errorf("Open(%q): expected one launch with the URL, got %v", tt.url, calls)
		}
	}
}

func TestOpenLaunchError(t *testing.T) {
	var calls []string
	boom := errors.New("no opener")
	err := fakeOpener(&calls, boom).Open("https://example.com")
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped launch error, got %v", err)
	}
}

func TestCommand(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"darwin", "open"},
		{"linux", "xdg-open"},
		{"freebsd", "xdg-open"},
		{"windows", "rundll32"},
	}
	for _, tt := range tests {
		name, args := command(tt.goos, "https://example.com")
		if name != tt.want {
			t.Errorf("command(%q) = %q, want %q", tt.goos, name, tt.want)
		}
		if args[len(args)-1] != "https://example.com" {
			t.Errorf("command(%q): URL must be the last argument, got %v", tt.goos, args)
		}
	}
}

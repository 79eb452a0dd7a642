package classify

import "testing"

func TestClassifyByHost(t *testing.T) {
	tests := []struct {
		url  string
		want Category
	}{
		{"https://github.com/golang/go/issues/1", Dev},
		{"https://www.youtube.com/watch?v=abc", Video},
		{"https://en.wikipedia.org/wiki/Go_(programming_language)", Reference},
		{"https://old.reddit.com/r/golang", Social},
		{"https://www.amazon.com/dp/B000", Shopping},
		{"https://www.bbc.co.uk/news/world", News},
		{"https://news.ycombinator.com/item?id=1", News},
	}
	for _, tt := range tests {
		if got := Classify(tt.url, ""); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.url, got, tt.want)
		}
	}
}

func TestClassifyHostBeatsTitle(t *testing.T) {
	cat := Classify("https://github.com/x/y", "Watch the new trailer video")
	if cat != Dev {
		t.Errorf("expected host to win, got %s", cat)
	}
}

func TestClassifyByTitle(t *testing.T) {
	tests := []struct {
		title string
		want  Category
	}{
		{"Breaking news: election live updates", News},
		{"Golang tutorial: building an API", Dev},
		{"Official trailer - watch the episode", Video},
		{"Best price deals with free shipping", Shopping},
		{"Definition of entropy - dictionary", Reference},
	}
	for _, tt := range tests {
		if got := Classify("https://unknown.example/page", tt.title); got != tt.want {
			t.Errorf("Classify(title %q) = %s, want %s", tt.title, got, tt.want)
		}
	}
}

func TestClassifyEmptyInput(t *testing.T) {
	if cat := Classify("", ""); cat != Other {
		t.Errorf("expected Other for empty input, got %s", cat)
	}
}

func TestClassifyDefaultsToOther(t *testing.T) {
	if cat := Classify("https://example.org/", "Our year in retrospect"); cat != Other {
		t.Errorf("expected Other for generic page, got %s", cat)
	}
}

func TestResolveAlias(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"dev", Dev, false},
		{" Code ", Dev, false},
		{"wiki", Reference, false},
		{"Shopping", Shopping, false},
		{"reference", Reference, false},
		{"sports", "", true},
	}
	for _, tt := range tests {
		got, err := ResolveAlias(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ResolveAlias(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ResolveAlias(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveAlias(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

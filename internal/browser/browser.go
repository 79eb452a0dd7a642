package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// Opener hands validated URLs to a launch function.
type Opener struct {
	launch func(name string, args ...string) error
}

func NewOpener() *Opener {
	return &Opener{launch: start}
}

func start(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// Open validates rawURL and opens it with the default opener.
func Open(rawURL string) error {
	return NewOpener().Open(rawURL)
}

func (o *Opener) Open(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing to open URL with scheme %q (only http/https allowed)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("refusing to open URL without host: %q", rawURL)
	}

	name, args := command(runtime.GOOS, rawURL)
	if err := o.launch(name, args...); err != nil {
		return fmt.Errorf("launching %s: %w", name, err)
	}
	return nil
}

func command(goos, rawURL string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{rawURL}
	case "windows":
		// rundll32 avoids cmd /c start shell interpretation
		return "rundll32", []string{"url.dll,FileProtocolHandler", rawURL}
	default:
		return "xdg-open", []string{rawURL}
	}
}

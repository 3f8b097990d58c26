package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

// browserCommands maps GOOS to the command that opens a URL in the default browser.
var browserCommands = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
	"freebsd": {"xdg-open"},
	"windows": {"rundll32", "url.dll,FileProtocolHandler"},
}

var startCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// OpenBrowser opens url in the system browser without waiting for it to exit.
func OpenBrowser(url string) error {
	return openBrowser(runtime.GOOS, url)
}

func openBrowser(goos, url string) error {
	argv, ok := browserCommands[goos]
	if !ok {
		return fmt.Errorf("%w: no browser launcher for %s", ErrServiceUnavailable, goos)
	}

	args := append(append([]string{}, argv[1:]...), url)
	if err := startCommand(argv[0], args...); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

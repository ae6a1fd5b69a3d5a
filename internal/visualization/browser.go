package visualization

import (
	"fmt"
	"net/url"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// BrowserTarget turns a rendered HTML file path into a file:// URL. HTTP(S)
// URLs are returned unchanged.
func BrowserTarget(target string) (string, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target, nil
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", target, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

// browserCommand returns the opener for goos.
func browserCommand(goos, target string) (*exec.Cmd, error) {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", target), nil
	case "darwin":
		return exec.Command("open", target), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// OpenBrowser opens a served graph URL or a rendered graph file in the
// user's default browser without waiting for it to exit.
func OpenBrowser(target string) error {
	u, err := BrowserTarget(target)
	if err != nil {
		return err
	}
	cmd, err := browserCommand(runtime.GOOS, u)
	if err != nil {
		return err
	}
	return cmd.Start()
}

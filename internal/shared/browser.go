package shared

import (
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// browserCommand returns the command that opens target on the current platform.
//
// $BROWSER wins over the platform default.
func browserCommand(target string) (*exec.Cmd, error) {
	if browser := os.Getenv("BROWSER"); browser != "" {
		return exec.Command(browser, target), nil
	}

	switch rt := getRuntime(); rt {
	case "darwin":
		return exec.Command("open", target), nil
	case "linux", "freebsd", "openbsd":
		return exec.Command("xdg-open", target), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", rt)
	}
}

// OpenBrowser opens the consent page or playlist at target in the default system browser.
//
// Only absolute http(s) URLs are opened.
func OpenBrowser(target string) error {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: refusing to open %q", ErrInvalidArgument, target)
	}

	cmd, err := browserCommand(u.String())
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

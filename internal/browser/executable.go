// internal/browser/executable.go
package browser

import (
	"os"
	"os/exec"
	"runtime"

	"github.com/xkilldash9x/cartpilot/api/schemas"
)

// lookPath and statFile are package variables so executable discovery can be
// exercised without a real browser install.
var (
	lookPath = exec.LookPath
	statFile = os.Stat
)

// executableNames are probed on PATH, most specific first.
var executableNames = []string{
	"google-chrome-stable",
	"google-chrome",
	"chromium-browser",
	"chromium",
	"chrome",
}

// wellKnownPaths covers installs that are not on PATH.
func wellKnownPaths() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "windows":
		return []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	default:
		return []string{
			"/usr/bin/google-chrome-stable",
			"/usr/bin/google-chrome",
			"/usr/bin/chromium",
			"/snap/bin/chromium",
		}
	}
}

// findExecutable resolves the browser binary to launch. An explicit override
// wins; otherwise PATH is probed, then well-known install locations.
func findExecutable(override string) (string, error) {
	if override != "" {
		if _, err := statFile(override); err != nil {
			return "", schemas.NewEnvironmentError("configured browser executable is not usable: "+override, err)
		}
		return override, nil
	}

	for _, name := range executableNames {
		if path, err := lookPath(name); err == nil {
			return path, nil
		}
	}
	for _, path := range wellKnownPaths() {
		if _, err := statFile(path); err == nil {
			return path, nil
		}
	}

	return "", schemas.NewEnvironmentError("no Chrome or Chromium executable found (set browser.executable_path)", nil)
}

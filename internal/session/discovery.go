// Package session implements discovery/launch of a browser process,
// attachment to its CDP endpoint, lease/heartbeat hygiene, reachability
// recovery, and reconciliation of on-disk session state (spec §4.2).
//
// Grounded on internal/capture/capture.go's chromedp.NewExecAllocator +
// chromedp.DefaultExecAllocatorOptions usage, generalized from a single-shot
// allocator into a long-lived managed-process launcher whose pid and
// user-data-dir are recorded in the state store.
package session

import (
	"os"
	"runtime"
)

// DefaultCandidates returns the ordered, platform-specific list of known
// Chrome/Chromium/Edge/Brave executable paths searched by Discover (spec
// §4.2). The first existing path wins.
func DefaultCandidates() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
			"/Applications/Brave Browser.app/Contents/MacOS/Brave Browser",
		}
	case "windows":
		return []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files\Microsoft\Edge\Application\msedge.exe`,
			`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
			`C:\Program Files\BraveSoftware\Brave-Browser\Application\brave.exe`,
		}
	default:
		return []string{
			"/usr/bin/google-chrome-stable",
			"/usr/bin/google-chrome",
			"/usr/bin/chromium-browser",
			"/usr/bin/chromium",
			"/usr/bin/microsoft-edge",
			"/usr/bin/microsoft-edge-stable",
			"/usr/bin/brave-browser",
			"/snap/bin/chromium",
		}
	}
}

// Discover returns the first candidate path that exists on disk, searching
// candidates in order. Returns "", false if none exist.
func Discover(candidates []string) (string, bool) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, true
		}
	}
	return "", false
}

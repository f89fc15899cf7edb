package session

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/surfwright/surfwright/internal/errs"
)

// LaunchOptions configures a managed browser launch (spec §4.2).
type LaunchOptions struct {
	ExecutablePath string
	Port           int
	UserDataDir    string
	Headless       bool

	// StartTimeout bounds how long to poll the CDP endpoint before giving up.
	StartTimeout time.Duration

	ProbeTimeout         time.Duration
	ProbeTimeoutFallback time.Duration
}

// LaunchResult is the outcome of a successful managed launch.
type LaunchResult struct {
	Process               *os.Process
	WebSocketDebuggerURL  string
	Port                  int
}

// Launch spawns the browser detached with the documented flag set, then
// polls the CDP endpoint until ready or E_BROWSER_START_TIMEOUT. On timeout
// the process is killed and the caller should retry once on a freshly
// allocated port (spec §4.2); Launch itself performs no retry so callers
// control port re-allocation.
func Launch(ctx context.Context, opts LaunchOptions) (*LaunchResult, error) {
	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", opts.Port),
		fmt.Sprintf("--user-data-dir=%s", opts.UserDataDir),
		"--no-first-run",
		"--no-default-browser-check",
	}
	if opts.Headless {
		args = append(args, "--headless=new")
	}
	args = append(args, "about:blank")

	cmd := exec.Command(opts.ExecutablePath, args...)
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return nil, errs.Wrap(errs.CodeBrowserStartFailed, err, "failed to start browser process %q", opts.ExecutablePath)
	}

	origin := fmt.Sprintf("http://127.0.0.1:%d", opts.Port)
	deadline := time.Now().Add(opts.StartTimeout)

	for {
		result := Probe(ctx, origin, opts.ProbeTimeout, opts.ProbeTimeoutFallback)
		if result.Reachable {
			return &LaunchResult{
				Process:              cmd.Process,
				WebSocketDebuggerURL: result.WebSocketDebuggerURL,
				Port:                 opts.Port,
			}, nil
		}

		if time.Now().After(deadline) {
			_ = cmd.Process.Kill()
			return nil, errs.New(errs.CodeBrowserStartTimeout, "browser did not become reachable on port %d within %s", opts.Port, opts.StartTimeout)
		}

		select {
		case <-ctx.Done():
			_ = cmd.Process.Kill()
			return nil, errs.Wrap(errs.CodeBrowserStartTimeout, ctx.Err(), "context cancelled while waiting for browser to start")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

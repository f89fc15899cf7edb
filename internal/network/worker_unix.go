//go:build !windows

package network

import (
	"os/exec"
	"syscall"
)

// detachWorker mirrors internal/session/launch_unix.go's detach: the
// capture worker must outlive the CLI invocation that spawned it.
func detachWorker(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

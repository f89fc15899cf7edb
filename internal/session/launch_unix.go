//go:build !windows

package session

import (
	"os/exec"
	"syscall"
)

// detach configures cmd to run in its own session, detached from the
// SurfWright process group, so it outlives the invoking command.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

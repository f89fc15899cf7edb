//go:build windows

package session

import (
	"os/exec"
	"syscall"
)

// detach configures cmd to run detached from the SurfWright process's
// console, so it outlives the invoking command.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

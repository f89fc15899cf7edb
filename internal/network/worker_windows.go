//go:build windows

package network

import (
	"os/exec"
	"syscall"
)

// detachWorker mirrors internal/session/launch_windows.go's detach.
func detachWorker(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

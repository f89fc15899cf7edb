//go:build !windows

package session

import (
	"os"
	"syscall"
)

// pidAlive probes whether pid still refers to a live process by sending
// signal 0, which performs existence/permission checks without delivering
// an actual signal.
func pidAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil || proc == nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

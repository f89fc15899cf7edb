//go:build windows

package session

import "os"

// pidAlive probes whether pid still refers to a live process. os.FindProcess
// on Windows already opens a handle to the process, failing if it does not
// exist.
func pidAlive(pid int) bool {
	_, err := os.FindProcess(pid)
	return err == nil
}

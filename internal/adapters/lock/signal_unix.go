//go:build !windows

package lock

import (
	"errors"
	"os"
	"syscall"
)

// signalAlive probes pid with signal 0. EPERM means the process exists but
// belongs to another user.
func signalAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

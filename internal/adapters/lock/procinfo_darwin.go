//go:build darwin

package lock

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// processStartID uses the kernel's process start time as reported by sysctl.
func processStartID(pid int) (string, bool) {
	if pid <= 0 {
		return "", false
	}
	info, err := unix.SysctlKinfoProc("kern.proc.pid", pid)
	if err != nil || info == nil {
		return "", false
	}
	tv := info.Proc.P_starttime
	return fmt.Sprintf("lstart:%d.%06d", tv.Sec, tv.Usec), true
}

func isProcessRunning(pid int) bool {
	return signalAlive(pid)
}

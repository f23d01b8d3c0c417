//go:build !linux && !darwin && !windows

package lock

// processStartID is unavailable here; liveness falls back to the PID probe.
func processStartID(int) (string, bool) {
	return "", false
}

func isProcessRunning(pid int) bool {
	return signalAlive(pid)
}

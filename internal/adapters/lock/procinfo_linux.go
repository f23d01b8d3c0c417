//go:build linux

package lock

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// processStartID identifies a process incarnation by its start time in
// clock ticks since boot, so a recycled PID does not look like the owner.
func processStartID(pid int) (string, bool) {
	if pid <= 0 {
		return "", false
	}
	// #nosec G304 -- reading /proc/<pid>/stat from controlled path.
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return "", false
	}
	ticks, ok := parseStartTicks(string(data))
	if !ok {
		return "", false
	}
	return fmt.Sprintf("ticks:%d", ticks), true
}

// parseStartTicks reads starttime (field 22) from a /proc/<pid>/stat line.
// comm may contain spaces; fields after the closing paren are fixed.
func parseStartTicks(stat string) (int64, bool) {
	i := strings.LastIndexByte(stat, ')')
	if i < 0 {
		return 0, false
	}
	parts := strings.Fields(stat[i+1:])
	if len(parts) < 20 {
		return 0, false
	}
	ticks, err := strconv.ParseInt(parts[19], 10, 64)
	if err != nil || ticks <= 0 {
		return 0, false
	}
	return ticks, true
}

func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	if _, err := os.Stat(fmt.Sprintf("/proc/%d", pid)); err == nil {
		return true
	}
	return signalAlive(pid)
}

package process

import (
	"log/slog"
	"os"
	"path/filepath"
)

// Adapter implements ProcessPort for the running process.
type Adapter struct {
	logger *slog.Logger
}

// New creates a new process adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		panic("process adapter requires logger")
	}
	return &Adapter{logger: logger}
}

// GetPID returns the current process PID
func (a *Adapter) GetPID() int {
	return os.Getpid()
}

// Executable returns the resolved path of the running binary, as written
// into systemd units.
func (a *Adapter) Executable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	} else {
		a.logger.Debug("cannot resolve executable symlinks", "path", exe, "error", err)
	}
	return filepath.Abs(exe)
}

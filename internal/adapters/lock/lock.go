package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/arumata/snappy/internal/usecase"
)

// staleAfter is how long a lock may go without a refresh before it is
// considered abandoned, even if its PID is alive.
const staleAfter = 24 * time.Hour

// Adapter implements usecase.LockPort with a JSON lock file created by an
// exclusive open. One lock file guards one backup root.
type Adapter struct {
	logger *slog.Logger
}

// New creates a new lock adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		panic("lock adapter requires logger")
	}
	return &Adapter{logger: logger}
}

// AcquireLock creates the lock file at path. A stale lock left by a dead
// process is replaced; a live one yields an error wrapping
// usecase.ErrLockBusy.
func (a *Adapter) AcquireLock(ctx context.Context, path string, info usecase.LockInfo) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	err := a.createExclusive(path, info)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return err
	}

	held, current, err := a.IsLocked(ctx, path)
	if err != nil {
		a.logger.Warn("unreadable lock file, treating as stale", "path", path, "error", err)
	}
	if held {
		return fmt.Errorf("lock is held by another active process (pid %d on %s, run %s): %w",
			current.PID, current.Hostname, current.RunID, usecase.ErrLockBusy)
	}

	a.logger.Info("removing stale lock", "path", path, "pid", current.PID, "run_id", current.RunID)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove stale lock: %w", err)
	}
	if err := a.createExclusive(path, info); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("lock was taken while replacing a stale one: %w", usecase.ErrLockBusy)
		}
		return fmt.Errorf("failed to create lock after cleanup: %w", err)
	}
	return nil
}

// ReleaseLock removes the lock file. Releasing a missing lock is not an error.
func (a *Adapter) ReleaseLock(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// IsLocked reports whether path holds a live lock and returns its contents.
func (a *Adapter) IsLocked(ctx context.Context, path string) (bool, usecase.LockInfo, error) {
	info, err := readLockInfo(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, usecase.LockInfo{}, nil
		}
		return false, usecase.LockInfo{}, err
	}
	return a.isActive(info), info, nil
}

// RefreshLock bumps the lock timestamp so long runs are not taken for stale.
func (a *Adapter) RefreshLock(ctx context.Context, path string) error {
	info, err := readLockInfo(path)
	if err != nil {
		return fmt.Errorf("failed to read lock info: %w", err)
	}
	info.StartTime = time.Now()

	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal lock info: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (a *Adapter) createExclusive(path string, info usecase.LockInfo) error {
	fillDefaults(&info)
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal lock info: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600) // #nosec G304 - path is controlled by usecase
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

func fillDefaults(info *usecase.LockInfo) {
	if info.PID == 0 {
		info.PID = os.Getpid()
	}
	if info.StartTime.IsZero() {
		info.StartTime = time.Now()
	}
	if info.Hostname == "" {
		hostname, _ := os.Hostname()
		info.Hostname = hostname
	}
	if info.ProcessStartID == "" {
		if id, ok := processStartID(info.PID); ok {
			info.ProcessStartID = id
		}
	}
}

func readLockInfo(path string) (usecase.LockInfo, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is controlled by usecase
	if err != nil {
		return usecase.LockInfo{}, err
	}
	var info usecase.LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return usecase.LockInfo{}, fmt.Errorf("invalid lock file %s: %w", path, err)
	}
	return info, nil
}

// isActive checks the lock age and whether the owning process still runs.
// Locks from another host cannot be probed and count as active until stale.
func (a *Adapter) isActive(info usecase.LockInfo) bool {
	if time.Since(info.StartTime) > staleAfter {
		return false
	}

	if info.Hostname != "" {
		if hostname, err := os.Hostname(); err == nil && hostname != info.Hostname {
			return true
		}
	}

	if info.ProcessStartID != "" {
		if id, ok := processStartID(info.PID); ok {
			return id == info.ProcessStartID
		}
	}

	return isProcessRunning(info.PID)
}

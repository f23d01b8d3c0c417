package usecase

import (
	"errors"
	"fmt"
)

var (
	// ErrUsage indicates user input/usage errors.
	ErrUsage = errors.New("usage error")
	// ErrCritical indicates critical failures that should exit with error.
	ErrCritical = errors.New("critical error")
	// ErrLockBusy indicates an active lock held by another process.
	ErrLockBusy = errors.New("lock busy")
	// ErrInterrupted indicates a canceled or interrupted operation.
	ErrInterrupted = errors.New("interrupted")

	// ErrInvalidPath indicates an empty or malformed path input.
	ErrInvalidPath = errors.New("invalid path")
	// ErrToolNotFound indicates the mirror tool is not installed or not on PATH.
	ErrToolNotFound = errors.New("mirror tool not found")
	// ErrSourceNotFound indicates a declared source does not exist on disk.
	ErrSourceNotFound = errors.New("source not found")
	// ErrMirror indicates the mirror tool could not be started or exited non-zero.
	ErrMirror = errors.New("mirror failed")
	// ErrPrune indicates that one or more snapshots could not be deleted by retention.
	ErrPrune = errors.New("prune failed")
	// ErrBackupFailed wraps any failure that caused a run to be rolled back.
	ErrBackupFailed = errors.New("backup failed")
	// ErrNotFound indicates the backup root does not exist.
	ErrNotFound = errors.New("not found")
)

// MirrorError describes a failed mirror invocation for a single source.
// ExitCode is -1 when the tool could not be started.
type MirrorError struct {
	Source     string
	ExitCode   int
	Diagnostic string
	Err        error
}

func (e *MirrorError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("mirror %s: cannot start: %v", e.Source, e.Err)
	}
	if e.Diagnostic == "" {
		return fmt.Sprintf("mirror %s: exit status %d", e.Source, e.ExitCode)
	}
	return fmt.Sprintf("mirror %s: exit status %d: %s", e.Source, e.ExitCode, e.Diagnostic)
}

// Unwrap exposes both ErrMirror and the underlying start error, if any.
func (e *MirrorError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMirror}
	}
	return []error{ErrMirror, e.Err}
}

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/arumata/snappy/internal/usecase"
)

const (
	exitSuccess       = 0
	exitCriticalError = 1
	exitUsageError    = 2
	exitToolMissing   = 69
	exitLockBusy      = 76
	exitInterrupted   = 130
)

// handleCmdError prints err to w and sets the exit code.
func handleCmdError(w io.Writer, exitCode *int, err error) {
	if err == nil {
		*exitCode = exitSuccess
		return
	}
	fmt.Fprintln(w, err)
	*exitCode = mapExitCode(err)
}

// mapExitCode checks interruption first: a canceled run also wraps
// ErrBackupFailed and possibly the mirror error that the signal caused.
func mapExitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	switch {
	case errors.Is(err, usecase.ErrInterrupted):
		return exitInterrupted
	case errors.Is(err, usecase.ErrLockBusy):
		return exitLockBusy
	case errors.Is(err, usecase.ErrToolNotFound):
		return exitToolMissing
	case errors.Is(err, usecase.ErrUsage), errors.Is(err, usecase.ErrInvalidPath):
		return exitUsageError
	default:
		return exitCriticalError
	}
}

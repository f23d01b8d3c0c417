package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
)

type backupContext struct {
	logger  *slog.Logger
	verbose bool
}

func newBackupContext(logger *slog.Logger, verbose bool) *backupContext {
	if logger == nil {
		panic("logger is required")
	}
	return &backupContext{logger: logger, verbose: verbose}
}

func (bc *backupContext) logf(format string, a ...any) {
	bc.logger.Info(fmt.Sprintf(format, a...))
}

func (bc *backupContext) vlogf(format string, a ...any) {
	if !bc.verbose {
		return
	}
	bc.logf(format, a...)
}

func (bc *backupContext) warnf(format string, a ...any) {
	bc.logger.Warn(fmt.Sprintf(format, a...))
}

// lineSink forwards subprocess output to the logger tagged with component.
// Stdout lines are info in verbose mode and debug otherwise; stderr is always a warning.
func (bc *backupContext) lineSink(component string) LineSink {
	logger := bc.logger.With("component", component)
	return func(stream Stream, line string) {
		switch {
		case stream == StreamStderr:
			logger.Warn(line)
		case bc.verbose:
			logger.Info(line)
		default:
			logger.Debug(line)
		}
	}
}

func shortHashN(s string, n int) string {
	if n <= 0 {
		n = 8
	}
	if n > 64 {
		n = 64
	}
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])[:n]
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Schedule runs Backup on every tick of the cron spec until ctx is canceled.
// A failed run is logged and the schedule continues.
func Schedule(ctx context.Context, spec string, cfg *Config, deps *Dependencies, logger *slog.Logger) error {
	if logger == nil {
		panic("logger is required")
	}
	if deps.Scheduler == nil {
		return fmt.Errorf("scheduler adapter not available: %w", ErrCritical)
	}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return fmt.Errorf("cron spec is empty: %w", ErrUsage)
	}

	logger.InfoContext(ctx, "Scheduling backups", "cron", spec, "destination", cfg.Destination)
	err := deps.Scheduler.Run(ctx, spec, func(jobCtx context.Context) {
		runCfg := *cfg
		result, err := Backup(jobCtx, &runCfg, deps, logger)
		switch {
		case errors.Is(err, ErrLockBusy):
			logger.WarnContext(jobCtx, "Skipping scheduled backup, another run holds the lock")
		case err != nil:
			logger.ErrorContext(jobCtx, "Scheduled backup failed", "error", err)
		default:
			logger.InfoContext(jobCtx, "Scheduled backup finished", "snapshot", result.SnapshotName)
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.InfoContext(ctx, "Scheduler stopped")
	return nil
}

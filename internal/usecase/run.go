//nolint:gci,gofumpt
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

//nolint:gochecknoglobals // configurable in tests to speed up lock refresh.
var lockRefreshInterval = time.Hour

const (
	lockKeyLen       = 16
	bannerDateFormat = "02-Jan-2006"
	bannerTimeFormat = "15:04:05"
)

// Backup runs one snapshot for cfg while holding the run lock of its backup
// root, then records metrics and sends a desktop notification.
func Backup(ctx context.Context, cfg *Config, deps *Dependencies, logger *slog.Logger) (*BackupResult, error) {
	if logger == nil {
		panic("logger is required")
	}
	if err := validateBackupDependencies(ctx, deps, logger); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)
	bc := newBackupContext(logger, cfg.Verbose)

	started := snapshotNow()
	bc.logf("Starting backup on %s at %s", started.Format(bannerDateFormat), started.Format(bannerTimeFormat))
	bc.logf("%s", strings.Repeat("=", 50))
	printConfig(cfg, bc)

	root, err := NormalizePath(ctx, deps.FileSystem, cfg.Destination, cfg.HomeDir)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid backup destination", "error", err)
		return nil, fmt.Errorf("backup destination: %w: %w", ErrUsage, err)
	}
	root = trimTrailingSeparators(deps.FileSystem, root)

	release, err := acquireRunLock(ctx, deps, cfg.StateDir, root, runID, logger)
	if err != nil {
		return nil, err
	}
	defer release()

	result, runErr := RunBackup(ctx, deps, BackupRequest{
		Sources:        cfg.Sources,
		Destination:    root,
		KeepCount:      cfg.KeepCount,
		Excludes:       cfg.Excludes,
		Includes:       cfg.Includes,
		Options:        cfg.MirrorArgs,
		Binary:         cfg.MirrorBinary,
		DryRun:         cfg.DryRun,
		CleanupStaging: cfg.CleanupStaging,
		Verbose:        cfg.Verbose,
		HomeDir:        cfg.HomeDir,
		RunID:          runID,
	}, logger)

	report := RunReport{
		Destination: root,
		Success:     runErr == nil,
		DryRun:      cfg.DryRun,
		Started:     started,
		Duration:    snapshotNow().Sub(started),
	}
	if result != nil {
		report.SnapshotName = result.SnapshotName
		report.Excluded = len(result.Excluded)
		report.Pruned = len(result.Pruned)
		report.PruneFailed = result.PruneErr != nil
	}
	if snaps, err := ListSnapshots(ctx, deps.FileSystem, root); err == nil {
		report.SnapshotCount = len(snaps)
	}

	logger.DebugContext(ctx, "Run finished",
		"success", report.Success,
		"duration", report.Duration,
		"snapshots", report.SnapshotCount,
		"excluded", report.Excluded,
		"pruned", report.Pruned,
	)
	recordRun(ctx, deps, report, logger)
	notifyRun(ctx, cfg, deps, report, runErr, logger)

	if runErr != nil {
		logger.ErrorContext(ctx, "Backup failed", "error", runErr)
		return nil, runErr
	}
	printBackupSummary(result, bc)
	return result, nil
}

func validateBackupDependencies(ctx context.Context, deps *Dependencies, logger *slog.Logger) error {
	if deps.FileSystem == nil {
		logger.ErrorContext(ctx, "FileSystem adapter not available")
		return fmt.Errorf("filesystem adapter not available: %w", ErrCritical)
	}
	if deps.Mirror == nil {
		logger.ErrorContext(ctx, "Mirror adapter not available")
		return fmt.Errorf("mirror adapter not available: %w", ErrCritical)
	}
	if deps.Lock == nil {
		logger.ErrorContext(ctx, "Lock adapter not available")
		return fmt.Errorf("lock adapter not available: %w", ErrCritical)
	}
	if deps.Process == nil {
		logger.ErrorContext(ctx, "Process adapter not available")
		return fmt.Errorf("process adapter not available: %w", ErrCritical)
	}
	return nil
}

// runLockPath keeps locks outside the backup root so they never show up as
// snapshots.
func runLockPath(fs FileSystemPort, stateDir, root string) string {
	return fs.Join(stateDir, "locks", shortHashN(root, lockKeyLen)+".lock")
}

func acquireRunLock(
	ctx context.Context,
	deps *Dependencies,
	stateDir,
	root,
	runID string,
	logger *slog.Logger,
) (func(), error) {
	if deps.Lock == nil || deps.Process == nil {
		return nil, fmt.Errorf("lock adapter not available: %w", ErrCritical)
	}
	if strings.TrimSpace(stateDir) == "" {
		return nil, fmt.Errorf("state directory is not configured: %w", ErrCritical)
	}
	lockPath := runLockPath(deps.FileSystem, stateDir, root)
	if err := deps.FileSystem.CreateDir(ctx, deps.FileSystem.Dir(lockPath), 0o755); err != nil {
		logger.ErrorContext(ctx, "ensure lock dir", "error", err)
		return nil, fmt.Errorf("ensure lock dir: %w", ErrCritical)
	}
	lockInfo := LockInfo{
		PID:       deps.Process.GetPID(),
		StartTime: time.Now(),
		BackupDir: root,
		RunID:     runID,
	}
	if err := deps.Lock.AcquireLock(ctx, lockPath, lockInfo); err != nil {
		logger.WarnContext(ctx, "Failed to acquire lock", "error", err)
		if errors.Is(err, ErrLockBusy) {
			return nil, fmt.Errorf("backup of %s already running: %w", root, ErrLockBusy)
		}
		return nil, fmt.Errorf("failed to acquire lock: %w", ErrCritical)
	}

	stopRefresh := startLockRefresh(ctx, deps, lockPath, logger)
	release := func() {
		stopRefresh()
		_ = deps.Lock.ReleaseLock(context.WithoutCancel(ctx), lockPath)
	}
	return release, nil
}

func startLockRefresh(
	ctx context.Context,
	deps *Dependencies,
	lockPath string,
	logger *slog.Logger,
) func() {
	refreshCtx, stopRefresh := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(lockRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-refreshCtx.Done():
				return
			case <-ticker.C:
				if err := deps.Lock.RefreshLock(refreshCtx, lockPath); err != nil {
					logger.WarnContext(refreshCtx, "Failed to refresh lock", "error", err)
				}
			}
		}
	}()
	return stopRefresh
}

func recordRun(ctx context.Context, deps *Dependencies, report RunReport, logger *slog.Logger) {
	if deps.Metrics == nil || report.DryRun {
		return
	}
	if err := deps.Metrics.RecordRun(ctx, report); err != nil {
		logger.WarnContext(ctx, "Failed to record metrics", "error", err)
	}
}

func notifyRun(
	ctx context.Context,
	cfg *Config,
	deps *Dependencies,
	report RunReport,
	runErr error,
	logger *slog.Logger,
) {
	if !cfg.Notify || deps.Notification == nil || report.DryRun {
		return
	}
	n := Notification{Title: "snappy", Sound: cfg.NotifySound}
	switch {
	case runErr != nil:
		n.Message = fmt.Sprintf("Backup to %s failed: %v", report.Destination, runErr)
		n.Urgent = true
	case report.PruneFailed:
		n.Message = fmt.Sprintf("Snapshot %s created, retention failed", report.SnapshotName)
	default:
		n.Message = fmt.Sprintf("Snapshot %s created", report.SnapshotName)
	}
	if err := deps.Notification.Send(ctx, n); err != nil {
		logger.DebugContext(ctx, "notification failed", "error", err)
	}
}

func printConfig(cfg *Config, bc *backupContext) {
	bc.vlogf("→ Configuration:")
	bc.vlogf("   Destination: %s", cfg.Destination)
	for _, s := range cfg.Sources {
		bc.vlogf("   Source: %s", s)
	}
	if cfg.KeepCount > 0 {
		bc.vlogf("   Keep count: %d", cfg.KeepCount)
	} else {
		bc.vlogf("   Keep count: unlimited")
	}
	bc.vlogf("   Mirror tool: %s", mirrorBinary(cfg.MirrorBinary))
	if len(cfg.Excludes) > 0 {
		bc.vlogf("   Excludes: %s", strings.Join(cfg.Excludes, ", "))
	}
	if len(cfg.Includes) > 0 {
		bc.vlogf("   Includes: %s", strings.Join(cfg.Includes, ", "))
	}
	bc.vlogf("   Dry run: %t", cfg.DryRun)
	bc.vlogf("")
}

func printBackupSummary(result *BackupResult, bc *backupContext) {
	if result == nil {
		return
	}
	if len(result.Excluded) == 0 && result.PruneErr == nil {
		return
	}

	bc.logf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	bc.logf("BACKUP SUMMARY:")

	if len(result.Excluded) > 5 {
		bc.warnf("Skipped %d unreadable files, first 5:", len(result.Excluded))
		for i := 0; i < 5; i++ {
			bc.warnf("  - %s", result.Excluded[i])
		}
		bc.warnf("  ... and %d more", len(result.Excluded)-5)
	} else if len(result.Excluded) > 0 {
		bc.warnf("Skipped unreadable files:")
		for _, p := range result.Excluded {
			bc.warnf("  - %s", p)
		}
	}

	if result.PruneErr != nil {
		bc.warnf("Retention did not finish: %v", result.PruneErr)
	}

	bc.logf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}

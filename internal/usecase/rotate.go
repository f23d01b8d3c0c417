package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// PruneResult reports what a retention pass did.
type PruneResult struct {
	Kept    []string
	Removed []string
	Failed  []string
	DryRun  bool
}

// PruneOptions describes a manual retention pass.
type PruneOptions struct {
	Destination string
	Keep        int
	DryRun      bool
	Verbose     bool
	HomeDir     string
	StateDir    string
}

// Prune applies the retention count to the snapshots under Destination while
// holding the run lock for that root.
func Prune(ctx context.Context, opts PruneOptions, deps *Dependencies, logger *slog.Logger) (PruneResult, error) {
	if logger == nil {
		panic("logger is required")
	}
	if ctx.Err() != nil {
		return PruneResult{}, ErrInterrupted
	}
	if deps.FileSystem == nil {
		return PruneResult{}, fmt.Errorf("filesystem adapter not available: %w", ErrCritical)
	}
	root, err := NormalizePath(ctx, deps.FileSystem, opts.Destination, opts.HomeDir)
	if err != nil {
		return PruneResult{}, fmt.Errorf("backup destination: %w: %w", ErrUsage, err)
	}
	root = trimTrailingSeparators(deps.FileSystem, root)

	release, err := acquireRunLock(ctx, deps, opts.StateDir, root, "", logger)
	if err != nil {
		return PruneResult{}, err
	}
	defer release()

	bc := newBackupContext(logger, opts.Verbose)
	return pruneSnapshots(ctx, deps.FileSystem, root, opts.Keep, opts.DryRun, bc)
}

// pruneSnapshots deletes the oldest snapshots until at most keep remain.
// keep <= 0 means unlimited. A failed delete does not stop the remaining
// ones; every failure is joined into the returned error.
func pruneSnapshots(
	ctx context.Context,
	fs FileSystemPort,
	root string,
	keep int,
	dryRun bool,
	bc *backupContext,
) (PruneResult, error) {
	result := PruneResult{DryRun: dryRun}
	if keep <= 0 {
		bc.vlogf("[rotate] unlimited retention, nothing to prune")
		return result, nil
	}
	snaps, err := ListSnapshots(ctx, fs, root)
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrPrune, err)
	}
	if len(snaps) <= keep {
		result.Kept = snaps
		bc.vlogf("[rotate] %d snapshot(s), limit %d, nothing to prune", len(snaps), keep)
		return result, nil
	}

	cut := len(snaps) - keep
	result.Kept = snaps[cut:]
	var errs []error
	for _, s := range snaps[:cut] {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if dryRun {
			bc.logf("Dry run: would remove %s (exceeds keep=%d)", s, keep)
			result.Removed = append(result.Removed, s)
			continue
		}
		bc.logf("[rotate:count] remove %s (exceeds keep=%d)", s, keep)
		if err := fs.RemoveAll(ctx, s); err != nil {
			bc.warnf("remove %s: %v", s, err)
			result.Failed = append(result.Failed, s)
			errs = append(errs, fmt.Errorf("remove %s: %w", s, err))
			continue
		}
		result.Removed = append(result.Removed, s)
	}
	if len(errs) > 0 {
		return result, fmt.Errorf("%w: %w", ErrPrune, errors.Join(errs...))
	}
	return result, nil
}

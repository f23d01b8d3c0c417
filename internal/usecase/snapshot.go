package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

//nolint:gochecknoglobals // overridden in tests for deterministic snapshot names.
var snapshotNow = time.Now

// BackupRequest describes one snapshot run against a backup root.
type BackupRequest struct {
	Sources        []string
	Destination    string
	KeepCount      int
	Excludes       []string
	Includes       []string
	Options        []string
	Binary         string
	DryRun         bool
	CleanupStaging bool
	Verbose        bool
	HomeDir        string
	RunID          string
}

// RunBackup creates one snapshot of req.Sources under req.Destination.
//
// The snapshot is built in a staging directory named after a hash of its
// final name and renamed into place only when every source was mirrored.
// Unchanged files are hard-linked against the newest existing snapshot. Any
// failure before the rename removes the staging directory and leaves the
// snapshot set as it was. Retention runs after a successful commit; its
// failures are reported in the result and do not fail the run.
func RunBackup(ctx context.Context, deps *Dependencies, req BackupRequest, logger *slog.Logger) (*BackupResult, error) {
	if logger == nil {
		panic("logger is required")
	}
	if deps.FileSystem == nil {
		return nil, fmt.Errorf("filesystem adapter not available: %w", ErrCritical)
	}
	if ctx.Err() != nil {
		return nil, ErrInterrupted
	}
	started := snapshotNow()
	bc := newBackupContext(logger, req.Verbose)
	fs := deps.FileSystem

	if len(req.Sources) == 0 {
		return nil, fmt.Errorf("no sources to back up: %w", ErrUsage)
	}
	root, err := NormalizePath(ctx, fs, req.Destination, req.HomeDir)
	if err != nil {
		return nil, fmt.Errorf("backup destination: %w", err)
	}
	root = trimTrailingSeparators(fs, root)

	// ToolCheck
	if _, err := ensureMirrorTool(ctx, deps, req.Binary); err != nil {
		return nil, err
	}

	// Staging
	if err := fs.CreateDir(ctx, root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create backup root %s: %w", ErrBackupFailed, root, err)
	}
	if req.CleanupStaging {
		removeStagingLeftovers(ctx, fs, root, bc)
	}
	prior, err := ListSnapshots(ctx, fs, root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackupFailed, err)
	}
	name, err := uniqueSnapshotName(fs, prior, formatSnapshotName(started))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackupFailed, err)
	}
	staging := fs.Join(root, stagingName(name))
	if err := fs.CreateDirExclusive(ctx, staging, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create staging dir %s: %w", ErrBackupFailed, staging, err)
	}
	bc.vlogf("→ Staging %s in %s", name, staging)

	committed := false
	defer func() {
		if committed {
			return
		}
		bc.vlogf("cleaning up staging dir: %s", staging)
		if err := fs.RemoveAll(context.WithoutCancel(ctx), staging); err != nil {
			bc.warnf("remove staging dir %s: %v", staging, err)
		}
	}()

	// Linking
	options := make([]string, 0, len(req.Options)+len(req.Excludes)+len(req.Includes)+2)
	if req.DryRun {
		options = append(options, mirrorDryRunFlag)
	}
	options = append(options, filterArgs(req.Excludes, req.Includes)...)
	options = append(options, req.Options...)
	linkDest := ""
	if len(prior) > 0 {
		linkDest = prior[len(prior)-1]
		options = append(options, fmt.Sprintf(mirrorLinkDestFormat, linkDest))
		bc.vlogf("→ Linking unchanged files against %s", linkDest)
	}

	// Creating
	excluded, err := createSnapshot(ctx, deps, createRequest{
		Sources:     req.Sources,
		Destination: staging,
		Options:     options,
		Excludes:    req.Excludes,
		Binary:      req.Binary,
		HomeDir:     req.HomeDir,
	}, bc)
	if err != nil {
		return nil, backupFailure(err)
	}

	result := &BackupResult{
		RunID:        req.RunID,
		SnapshotName: name,
		SnapshotPath: fs.Join(root, name),
		DryRun:       req.DryRun,
		LinkDest:     linkDest,
		Excluded:     excluded,
	}

	if req.DryRun {
		bc.logf("Dry run: would create snapshot %s", result.SnapshotPath)
		result.Duration = snapshotNow().Sub(started)
		return result, nil
	}

	// Committing
	if ctx.Err() != nil {
		return nil, backupFailure(ctx.Err())
	}
	if err := fs.Move(ctx, staging, result.SnapshotPath); err != nil {
		return nil, backupFailure(fmt.Errorf("commit %s: %w", result.SnapshotPath, err))
	}
	committed = true
	bc.logf("✓ Snapshot created → %s", result.SnapshotPath)

	// Pruning
	pruned, err := pruneSnapshots(ctx, fs, root, req.KeepCount, false, bc)
	result.Pruned = pruned.Removed
	if err != nil {
		bc.warnf("retention: %v", err)
		result.PruneErr = err
	}
	result.Duration = snapshotNow().Sub(started)
	return result, nil
}

func backupFailure(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: %w", ErrBackupFailed, ErrInterrupted, err)
	}
	return fmt.Errorf("%w: %w", ErrBackupFailed, err)
}

// removeStagingLeftovers deletes staging directories of earlier runs that
// were killed before they could clean up.
func removeStagingLeftovers(ctx context.Context, fs FileSystemPort, root string, bc *backupContext) {
	leftovers, err := ListStaging(ctx, fs, root)
	if err != nil {
		bc.warnf("list staging leftovers: %v", err)
		return
	}
	for _, dir := range leftovers {
		bc.logf("Removing staging leftover %s", dir)
		if err := fs.RemoveAll(ctx, dir); err != nil {
			bc.warnf("remove staging leftover %s: %v", dir, err)
		}
	}
}

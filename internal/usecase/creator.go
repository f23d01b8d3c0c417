package usecase

import (
	"context"
	"fmt"
)

type createRequest struct {
	Sources     []string
	Destination string
	Options     []string
	Excludes    []string
	Binary      string
	HomeDir     string
}

// createSnapshot mirrors every source, in order, into the destination
// directory. It stops at the first failure and leaves cleanup of the partial
// destination to the caller. It returns the unreadable paths it excluded.
func createSnapshot(ctx context.Context, deps *Dependencies, req createRequest, bc *backupContext) ([]string, error) {
	fs := deps.FileSystem
	dst, err := NormalizePath(ctx, fs, req.Destination, req.HomeDir)
	if err != nil {
		return nil, err
	}
	if !hasTrailingSeparator(dst) {
		dst += string(fs.PathSeparator())
	}
	matchers := compileExcludes(req.Excludes, bc)

	excluded := make([]string, 0)
	for _, raw := range req.Sources {
		if ctx.Err() != nil {
			return excluded, ctx.Err()
		}
		src, err := NormalizePath(ctx, fs, raw, req.HomeDir)
		if err != nil {
			return excluded, err
		}
		if _, err := fs.Stat(ctx, src); err != nil {
			if fs.IsNotExist(err) {
				return excluded, fmt.Errorf("location %s cannot be found: %w", src, ErrSourceNotFound)
			}
			return excluded, fmt.Errorf("stat source %s: %w", src, err)
		}

		args := make([]string, 0, len(req.Options))
		for _, p := range FindUnreadable(ctx, deps, src, bc.logger) {
			pattern, ok := ExclusionPattern(fs, src, p)
			if !ok {
				continue
			}
			anchored := anchorPattern(fs, src, pattern)
			if by, ok := excludedBy(matchers, anchored); ok {
				bc.vlogf("   unreadable %s also matches exclude %q", p, by)
			}
			bc.warnf("Excluding unreadable file %s", p)
			args = append(args, fmt.Sprintf(mirrorExcludeFormat, anchored))
			excluded = append(excluded, p)
		}
		args = append(args, req.Options...)

		bc.logf("→ Backing up %s", src)
		res, err := Mirror(ctx, deps, MirrorOptions{
			Binary:      req.Binary,
			Source:      src,
			Destination: dst,
			Args:        args,
			HomeDir:     req.HomeDir,
		}, bc)
		if err != nil {
			if ctx.Err() != nil {
				return excluded, ctx.Err()
			}
			return excluded, &MirrorError{Source: src, ExitCode: -1, Err: err}
		}
		if ctx.Err() != nil {
			return excluded, ctx.Err()
		}
		if res.ExitCode != 0 {
			return excluded, &MirrorError{Source: src, ExitCode: res.ExitCode, Diagnostic: mirrorDiagnostic(res)}
		}
		bc.vlogf("✓ %s copied", src)
	}
	return excluded, nil
}

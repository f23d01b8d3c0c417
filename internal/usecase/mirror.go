package usecase

import (
	"context"
	"fmt"
	"strings"
)

// DefaultMirrorBinary is the mirror tool used when none is configured.
const DefaultMirrorBinary = "rsync"

const (
	mirrorArchiveFlag = "-av"
	mirrorDeleteFlag  = "--delete"
	mirrorDryRunFlag  = "--dry-run"

	mirrorLinkDestFormat = "--link-dest=%s"
	mirrorExcludeFormat  = "--exclude=%s"
	mirrorIncludeFormat  = "--include=%s"
)

// MirrorOptions describes a single mirror invocation.
type MirrorOptions struct {
	Binary      string
	Source      string
	Destination string
	Args        []string
	HomeDir     string
}

// Mirror copies Source into Destination with the mirror tool in archive and
// delete mode, forwarding every output line to the logger as it arrives.
// A non-zero exit is returned in the result, not as an error.
func Mirror(ctx context.Context, deps *Dependencies, opts MirrorOptions, bc *backupContext) (MirrorResult, error) {
	if deps.Mirror == nil {
		return MirrorResult{}, fmt.Errorf("mirror adapter not available: %w", ErrCritical)
	}
	src, err := NormalizePath(ctx, deps.FileSystem, opts.Source, opts.HomeDir)
	if err != nil {
		return MirrorResult{}, err
	}
	dst, err := NormalizePath(ctx, deps.FileSystem, opts.Destination, opts.HomeDir)
	if err != nil {
		return MirrorResult{}, err
	}
	binary := mirrorBinary(opts.Binary)

	args := make([]string, 0, len(opts.Args)+2)
	args = append(args, mirrorArchiveFlag, mirrorDeleteFlag)
	args = append(args, opts.Args...)

	req := MirrorRequest{Binary: binary, Args: args, Source: src, Destination: dst}
	bc.vlogf("→ %s %s %s %s", binary, strings.Join(args, " "), src, dst)
	return deps.Mirror.Run(ctx, req, bc.lineSink(deps.FileSystem.Base(binary)))
}

// ensureMirrorTool verifies the mirror tool is installed before any
// filesystem mutation.
func ensureMirrorTool(ctx context.Context, deps *Dependencies, binary string) (string, error) {
	if deps.Mirror == nil {
		return "", fmt.Errorf("mirror adapter not available: %w", ErrCritical)
	}
	binary = mirrorBinary(binary)
	resolved, err := deps.Mirror.LookPath(ctx, binary)
	if err != nil {
		return "", fmt.Errorf("%s is not installed or not on PATH: %w", binary, ErrToolNotFound)
	}
	return resolved, nil
}

func mirrorBinary(binary string) string {
	if b := strings.TrimSpace(binary); b != "" {
		return b
	}
	return DefaultMirrorBinary
}

func mirrorDiagnostic(res MirrorResult) string {
	if d := strings.TrimSpace(res.Stderr); d != "" {
		return d
	}
	return strings.TrimSpace(res.Stdout)
}

// filterArgs turns configured exclude and include patterns into mirror
// arguments. Includes come first so they can re-include paths under an
// excluded directory.
func filterArgs(excludes, includes []string) []string {
	args := make([]string, 0, len(excludes)+len(includes))
	for _, p := range includes {
		if p = strings.TrimSpace(p); p != "" {
			args = append(args, fmt.Sprintf(mirrorIncludeFormat, p))
		}
	}
	for _, p := range excludes {
		if p = strings.TrimSpace(p); p != "" {
			args = append(args, fmt.Sprintf(mirrorExcludeFormat, p))
		}
	}
	return args
}

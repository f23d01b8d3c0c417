package usecase

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// FindUnreadable lists paths under root that the current user cannot read.
// A failing scan is logged and yields no paths.
func FindUnreadable(ctx context.Context, deps *Dependencies, root string, logger *slog.Logger) []string {
	if deps.Scanner == nil {
		return nil
	}
	res, err := deps.Scanner.Scan(ctx, root)
	if err != nil {
		logger.WarnContext(ctx, "Unreadable file scan unavailable", "root", root, "error", err)
		return nil
	}
	if res.ExitCode != 0 {
		logger.WarnContext(ctx, "Unreadable file scan failed", "root", root, "exit_code", res.ExitCode)
		return nil
	}
	return parseScanOutput(res.Output)
}

func parseScanOutput(out []byte) []string {
	lines := bytes.Split(out, []byte("\n"))
	paths := make([]string, 0, len(lines))
	for _, line := range lines {
		p := strings.TrimRight(string(line), "\r")
		if strings.TrimSpace(p) == "" {
			continue
		}
		paths = append(paths, p)
	}
	return paths
}

// ExclusionPattern converts an absolute path under root into a mirror
// exclusion pattern relative to root with a leading separator:
// <root>/x/y.txt becomes /x/y.txt. ok is false for root itself and for
// paths outside root.
func ExclusionPattern(fs FileSystemPort, root, path string) (string, bool) {
	rel, err := fs.Rel(trimTrailingSeparators(fs, root), path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return "/" + rel, true
}

// anchorPattern places pattern under the source basename when the source
// directory itself is transferred, since the mirror tool anchors leading
// separators at the transfer root.
func anchorPattern(fs FileSystemPort, source, pattern string) string {
	if hasTrailingSeparator(source) {
		return pattern
	}
	return "/" + fs.Base(source) + pattern
}

type excludeMatcher struct {
	pattern string
	glob    glob.Glob
}

func compileExcludes(patterns []string, bc *backupContext) []excludeMatcher {
	matchers := make([]excludeMatcher, 0, len(patterns))
	for _, raw := range patterns {
		p := strings.TrimSpace(raw)
		if p == "" {
			continue
		}
		g, err := glob.Compile(strings.TrimSuffix(strings.TrimPrefix(p, "/"), "/"), '/')
		if err != nil {
			bc.warnf("Ignoring invalid exclude pattern %q: %v", p, err)
			continue
		}
		matchers = append(matchers, excludeMatcher{pattern: p, glob: g})
	}
	return matchers
}

// excludedBy reports the configured pattern that matches the transfer-root
// pattern rel, either as a whole path or, for unanchored patterns, on any
// path component. It only feeds diagnostics: includes may re-admit a match,
// so unreadable paths are always excluded explicitly.
func excludedBy(matchers []excludeMatcher, rel string) (string, bool) {
	trimmed := strings.TrimPrefix(rel, "/")
	parts := strings.Split(trimmed, "/")
	for _, m := range matchers {
		if m.glob.Match(trimmed) {
			return m.pattern, true
		}
		if strings.HasPrefix(m.pattern, "/") {
			continue
		}
		for _, part := range parts {
			if m.glob.Match(part) {
				return m.pattern, true
			}
		}
	}
	return "", false
}

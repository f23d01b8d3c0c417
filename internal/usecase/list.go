package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// listPalette holds ANSI escape sequences for colorized list output.
// When useColor is false, all fields are empty strings.
type listPalette struct {
	reset    string
	bold     string
	dim      string
	green    string
	yellow   string
	boldCyan string
}

func newListPalette(useColor bool) listPalette {
	if !useColor {
		return listPalette{}
	}
	return listPalette{
		reset:    "\033[0m",
		bold:     "\033[1m",
		dim:      "\033[2m",
		green:    "\033[32m",
		yellow:   "\033[33m",
		boldCyan: "\033[1;36m",
	}
}

// SnapshotEntry describes one committed snapshot.
type SnapshotEntry struct {
	Name    string
	Path    string
	Created time.Time
}

// SnapshotListing is the content of a backup root.
type SnapshotListing struct {
	Root      string
	Keep      int
	Snapshots []SnapshotEntry
	Staging   []string
}

// ListBackups reads the snapshots and staging leftovers under the configured destination.
func ListBackups(ctx context.Context, cfg *Config, deps *Dependencies, logger *slog.Logger) (SnapshotListing, error) {
	if logger == nil {
		panic("logger is required")
	}
	if deps.FileSystem == nil {
		return SnapshotListing{}, fmt.Errorf("filesystem adapter not available: %w", ErrCritical)
	}
	fs := deps.FileSystem
	root, err := NormalizePath(ctx, fs, cfg.Destination, cfg.HomeDir)
	if err != nil {
		return SnapshotListing{}, fmt.Errorf("backup destination: %w: %w", ErrUsage, err)
	}
	root = trimTrailingSeparators(fs, root)

	listing := SnapshotListing{Root: root, Keep: cfg.KeepCount}
	snaps, err := ListSnapshots(ctx, fs, root)
	if err != nil {
		return listing, err
	}
	for _, p := range snaps {
		entry := SnapshotEntry{Name: fs.Base(p), Path: p}
		if t, ok := parseSnapshotTime(entry.Name); ok {
			entry.Created = t
		} else {
			// Foreign directories such as lost+found sort after every timestamp,
			// so they become the link-dest and count toward retention.
			logger.WarnContext(ctx, "Directory in backup root is not a snapshot name", "path", p)
			if info, err := fs.Stat(ctx, p); err == nil {
				entry.Created = info.ModTime()
			}
		}
		listing.Snapshots = append(listing.Snapshots, entry)
	}
	staging, err := ListStaging(ctx, fs, root)
	if err != nil {
		logger.WarnContext(ctx, "list staging leftovers", "error", err)
	}
	listing.Staging = staging
	return listing, nil
}

// FormatSnapshotList renders the listing with ages relative to now.
func FormatSnapshotList(listing SnapshotListing, now time.Time, homeDir string, sep byte, useColor bool) string {
	p := newListPalette(useColor)
	var b strings.Builder

	fmt.Fprintf(&b, "%sSnapshots in %s%s\n", p.bold, contractHomeDir(listing.Root, homeDir, sep), p.reset)
	b.WriteString(strings.Repeat("─", 54))
	b.WriteString("\n")
	if len(listing.Snapshots) == 0 {
		fmt.Fprintf(&b, "  %s(none)%s\n", p.dim, p.reset)
	}
	latest := len(listing.Snapshots) - 1
	for i, s := range listing.Snapshots {
		age := fmt.Sprintf("%s%s%s", p.dim, humanize.RelTime(s.Created, now, "ago", "from now"), p.reset)
		if s.Created.IsZero() {
			age = fmt.Sprintf("%s(unknown age)%s", p.dim, p.reset)
		}
		marker := "  "
		if i == latest {
			marker = p.green + "▶ " + p.reset
		}
		fmt.Fprintf(&b, "%s%-24s %s\n", marker, s.Name, age)
	}
	b.WriteString("\n")
	keep := "unlimited"
	if listing.Keep > 0 {
		keep = fmt.Sprintf("%d", listing.Keep)
	}
	fmt.Fprintf(&b, "  %-18s %d (keep %s)\n", "Snapshots:", len(listing.Snapshots), keep)
	if len(listing.Staging) > 0 {
		fmt.Fprintf(&b, "\n%sStaging leftovers:%s\n", p.boldCyan, p.reset)
		for _, s := range listing.Staging {
			fmt.Fprintf(&b, "  %s%s%s %s(interrupted run)%s\n", p.yellow, s, p.reset, p.dim, p.reset)
		}
	}
	return b.String()
}

package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// SnapshotNameLayout is the time layout of committed snapshot directory names.
const SnapshotNameLayout = "2006-01-02-15_04_05"

const (
	stagingNameLen  = 32
	maxNameAttempts = 100
)

// ListSnapshots returns absolute paths of the committed snapshots in root,
// ascending by name, which is chronological order. Plain files and staging
// directories left by interrupted runs are not snapshots.
func ListSnapshots(ctx context.Context, fs FileSystemPort, root string) ([]string, error) {
	names, err := listSubdirs(ctx, fs, root)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if isStagingName(name) {
			continue
		}
		out = append(out, fs.Join(root, name))
	}
	return out, nil
}

// ListStaging returns absolute paths of staging directories in root.
func ListStaging(ctx context.Context, fs FileSystemPort, root string) ([]string, error) {
	names, err := listSubdirs(ctx, fs, root)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0)
	for _, name := range names {
		if isStagingName(name) {
			out = append(out, fs.Join(root, name))
		}
	}
	return out, nil
}

func listSubdirs(ctx context.Context, fs FileSystemPort, root string) ([]string, error) {
	entries, err := fs.ReadDir(ctx, root)
	if err != nil {
		if fs.IsNotExist(err) {
			return nil, fmt.Errorf("backup root %s: %w: %w", root, ErrNotFound, err)
		}
		return nil, fmt.Errorf("read backup root %s: %w", root, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func formatSnapshotName(now time.Time) string {
	return now.Format(SnapshotNameLayout)
}

// parseSnapshotTime extracts the creation time from a snapshot name, ignoring
// a same-second suffix.
func parseSnapshotTime(name string) (time.Time, bool) {
	if len(name) < len(SnapshotNameLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(SnapshotNameLayout, name[:len(SnapshotNameLayout)], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// uniqueSnapshotName returns base, or base-NN when a snapshot with that name
// already exists.
func uniqueSnapshotName(fs FileSystemPort, existing []string, base string) (string, error) {
	taken := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		taken[fs.Base(p)] = struct{}{}
	}
	for i := 0; i < maxNameAttempts; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s-%02d", base, i)
		}
		if _, ok := taken[name]; !ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("no free snapshot name for %s", base)
}

// stagingName derives the staging directory name from the final snapshot name.
func stagingName(snapshotName string) string {
	return shortHashN(snapshotName, stagingNameLen)
}

func isStagingName(name string) bool {
	if len(name) != stagingNameLen {
		return false
	}
	for _, r := range name {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

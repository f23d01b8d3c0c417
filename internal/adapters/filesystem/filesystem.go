package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/arumata/snappy/internal/usecase"
)

// Adapter implements usecase.FileSystemPort on top of os and filepath.
type Adapter struct {
	logger *slog.Logger
}

// New creates a new filesystem adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		panic("filesystem adapter requires logger")
	}
	return &Adapter{logger: logger}
}

// ReadFile reads a config file or unit template.
func (a *Adapter) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return os.ReadFile(path) // #nosec G304 - paths are controlled by usecase
}

// WriteFile writes data with perm, falling back to 0644 for out-of-range values.
func (a *Adapter) WriteFile(ctx context.Context, path string, data []byte, perm int) error {
	return os.WriteFile(path, data, filePerm(perm, 0o644))
}

// CreateDir creates directory and any missing parents.
func (a *Adapter) CreateDir(ctx context.Context, path string, perm int) error {
	return os.MkdirAll(path, filePerm(perm, 0o755))
}

// CreateDirExclusive creates a single directory and fails with fs.ErrExist
// if it is already there. Staging directories rely on this.
func (a *Adapter) CreateDirExclusive(ctx context.Context, path string, perm int) error {
	return os.Mkdir(path, filePerm(perm, 0o755))
}

// RemoveAll removes a snapshot or staging tree. Snapshot trees copied from
// restrictive sources may contain read-only directories, so a failed
// removal is retried once after making directories writable.
func (a *Adapter) RemoveAll(ctx context.Context, path string) error {
	err := os.RemoveAll(path)
	if err == nil || !isPermission(err) {
		return err
	}
	a.logger.Debug("retrying removal with relaxed permissions", "path", path, "error", err)
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr == nil && d.IsDir() {
			_ = os.Chmod(p, 0o700) // #nosec G302 - owner-only access for removal
		}
		return nil
	})
	return os.RemoveAll(path)
}

// Stat follows symlinks, so a destination given as a link to a mount works.
func (a *Adapter) Stat(ctx context.Context, path string) (usecase.FileInfo, error) {
	return os.Stat(path)
}

// ReadDir lists the entries of a backup root.
func (a *Adapter) ReadDir(ctx context.Context, path string) ([]usecase.DirEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	result := make([]usecase.DirEntry, len(entries))
	for i, entry := range entries {
		result[i] = entry
	}
	return result, nil
}

// Move renames src to dst. Staging and snapshot directories share a parent,
// so a cross-device rename is reported instead of falling back to a copy.
func (a *Adapter) Move(ctx context.Context, src, dst string) error {
	err := os.Rename(src, dst)
	if err != nil && errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("rename %s across filesystems: %w", src, err)
	}
	return err
}

// Abs returns absolute path
func (a *Adapter) Abs(ctx context.Context, path string) (string, error) {
	return filepath.Abs(path)
}

// Join joins path elements
func (a *Adapter) Join(elements ...string) string {
	return filepath.Join(elements...)
}

// Base returns last element of path
func (a *Adapter) Base(path string) string {
	return filepath.Base(path)
}

// Dir returns directory of path
func (a *Adapter) Dir(path string) string {
	return filepath.Dir(path)
}

// Rel returns a relative path.
func (a *Adapter) Rel(basepath, targpath string) (string, error) {
	return filepath.Rel(basepath, targpath)
}

// Clean returns the cleaned path.
func (a *Adapter) Clean(path string) string {
	return filepath.Clean(path)
}

// VolumeName returns the volume name of path.
func (a *Adapter) VolumeName(path string) string {
	return filepath.VolumeName(path)
}

// PathSeparator returns the OS-specific path separator.
func (a *Adapter) PathSeparator() byte {
	return os.PathSeparator
}

// IsNotExist reports whether err indicates that a path does not exist.
// Also covers syscall.ENOTDIR (path component is not a directory).
func (a *Adapter) IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

func isPermission(err error) bool {
	return errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM)
}

func filePerm(perm, fallback int) fs.FileMode {
	if perm < 0 || perm > 0o777 {
		perm = fallback
	}
	// #nosec G115 - perm is validated to be within safe range
	return fs.FileMode(perm)
}

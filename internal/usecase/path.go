package usecase

import (
	"context"
	"fmt"
	"strings"
)

// NormalizePath expands a leading ~ or $HOME, resolves path to an absolute
// cleaned form and keeps a trailing separator when the input had one.
// Symlinks are not resolved.
func NormalizePath(ctx context.Context, fs FileSystemPort, path, homeDir string) (string, error) {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return "", fmt.Errorf("empty path: %w", ErrInvalidPath)
	}
	if needsHomeDir(clean) && strings.TrimSpace(homeDir) == "" {
		return "", fmt.Errorf("cannot expand %q without a home directory: %w", clean, ErrInvalidPath)
	}
	trailing := hasTrailingSeparator(clean)

	abs, err := fs.Abs(ctx, expandHomeDir(clean, homeDir))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", clean, err)
	}
	abs = fs.Clean(abs)

	sep := string(fs.PathSeparator())
	if trailing && !strings.HasSuffix(abs, sep) {
		abs += sep
	}
	return abs, nil
}

// ExpandHomeDirPublic expands ~ and $HOME prefixes in path.
func ExpandHomeDirPublic(path, homeDir string) string {
	return expandHomeDir(path, homeDir)
}

func expandHomeDir(path, homeDir string) string {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return clean
	}
	if clean == "~" {
		return homeDir
	}
	if strings.HasPrefix(clean, "~/") {
		return strings.TrimRight(homeDir, "/") + clean[1:]
	}
	if clean == "$HOME" {
		return homeDir
	}
	if strings.HasPrefix(clean, "$HOME/") {
		return strings.TrimRight(homeDir, "/") + clean[len("$HOME"):]
	}
	if clean == "${HOME}" {
		return homeDir
	}
	if strings.HasPrefix(clean, "${HOME}/") {
		return strings.TrimRight(homeDir, "/") + clean[len("${HOME}"):]
	}
	return clean
}

func needsHomeDir(path string) bool {
	for _, prefix := range []string{"~", "$HOME", "${HOME}"} {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func contractHomeDir(path, homeDir string, sep byte) string {
	if homeDir == "" || path == "" {
		return path
	}
	if path == homeDir {
		return "~"
	}
	prefix := homeDir + string(sep)
	if strings.HasPrefix(path, prefix) {
		return "~" + string(sep) + path[len(prefix):]
	}
	return path
}

func hasTrailingSeparator(path string) bool {
	return strings.HasSuffix(path, "/") || strings.HasSuffix(path, "\\")
}

func trimTrailingSeparators(fs FileSystemPort, path string) string {
	if path == "" {
		return ""
	}
	sep := fs.PathSeparator()
	if path == string(sep) {
		return path
	}
	volume := fs.VolumeName(path)
	if volume != "" {
		rest := strings.TrimPrefix(path, volume)
		if rest == "" || rest == string(sep) || rest == "/" || rest == "\\" {
			return volume + string(sep)
		}
	}
	return strings.TrimRight(path, "/\\")
}

func pathExists(ctx context.Context, fs FileSystemPort, path string) (bool, error) {
	info, err := fs.Stat(ctx, path)
	if err != nil {
		if fs.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info != nil, nil
}

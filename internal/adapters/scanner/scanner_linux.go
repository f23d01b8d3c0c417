//go:build linux

package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/arumata/snappy/internal/usecase"
)

// Scan runs find(1) with -readable, pruning unreadable directories so find
// does not fail on them. Without find it falls back to a native walk.
func (a *Adapter) Scan(ctx context.Context, root string) (usecase.ScanResult, error) {
	findPath, err := exec.LookPath("find")
	if err != nil {
		a.logger.DebugContext(ctx, "find not available, walking natively", "root", root)
		return a.walk(ctx, root, accessReadable)
	}

	cmd := exec.CommandContext(ctx, findPath, root, "!", "-readable", "-prune", "-print") // #nosec G204 - root is a normalized source path
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				a.logger.DebugContext(ctx, "find reported errors", "root", root, "stderr", msg)
			}
			return usecase.ScanResult{ExitCode: exitErr.ExitCode(), Output: out}, nil
		}
		return usecase.ScanResult{ExitCode: -1}, fmt.Errorf("run find: %w", err)
	}
	return usecase.ScanResult{Output: out}, nil
}

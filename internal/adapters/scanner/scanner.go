// Package scanner finds paths the current user cannot read.
package scanner

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/arumata/snappy/internal/usecase"
)

// Adapter implements usecase.ScannerPort.
type Adapter struct {
	logger *slog.Logger
}

// New creates a new scanner adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		panic("scanner adapter requires logger")
	}
	return &Adapter{logger: logger}
}

// walk is the portable scan: every entry failing readable is listed, and
// unreadable directories are not descended into.
func (a *Adapter) walk(ctx context.Context, root string, readable func(string) bool) (usecase.ScanResult, error) {
	var out bytes.Buffer
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			out.WriteString(path)
			out.WriteByte('\n')
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if !readable(path) {
			out.WriteString(path)
			out.WriteByte('\n')
			if d.IsDir() {
				return fs.SkipDir
			}
		}
		return nil
	})
	if err != nil {
		return usecase.ScanResult{ExitCode: 1, Output: out.Bytes()}, err
	}
	return usecase.ScanResult{Output: out.Bytes()}, nil
}

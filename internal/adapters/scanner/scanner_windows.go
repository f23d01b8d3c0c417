//go:build windows

package scanner

import (
	"context"
	"os"

	"github.com/arumata/snappy/internal/usecase"
)

// Scan walks root natively, probing each path by opening it.
func (a *Adapter) Scan(ctx context.Context, root string) (usecase.ScanResult, error) {
	return a.walk(ctx, root, openReadable)
}

func openReadable(path string) bool {
	f, err := os.Open(path) // #nosec G304 - probing paths under a backup source
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

//go:build !linux && !windows

package scanner

import (
	"context"

	"github.com/arumata/snappy/internal/usecase"
)

// Scan walks root natively; BSD find has no -readable primary.
func (a *Adapter) Scan(ctx context.Context, root string) (usecase.ScanResult, error) {
	return a.walk(ctx, root, accessReadable)
}

package templates

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/arumata/snappy/assets"
	"github.com/arumata/snappy/internal/usecase"
)

const unitFilePerm = 0o644

// unitPatterns select the systemd unit kinds that are installed.
var unitPatterns = []string{"*.service", "*.timer"}

// Adapter serves the embedded systemd user units.
type Adapter struct {
	logger *slog.Logger
	fsys   fs.ReadFileFS
	dir    string
}

// New creates a new templates adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		panic("templates adapter requires logger")
	}
	return &Adapter{logger: logger, fsys: assets.SystemdFS, dir: assets.SystemdDir}
}

// List returns the unit templates sorted by name. Files that are not
// .service or .timer units are ignored.
func (a *Adapter) List(ctx context.Context) ([]usecase.TemplateEntry, error) {
	var names []string
	for _, pattern := range unitPatterns {
		matches, err := fs.Glob(a.fsys, path.Join(a.dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("list units: %w", err)
		}
		names = append(names, matches...)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no unit templates in %s", a.dir)
	}
	slices.Sort(names)

	result := make([]usecase.TemplateEntry, len(names))
	for i, name := range names {
		result[i] = usecase.TemplateEntry{Name: path.Base(name), Mode: unitFilePerm}
	}
	a.logger.DebugContext(ctx, "unit templates", "count", len(result))
	return result, nil
}

// Read returns a unit template by file name.
func (a *Adapter) Read(ctx context.Context, name string) ([]byte, error) {
	_ = ctx
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return nil, errors.New("unit name is empty")
	case strings.ContainsAny(name, `/\`) || !fs.ValidPath(name):
		return nil, fmt.Errorf("unit name %q must be a plain file name", name)
	}
	data, err := a.fsys.ReadFile(path.Join(a.dir, name))
	if err != nil {
		return nil, fmt.Errorf("read unit %s: %w", name, err)
	}
	return data, nil
}

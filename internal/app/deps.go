package app

import (
	"log/slog"
	"strings"

	"github.com/arumata/snappy/internal/adapters/config"
	"github.com/arumata/snappy/internal/adapters/filesystem"
	"github.com/arumata/snappy/internal/adapters/lock"
	"github.com/arumata/snappy/internal/adapters/metrics"
	"github.com/arumata/snappy/internal/adapters/noop"
	"github.com/arumata/snappy/internal/adapters/notification"
	"github.com/arumata/snappy/internal/adapters/process"
	"github.com/arumata/snappy/internal/adapters/rsync"
	"github.com/arumata/snappy/internal/adapters/scanner"
	"github.com/arumata/snappy/internal/adapters/scheduler"
	"github.com/arumata/snappy/internal/adapters/templates"
	"github.com/arumata/snappy/internal/usecase"
)

// NewDefaultDependencies creates dependencies with real adapters. Desktop
// notifications and metrics start as no-ops until ApplyConfig enables them.
func NewDefaultDependencies(logger *slog.Logger) *usecase.Dependencies {
	if logger == nil {
		panic("default dependencies require logger")
	}
	return &usecase.Dependencies{
		FileSystem:   filesystem.New(logger),
		Mirror:       rsync.New(logger),
		Scanner:      scanner.New(logger),
		Lock:         lock.New(logger),
		Process:      process.New(logger),
		Config:       config.New(logger),
		Templates:    templates.New(logger),
		Notification: noop.NewNotifier(logger),
		Metrics:      noop.NewMetrics(logger),
		Scheduler:    scheduler.New(logger),
	}
}

// ApplyConfig swaps in the optional adapters the configuration turns on.
func ApplyConfig(deps *usecase.Dependencies, cfg usecase.ConfigFile, homeDir string, logger *slog.Logger) {
	if logger == nil {
		panic("apply config requires logger")
	}
	if cfg.Notifications.Enabled {
		deps.Notification = notification.New(logger)
	} else {
		deps.Notification = noop.NewNotifier(logger)
	}
	if dir := strings.TrimSpace(cfg.Metrics.TextfileDir); dir != "" {
		deps.Metrics = metrics.New(logger, usecase.ExpandHomeDirPublic(dir, homeDir))
	} else {
		deps.Metrics = noop.NewMetrics(logger)
	}
}

// Package noop provides adapters for features switched off in the
// configuration. They log at debug level and never fail.
package noop

import (
	"context"
	"log/slog"

	"github.com/arumata/snappy/internal/usecase"
)

// Notifier implements usecase.NotificationPort when notifications are disabled.
type Notifier struct {
	logger *slog.Logger
}

// NewNotifier creates a no-op notifier.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		panic("noop notifier requires logger")
	}
	return &Notifier{logger: logger}
}

// Send drops the notification.
func (n *Notifier) Send(ctx context.Context, msg usecase.Notification) error {
	n.logger.DebugContext(ctx, "notifications disabled, dropping", "title", msg.Title)
	return nil
}

// Metrics implements usecase.MetricsPort when no textfile directory is set.
type Metrics struct {
	logger *slog.Logger
}

// NewMetrics creates a no-op metrics recorder.
func NewMetrics(logger *slog.Logger) *Metrics {
	if logger == nil {
		panic("noop metrics requires logger")
	}
	return &Metrics{logger: logger}
}

// RecordRun drops the report.
func (m *Metrics) RecordRun(ctx context.Context, report usecase.RunReport) error {
	m.logger.DebugContext(ctx, "metrics disabled, dropping run report", "destination", report.Destination)
	return nil
}

var (
	_ usecase.NotificationPort = (*Notifier)(nil)
	_ usecase.MetricsPort      = (*Metrics)(nil)
)

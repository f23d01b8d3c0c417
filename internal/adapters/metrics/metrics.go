// Package metrics exports backup run results for the node_exporter
// textfile collector.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arumata/snappy/internal/usecase"
)

// FileName is the textfile written into the collector directory.
const FileName = "snappy.prom"

// Adapter implements usecase.MetricsPort. Gauges live for the process
// lifetime, so a long-running scheduler keeps the last success timestamp
// across failed runs.
type Adapter struct {
	logger *slog.Logger
	dir    string

	mu          sync.Mutex
	registry    *prometheus.Registry
	runs        *prometheus.CounterVec
	lastRun     *prometheus.GaugeVec
	lastSuccess *prometheus.GaugeVec
	success     *prometheus.GaugeVec
	duration    *prometheus.GaugeVec
	snapshots   *prometheus.GaugeVec
	excluded    *prometheus.GaugeVec
	pruned      *prometheus.GaugeVec
	pruneFailed *prometheus.GaugeVec
}

// New creates a metrics adapter writing to dir/FileName.
func New(logger *slog.Logger, dir string) *Adapter {
	if logger == nil {
		panic("metrics adapter requires logger")
	}
	labels := []string{"destination"}
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "snappy", Name: name, Help: help}, labels)
	}
	a := &Adapter{
		logger:   logger,
		dir:      dir,
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snappy",
			Name:      "runs_total",
			Help:      "Backup runs by result since the process started.",
		}, []string{"destination", "result"}),
		lastRun:     gauge("last_run_timestamp_seconds", "Start time of the last backup run."),
		lastSuccess: gauge("last_success_timestamp_seconds", "Start time of the last successful backup run."),
		success:     gauge("last_run_success", "1 if the last backup run succeeded, 0 otherwise."),
		duration:    gauge("last_run_duration_seconds", "Wall time of the last backup run."),
		snapshots:   gauge("snapshots", "Committed snapshots under the backup root."),
		excluded:    gauge("last_run_unreadable_paths", "Unreadable paths excluded by the last run."),
		pruned:      gauge("last_run_pruned_snapshots", "Snapshots removed by retention in the last run."),
		pruneFailed: gauge("last_run_prune_failed", "1 if retention failed to remove a snapshot in the last run."),
	}
	a.registry.MustRegister(a.runs, a.lastRun, a.lastSuccess, a.success, a.duration,
		a.snapshots, a.excluded, a.pruned, a.pruneFailed)
	return a
}

// RecordRun updates the gauges and rewrites the textfile atomically.
func (a *Adapter) RecordRun(ctx context.Context, report usecase.RunReport) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	dest := report.Destination
	result := "failure"
	if report.Success {
		result = "success"
		a.lastSuccess.WithLabelValues(dest).Set(float64(report.Started.Unix()))
	}
	a.runs.WithLabelValues(dest, result).Inc()
	a.lastRun.WithLabelValues(dest).Set(float64(report.Started.Unix()))
	a.success.WithLabelValues(dest).Set(boolValue(report.Success))
	a.duration.WithLabelValues(dest).Set(report.Duration.Seconds())
	a.snapshots.WithLabelValues(dest).Set(float64(report.SnapshotCount))
	a.excluded.WithLabelValues(dest).Set(float64(report.Excluded))
	a.pruned.WithLabelValues(dest).Set(float64(report.Pruned))
	a.pruneFailed.WithLabelValues(dest).Set(boolValue(report.PruneFailed))

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	path := filepath.Join(a.dir, FileName)
	if err := prometheus.WriteToTextfile(path, a.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	a.logger.DebugContext(ctx, "metrics written", "path", path)
	return nil
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

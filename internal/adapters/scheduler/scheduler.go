// Package scheduler runs jobs on cron schedules and reports readiness to
// systemd.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	"github.com/arumata/snappy/internal/usecase"
)

// Adapter implements usecase.SchedulerPort with robfig/cron.
type Adapter struct {
	logger *slog.Logger
	notify func(unsetEnvironment bool, state string) (bool, error)
}

// New creates a new scheduler adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		panic("scheduler adapter requires logger")
	}
	return &Adapter{logger: logger, notify: daemon.SdNotify}
}

// Run schedules job on spec and blocks until ctx is done. Standard five
// field specs and descriptors such as @daily and @every 6h are accepted.
// A tick that fires while the previous job still runs is skipped. Run
// returns after the running job, which receives ctx, has finished.
func (a *Adapter) Run(ctx context.Context, spec string, job func(ctx context.Context)) error {
	clog := cronLogger{logger: a.logger}
	c := cron.New(
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	id, err := c.AddFunc(spec, func() { job(ctx) })
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w: %w", spec, usecase.ErrUsage, err)
	}

	c.Start()
	a.sdNotify(daemon.SdNotifyReady)
	a.logger.InfoContext(ctx, "scheduler started", "cron", spec, "next_run", c.Entry(id).Next)

	<-ctx.Done()
	a.sdNotify(daemon.SdNotifyStopping)
	a.logger.InfoContext(context.WithoutCancel(ctx), "scheduler stopping, waiting for running job")
	<-c.Stop().Done()
	return ctx.Err()
}

func (a *Adapter) sdNotify(state string) {
	sent, err := a.notify(false, state)
	switch {
	case err != nil:
		a.logger.Warn("sd_notify failed", "state", state, "error", err)
	case sent:
		a.logger.Debug("sd_notify sent", "state", strings.TrimSpace(state))
	}
}

// cronLogger routes cron's internal logging to slog at debug level.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}

var _ cron.Logger = cronLogger{}

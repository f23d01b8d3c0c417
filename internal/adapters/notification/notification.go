package notification

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"

	"github.com/arumata/snappy/internal/usecase"
)

const appName = "snappy"

// backend is a desktop notifier command. The first backend found on PATH
// delivers the notification.
type backend struct {
	command string
	args    func(usecase.Notification) []string
}

// Adapter implements NotificationPort with the platform's desktop notifier.
// Missing backends and failed sends are logged and never fail a backup.
type Adapter struct {
	logger   *slog.Logger
	backends []backend
	lookPath func(string) (string, error)
	exec     func(ctx context.Context, path string, args []string) error
}

// New creates a new notification adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		logger:   logger,
		backends: platformBackends(),
		lookPath: exec.LookPath,
		exec:     runQuiet,
	}
}

// Send delivers n through the first available backend.
func (a *Adapter) Send(ctx context.Context, n usecase.Notification) error {
	if ctx.Err() != nil {
		return nil
	}
	for _, b := range a.backends {
		path, err := a.lookPath(b.command)
		if err != nil {
			continue
		}
		if err := a.exec(ctx, path, b.args(n)); err != nil {
			a.logger.Debug("notification failed", slog.String("backend", b.command), slog.Any("err", err))
		}
		return nil
	}
	a.logger.Debug("no notification backend available", slog.String("os", runtime.GOOS))
	return nil
}

func runQuiet(ctx context.Context, path string, args []string) error {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Run()
}

// notifySendArgs builds arguments for libnotify's notify-send.
func notifySendArgs(n usecase.Notification) []string {
	args := []string{"-a", appName}
	if n.Urgent {
		args = append(args, "-u", "critical")
	}
	if n.Sound != "" && n.Sound != "default" {
		args = append(args, "-h", "string:sound-name:"+n.Sound)
	}
	return append(args, n.Title, n.Message)
}

func terminalNotifierArgs(n usecase.Notification) []string {
	args := []string{"-title", n.Title, "-message", n.Message, "-group", appName}
	if n.Sound != "" {
		args = append(args, "-sound", n.Sound)
	}
	return args
}

func osascriptArgs(n usecase.Notification) []string {
	return []string{"-e", appleScript(n)}
}

func appleScript(n usecase.Notification) string {
	script := fmt.Sprintf("display notification \"%s\" with title \"%s\"",
		escapeAppleScriptString(n.Message), escapeAppleScriptString(n.Title))
	if n.Sound != "" && n.Sound != "default" {
		script += fmt.Sprintf(" sound name \"%s\"", escapeAppleScriptString(n.Sound))
	}
	return script
}

var appleScriptEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"\"", "\\\"",
	"\n", " ",
	"\r", " ",
	"\t", " ",
)

func escapeAppleScriptString(value string) string {
	return appleScriptEscaper.Replace(value)
}

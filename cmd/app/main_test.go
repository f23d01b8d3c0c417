package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arumata/snappy/internal/app"
	"github.com/arumata/snappy/internal/usecase"
)

type cmdResult struct {
	stdout string
	stderr string
	code   int
	err    error
}

func runCmd(t *testing.T, acts actions, args ...string) cmdResult {
	t.Helper()
	cmd, exitCode := newRootCmd(app.NewDefaultDependencies, acts)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return cmdResult{stdout: stdout.String(), stderr: stderr.String(), code: *exitCode, err: err}
}

// testHome points HOME at a temp dir and writes a minimal valid config.
func testHome(t *testing.T) (home, configPath, dest string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)
	dest = filepath.Join(home, "backups")
	src := filepath.Join(home, "docs")
	for _, dir := range []string{dest, src} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatal(err)
		}
	}
	configPath = filepath.Join(home, "snappy.toml")
	content := fmt.Sprintf(`[destination]
folder = %q

[sources]
paths = [%q]

[retention]
keep = 4

[schedule]
cron = "@every 1h"
`, dest, src)
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return home, configPath, dest
}

func failingActions(t *testing.T) actions {
	return actions{
		backup: func(context.Context, *usecase.Config, *usecase.Dependencies, *slog.Logger) (*usecase.BackupResult, error) {
			t.Fatal("backup must not run")
			return nil, nil
		},
		prune: func(context.Context, usecase.PruneOptions, *usecase.Dependencies, *slog.Logger) (usecase.PruneResult, error) {
			t.Fatal("prune must not run")
			return usecase.PruneResult{}, nil
		},
		schedule: func(context.Context, string, *usecase.Config, *usecase.Dependencies, *slog.Logger) error {
			t.Fatal("schedule must not run")
			return nil
		},
	}
}

func TestRootCmd_NoArgsPrintsHelp(t *testing.T) {
	testHome(t)
	res := runCmd(t, failingActions(t))
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if res.code != exitUsageError {
		t.Fatalf("expected usage exit code, got %d", res.code)
	}
	if !strings.Contains(res.stdout, "snap") {
		t.Fatalf("expected help output, got %q", res.stdout)
	}
}

func TestRootCmd_RejectsPositionalArgs(t *testing.T) {
	testHome(t)
	if res := runCmd(t, failingActions(t), "/backups"); res.err == nil {
		t.Fatal("expected error for positional argument, got nil")
	}
}

func TestSnapCmd_DryRunForcesVerbose(t *testing.T) {
	_, configPath, dest := testHome(t)
	called := false
	acts := failingActions(t)
	acts.backup = func(_ context.Context, cfg *usecase.Config, deps *usecase.Dependencies, logger *slog.Logger) (*usecase.BackupResult, error) {
		called = true
		if !cfg.DryRun || !cfg.Verbose {
			t.Fatalf("expected dry run and verbose, got %+v", cfg)
		}
		if cfg.Destination != dest || cfg.KeepCount != 4 {
			t.Fatalf("expected config values, got %+v", cfg)
		}
		if deps.Notification == nil || deps.Metrics == nil || logger == nil {
			t.Fatal("expected configured dependencies")
		}
		return &usecase.BackupResult{}, nil
	}

	res := runCmd(t, acts, "--config", configPath, "snap", "--dry-run")
	if res.err != nil || res.code != exitSuccess {
		t.Fatalf("unexpected result: code=%d err=%v stderr=%s", res.code, res.err, res.stderr)
	}
	if !called {
		t.Fatal("expected backup to run")
	}
}

func TestSnapCmd_MapsErrors(t *testing.T) {
	cases := map[string]struct {
		err  error
		code int
	}{
		"lock busy":    {fmt.Errorf("held: %w", usecase.ErrLockBusy), exitLockBusy},
		"tool missing": {fmt.Errorf("%w: %w", usecase.ErrBackupFailed, usecase.ErrToolNotFound), exitToolMissing},
		"interrupted":  {fmt.Errorf("%w: %w", usecase.ErrBackupFailed, usecase.ErrInterrupted), exitInterrupted},
		"mirror":       {fmt.Errorf("%w: %w", usecase.ErrBackupFailed, usecase.ErrMirror), exitCriticalError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, configPath, _ := testHome(t)
			acts := failingActions(t)
			acts.backup = func(context.Context, *usecase.Config, *usecase.Dependencies, *slog.Logger) (*usecase.BackupResult, error) {
				return nil, tc.err
			}
			res := runCmd(t, acts, "--config", configPath, "snap")
			if res.code != tc.code {
				t.Fatalf("expected exit %d, got %d", tc.code, res.code)
			}
			if !strings.Contains(res.stderr, tc.err.Error()) {
				t.Fatalf("expected error on stderr, got %q", res.stderr)
			}
		})
	}
}

func TestSnapCmd_MissingConfigIsUsageError(t *testing.T) {
	home, _, _ := testHome(t)
	res := runCmd(t, failingActions(t), "--config", filepath.Join(home, "absent.toml"), "snap")
	if res.code != exitUsageError {
		t.Fatalf("expected usage exit code, got %d (stderr %q)", res.code, res.stderr)
	}
	if !strings.Contains(res.stderr, "destination.folder is required") {
		t.Fatalf("expected validation message, got %q", res.stderr)
	}
}

func TestSnapCmd_WritesLogFile(t *testing.T) {
	home, configPath, _ := testHome(t)
	acts := failingActions(t)
	acts.backup = func(ctx context.Context, _ *usecase.Config, _ *usecase.Dependencies, logger *slog.Logger) (*usecase.BackupResult, error) {
		logger.InfoContext(ctx, "backup body ran")
		return &usecase.BackupResult{}, nil
	}
	if res := runCmd(t, acts, "--config", configPath, "snap"); res.code != exitSuccess {
		t.Fatalf("unexpected exit %d: %s", res.code, res.stderr)
	}

	data, err := os.ReadFile(filepath.Join(home, ".local", "state", "snappy", "logs", logFileName)) // #nosec G304 - test path
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if !strings.Contains(string(data), "backup body ran") {
		t.Fatalf("expected message in log file, got %q", data)
	}
}

func TestConfigCmd_CreatePathShow(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	acts := failingActions(t)

	res := runCmd(t, acts, "config", "--create", "--destination", "/mnt/backup", "--source", "~/Documents", "--source", "/etc/")
	if res.code != exitSuccess {
		t.Fatalf("create failed: code=%d stderr=%s", res.code, res.stderr)
	}
	wantPath := filepath.Join(home, ".config", "snappy", "config.toml")
	if !strings.Contains(res.stdout, wantPath) {
		t.Fatalf("expected written path in output, got %q", res.stdout)
	}

	res = runCmd(t, acts, "config", "-p")
	if strings.TrimSpace(res.stdout) != wantPath {
		t.Fatalf("expected %s, got %q", wantPath, res.stdout)
	}

	res = runCmd(t, acts, "config", "--show")
	if res.code != exitSuccess {
		t.Fatalf("show failed: %s", res.stderr)
	}
	for _, want := range []string{`folder = "/mnt/backup"`, `"~/Documents",`, "[retention]"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("expected %q in shown config", want)
		}
	}

	res = runCmd(t, acts, "config", "--create", "--destination", "/other")
	if res.code != exitUsageError {
		t.Fatalf("expected usage error for existing config, got %d", res.code)
	}
}

func TestConfigCmd_RequiresOneMode(t *testing.T) {
	testHome(t)
	if res := runCmd(t, failingActions(t), "config"); res.code != exitUsageError {
		t.Fatalf("expected usage exit code, got %d", res.code)
	}
	if res := runCmd(t, failingActions(t), "config", "--show", "--path"); res.err == nil {
		t.Fatal("expected mutually exclusive flags to fail")
	}
}

func TestListCmd_PrintsSnapshots(t *testing.T) {
	_, configPath, dest := testHome(t)
	for _, name := range []string{"2024-05-01-10_00_00", "2024-05-02-10_00_00", "0123456789abcdef0123456789abcdef"} {
		if err := os.MkdirAll(filepath.Join(dest, name), 0o750); err != nil {
			t.Fatal(err)
		}
	}

	res := runCmd(t, failingActions(t), "--config", configPath, "list")
	if res.code != exitSuccess {
		t.Fatalf("unexpected exit %d: %s", res.code, res.stderr)
	}
	for _, want := range []string{"2024-05-01-10_00_00", "2024-05-02-10_00_00", "(keep 4)", "Staging leftovers:"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("expected %q in listing:\n%s", want, res.stdout)
		}
	}
	if strings.Contains(res.stdout, "\x1b[") {
		t.Error("expected no color when stdout is not a terminal")
	}
}

func TestPruneCmd_KeepOverride(t *testing.T) {
	_, configPath, dest := testHome(t)
	var got usecase.PruneOptions
	acts := failingActions(t)
	acts.prune = func(_ context.Context, opts usecase.PruneOptions, _ *usecase.Dependencies, _ *slog.Logger) (usecase.PruneResult, error) {
		got = opts
		return usecase.PruneResult{Kept: []string{"b"}, Removed: []string{"a"}, DryRun: opts.DryRun}, nil
	}

	res := runCmd(t, acts, "--config", configPath, "prune", "--keep", "1", "--dry-run")
	if res.code != exitSuccess {
		t.Fatalf("unexpected exit %d: %s", res.code, res.stderr)
	}
	if got.Keep != 1 || !got.DryRun || got.Destination != dest {
		t.Fatalf("unexpected prune options: %+v", got)
	}
	if !strings.Contains(res.stdout, "Would remove 1 snapshot(s), kept 1") {
		t.Fatalf("unexpected output %q", res.stdout)
	}

	res = runCmd(t, acts, "--config", configPath, "prune")
	if res.code != exitSuccess || got.Keep != 4 {
		t.Fatalf("expected keep from config, got %+v (exit %d)", got, res.code)
	}
}

func TestPruneCmd_RejectsNegativeKeep(t *testing.T) {
	_, configPath, _ := testHome(t)
	res := runCmd(t, failingActions(t), "--config", configPath, "prune", "--keep", "-1")
	if res.code != exitUsageError {
		t.Fatalf("expected usage exit code, got %d", res.code)
	}
}

func TestPruneCmd_PartialFailureIsCritical(t *testing.T) {
	_, configPath, _ := testHome(t)
	acts := failingActions(t)
	acts.prune = func(context.Context, usecase.PruneOptions, *usecase.Dependencies, *slog.Logger) (usecase.PruneResult, error) {
		return usecase.PruneResult{Removed: []string{"a"}, Failed: []string{"b"}},
			fmt.Errorf("%w: %w", usecase.ErrPrune, errors.New("permission denied"))
	}
	res := runCmd(t, acts, "--config", configPath, "prune")
	if res.code != exitCriticalError {
		t.Fatalf("expected critical exit code, got %d", res.code)
	}
	if !strings.Contains(res.stdout, "Removed 1 snapshot(s)") {
		t.Fatalf("expected summary before the error, got %q", res.stdout)
	}
}

func TestScheduleCmd_CronSource(t *testing.T) {
	_, configPath, _ := testHome(t)
	var specs []string
	acts := failingActions(t)
	acts.schedule = func(_ context.Context, spec string, _ *usecase.Config, _ *usecase.Dependencies, _ *slog.Logger) error {
		specs = append(specs, spec)
		return nil
	}

	if res := runCmd(t, acts, "--config", configPath, "schedule"); res.code != exitSuccess {
		t.Fatalf("unexpected exit %d: %s", res.code, res.stderr)
	}
	if res := runCmd(t, acts, "--config", configPath, "schedule", "--cron", "0 3 * * *"); res.code != exitSuccess {
		t.Fatalf("unexpected exit %d: %s", res.code, res.stderr)
	}
	if len(specs) != 2 || specs[0] != "@every 1h" || specs[1] != "0 3 * * *" {
		t.Fatalf("unexpected cron specs: %v", specs)
	}
}

func TestScheduleCmd_InstallUnits(t *testing.T) {
	home, configPath, _ := testHome(t)
	unitsDir := filepath.Join(home, "units")

	res := runCmd(t, failingActions(t), "--config", configPath,
		"schedule", "--install-units", "--units-dir", unitsDir, "--binary", "/opt/snappy")
	if res.code != exitSuccess {
		t.Fatalf("unexpected exit %d: %s", res.code, res.stderr)
	}
	data, err := os.ReadFile(filepath.Join(unitsDir, "snappy.service")) // #nosec G304 - test path
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "/opt/snappy --config "+configPath+" schedule") {
		t.Fatalf("unexpected unit content:\n%s", data)
	}
	if !strings.Contains(res.stdout, "snappy-snap.timer") {
		t.Fatalf("expected written units in output, got %q", res.stdout)
	}
	timer, err := os.ReadFile(filepath.Join(unitsDir, "snappy-snap.timer")) // #nosec G304 - test path
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(timer), "OnCalendar=daily\n") || !strings.Contains(res.stderr, "Timer falls back to daily") {
		t.Fatalf("@every schedule should fall back to a daily timer:\n%s\nstderr: %s", timer, res.stderr)
	}
}

func TestScheduleCmd_InstallUnitsCronFlag(t *testing.T) {
	home, configPath, _ := testHome(t)
	unitsDir := filepath.Join(home, "units")

	res := runCmd(t, failingActions(t), "--config", configPath,
		"schedule", "--install-units", "--units-dir", unitsDir, "--binary", "/opt/snappy", "--cron", "30 3 * * 1")
	if res.code != exitSuccess {
		t.Fatalf("unexpected exit %d: %s", res.code, res.stderr)
	}
	timer, err := os.ReadFile(filepath.Join(unitsDir, "snappy-snap.timer")) // #nosec G304 - test path
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(timer), "OnCalendar=Mon *-*-* 03:30:00\n") {
		t.Fatalf("unexpected timer:\n%s", timer)
	}

	res = runCmd(t, failingActions(t), "--config", configPath,
		"schedule", "--install-units", "--units-dir", unitsDir, "--cron", "*/5 * * * *")
	if res.code != exitUsageError {
		t.Fatalf("expected usage error for unsupported cron, got %d: %s", res.code, res.stderr)
	}
}

func TestScheduleCmd_InstallUnitsDryRun(t *testing.T) {
	home, configPath, _ := testHome(t)
	unitsDir := filepath.Join(home, "units")

	res := runCmd(t, failingActions(t), "--config", configPath,
		"schedule", "--install-units", "--units-dir", unitsDir, "--dry-run")
	if res.code != exitSuccess {
		t.Fatalf("unexpected exit %d: %s", res.code, res.stderr)
	}
	if _, err := os.Stat(unitsDir); !os.IsNotExist(err) {
		t.Fatalf("dry run must not create %s", unitsDir)
	}
	if n := strings.Count(res.stdout, unitsDir); n != 3 {
		t.Fatalf("expected three unit paths, got %d in %q", n, res.stdout)
	}
}

func TestVersionCmd(t *testing.T) {
	res := runCmd(t, failingActions(t), "version")
	if !strings.HasPrefix(res.stdout, "snappy ") {
		t.Fatalf("unexpected version output %q", res.stdout)
	}
}

func TestWithFileLogging_EmptyDir(t *testing.T) {
	logger := setupLogger(&bytes.Buffer{}, false)
	got, closeLog := withFileLogging(logger, usecase.LoggingConfig{}, t.TempDir(), false)
	defer closeLog()
	if got != logger {
		t.Fatal("expected the console logger to be returned unchanged")
	}
}

func TestWithFileLogging_LevelFromConfig(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	logger, closeLog := withFileLogging(setupLogger(&console, false), usecase.LoggingConfig{
		Dir:   dir,
		Level: "warn",
	}, t.TempDir(), false)
	logger.Info("info line")
	logger.Warn("warn line")
	closeLog()

	data, err := os.ReadFile(filepath.Join(dir, logFileName)) // #nosec G304 - test path
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "info line") || !strings.Contains(string(data), "warn line") {
		t.Fatalf("unexpected file log content %q", data)
	}
	if !strings.Contains(console.String(), "info line") {
		t.Fatalf("expected console to keep info level, got %q", console.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestShouldUseColor_NoColorEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	f, err := os.CreateTemp(t.TempDir(), "test")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	if shouldUseColor(f) {
		t.Error("shouldUseColor must return false when NO_COLOR is set")
	}
}

func TestShouldUseColor_TermDumb(t *testing.T) {
	t.Setenv("TERM", "dumb")
	f, err := os.CreateTemp(t.TempDir(), "test")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	if shouldUseColor(f) {
		t.Error("shouldUseColor must return false when TERM=dumb")
	}
}

func TestShouldUseColor_NonTerminalFd(t *testing.T) {
	// Ensure NO_COLOR is unset (use t.Setenv to get automatic restore).
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		t.Setenv("NO_COLOR", "placeholder")
	}
	if err := os.Unsetenv("NO_COLOR"); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TERM", "xterm-256color")

	f, err := os.CreateTemp(t.TempDir(), "test")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	if shouldUseColor(f) {
		t.Error("shouldUseColor must return false for non-terminal file descriptor")
	}
	if writerUsesColor(&bytes.Buffer{}) {
		t.Error("a buffer is never a terminal")
	}
}

func TestRunMain_UnknownCommand(t *testing.T) {
	oldArgs := os.Args
	os.Args = []string{"snappy", "bogus"}
	defer func() { os.Args = oldArgs }()
	t.Setenv("HOME", t.TempDir())

	if code := runMain(); code != exitUsageError {
		t.Fatalf("expected usage exit code, got %d", code)
	}
}

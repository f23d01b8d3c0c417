package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/arumata/snappy/internal/adapters/loghandler"
	"github.com/arumata/snappy/internal/app"
	"github.com/arumata/snappy/internal/usecase"
)

const logFileName = "snappy.log"

func main() {
	os.Exit(runMain())
}

func runMain() int {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	cmd, exitCode := newRootCmd(app.NewDefaultDependencies, defaultActions())
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsageError
	}
	return *exitCode
}

// actions are the use cases behind the long-running commands. Tests replace
// them to check flag handling without running rsync or a scheduler.
type actions struct {
	backup   func(context.Context, *usecase.Config, *usecase.Dependencies, *slog.Logger) (*usecase.BackupResult, error)
	prune    func(context.Context, usecase.PruneOptions, *usecase.Dependencies, *slog.Logger) (usecase.PruneResult, error)
	schedule func(context.Context, string, *usecase.Config, *usecase.Dependencies, *slog.Logger) error
}

func defaultActions() actions {
	return actions{
		backup:   usecase.Backup,
		prune:    usecase.Prune,
		schedule: usecase.Schedule,
	}
}

type rootOptions struct {
	configPath  string
	verbose     bool
	depsFactory func(*slog.Logger) *usecase.Dependencies
	actions     actions
}

func newRootCmd(depsFactory func(*slog.Logger) *usecase.Dependencies, acts actions) (*cobra.Command, *int) {
	exitCode := 0
	opts := &rootOptions{depsFactory: depsFactory, actions: acts}

	cmd := &cobra.Command{
		Use:           "snappy",
		Short:         "Incremental rsync snapshots with hard-link deduplication",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
			exitCode = exitUsageError
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/snappy/config.toml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(newSnapCmd(opts, &exitCode))
	cmd.AddCommand(newConfigCmd(opts, &exitCode))
	cmd.AddCommand(newListCmd(opts, &exitCode))
	cmd.AddCommand(newPruneCmd(opts, &exitCode))
	cmd.AddCommand(newScheduleCmd(opts, &exitCode))
	cmd.AddCommand(newVersionCmd())

	return cmd, &exitCode
}

// session carries what every command needs: a logger writing to the
// command's stderr, the adapters built on it and the resolved config path.
type session struct {
	logger     *slog.Logger
	deps       *usecase.Dependencies
	homeDir    string
	configPath string
	cfg        *usecase.Config
	fileCfg    usecase.ConfigFile
	closers    []func()
}

func (o *rootOptions) openSession(cmd *cobra.Command, verbose bool) (*session, error) {
	logger := setupLogger(cmd.ErrOrStderr(), verbose)
	deps := o.depsFactory(logger)
	if deps == nil || deps.FileSystem == nil {
		return nil, fmt.Errorf("dependencies not available: %w", usecase.ErrCritical)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home dir: %v: %w", err, usecase.ErrCritical)
	}
	return &session{
		logger:     logger,
		deps:       deps,
		homeDir:    homeDir,
		configPath: usecase.ResolveConfigPath(deps.FileSystem, o.configPath, homeDir),
	}, nil
}

// loadRuntime reads and validates the config file, then rebuilds the
// adapters on a logger that also writes to the rotating log file.
func (o *rootOptions) loadRuntime(cmd *cobra.Command, verbose bool) (*session, error) {
	s, err := o.openSession(cmd, verbose)
	if err != nil {
		return nil, err
	}
	cfg, fileCfg, err := usecase.LoadRuntimeConfig(cmd.Context(), s.configPath, s.homeDir, s.deps)
	if err != nil {
		return nil, err
	}
	cfg.Verbose = verbose

	logger, closeLog := withFileLogging(s.logger, fileCfg.Logging, s.homeDir, verbose)
	s.closers = append(s.closers, closeLog)
	s.logger = logger
	s.deps = o.depsFactory(logger)
	app.ApplyConfig(s.deps, fileCfg, s.homeDir, logger)

	s.cfg = cfg
	s.fileCfg = fileCfg
	return s, nil
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func setupLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := loghandler.NewHandler(w, &loghandler.Options{
		Level:    level,
		UseColor: writerUsesColor(w),
	})
	return slog.New(handler)
}

// withFileLogging tees records into <logging.dir>/snappy.log, rotated by
// lumberjack with the limits from the logging section.
func withFileLogging(
	logger *slog.Logger,
	logCfg usecase.LoggingConfig,
	homeDir string,
	verbose bool,
) (*slog.Logger, func()) {
	dir := strings.TrimSpace(logCfg.Dir)
	if dir == "" {
		return logger, func() {}
	}
	expanded := usecase.ExpandHomeDirPublic(dir, homeDir)
	if err := os.MkdirAll(expanded, 0o750); err != nil {
		logger.Warn("Cannot create log directory", "path", expanded, "error", err)
		return logger, func() {}
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(expanded, logFileName),
		MaxSize:    logCfg.MaxSizeMB,
		MaxBackups: logCfg.MaxBackups,
		MaxAge:     logCfg.MaxAgeDays,
		Compress:   logCfg.Compress,
		LocalTime:  true,
	}

	fileLevel := parseLogLevel(logCfg.Level)
	if verbose && fileLevel > slog.LevelDebug {
		fileLevel = slog.LevelDebug
	}
	fileHandler := loghandler.NewHandler(rotator, &loghandler.Options{
		Level:      fileLevel,
		TimeLayout: time.DateTime,
	})

	combined := loghandler.NewMultiHandler(logger.Handler(), fileHandler)
	return slog.New(combined), func() { _ = rotator.Close() }
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func writerUsesColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && shouldUseColor(f)
}

func shouldUseColor(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

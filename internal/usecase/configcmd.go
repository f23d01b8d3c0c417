package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const configBackupTimeFormat = "20060102-150405"

//nolint:gochecknoglobals // overridden in tests for deterministic config backups.
var configNow = time.Now

// ConfigCreateOptions describes config --create behavior.
type ConfigCreateOptions struct {
	Path        string
	Destination string
	Sources     []string
	Keep        int
	Force       bool
	DryRun      bool
	HomeDir     string
}

// DefaultConfigPath returns the per-user configuration file location.
func DefaultConfigPath(fs FileSystemPort, homeDir string) string {
	return fs.Join(homeDir, ".config", "snappy", "config.toml")
}

// ResolveConfigPath returns override with ~ expanded, or the default path.
func ResolveConfigPath(fs FileSystemPort, override, homeDir string) string {
	if p := strings.TrimSpace(override); p != "" {
		return expandHomeDir(p, homeDir)
	}
	return DefaultConfigPath(fs, homeDir)
}

// CreateConfig writes a new configuration file. An existing file is kept
// unless Force is set, in which case it is moved aside first.
func CreateConfig(ctx context.Context, opts ConfigCreateOptions, deps *Dependencies, logger *slog.Logger) (string, error) {
	if logger == nil {
		panic("logger is required")
	}
	if ctx.Err() != nil {
		return "", ErrInterrupted
	}
	if err := validateConfigDependencies(deps); err != nil {
		return "", err
	}
	homeDir := strings.TrimSpace(opts.HomeDir)
	if homeDir == "" {
		return "", fmt.Errorf("home directory is empty: %w", ErrCritical)
	}
	if strings.TrimSpace(opts.Destination) == "" {
		return "", fmt.Errorf("--destination flag is required: %w", ErrUsage)
	}

	path := ResolveConfigPath(deps.FileSystem, opts.Path, homeDir)
	cfg := DefaultConfigFile()
	cfg.Destination.Folder = strings.TrimSpace(opts.Destination)
	cfg.Sources.Paths = filterSources(opts.Sources)
	if opts.Keep != 0 {
		cfg.Retention.Keep = opts.Keep
	}

	exists, err := pathExists(ctx, deps.FileSystem, path)
	if err != nil {
		return "", fmt.Errorf("check config path: %w", ErrCritical)
	}
	if exists {
		info, err := deps.FileSystem.Stat(ctx, path)
		if err != nil {
			return "", fmt.Errorf("stat config: %w", ErrCritical)
		}
		if info.IsDir() {
			return "", fmt.Errorf("config path is a directory: %w", ErrUsage)
		}
		if !opts.Force {
			return "", fmt.Errorf("config already exists at %s: %w", path, ErrUsage)
		}
	}
	if opts.DryRun {
		logger.InfoContext(ctx, "Dry run: would write config", "path", path)
		return path, nil
	}
	if exists {
		if err := backupConfig(ctx, deps.FileSystem, path); err != nil {
			return "", err
		}
	}
	if err := deps.FileSystem.CreateDir(ctx, deps.FileSystem.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", ErrCritical)
	}
	if err := deps.Config.Save(ctx, path, cfg); err != nil {
		return "", fmt.Errorf("save config: %w", ErrCritical)
	}
	logger.InfoContext(ctx, "Config written", "path", path)
	return path, nil
}

// ShowConfig returns the raw content of the configuration file.
func ShowConfig(ctx context.Context, path string, deps *Dependencies) ([]byte, error) {
	if err := validateConfigDependencies(deps); err != nil {
		return nil, err
	}
	data, err := deps.FileSystem.ReadFile(ctx, path)
	if err != nil {
		if deps.FileSystem.IsNotExist(err) {
			return nil, fmt.Errorf("no config at %s (run: snappy config --create): %w", path, ErrUsage)
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return data, nil
}

// LoadRuntimeConfig loads, validates and converts the configuration at path.
// A missing file yields defaults, which fail validation until a destination
// and a source are set.
func LoadRuntimeConfig(ctx context.Context, path, homeDir string, deps *Dependencies) (*Config, ConfigFile, error) {
	if err := validateConfigDependencies(deps); err != nil {
		return nil, ConfigFile{}, err
	}
	fileCfg, err := deps.Config.Load(ctx, path)
	if err != nil {
		return nil, ConfigFile{}, fmt.Errorf("load config %s: %w: %w", path, ErrUsage, err)
	}
	if err := deps.Config.Validate(fileCfg); err != nil {
		return nil, fileCfg, fmt.Errorf("invalid config %s: %w: %w", path, ErrUsage, err)
	}
	cfg, err := RuntimeConfigFromFile(fileCfg, homeDir)
	if err != nil {
		return nil, fileCfg, err
	}
	if len(cfg.Sources) == 0 {
		return nil, fileCfg, fmt.Errorf("invalid config %s: no sources left after removing comments: %w", path, ErrUsage)
	}
	return cfg, fileCfg, nil
}

func validateConfigDependencies(deps *Dependencies) error {
	if deps == nil {
		return fmt.Errorf("dependencies are required: %w", ErrCritical)
	}
	if deps.FileSystem == nil {
		return fmt.Errorf("filesystem adapter not available: %w", ErrCritical)
	}
	if deps.Config == nil {
		return fmt.Errorf("config adapter not available: %w", ErrCritical)
	}
	return nil
}

func backupConfig(ctx context.Context, fs FileSystemPort, configPath string) error {
	backupPath := configPath + ".bak." + configNow().Format(configBackupTimeFormat)
	if err := fs.Move(ctx, configPath, backupPath); err != nil {
		return fmt.Errorf("backup config: %w", ErrCritical)
	}
	return nil
}

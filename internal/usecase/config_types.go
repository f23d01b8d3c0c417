package usecase

// ConfigFile describes the on-disk configuration (TOML or YAML).
type ConfigFile struct {
	Destination   DestinationConfig   `toml:"destination" yaml:"destination"`
	Sources       SourcesConfig       `toml:"sources" yaml:"sources"`
	Retention     RetentionConfig     `toml:"retention" yaml:"retention"`
	Filters       FiltersConfig       `toml:"filters" yaml:"filters"`
	Mirror        MirrorConfig        `toml:"mirror" yaml:"mirror"`
	Notifications NotificationsConfig `toml:"notifications" yaml:"notifications"`
	Logging       LoggingConfig       `toml:"logging" yaml:"logging"`
	Metrics       MetricsConfig       `toml:"metrics" yaml:"metrics"`
	Schedule      ScheduleConfig      `toml:"schedule" yaml:"schedule"`
}

// DestinationConfig holds the backup root.
type DestinationConfig struct {
	Folder string `toml:"folder" yaml:"folder" validate:"required"`
}

// SourcesConfig lists the paths to back up. Blank entries and entries
// starting with # are ignored.
type SourcesConfig struct {
	Paths []string `toml:"paths" yaml:"paths" validate:"min=1"`
}

// RetentionConfig holds snapshot retention settings.
type RetentionConfig struct {
	Keep           int  `toml:"keep" yaml:"keep"`
	CleanupStaging bool `toml:"cleanup_staging" yaml:"cleanup_staging"`
}

// FiltersConfig holds patterns passed to the mirror tool.
type FiltersConfig struct {
	Exclude []string `toml:"exclude" yaml:"exclude"`
	Include []string `toml:"include" yaml:"include"`
}

// MirrorConfig selects the mirror tool and extra arguments.
type MirrorConfig struct {
	Binary    string   `toml:"binary" yaml:"binary" validate:"required"`
	ExtraArgs []string `toml:"extra_args" yaml:"extra_args"`
}

// NotificationsConfig holds notification settings.
type NotificationsConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Sound   string `toml:"sound" yaml:"sound"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Dir        string `toml:"dir" yaml:"dir"`
	Level      string `toml:"level" yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	MaxSizeMB  int    `toml:"max_size_mb" yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `toml:"max_backups" yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `toml:"max_age_days" yaml:"max_age_days" validate:"gte=0"`
	Compress   bool   `toml:"compress" yaml:"compress"`
}

// MetricsConfig holds the Prometheus textfile collector directory. Empty
// disables metrics.
type MetricsConfig struct {
	TextfileDir string `toml:"textfile_dir" yaml:"textfile_dir"`
}

// ScheduleConfig holds the cron expression used by the schedule command.
type ScheduleConfig struct {
	Cron string `toml:"cron" yaml:"cron"`
}

// DefaultStateDir holds lock files and logs.
const DefaultStateDir = "~/.local/state/snappy"

// DefaultConfigFile returns default configuration.
func DefaultConfigFile() ConfigFile {
	return ConfigFile{
		Retention: RetentionConfig{
			Keep:           3,
			CleanupStaging: true,
		},
		Mirror: MirrorConfig{
			Binary: DefaultMirrorBinary,
		},
		Notifications: NotificationsConfig{
			Enabled: false,
			Sound:   "default",
		},
		Logging: LoggingConfig{
			Dir:        DefaultStateDir + "/logs",
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Schedule: ScheduleConfig{
			Cron: "@daily",
		},
	}
}

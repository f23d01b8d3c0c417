package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/arumata/snappy/internal/usecase"
)

// Adapter implements ConfigPort using TOML or YAML files on disk. The format
// is chosen by file extension: .yaml and .yml are YAML, anything else TOML.
type Adapter struct {
	logger *slog.Logger
}

// New creates a new config adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		panic("config adapter requires logger")
	}
	return &Adapter{logger: logger}
}

// Load reads config from path or returns defaults when file is missing.
func (a *Adapter) Load(ctx context.Context, path string) (usecase.ConfigFile, error) {
	_ = ctx
	if strings.TrimSpace(path) == "" {
		return usecase.ConfigFile{}, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path) // #nosec G304 - path is controlled by usecase
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			a.logger.Debug("config file not found, using defaults", "path", path)
			return usecase.DefaultConfigFile(), nil
		}
		return usecase.ConfigFile{}, err
	}

	cfg := usecase.DefaultConfigFile()
	if isYAML(path) {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return usecase.ConfigFile{}, fmt.Errorf("parse config yaml: %w", err)
		}
		return cfg, nil
	}

	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return usecase.ConfigFile{}, fmt.Errorf("parse config toml: %w", err)
	}
	for _, key := range meta.Undecoded() {
		a.logger.Warn("unknown config key ignored", "path", path, "key", key.String())
	}
	return cfg, nil
}

// Save writes config to path. TOML output carries inline documentation.
func (a *Adapter) Save(ctx context.Context, path string, cfg usecase.ConfigFile) error {
	_ = ctx
	if strings.TrimSpace(path) == "" {
		return errors.New("config path is empty")
	}

	var content []byte
	if isYAML(path) {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("render config yaml: %w", err)
		}
		content = out
	} else {
		content = []byte(renderCommentedTOML(cfg))
	}

	// #nosec G306 G304 - config is not secret, path is controlled by usecase.
	return os.WriteFile(path, content, 0o644)
}

// Validate checks struct constraints. Field names in errors use the
// config file keys, e.g. "destination.folder".
func (a *Adapter) Validate(cfg usecase.ConfigFile) error {
	err := getValidator().Struct(cfg)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, describeFieldError(fe))
	}
	return errors.New(strings.Join(messages, "; "))
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("toml"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

func describeFieldError(fe validator.FieldError) string {
	// Namespace is "ConfigFile.destination.folder"; drop the root type.
	key := fe.Namespace()
	if _, rest, ok := strings.Cut(key, "."); ok {
		key = rest
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", key)
	case "min":
		return fmt.Sprintf("%s needs at least %s entry", key, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", key, fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", key, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", key, fe.Tag())
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

//nolint:lll // template readability is more important than line length.
func renderCommentedTOML(cfg usecase.ConfigFile) string {
	return fmt.Sprintf(`# Snappy Configuration
# https://github.com/arumata/snappy#configuration

# ── Destination ──────────────────────────────────────────────────
[destination]

# Backup root that holds one directory per snapshot (required).
# Supports ~, $HOME, ${HOME}. Created automatically.
folder = %[1]s

# ── Sources ──────────────────────────────────────────────────────
[sources]

# Paths to back up, processed in order. Entries starting with # are skipped.
# A trailing / copies the contents of a directory instead of the directory.
paths = %[2]s

# ── Retention ────────────────────────────────────────────────────
[retention]

# Number of snapshots to keep. 0 disables pruning.
keep = %[3]d

# Remove staging directories left behind by interrupted runs.
cleanup_staging = %[4]t

# ── Filters ──────────────────────────────────────────────────────
[filters]

# Patterns passed to rsync as --exclude / --include.
exclude = %[5]s
include = %[6]s

# ── Mirror Tool ──────────────────────────────────────────────────
[mirror]

# rsync binary name or absolute path.
binary = %[7]s

# Extra arguments appended after the filters.
extra_args = %[8]s

# ── Desktop Notifications ────────────────────────────────────────
[notifications]

# Enable notifications after backup completion.
enabled = %[9]t

# Notification sound ("default" = system default).
sound = %[10]s

# ── Logging ──────────────────────────────────────────────────────
[logging]

# Log directory. Supports ~, $HOME, ${HOME}. Created automatically.
dir = %[11]s

# Minimum log level: debug, info, warn, error.
level = %[12]s

# Log rotation.
max_size_mb = %[13]d
max_backups = %[14]d
max_age_days = %[15]d
compress = %[16]t

# ── Metrics ──────────────────────────────────────────────────────
[metrics]

# node_exporter textfile collector directory. Empty disables metrics.
textfile_dir = %[17]s

# ── Schedule ─────────────────────────────────────────────────────
[schedule]

# Cron expression used by "snappy schedule" (@daily, @every 6h, 0 3 * * *).
cron = %[18]s
`,
		tomlString(cfg.Destination.Folder),
		tomlStrings(cfg.Sources.Paths),
		cfg.Retention.Keep,
		cfg.Retention.CleanupStaging,
		tomlStrings(cfg.Filters.Exclude),
		tomlStrings(cfg.Filters.Include),
		tomlString(cfg.Mirror.Binary),
		tomlStrings(cfg.Mirror.ExtraArgs),
		cfg.Notifications.Enabled,
		tomlString(cfg.Notifications.Sound),
		tomlString(cfg.Logging.Dir),
		tomlString(cfg.Logging.Level),
		cfg.Logging.MaxSizeMB,
		cfg.Logging.MaxBackups,
		cfg.Logging.MaxAgeDays,
		cfg.Logging.Compress,
		tomlString(cfg.Metrics.TextfileDir),
		tomlString(cfg.Schedule.Cron),
	)
}

// tomlString quotes s as a TOML basic string.
func tomlString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func tomlStrings(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "  " + tomlString(v) + ","
	}
	return "[\n" + strings.Join(quoted, "\n") + "\n]"
}

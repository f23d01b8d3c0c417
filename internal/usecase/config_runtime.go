package usecase

import (
	"fmt"
	"strings"
)

// RuntimeConfigFromFile converts file config into runtime config for backup execution.
func RuntimeConfigFromFile(cfg ConfigFile, homeDir string) (*Config, error) {
	cleanHome := strings.TrimSpace(homeDir)
	if cleanHome == "" {
		return nil, fmt.Errorf("home directory is empty: %w", ErrCritical)
	}

	destination := strings.TrimSpace(cfg.Destination.Folder)
	if destination != "" {
		destination = expandHomeDir(destination, cleanHome)
	}

	sources := filterSources(cfg.Sources.Paths)
	for i, s := range sources {
		sources[i] = expandHomeDir(s, cleanHome)
	}

	binary := strings.TrimSpace(cfg.Mirror.Binary)
	if binary == "" {
		binary = DefaultMirrorBinary
	}

	return &Config{
		Destination:    destination,
		Sources:        sources,
		KeepCount:      cfg.Retention.Keep,
		CleanupStaging: cfg.Retention.CleanupStaging,
		Excludes:       trimNonEmpty(cfg.Filters.Exclude),
		Includes:       trimNonEmpty(cfg.Filters.Include),
		MirrorBinary:   binary,
		MirrorArgs:     trimNonEmpty(cfg.Mirror.ExtraArgs),
		Notify:         cfg.Notifications.Enabled,
		NotifySound:    cfg.Notifications.Sound,
		StateDir:       expandHomeDir(DefaultStateDir, cleanHome),
		HomeDir:        cleanHome,
	}, nil
}

// filterSources drops blank entries and # comments and trims the rest.
func filterSources(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// UnitBinaryPlaceholder is replaced with the binary path in unit templates.
const UnitBinaryPlaceholder = "__SNAPPY_BIN__"

// UnitConfigPlaceholder is replaced with the config path in unit templates.
const UnitConfigPlaceholder = "__SNAPPY_CONFIG__"

// UnitCalendarPlaceholder is replaced with the timer's OnCalendar expression.
const UnitCalendarPlaceholder = "__SNAPPY_ON_CALENDAR__"

// DefaultOnCalendar is used when no schedule is given.
const DefaultOnCalendar = "daily"

// InstallUnitsOptions describes where systemd unit templates are written.
// An empty BinaryPath falls back to the running executable.
type InstallUnitsOptions struct {
	Dir        string
	BinaryPath string
	ConfigPath string
	HomeDir    string
	// OnCalendar is the systemd calendar expression for the timer.
	OnCalendar string
	DryRun     bool
}

// DefaultUnitsDir is the systemd user unit directory.
const DefaultUnitsDir = "~/.config/systemd/user"

// InstallUnits renders the embedded systemd units into opts.Dir and returns
// the written paths.
func InstallUnits(ctx context.Context, opts InstallUnitsOptions, deps *Dependencies, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		panic("logger is required")
	}
	if ctx.Err() != nil {
		return nil, ErrInterrupted
	}
	if deps.FileSystem == nil || deps.Templates == nil {
		return nil, fmt.Errorf("filesystem and templates adapters are required: %w", ErrCritical)
	}
	binary := strings.TrimSpace(opts.BinaryPath)
	if binary == "" && deps.Process != nil {
		if exe, err := deps.Process.Executable(); err == nil {
			binary = exe
		}
	}
	if binary == "" {
		return nil, fmt.Errorf("binary path is empty: %w", ErrCritical)
	}
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		dir = DefaultUnitsDir
	}
	dir = expandHomeDir(dir, opts.HomeDir)

	calendar := strings.TrimSpace(opts.OnCalendar)
	if calendar == "" {
		calendar = DefaultOnCalendar
	}

	entries, err := deps.Templates.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", ErrCritical)
	}
	if !opts.DryRun {
		if err := deps.FileSystem.CreateDir(ctx, dir, 0o755); err != nil {
			return nil, fmt.Errorf("create units dir: %w", ErrCritical)
		}
	}

	replacer := strings.NewReplacer(
		UnitBinaryPlaceholder, binary,
		UnitConfigPlaceholder, opts.ConfigPath,
		UnitCalendarPlaceholder, calendar,
	)
	written := make([]string, 0, len(entries))
	for _, entry := range entries {
		if ctx.Err() != nil {
			return written, ErrInterrupted
		}
		data, err := deps.Templates.Read(ctx, entry.Name)
		if err != nil {
			return written, fmt.Errorf("read template %s: %w", entry.Name, ErrCritical)
		}
		out := []byte(replacer.Replace(string(data)))
		dest := deps.FileSystem.Join(dir, entry.Name)
		if opts.DryRun {
			logger.InfoContext(ctx, "Dry run: would write unit", "path", dest)
			written = append(written, dest)
			continue
		}
		if err := deps.FileSystem.WriteFile(ctx, dest, out, entry.Mode); err != nil {
			return written, fmt.Errorf("write unit %s: %w", entry.Name, ErrCritical)
		}
		logger.InfoContext(ctx, "Unit written", "path", dest)
		written = append(written, dest)
	}
	return written, nil
}

var cronDescriptorCalendars = map[string]string{
	"@yearly":   "yearly",
	"@annually": "yearly",
	"@monthly":  "monthly",
	"@weekly":   "weekly",
	"@daily":    "daily",
	"@midnight": "daily",
	"@hourly":   "hourly",
}

var cronListField = regexp.MustCompile(`^(\*|\d+(,\d+)*)$`)

type cronRange struct {
	name     string
	min, max int
}

var cronFieldRanges = [...]cronRange{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day of month", 1, 31},
	{"month", 1, 12},
}

func checkCronRange(field string, r cronRange) error {
	if field == "*" {
		return nil
	}
	for _, v := range strings.Split(field, ",") {
		n, err := strconv.Atoi(v)
		if err != nil || n < r.min || n > r.max {
			return fmt.Errorf("cron %s %q out of range %d-%d: %w", r.name, v, r.min, r.max, ErrUsage)
		}
	}
	return nil
}

var weekdayNames = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// OnCalendarFromCron translates a cron schedule into a systemd OnCalendar
// expression. Descriptors and five-field specs made of numbers, comma lists
// and "*" are supported; ranges, steps and @every are not, nor are specs
// that restrict both day of month and weekday.
func OnCalendarFromCron(spec string) (string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return DefaultOnCalendar, nil
	}
	if cal, ok := cronDescriptorCalendars[strings.ToLower(spec)]; ok {
		return cal, nil
	}
	fields := strings.Fields(spec)
	if len(fields) != 5 {
		return "", fmt.Errorf("cron %q has no systemd calendar equivalent: %w", spec, ErrUsage)
	}
	for _, f := range fields {
		if !cronListField.MatchString(f) {
			return "", fmt.Errorf("cron field %q has no systemd calendar equivalent: %w", f, ErrUsage)
		}
	}
	for i, f := range fields[:4] {
		if err := checkCronRange(f, cronFieldRanges[i]); err != nil {
			return "", err
		}
	}
	minute, hour, dom, month, dow := fields[0], fields[1], fields[2], fields[3], fields[4]
	if dom != "*" && dow != "*" {
		// cron fires when either day field matches, OnCalendar only when both do.
		return "", fmt.Errorf("cron %q restricts both day of month and weekday: %w", spec, ErrUsage)
	}

	var b strings.Builder
	if dow != "*" {
		days := strings.Split(dow, ",")
		for i, d := range days {
			n, err := strconv.Atoi(d)
			if err != nil || n < 0 || n >= len(weekdayNames) {
				return "", fmt.Errorf("cron weekday %q out of range: %w", d, ErrUsage)
			}
			days[i] = weekdayNames[n]
		}
		b.WriteString(strings.Join(days, ","))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "*-%s-%s %s:%s:00", padCalendarList(month), padCalendarList(dom), padCalendarList(hour), padCalendarList(minute))
	return b.String(), nil
}

func padCalendarList(field string) string {
	if field == "*" {
		return field
	}
	parts := strings.Split(field, ",")
	for i, p := range parts {
		if len(p) == 1 {
			parts[i] = "0" + p
		}
	}
	return strings.Join(parts, ",")
}

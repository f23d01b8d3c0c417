// Package loghandler renders slog records as short terminal lines and fans
// them out to the rotating log file.
package loghandler

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// ComponentKey is the attribute rendered as a "[name]" prefix instead of
// key=value. Mirror and scanner output lines carry it.
const ComponentKey = "component"

// DefaultTimeLayout is used when Options.TimeLayout is empty.
const DefaultTimeLayout = time.TimeOnly

// Options configures the Handler.
type Options struct {
	Level    slog.Leveler
	UseColor bool
	// TimeLayout formats the record time. The log file uses a layout with
	// the date since it outlives a single day.
	TimeLayout string
}

type palette struct {
	reset, dim, component string
	levels                map[slog.Level]string
}

var ansi = palette{
	reset:     "\033[0m",
	dim:       "\033[2m",
	component: "\033[36m",
	levels: map[slog.Level]string{
		slog.LevelDebug: "\033[36m",
		slog.LevelInfo:  "\033[32m",
		slog.LevelWarn:  "\033[33m",
		slog.LevelError: "\033[1;31m",
	},
}

// Handler is a compact, optionally colored slog.Handler for CLI output.
type Handler struct {
	w      io.Writer
	mu     *sync.Mutex
	level  slog.Leveler
	layout string
	colors *palette

	component string
	prefix    string // group prefix for keys, "a.b."
	preset    []byte // pre-rendered WithAttrs output
}

// NewHandler creates a new Handler writing to w.
func NewHandler(w io.Writer, opts *Options) *Handler {
	h := &Handler{w: w, mu: &sync.Mutex{}, level: slog.LevelInfo, layout: DefaultTimeLayout}
	if opts == nil {
		return h
	}
	if opts.Level != nil {
		h.level = opts.Level
	}
	if opts.TimeLayout != "" {
		h.layout = opts.TimeLayout
	}
	if opts.UseColor {
		h.colors = &ansi
	}
	return h
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	component := h.component
	if h.prefix == "" {
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == ComponentKey {
				component = a.Value.Resolve().String()
				return false
			}
			return true
		})
	}

	line := make([]byte, 0, 128)
	line = h.paint(line, h.dimColor(), r.Time.Format(h.layout))
	line = append(line, ' ')
	line = h.paint(line, h.levelColor(r.Level), levelLabel(r.Level))
	if component != "" {
		line = append(line, ' ')
		line = h.paint(line, h.componentColor(), "["+component+"]")
	}
	if r.Message != "" {
		line = append(line, ' ')
		line = append(line, r.Message...)
	}
	line = append(line, h.preset...)
	r.Attrs(func(a slog.Attr) bool {
		if h.prefix == "" && a.Key == ComponentKey {
			return true
		}
		line = h.appendAttr(line, h.prefix, a)
		return true
	})
	line = append(line, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(line)
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.preset = append([]byte(nil), h.preset...)
	for _, a := range attrs {
		if h.prefix == "" && a.Key == ComponentKey {
			h2.component = a.Value.Resolve().String()
			continue
		}
		h2.preset = h.appendAttr(h2.preset, h.prefix, a)
	}
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

func (h *Handler) appendAttr(dst []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			dst = h.appendAttr(dst, prefix, ga)
		}
		return dst
	}
	dst = append(dst, ' ')
	dst = h.paint(dst, h.dimColor(), prefix+a.Key+"="+formatValue(a.Key, a.Value))
	return dst
}

// formatValue renders durations rounded to milliseconds and integer
// attributes named *_bytes in IEC units.
func formatValue(key string, v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindDuration:
		s = v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		s = v.Time().Format(time.RFC3339)
	case slog.KindInt64:
		if strings.HasSuffix(key, "_bytes") && v.Int64() >= 0 {
			s = humanize.IBytes(uint64(v.Int64()))
		} else {
			s = strconv.FormatInt(v.Int64(), 10)
		}
	case slog.KindUint64:
		if strings.HasSuffix(key, "_bytes") {
			s = humanize.IBytes(v.Uint64())
		} else {
			s = strconv.FormatUint(v.Uint64(), 10)
		}
	default:
		s = v.String()
	}
	if needsQuoting(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	return strings.ContainsFunc(s, func(r rune) bool {
		return r <= ' ' || r == '"' || r == '\\' || r == '='
	})
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERR"
	case level >= slog.LevelWarn:
		return "WRN"
	case level >= slog.LevelInfo:
		return "INF"
	default:
		return "DBG"
	}
}

func (h *Handler) paint(dst []byte, color, text string) []byte {
	if color == "" {
		return append(dst, text...)
	}
	dst = append(dst, color...)
	dst = append(dst, text...)
	return append(dst, h.colors.reset...)
}

func (h *Handler) dimColor() string {
	if h.colors == nil {
		return ""
	}
	return h.colors.dim
}

func (h *Handler) componentColor() string {
	if h.colors == nil {
		return ""
	}
	return h.colors.component
}

func (h *Handler) levelColor(level slog.Level) string {
	if h.colors == nil {
		return ""
	}
	switch {
	case level >= slog.LevelError:
		return h.colors.levels[slog.LevelError]
	case level >= slog.LevelWarn:
		return h.colors.levels[slog.LevelWarn]
	case level >= slog.LevelInfo:
		return h.colors.levels[slog.LevelInfo]
	default:
		return h.colors.levels[slog.LevelDebug]
	}
}

var _ slog.Handler = (*Handler)(nil)

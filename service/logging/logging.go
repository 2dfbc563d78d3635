package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// TimeFormat is the timestamp layout used by the development handler.
const TimeFormat = "2006-01-02 15:04:05"

// New returns the logger for env. Production logs JSON at info level;
// anything else logs colorized text at debug level. A non-empty level
// overrides the environment default.
func New(env, level string, w io.Writer) (*slog.Logger, error) {
	lvl := slog.LevelDebug
	if env == EnvProduction {
		lvl = slog.LevelInfo
	}
	if level != "" {
		parsed, err := ParseLevel(level)
		if err != nil {
			return nil, err
		}
		lvl = parsed
	}

	if env == EnvProduction {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
	}
	return slog.New(NewColorHandler(w, lvl)), nil
}

// ParseLevel accepts debug, info, warn/warning and error, in any case.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// ColorHandler writes "[timestamp][LEVEL]: message key=value ..." lines with
// the message colorized by level when w is a terminal.
type ColorHandler struct {
	mu       *sync.Mutex
	w        io.Writer
	level    slog.Leveler
	colorize bool
	pre      string // attrs from WithAttrs, already formatted
	groups   []string
}

// NewColorHandler creates a ColorHandler writing to w at or above level.
func NewColorHandler(w io.Writer, level slog.Leveler) *ColorHandler {
	return &ColorHandler{mu: &sync.Mutex{}, w: w, level: level, colorize: IsTerminal(w)}
}

// IsTerminal reports whether w is a terminal that accepts color. NO_COLOR
// and TERM=dumb disable color regardless of the stream.
func IsTerminal(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (h *ColorHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *ColorHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := r.Message
	if h.colorize {
		msg = levelColor(r.Level).Sprint(msg)
	}
	fmt.Fprintf(&b, "[%s][%s]: %s", ts.Format(TimeFormat), r.Level.String(), msg)

	b.WriteString(h.pre)
	prefix := strings.Join(h.groups, ".")
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	prefix := strings.Join(h.groups, ".")
	for _, a := range attrs {
		writeAttr(&b, prefix, a)
	}
	next := *h
	next.pre = h.pre + b.String()
	return &next
}

func (h *ColorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, key, ga)
		}
		return
	}
	fmt.Fprintf(b, " %s=%v", key, a.Value.Any())
}

// levelColor forces color on; the handler has already checked its own writer.
func levelColor(l slog.Level) *color.Color {
	var c *color.Color
	switch {
	case l >= slog.LevelError:
		c = color.New(color.FgRed)
	case l >= slog.LevelWarn:
		c = color.New(color.FgYellow)
	case l >= slog.LevelInfo:
		c = color.New(color.FgGreen)
	default:
		c = color.New(color.FgCyan)
	}
	c.EnableColor()
	return c
}

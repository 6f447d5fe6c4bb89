// Package logger builds the server's slog.Logger. Production gets plain
// JSON records; everywhere else a compact colorized console format is
// easier on the eyes during development.
package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	formatJSON    = "json"
	formatConsole = "console"
)

// Logger wraps slog.Logger so the rest of the server can hang small
// helpers off it without touching slog directly.
type Logger struct {
	*slog.Logger
}

// Config holds logger construction options. Zero values are usable:
// stdout, level info, format picked from the environment name.
type Config struct {
	Writer      io.Writer
	Format      string
	Environment string
	Level       slog.Level
	AddSource   bool
}

// New builds a logger from cfg. An empty Format means JSON in
// production and the console handler otherwise.
func New(cfg Config) *Logger {
	out := cfg.Writer
	if out == nil {
		out = os.Stdout
	}

	format := cfg.Format
	if format == "" {
		format = formatConsole
		if cfg.Environment == "production" {
			format = formatJSON
		}
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			// Full paths in source attrs are noise; the basename is enough
			// to find the call site.
			if a.Key == slog.SourceKey {
				if src, ok := a.Value.Any().(*slog.Source); ok {
					src.File = filepath.Base(src.File)
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if format == formatJSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = &consoleHandler{out: out, opts: opts}
	}

	return &Logger{Logger: slog.New(handler)}
}

// ParseLevel maps a config string to a slog.Level. Unknown strings
// fall back to info rather than erroring; a typo in a config file
// should not silence the server.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// WithError returns a logger carrying the error as an attribute.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.With(slog.String("error", err.Error()))}
}

// WithField returns a logger carrying one extra attribute.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{Logger: l.With(slog.Any(key, value))}
}

// Fatal logs at error level and exits the process.
func (l *Logger) Fatal(msg string, args ...any) {
	l.Error(msg, args...)
	os.Exit(1)
}

// ANSI escape sequences for the console handler.
const (
	ansiReset  = "\033[0m"
	ansiDim    = "\033[2m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiPurple = "\033[35m"
	ansiCyan   = "\033[36m"
)

// consoleHandler renders records as one colorized line:
// time LEVEL [source] message key=value...
// Group names from WithGroup become dotted key prefixes.
type consoleHandler struct {
	out    io.Writer
	opts   *slog.HandlerOptions
	attrs  []slog.Attr
	prefix string
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.opts.Level != nil {
		min = h.opts.Level.Level()
	}
	return level >= min
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s%s%s ", ansiDim, r.Time.Format("15:04:05"), ansiReset)
	fmt.Fprintf(&buf, "%s%s%s ", levelColor(r.Level), levelLabel(r.Level), ansiReset)

	if h.opts.AddSource && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		frame, _ := frames.Next()
		fmt.Fprintf(&buf, "%s%s:%d%s ", ansiDim, filepath.Base(frame.File), frame.Line, ansiReset)
	}

	fmt.Fprintf(&buf, "%s%s%s", ansiBold, r.Message, ansiReset)

	for _, a := range h.attrs {
		h.writeAttr(&buf, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&buf, a)
		return true
	})

	buf.WriteByte('\n')
	_, err := h.out.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) writeAttr(buf *bytes.Buffer, a slog.Attr) {
	fmt.Fprintf(buf, " %s%s%s=%s%s", ansiCyan, h.prefix, a.Key, renderValue(a.Value), ansiReset)
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &consoleHandler{out: h.out, opts: h.opts, attrs: merged, prefix: h.prefix}
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &consoleHandler{out: h.out, opts: h.opts, attrs: h.attrs, prefix: h.prefix + name + "."}
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return " WARN"
	case level >= slog.LevelInfo:
		return " INFO"
	default:
		return "DEBUG"
	}
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return ansiRed
	case level >= slog.LevelWarn:
		return ansiYellow
	case level >= slog.LevelInfo:
		return ansiGreen
	default:
		return ansiPurple
	}
}

func renderValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	default:
		return v.String()
	}
}

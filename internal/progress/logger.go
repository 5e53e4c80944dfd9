package progress

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Logger forwards events to a structured slog logger.
type Logger struct {
	log *slog.Logger
}

// NewLogger wraps l; a nil l uses slog.Default().
func NewLogger(l *slog.Logger) *Logger {
	if l == nil {
		l = slog.Default()
	}
	return &Logger{log: l}
}

func (l *Logger) Report(e Event) {
	level := slog.LevelDebug
	switch e.Kind {
	case Warning:
		level = slog.LevelWarn
	case StageStarted, StageFinished, StageSkipped:
		level = slog.LevelInfo
	}
	attrs := []slog.Attr{slog.String("kind", string(e.Kind)), slog.String("stage", e.Stage)}
	if e.File != "" {
		attrs = append(attrs, slog.String("file", e.File))
	}
	if e.Detail != "" {
		attrs = append(attrs, slog.String("detail", e.Detail))
	}
	if e.Total > 0 {
		attrs = append(attrs, slog.Int("index", e.Index), slog.Int("total", e.Total))
	}
	l.log.LogAttrs(context.Background(), level, e.String(), attrs...)
}

// NewSlog builds a slog logger for the given level ("debug", "info", "warn",
// "error") and format ("text" or "json").
func NewSlog(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
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

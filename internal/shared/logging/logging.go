package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Common attribute keys so log queries stay consistent across packages.
const (
	FieldUserID    = "user_id"
	FieldEventKind = "event_kind"
	FieldEventID   = "event_id"
	FieldComponent = "component"
	FieldError     = "error"
)

type Config struct {
	Level  string
	Format string
	Output io.Writer
}

// ParseLevel accepts debug, info, warn and error. Anything else is info.
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

// New builds a logger writing JSON unless Format is "text".
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return slog.New(handler)
}

// Setup builds the logger and installs it as the slog default.
func Setup(cfg Config, component string) *slog.Logger {
	logger := New(cfg).With(FieldComponent, component)
	slog.SetDefault(logger)
	return logger
}

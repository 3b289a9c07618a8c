package log

import (
	"log/slog"
	"os"
	"strings"
)

type options struct {
	level     slog.Level
	addSource bool
}

// Option configures the logger constructor.
type Option func(*options)

// WithLevel sets the minimum level from its config string form.
func WithLevel(level string) Option {
	return func(o *options) {
		switch strings.ToLower(strings.TrimSpace(level)) {
		case "debug", "verbose":
			o.level = slog.LevelDebug
		case "info", "":
			o.level = slog.LevelInfo
		case "warn", "warning":
			o.level = slog.LevelWarn
		case "error":
			o.level = slog.LevelError
		default:
			o.level = slog.LevelInfo
		}
	}
}

// WithSource annotates records with the caller position.
func WithSource() Option {
	return func(o *options) {
		o.addSource = true
	}
}

// New builds the process logger writing JSON to stdout.
func New(opts ...Option) *slog.Logger {
	cfg := options{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(&cfg)
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     cfg.level,
		AddSource: cfg.addSource,
	}))
}

// Err wraps an error as a uniform slog attribute.
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

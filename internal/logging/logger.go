// Package logging builds the process-wide structured logger.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Options holds logger configuration.
type Options struct {
	Level      slog.Level
	JSON       bool
	AddSource  bool
	SetDefault bool
	Writer     io.Writer
}

// Option configures Options.
type Option func(*Options)

// WithLevel sets the level from its name ("debug", "info", "warn", "error").
// Unknown names keep info and are reported on the default logger.
func WithLevel(level string) Option {
	return func(options *Options) {
		options.Level = ParseLevel(level)
	}
}

// WithJSON switches to JSON output.
func WithJSON(enabled bool) Option {
	return func(options *Options) {
		options.JSON = enabled
	}
}

// WithSource adds source file and line to records.
func WithSource(enabled bool) Option {
	return func(options *Options) {
		options.AddSource = enabled
	}
}

// WithWriter redirects output, mostly for tests.
func WithWriter(writer io.Writer) Option {
	return func(options *Options) {
		options.Writer = writer
	}
}

// WithoutDefault keeps slog.Default untouched.
func WithoutDefault() Option {
	return func(options *Options) {
		options.SetDefault = false
	}
}

// NewLogger creates a text or JSON logger and installs it as the default.
func NewLogger(opts ...Option) *slog.Logger {
	options := &Options{
		Level:      slog.LevelInfo,
		SetDefault: true,
		Writer:     os.Stderr,
	}
	for _, opt := range opts {
		opt(options)
	}

	handlerOptions := &slog.HandlerOptions{
		AddSource: options.AddSource,
		Level:     options.Level,
	}

	var handler slog.Handler = slog.NewTextHandler(options.Writer, handlerOptions)
	if options.JSON {
		handler = slog.NewJSONHandler(options.Writer, handlerOptions)
	}

	logger := slog.New(handler)
	if options.SetDefault {
		slog.SetDefault(logger)
	}
	return logger
}

// ParseLevel converts a level name, falling back to info.
func ParseLevel(level string) slog.Level {
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(level)); err != nil {
		slog.Default().Warn("failed to parse log level",
			slog.String("input", level),
			slog.String("default", "info"),
		)
		return slog.LevelInfo
	}
	return parsed
}

// ValidLevel reports whether level names a slog level.
func ValidLevel(level string) bool {
	var parsed slog.Level
	return parsed.UnmarshalText([]byte(level)) == nil
}

type ctxLogger struct{}

// ContextWithLogger stores a logger in ctx.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxLogger{}, logger)
}

// FromContext returns the logger stored in ctx, or the default logger.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxLogger{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

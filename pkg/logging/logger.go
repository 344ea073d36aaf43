// Package logging provides structured logging for rv's allocation engine.
package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode"
)

// Logger is the interface for structured logging used throughout rv.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
}

// slogLogger wraps slog.Logger to implement Logger.
type slogLogger struct {
	logger *slog.Logger
}

// NewLogger creates a new logger with the given configuration.
func NewLogger(config *Config) Logger {
	if config == nil {
		config = DefaultConfig()
	}

	opts := &slog.HandlerOptions{
		Level: config.Level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	switch config.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(config.Output, opts)
	default:
		handler = slog.NewTextHandler(config.Output, opts)
	}

	logger := slog.New(handler).With("service", "rv", "version", config.Version)
	return &slogLogger{logger: logger}
}

func (l *slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, sanitizeFields(args)...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, sanitizeFields(args)...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, sanitizeFields(args)...) }
func (l *slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, sanitizeFields(args)...) }

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...)}
}

// WithContext attaches request/job identifiers carried on the context, when
// present, so every log line inside a submission/monitor call is correlated.
func (l *slogLogger) WithContext(ctx context.Context) Logger {
	attrs := make([]any, 0, 4)
	if reqID := ctx.Value(ctxKeyRequestID); reqID != nil {
		attrs = append(attrs, "request_id", reqID)
	}
	if jobID := ctx.Value(ctxKeyJobID); jobID != nil {
		attrs = append(attrs, "job_id", jobID)
	}
	if len(attrs) > 0 {
		return l.With(attrs...)
	}
	return l
}

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyJobID
)

// WithRequestID returns a context carrying a request id for log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// WithJobID returns a context carrying a job id for log correlation.
func WithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyJobID, id)
}

// Config holds logger configuration.
type Config struct {
	Level   slog.Level
	Format  Format
	Output  *os.File
	Version string
}

// Format represents the log output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// DefaultConfig returns a default logger configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:   slog.LevelInfo,
		Format:  FormatText,
		Output:  os.Stdout,
		Version: "dev",
	}
}

// sanitizeLogValue strips control characters from string values so a
// malicious job name or command can't forge extra log lines.
func sanitizeLogValue(value any) any {
	str, ok := value.(string)
	if !ok {
		return value
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case unicode.IsControl(r) && !unicode.IsSpace(r):
			return -1
		default:
			return r
		}
	}, str)
}

func sanitizeFields(fields []any) []any {
	sanitized := make([]any, len(fields))
	for i, field := range fields {
		sanitized[i] = sanitizeLogValue(field)
	}
	return sanitized
}

// LogDuration logs the duration of an operation.
func LogDuration(logger Logger, start time.Time, operation string) {
	d := time.Since(start)
	logger.Info("operation completed", "operation", operation, "duration", d.String())
}

// LogError logs an error with its operation and classified type.
func LogError(logger Logger, err error, operation string, fields ...any) {
	if err == nil {
		return
	}
	base := []any{"operation", operation, "error", err.Error(), "error_type", errorType(err)}
	logger.Error("operation failed", append(base, fields...)...)
}

func errorType(err error) string {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return "PathError"
	}
	return fmt.Sprintf("%T", err)
}

// NoOpLogger discards all log messages.
type NoOpLogger struct{}

func (NoOpLogger) Debug(msg string, args ...any)          {}
func (NoOpLogger) Info(msg string, args ...any)           {}
func (NoOpLogger) Warn(msg string, args ...any)           {}
func (NoOpLogger) Error(msg string, args ...any)          {}
func (NoOpLogger) With(args ...any) Logger                { return NoOpLogger{} }
func (NoOpLogger) WithContext(ctx context.Context) Logger { return NoOpLogger{} }

// DefaultLogger is a package-level logger for convenience.
var DefaultLogger = NewLogger(DefaultConfig())

// SetDefaultLogger replaces the package-level default logger.
func SetDefaultLogger(logger Logger) {
	DefaultLogger = logger
}

// Package logging provides the structured logger used across the gateway,
// backed by zerolog, plus context helpers for trace and user identifiers.
package logging

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	// TraceIDKey is the context key for the request trace ID.
	TraceIDKey contextKey = "trace_id"
	// UserIDKey is the context key for the authenticated user ID.
	UserIDKey contextKey = "user_id"
)

// Logger wraps a zerolog.Logger with service metadata.
type Logger struct {
	zl zerolog.Logger
}

// New creates a logger for the named service. Level is a zerolog level name
// ("debug", "info", ...); format is "json" or "console".
func New(service, level, format string) *Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var zl zerolog.Logger
	if strings.EqualFold(format, "console") {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		zl = zerolog.New(os.Stderr)
	}

	zl = zl.Level(lvl).With().Timestamp().Str("service", service).Logger()
	return &Logger{zl: zl}
}

// WithContext returns an entry enriched with identifiers from the context.
func (l *Logger) WithContext(ctx context.Context) *Entry {
	zc := l.zl.With()
	if id := GetTraceID(ctx); id != "" {
		zc = zc.Str("trace_id", id)
	}
	if uid := GetUserID(ctx); uid != "" {
		zc = zc.Str("user_id", uid)
	}
	return &Entry{zl: zc.Logger()}
}

// WithError returns an entry carrying the error field.
func (l *Logger) WithError(err error) *Entry {
	return &Entry{zl: l.zl.With().Err(err).Logger()}
}

// WithFields returns an entry carrying the given fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Entry {
	return &Entry{zl: l.zl.With().Fields(fields).Logger()}
}

// LogRequest emits one access-log line per handled request.
func (l *Logger) LogRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	l.WithContext(ctx).zl.Info().
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("duration", duration).
		Msg("http request")
}

func (l *Logger) Debug(msg string) { l.zl.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.zl.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.zl.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.zl.Error().Msg(msg) }

// Entry is a logger with bound fields.
type Entry struct {
	zl zerolog.Logger
}

// WithError adds the error field to the entry.
func (e *Entry) WithError(err error) *Entry {
	return &Entry{zl: e.zl.With().Err(err).Logger()}
}

// WithFields adds fields to the entry.
func (e *Entry) WithFields(fields map[string]interface{}) *Entry {
	return &Entry{zl: e.zl.With().Fields(fields).Logger()}
}

func (e *Entry) Debug(msg string) { e.zl.Debug().Msg(msg) }
func (e *Entry) Info(msg string)  { e.zl.Info().Msg(msg) }
func (e *Entry) Warn(msg string)  { e.zl.Warn().Msg(msg) }
func (e *Entry) Error(msg string) { e.zl.Error().Msg(msg) }

// NewTraceID returns a fresh trace identifier.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID stores a trace ID in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID returns the trace ID from the context, or "".
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(TraceIDKey).(string)
	return id
}

// WithUserID stores the authenticated user ID in the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID returns the user ID from the context, or "".
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

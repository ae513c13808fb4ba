package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
)

// Config holds logging configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output io.Writer
}

// Logger wraps a zerolog logger.
type Logger struct {
	zl zerolog.Logger
}

// New builds a logger. Unknown levels fall back to info; "text" selects the
// console writer, anything else emits JSON.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "text" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return &Logger{zl: zerolog.New(out).Level(level).With().Timestamp().Logger()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// SetGlobalLogger installs l as the zerolog global logger.
func SetGlobalLogger(l *Logger) {
	log.Logger = l.zl
}

// Zerolog exposes the underlying logger.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

// With returns a child logger tagged with component.
func (l *Logger) With(component string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", component).Logger()}
}

func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }

// WithContext returns a logger enriched with the request and user IDs
// carried by ctx.
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	return enrich(ctx, l.zl)
}

// FromContext is WithContext on the global logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	return enrich(ctx, log.Logger)
}

func enrich(ctx context.Context, base zerolog.Logger) *zerolog.Logger {
	c := base.With()
	if id, ok := RequestID(ctx); ok {
		c = c.Str("request_id", id)
	}
	if id, ok := ctx.Value(userIDKey).(int64); ok {
		c = c.Int64("user_id", id)
	}
	enriched := c.Logger()
	return &enriched
}

// ContextWithRequestID stores the request ID for later log lines.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextWithUserID stores the authenticated user ID for later log lines.
func ContextWithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// RequestID returns the request ID stored in ctx.
func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok && id != ""
}

// HTTPRequest logs one completed request. Server errors log at error level,
// client errors at warn.
func (l *Logger) HTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	zl := l.WithContext(ctx)
	var event *zerolog.Event
	switch {
	case status >= 500:
		event = zl.Error()
	case status >= 400:
		event = zl.Warn()
	default:
		event = zl.Info()
	}
	event.
		Str("method", method).
		Str("path", path).
		Int("status_code", status).
		Dur("duration_ms", duration).
		Msg("http request")
}

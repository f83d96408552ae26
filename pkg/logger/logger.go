// Package logger provides the structured logger shared by every Suiven component.
package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	traceIDKey   contextKey = "trace_id"
)

// Config controls logger construction.
type Config struct {
	Level     string
	Format    string // json|text
	Component string
	Output    io.Writer
}

// Logger wraps a logrus entry scoped to a component.
type Logger struct {
	*logrus.Entry
}

// New creates a logger from cfg.
func New(cfg Config) *Logger {
	base := logrus.New()
	if cfg.Output != nil {
		base.SetOutput(cfg.Output)
	} else {
		base.SetOutput(os.Stdout)
	}

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	component := strings.TrimSpace(cfg.Component)
	if component == "" {
		component = "suiven"
	}
	return &Logger{Entry: base.WithField("component", component)}
}

// NewDefault creates an info-level text logger for component.
// LOG_LEVEL and LOG_FORMAT override the defaults when set.
func NewDefault(component string) *Logger {
	return New(Config{
		Level:     os.Getenv("LOG_LEVEL"),
		Format:    os.Getenv("LOG_FORMAT"),
		Component: component,
	})
}

// NewTest creates a debug-level JSON logger writing to w.
func NewTest(w io.Writer) *Logger {
	return New(Config{Level: "debug", Format: "json", Component: "test", Output: w})
}

// Named returns a child logger for a sub-component.
func (l *Logger) Named(component string) *Logger {
	return &Logger{Entry: l.Entry.WithField("component", component)}
}

// WithContext returns an entry carrying the request and trace ids found in ctx.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Entry.WithContext(ctx)
	if ctx == nil {
		return entry
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		entry = entry.WithField("request_id", id)
	}
	if id, ok := ctx.Value(traceIDKey).(string); ok && id != "" {
		entry = entry.WithField("trace_id", id)
	}
	return entry
}

// ContextWithRequestID stores a request id for WithContext.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextWithTraceID stores a trace id for WithContext.
func ContextWithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

// RequestIDFromContext returns the request id stored in ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

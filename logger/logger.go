package logger

import "context"

// Logger is the structured logger used across the agents. Every call carries
// a context so request-scoped values can be attached later without changing
// call sites.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, fields map[string]interface{})

	// WithField returns a child logger that adds key to every entry.
	WithField(key string, value interface{}) Logger

	// WithFields returns a child logger that adds all fields to every entry.
	WithFields(fields map[string]interface{}) Logger
}

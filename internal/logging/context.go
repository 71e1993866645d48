package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSessionID identifies one protocol session.
	FieldSessionID = "session_id"
	// FieldDiscID is the eight-digit hex disc identifier.
	FieldDiscID = "disc_id"
	// FieldCategory is the database category of a record.
	FieldCategory = "category"
	// FieldCommand is the protocol command being dispatched.
	FieldCommand = "command"
	// FieldResponseCode is the three-digit server status.
	FieldResponseCode = "response_code"
	// FieldEventType classifies warnings for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type sessionIDKey struct{}

// WithSessionID stores a session identifier on the context.
func WithSessionID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionIDFromContext returns the session identifier stored by WithSessionID.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(sessionIDKey{}).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if id, ok := SessionIDFromContext(ctx); ok {
		return []slog.Attr{slog.String(FieldSessionID, id)}
	}
	return nil
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}

package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// A listener sets Stream once; the dispatcher adds ContentID per event, so every
// log line below the dispatch boundary carries both without passing them around.
type LogFields struct {
	Stream    *string // listener name ("comments", "posts")
	ContentID *string // Reddit fullname of the node being handled
	MessageID *string // Redis stream message ID (redis feed mode only)
	Kind      *string // "post" or "comment"
	Attempt   *int    // delivery attempt (redis feed mode only)
	Component string  // e.g. "comm.listener", "comm.brain.classifier"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func (f LogFields) attrs() []slog.Attr {
	var attrs []slog.Attr
	if f.Stream != nil {
		attrs = append(attrs, slog.String("stream", *f.Stream))
	}
	if f.ContentID != nil {
		attrs = append(attrs, slog.String("content_id", *f.ContentID))
	}
	if f.MessageID != nil {
		attrs = append(attrs, slog.String("message_id", *f.MessageID))
	}
	if f.Kind != nil {
		attrs = append(attrs, slog.String("kind", *f.Kind))
	}
	if f.Attempt != nil {
		attrs = append(attrs, slog.Int("attempt", *f.Attempt))
	}
	if f.Component != "" {
		attrs = append(attrs, slog.String("component", f.Component))
	}
	return attrs
}

// mergeFields merges two LogFields, preferring non-nil/non-empty values from 'new'.
func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.Stream != nil {
		result.Stream = new.Stream
	}
	if new.ContentID != nil {
		result.ContentID = new.ContentID
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.Kind != nil {
		result.Kind = new.Kind
	}
	if new.Attempt != nil {
		result.Attempt = new.Attempt
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{ContentID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen bytes, appending "..." if truncated.
// Useful for logging comment bodies and model output.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

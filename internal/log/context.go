package log

import (
	"context"
	"log/slog"
	"strings"
)

type lifecycleLogContextKey struct{}

// LifecycleLogContext carries the embedding attempt a log record belongs to.
type LifecycleLogContext struct {
	WindowTitle string
	Mode        string
	Generation  uint64
	LaunchID    string
}

var LifecycleLogContextKey = lifecycleLogContextKey{}

// WithLifecycleLogContext merges non-empty fields from update into ctx.
func WithLifecycleLogContext(ctx context.Context, update LifecycleLogContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	current := LifecycleLogContextFromContext(ctx)
	mergeStringField(&current.WindowTitle, update.WindowTitle)
	mergeStringField(&current.Mode, update.Mode)
	mergeStringField(&current.LaunchID, update.LaunchID)
	if update.Generation != 0 {
		current.Generation = update.Generation
	}

	return context.WithValue(ctx, LifecycleLogContextKey, current)
}

// LifecycleLogContextFromContext extracts lifecycle logging metadata from ctx.
func LifecycleLogContextFromContext(ctx context.Context) LifecycleLogContext {
	if ctx == nil {
		return LifecycleLogContext{}
	}

	switch value := ctx.Value(LifecycleLogContextKey).(type) {
	case LifecycleLogContext:
		return value
	case *LifecycleLogContext:
		if value != nil {
			return *value
		}
	}

	return LifecycleLogContext{}
}

// LifecycleAttrs converts context metadata to alternating slog key/value
// arguments, suitable for Logger.With.
func LifecycleAttrs(ctx context.Context) []any {
	meta := LifecycleLogContextFromContext(ctx)
	attrs := make([]any, 0, 4)

	appendStringAttr(&attrs, "window_title", meta.WindowTitle)
	appendStringAttr(&attrs, "mode", meta.Mode)
	if meta.Generation != 0 {
		attrs = append(attrs, slog.Uint64("generation", meta.Generation))
	}
	appendStringAttr(&attrs, "launch_id", meta.LaunchID)

	return attrs
}

// LoggerFor returns logger annotated with the lifecycle metadata in ctx.
func LoggerFor(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	attrs := LifecycleAttrs(ctx)
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(attrs...)
}

func mergeStringField(target *string, value string) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return
	}
	*target = trimmed
}

func appendStringAttr(attrs *[]any, key, value string) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return
	}
	*attrs = append(*attrs, slog.String(key, trimmed))
}

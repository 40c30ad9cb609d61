package log

import (
	"context"
	"log/slog"
)

// NewDualHandler sends every record to primary (normally the log file) and
// mirrors records at or above mirror to secondary (normally stderr). A nil
// secondary disables mirroring; a nil mirror defaults to error level.
func NewDualHandler(primary slog.Handler, secondary slog.Handler, mirror slog.Leveler) slog.Handler {
	if mirror == nil {
		mirror = slog.LevelError
	}
	return &dualHandler{
		primary:   primary,
		secondary: secondary,
		mirror:    mirror,
	}
}

type dualHandler struct {
	primary   slog.Handler
	secondary slog.Handler
	mirror    slog.Leveler
}

func (h *dualHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.primary != nil && h.primary.Enabled(ctx, level) {
		return true
	}
	return h.shouldMirror(ctx, level)
}

func (h *dualHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.primary != nil && h.primary.Enabled(ctx, record.Level) {
		if err := h.primary.Handle(ctx, record); err != nil {
			return err
		}
	}

	if h.shouldMirror(ctx, record.Level) {
		return h.secondary.Handle(ctx, record.Clone())
	}
	return nil
}

func (h *dualHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	if h.primary != nil {
		clone.primary = h.primary.WithAttrs(attrs)
	}
	if h.secondary != nil {
		clone.secondary = h.secondary.WithAttrs(attrs)
	}
	return &clone
}

func (h *dualHandler) WithGroup(name string) slog.Handler {
	clone := *h
	if h.primary != nil {
		clone.primary = h.primary.WithGroup(name)
	}
	if h.secondary != nil {
		clone.secondary = h.secondary.WithGroup(name)
	}
	return &clone
}

func (h *dualHandler) shouldMirror(ctx context.Context, level slog.Level) bool {
	return h.secondary != nil &&
		level >= h.mirror.Level() &&
		h.secondary.Enabled(ctx, level)
}

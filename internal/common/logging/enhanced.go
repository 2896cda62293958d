package logging

import (
	"context"
	"log/slog"

	"github.com/khmm12/reachable/internal/common/tracing"
)

var _ slog.Handler = (*EnhancedHandler)(nil)

// EnhancedHandler adds the trace id and target carried by the context to
// every record.
type EnhancedHandler struct {
	w slog.Handler
}

func NewEnhancedHandler(handler slog.Handler) *EnhancedHandler {
	return &EnhancedHandler{w: handler}
}

func (h *EnhancedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.w.Enabled(ctx, level)
}

func (h *EnhancedHandler) Handle(ctx context.Context, r slog.Record) error {
	if traceID := tracing.GetTraceID(ctx); traceID != "" {
		r.Add(slog.String("trace_id", traceID))
	}

	if target := tracing.GetTarget(ctx); target != "" && !hasAttr(r, "target") {
		r.Add(slog.String("target", target))
	}

	return h.w.Handle(ctx, r)
}

func (h *EnhancedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.clone(h.w.WithAttrs(attrs))
}

func (h *EnhancedHandler) WithGroup(name string) slog.Handler {
	return h.clone(h.w.WithGroup(name))
}

func (h *EnhancedHandler) clone(handler slog.Handler) *EnhancedHandler {
	return &EnhancedHandler{w: handler}
}

func hasAttr(r slog.Record, key string) bool {
	found := false

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			found = true
			return false
		}

		return true
	})

	return found
}

package tracing

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey int

const (
	traceIDCtxKey ctxKey = iota
	targetCtxKey
)

// WithTraceID attaches a new trace id to ctx unless it already carries one.
func WithTraceID(ctx context.Context) context.Context {
	if _, ok := ctx.Value(traceIDCtxKey).(string); ok {
		return ctx
	}

	return context.WithValue(ctx, traceIDCtxKey, generateTraceID())
}

func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(traceIDCtxKey).(string)
	if !ok {
		return ""
	}

	return traceID
}

// WithTarget attaches the id of the target being checked to ctx.
func WithTarget(ctx context.Context, target string) context.Context {
	return context.WithValue(ctx, targetCtxKey, target)
}

func GetTarget(ctx context.Context) string {
	target, ok := ctx.Value(targetCtxKey).(string)
	if !ok {
		return ""
	}

	return target
}

func generateTraceID() string {
	v, _ := uuid.NewV7()
	return v.String()
}

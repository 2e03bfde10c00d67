// Package context carries request-scoped identifiers between the HTTP
// layer and code that must not depend on the framework.
package context

import (
	"context"
)

// TraceContext identifies one request across logs and error responses.
// Both ids are taken from inbound headers when present, generated
// otherwise.
type TraceContext struct {
	TraceID   string
	RequestID string
}

type traceKey struct{}

// WithTrace stores the trace in the context.
func WithTrace(ctx context.Context, t *TraceContext) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

// Trace returns the stored trace, or nil.
func Trace(ctx context.Context) *TraceContext {
	if t, ok := ctx.Value(traceKey{}).(*TraceContext); ok {
		return t
	}
	return nil
}

// RequestID returns the request id from the context, or "" outside a
// request.
func RequestID(ctx context.Context) string {
	if t := Trace(ctx); t != nil {
		return t.RequestID
	}
	return ""
}

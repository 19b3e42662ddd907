package apiclient

import (
	"context"

	"github.com/google/uuid"
)

type requestIDContextKey struct{}

// WithRequestID attaches id to ctx. Requests sent with the returned context
// carry it in the X-Request-ID header instead of a generated one.
func WithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// RequestIDFromContext returns the request ID attached to ctx, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDContextKey{}).(string)
	return id, ok && id != ""
}

func requestID(ctx context.Context) string {
	if id, ok := RequestIDFromContext(ctx); ok {
		return id
	}
	return uuid.NewString()
}

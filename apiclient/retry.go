package apiclient

import (
	"context"

	"github.com/google/uuid"
)

type retryMarkerKey struct{}
type requestIDKey struct{}

// withRetryMarker derives a context whose requests have used up their one retry
func withRetryMarker(ctx context.Context) context.Context {
	return context.WithValue(ctx, retryMarkerKey{}, true)
}

// IsRetry reports whether ctx belongs to the retried attempt of a request
func IsRetry(ctx context.Context) bool {
	marked, _ := ctx.Value(retryMarkerKey{}).(bool)
	return marked
}

func newRequestID() string {
	return uuid.NewString()
}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// WithRequestID pins the id sent as X-Request-ID for calls made with ctx
func WithRequestID(ctx context.Context, id string) context.Context {
	return withRequestID(ctx, id)
}

// RequestIDFromContext returns the pending request's id, if any
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

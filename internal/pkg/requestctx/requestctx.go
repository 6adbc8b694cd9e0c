// Package requestctx carries per-request identifiers through a context.
package requestctx

import "context"

// contextKey is an unexported type for context keys in this package.
// Using a custom type prevents collisions with keys from other packages
// that might use the same underlying string value.
type contextKey string

const (
	HeaderXRequestId = "x-request-id"

	// ContextKeyRequestID is the context key for the request ID.
	ContextKeyRequestID contextKey = HeaderXRequestId
	// ContextKeySessionID is the context key for the storefront session.
	ContextKeySessionID contextKey = "session-id"
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, id)
}

// RequestID returns the request id, or "" outside a request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyRequestID).(string)
	return id
}

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, id)
}

// SessionID returns the session id, or "" when the request has none.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeySessionID).(string)
	return id
}

// Package requestcontext carries request-scoped values used across layers:
// the request timestamp, correlation ID, and client metadata. Keeping them in
// context avoids threading five extra parameters through every service call
// while staying explicit about what the engine reads.
package requestcontext

import (
	"context"
	"time"
)

type contextKeyTime struct{}
type contextKeyRequestID struct{}
type contextKeyClientMeta struct{}

// ClientMetadata captures transport-level facts about the caller used to
// enrich audit entries. Never used for authorization decisions.
type ClientMetadata struct {
	IPAddress   string
	UserAgent   string
	Fingerprint string
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that don't run the full HTTP middleware chain
//   - Workers that need consistent time within a batch operation
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, contextKeyTime{}, t)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers and tests).
// All expiry comparisons in the engine go through this, never time.Now() directly,
// so temporal behavior is controllable in tests.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(contextKeyTime{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithRequestID stores the correlation ID for the current request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID{}, id)
}

// RequestID returns the correlation ID, or empty string outside a request.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID{}).(string); ok {
		return id
	}
	return ""
}

// WithClientMetadata stores client transport metadata for audit enrichment.
func WithClientMetadata(ctx context.Context, meta ClientMetadata) context.Context {
	return context.WithValue(ctx, contextKeyClientMeta{}, meta)
}

// Client returns the client metadata, or the zero value when absent.
func Client(ctx context.Context) ClientMetadata {
	if meta, ok := ctx.Value(contextKeyClientMeta{}).(ClientMetadata); ok {
		return meta
	}
	return ClientMetadata{}
}

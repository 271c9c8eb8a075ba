// ABOUTME: Session identity carried through invocation contexts.
// ABOUTME: Transports attach a per-connection id; conversation tools read it.
package tools

import (
	"context"

	"github.com/google/uuid"
)

type sessionKey struct{}

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// WithSessionID returns a context carrying the session id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionIDFromContext returns the session id, or "" if none was attached.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

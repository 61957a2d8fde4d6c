package identity

import (
	"context"

	"github.com/google/uuid"
)

// Session is the backend-session identity extracted from a validated
// bearer token.
type Session struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

type sessionKey struct{}

// WithSession attaches the session to the request context.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session on the context, or nil when the
// request is unauthenticated (demo path only).
func SessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

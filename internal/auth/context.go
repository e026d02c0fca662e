package auth

import (
	"context"
	"time"
)

type contextKey struct{}

// Session describes a verified gate token attached to a request.
type Session struct {
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by WithSession, if any.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}

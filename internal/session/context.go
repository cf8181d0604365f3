package session

import (
	"context"

	"github.com/desertthunder/ytdash/internal/models"
)

type contextKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session attached by the gate, if any.
func FromContext(ctx context.Context) (*models.Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*models.Session)
	return s, ok && s != nil
}

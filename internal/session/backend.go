package session

import (
	"context"

	"github.com/desertthunder/ytdash/internal/models"
)

// Backend persists sessions.
//
// Get must wrap [shared.ErrSessionNotFound] for unknown or expired ids so the
// manager can tell a missing session from a failing store. Delete of an
// unknown id must succeed.
type Backend interface {
	Create(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Update(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, id string) error
}

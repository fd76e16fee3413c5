package repository

import (
	"context"

	"parcelmatch-service/internal/domain/entity"
)

// SessionRepository defines the interface for in-progress submission
// sessions, keyed by actor identity. Get returns nil when the actor has
// no open session.
type SessionRepository interface {
	Get(ctx context.Context, actorID string) (*entity.Session, error)
	Save(ctx context.Context, session *entity.Session) error
	Delete(ctx context.Context, actorID string) error
}

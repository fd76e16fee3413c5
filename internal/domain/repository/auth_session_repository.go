package repository

import (
	"context"

	"parcelmatch-service/internal/domain/entity"
)

// AuthSessionRepository defines the interface for moderator login
// sessions. Get returns nil when the actor has never logged in.
type AuthSessionRepository interface {
	Get(ctx context.Context, actorID string) (*entity.AuthSession, error)
	Save(ctx context.Context, session *entity.AuthSession) error
	Delete(ctx context.Context, actorID string) error
}

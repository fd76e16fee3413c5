package repository

import (
	"context"

	"parcelmatch-service/internal/domain/entity"
)

// UserControlRepository defines the interface for per-user suspension and
// termination flags. Get returns nil when no record exists for the actor.
type UserControlRepository interface {
	Get(ctx context.Context, actorID string) (*entity.UserControl, error)
	SetSuspended(ctx context.Context, actorID string, suspended bool, reason string) error
	SetTerminated(ctx context.Context, actorID string, reason string) error
}

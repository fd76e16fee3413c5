package repository

import (
	"context"

	"parcelmatch-service/internal/domain/entity"
)

// Messenger defines the outbound chat intents the core may emit. The
// transport must echo each Action token back verbatim on button press.
type Messenger interface {
	SendText(ctx context.Context, actorID, text string) error
	SendPhoto(ctx context.Context, actorID, photoRef, caption string) error
	SendWithActions(ctx context.Context, actorID, text string, actions []entity.Action) error
}

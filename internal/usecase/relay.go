package usecase

import (
	"context"
	"fmt"

	"parcelmatch-service/internal/domain/entity"
	"parcelmatch-service/internal/domain/repository"
	"parcelmatch-service/pkg/logger"
)

// Relay forwards free-text and photos between the two sides of a locked
// match and mirrors everything to the moderation channel.
type Relay struct {
	requestRepo repository.RequestRepository
	messenger   repository.Messenger
	modChatID   string
	logger      logger.Logger
}

// NewRelay creates a new relay
func NewRelay(
	requestRepo repository.RequestRepository,
	messenger repository.Messenger,
	modChatID string,
	logger logger.Logger,
) *Relay {
	return &Relay{
		requestRepo: requestRepo,
		messenger:   messenger,
		modChatID:   modChatID,
		logger:      logger,
	}
}

// Forward relays one event from the owner of from to the matched
// counterpart.
func (r *Relay) Forward(ctx context.Context, from *entity.Request, ev entity.Event) error {
	counterpart, err := r.requestRepo.FindByID(ctx, from.MatchedWith)
	if err != nil {
		return err
	}
	if counterpart == nil {
		r.logger.Warn("Locked request without counterpart", "requestId", from.ID, "matchedWith", from.MatchedWith)
		return r.messenger.SendText(ctx, from.OwnerID, "Your match is no longer active.")
	}

	pair := fmt.Sprintf("[%s ↔ %s]", from.ID, counterpart.ID)

	switch ev.Kind {
	case entity.EventPhoto:
		if err := r.messenger.SendPhoto(ctx, counterpart.OwnerID, ev.PhotoRef, "💬 photo from your match"); err != nil {
			return err
		}
		return r.messenger.SendPhoto(ctx, r.modChatID, ev.PhotoRef, pair+" photo")
	default:
		if err := r.messenger.SendText(ctx, counterpart.OwnerID, "💬 "+ev.Text); err != nil {
			return err
		}
		return r.messenger.SendText(ctx, r.modChatID, fmt.Sprintf("%s %s: %s", pair, from.ID, ev.Text))
	}
}

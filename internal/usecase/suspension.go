package usecase

import (
	"context"
	"fmt"
	"strings"

	"parcelmatch-service/internal/domain/entity"
	"parcelmatch-service/internal/domain/repository"
	"parcelmatch-service/pkg/logger"
)

const suspensionNotice = "Your access is suspended. You can still use /help and /support."

// Gate enforces per-user suspension before any event reaches the rest of
// the system, and owns the suspend/unsuspend/terminate moderator actions.
type Gate struct {
	controlRepo repository.UserControlRepository
	requestRepo repository.RequestRepository
	messenger   repository.Messenger
	modChatID   string
	logger      logger.Logger
}

// NewGate creates a new suspension/termination gate
func NewGate(
	controlRepo repository.UserControlRepository,
	requestRepo repository.RequestRepository,
	messenger repository.Messenger,
	modChatID string,
	logger logger.Logger,
) *Gate {
	return &Gate{
		controlRepo: controlRepo,
		requestRepo: requestRepo,
		messenger:   messenger,
		modChatID:   modChatID,
		logger:      logger,
	}
}

// allowListed reports whether a suspended user may still perform the
// event: the minimal help/support commands only.
func allowListed(ev entity.Event) bool {
	if ev.Kind != entity.EventText {
		return false
	}
	cmd := strings.Fields(ev.Text)
	if len(cmd) == 0 {
		return false
	}
	return cmd[0] == "/help" || cmd[0] == "/support"
}

// Allowed checks the suspension flag for the actor. When blocked it has
// already answered the actor with the standard notice.
func (g *Gate) Allowed(ctx context.Context, ev entity.Event) (bool, error) {
	control, err := g.controlRepo.Get(ctx, ev.ActorID)
	if err != nil {
		return false, err
	}
	if control == nil || !control.Suspended {
		return true, nil
	}
	if allowListed(ev) {
		return true, nil
	}
	return false, g.messenger.SendText(ctx, ev.ActorID, suspensionNotice)
}

// Suspend blocks a user. All in-progress state is left in place; nothing
// advances while the flag is set.
func (g *Gate) Suspend(ctx context.Context, actorID, reason string) error {
	if err := g.controlRepo.SetSuspended(ctx, actorID, true, reason); err != nil {
		return err
	}
	g.logger.Info("User suspended", "actorId", actorID, "reason", reason)

	if err := g.messenger.SendText(ctx, actorID, suspensionNotice); err != nil {
		g.logger.Error("Failed to notify suspended user", "actorId", actorID, "error", err)
	}
	return g.messenger.SendText(ctx, g.modChatID, fmt.Sprintf("User %s suspended.", actorID))
}

// Unsuspend fully restores the user's prior capability.
func (g *Gate) Unsuspend(ctx context.Context, actorID string) error {
	if err := g.controlRepo.SetSuspended(ctx, actorID, false, ""); err != nil {
		return err
	}
	g.logger.Info("User unsuspended", "actorId", actorID)

	if err := g.messenger.SendText(ctx, actorID, "Your suspension was lifted. Welcome back."); err != nil {
		g.logger.Error("Failed to notify user", "actorId", actorID, "error", err)
	}
	return g.messenger.SendText(ctx, g.modChatID, fmt.Sprintf("User %s unsuspended.", actorID))
}

// Terminate dissolves a live match symmetrically: both requests move to
// terminated with all match fields cleared, both owners are flagged and
// notified. Neither side is matched again without a fresh approved
// request.
func (g *Gate) Terminate(ctx context.Context, reqID, reason string) error {
	req, err := g.requestRepo.FindByID(ctx, reqID)
	if err != nil {
		return err
	}
	if req == nil {
		return g.messenger.SendText(ctx, g.modChatID, fmt.Sprintf("Request %s not found.", reqID))
	}
	if !req.MatchLocked || req.MatchedWith == "" {
		return g.messenger.SendText(ctx, g.modChatID, fmt.Sprintf("%s is not in an active match.", reqID))
	}

	counterpart, err := g.requestRepo.FindByID(ctx, req.MatchedWith)
	if err != nil {
		return err
	}

	if err := g.requestRepo.ClearMatchState(ctx, req.ID, entity.StatusTerminated, reason); err != nil {
		return err
	}
	if err := g.controlRepo.SetTerminated(ctx, req.OwnerID, reason); err != nil {
		g.logger.Error("Failed to flag user", "actorId", req.OwnerID, "error", err)
	}

	notice := "Your match was terminated by moderation."
	if reason != "" {
		notice = fmt.Sprintf("Your match was terminated by moderation. Reason: %s", reason)
	}
	if err := g.messenger.SendText(ctx, req.OwnerID, notice); err != nil {
		g.logger.Error("Failed to notify user", "actorId", req.OwnerID, "error", err)
	}

	if counterpart != nil {
		if err := g.requestRepo.ClearMatchState(ctx, counterpart.ID, entity.StatusTerminated, reason); err != nil {
			return err
		}
		if err := g.controlRepo.SetTerminated(ctx, counterpart.OwnerID, reason); err != nil {
			g.logger.Error("Failed to flag user", "actorId", counterpart.OwnerID, "error", err)
		}
		if err := g.messenger.SendText(ctx, counterpart.OwnerID, notice); err != nil {
			g.logger.Error("Failed to notify user", "actorId", counterpart.OwnerID, "error", err)
		}
	}

	g.logger.Info("Match terminated", "requestId", req.ID, "counterpart", req.MatchedWith, "reason", reason)
	return g.messenger.SendText(ctx, g.modChatID,
		fmt.Sprintf("Match %s ↔ %s terminated.", req.ID, req.MatchedWith))
}

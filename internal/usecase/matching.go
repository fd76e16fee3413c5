package usecase

import (
	"context"
	"fmt"

	"parcelmatch-service/internal/domain/entity"
	"parcelmatch-service/internal/domain/repository"
	"parcelmatch-service/pkg/logger"
	"parcelmatch-service/pkg/metrics"
)

const (
	msgNoLongerAvailable = "That candidate is no longer available."
	msgAlreadyMatched    = "You already have a locked match."
	msgWaitingForOther   = "Confirmation recorded. We'll let you know as soon as the other side confirms."
)

// Matcher runs candidate discovery on approval and drives the
// double-confirmation protocol that locks a match.
type Matcher struct {
	requestRepo repository.RequestRepository
	messenger   repository.Messenger
	formatter   *Formatter
	modChatID   string
	logger      logger.Logger
	metrics     *metrics.Metrics
}

// NewMatcher creates a new matcher
func NewMatcher(
	requestRepo repository.RequestRepository,
	messenger repository.Messenger,
	formatter *Formatter,
	modChatID string,
	logger logger.Logger,
	metrics *metrics.Metrics,
) *Matcher {
	return &Matcher{
		requestRepo: requestRepo,
		messenger:   messenger,
		formatter:   formatter,
		modChatID:   modChatID,
		logger:      logger,
		metrics:     metrics,
	}
}

// RunDiscovery scans all approved, unlocked counterparts of the freshly
// approved request and surfaces every compatible candidate to both sides.
// Full scan over the opposite role; this is the dominant cost of
// approval.
func (m *Matcher) RunDiscovery(ctx context.Context, req *entity.Request) error {
	candidates, err := m.requestRepo.FindCandidates(ctx, req.Role.Opposite())
	if err != nil {
		m.metrics.ErrorsCount.WithLabelValues("discovery").Inc()
		return fmt.Errorf("candidate discovery failed: %w", err)
	}

	found := 0
	for _, candidate := range candidates {
		if !CompatiblePair(req, candidate) {
			continue
		}
		found++
		if err := m.sendOffer(ctx, req, candidate); err != nil {
			m.logger.Error("Failed to send offer", "to", req.ID, "candidate", candidate.ID, "error", err)
		}
		if err := m.sendOffer(ctx, candidate, req); err != nil {
			m.logger.Error("Failed to send offer", "to", candidate.ID, "candidate", req.ID, "error", err)
		}
	}

	m.logger.Info("Discovery finished", "requestId", req.ID, "scanned", len(candidates), "compatible", found)
	if found == 0 {
		return m.messenger.SendText(ctx, req.OwnerID,
			"No matching counterpart yet. We'll send you candidates as they appear.")
	}
	return nil
}

// sendOffer presents candidate to the owner of to. The card carries
// route, dates, weight and category only.
func (m *Matcher) sendOffer(ctx context.Context, to, candidate *entity.Request) error {
	text := "We found a possible match for your request " + to.ID + ":\n\n" +
		m.formatter.OfferCard(ctx, candidate)
	actions := []entity.Action{
		{Label: "🤝 Confirm", Token: matchToken("confirm", to.ID, candidate.ID)},
		{Label: "⏭ Skip", Token: matchToken("skip", to.ID, candidate.ID)},
	}
	if err := m.messenger.SendWithActions(ctx, to.OwnerID, text, actions); err != nil {
		return err
	}
	m.metrics.OffersSent.Inc()
	return nil
}

// Confirm handles a confirm button press: actor confirms candidate
// otherID for their own request myID. The first confirmation records
// intent; the second one, arriving when the counterpart's outstanding
// intent already points back, locks the match via conditional writes.
func (m *Matcher) Confirm(ctx context.Context, actorID, myID, otherID string) error {
	mine, err := m.requestRepo.FindByID(ctx, myID)
	if err != nil {
		return err
	}
	if mine == nil || mine.OwnerID != actorID {
		// wrong identity pressing someone else's card: neutral denial,
		// no side effects, no hint whether the target exists
		return m.messenger.SendText(ctx, actorID, "This action isn't available.")
	}

	if mine.MatchLocked {
		if mine.MatchedWith == otherID {
			return m.messenger.SendText(ctx, actorID, "You're already matched with this candidate.")
		}
		return m.messenger.SendText(ctx, actorID, msgAlreadyMatched)
	}
	if mine.Status != entity.StatusApproved {
		return m.messenger.SendText(ctx, actorID, "Your request isn't active anymore.")
	}

	other, err := m.requestRepo.FindByID(ctx, otherID)
	if err != nil {
		return err
	}
	if other == nil || !other.Matchable() || !CompatiblePair(mine, other) {
		return m.messenger.SendText(ctx, actorID, msgNoLongerAvailable)
	}

	// one outstanding confirmation at a time
	if mine.PendingMatchWith != "" && mine.PendingMatchWith != otherID {
		return m.messenger.SendText(ctx, actorID,
			"You already confirmed another candidate. Wait for them, or for that offer to dissolve.")
	}

	if other.PendingMatchWith == myID {
		return m.lock(ctx, mine, other)
	}

	// first confirmation: record intent, mirror the offer to the other
	// side, tell the actor to wait
	ok, err := m.requestRepo.SetPendingMatch(ctx, myID, otherID)
	if err != nil {
		return err
	}
	if !ok {
		// state moved between read and write
		return m.messenger.SendText(ctx, actorID, msgNoLongerAvailable)
	}

	if err := m.sendOffer(ctx, other, mine); err != nil {
		m.logger.Error("Failed to mirror offer", "to", other.ID, "error", err)
	}
	return m.messenger.SendText(ctx, actorID, msgWaitingForOther)
}

// lock finalizes the pair. The write on the counterpart is conditional on
// its pendingMatchWith still pointing at mine, so of two simultaneous
// lock attempts at most one succeeds.
func (m *Matcher) lock(ctx context.Context, mine, other *entity.Request) error {
	ok, err := m.requestRepo.LockIfReciprocal(ctx, other.ID, mine.ID)
	if err != nil {
		return err
	}
	if !ok {
		// counterpart re-confirmed someone else, got locked elsewhere,
		// or a concurrent attempt won
		return m.messenger.SendText(ctx, mine.OwnerID, msgNoLongerAvailable)
	}

	ok, err = m.requestRepo.CompleteLock(ctx, mine.ID, other.ID)
	if err != nil {
		return err
	}
	if !ok {
		// the symmetric race: the counterpart locked us first. If we now
		// hold the expected lock the pair is complete; anything else is
		// recovered by releasing the counterpart.
		current, ferr := m.requestRepo.FindByID(ctx, mine.ID)
		if ferr != nil {
			return ferr
		}
		if current == nil || !current.MatchLocked || current.MatchedWith != other.ID {
			m.logger.Warn("Releasing half-locked counterpart", "mine", mine.ID, "other", other.ID)
			if cerr := m.requestRepo.ClearMatchState(ctx, other.ID, entity.StatusApproved, ""); cerr != nil {
				m.logger.Error("Failed to release counterpart", "requestId", other.ID, "error", cerr)
			}
			return m.messenger.SendText(ctx, mine.OwnerID, msgAlreadyMatched)
		}
	}

	m.metrics.MatchesLocked.Inc()
	m.logger.Info("Match locked", "requestA", mine.ID, "requestB", other.ID)

	openMsg := "It's a match! 🎉 Your chat is now open — anything you type here will be relayed to the other side."
	if err := m.messenger.SendText(ctx, mine.OwnerID, openMsg); err != nil {
		m.logger.Error("Failed to notify party", "actorId", mine.OwnerID, "error", err)
	}
	if err := m.messenger.SendText(ctx, other.OwnerID, openMsg); err != nil {
		m.logger.Error("Failed to notify party", "actorId", other.OwnerID, "error", err)
	}

	return m.messenger.SendWithActions(ctx, m.modChatID,
		fmt.Sprintf("Match locked: %s ↔ %s", mine.ID, other.ID),
		[]entity.Action{{Label: "🛑 Terminate", Token: modToken("terminate", mine.ID)}})
}

// Skip declines one specific offer. Terminal for that offer only: the
// same candidate may be offered again later.
func (m *Matcher) Skip(ctx context.Context, actorID, myID, otherID string) error {
	mine, err := m.requestRepo.FindByID(ctx, myID)
	if err != nil {
		return err
	}
	if mine == nil || mine.OwnerID != actorID {
		return m.messenger.SendText(ctx, actorID, "This action isn't available.")
	}
	return m.messenger.SendText(ctx, actorID, "Skipped. We'll keep looking.")
}

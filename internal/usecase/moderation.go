package usecase

import (
	"context"
	"fmt"

	"parcelmatch-service/internal/domain/entity"
	"parcelmatch-service/internal/domain/repository"
	"parcelmatch-service/pkg/logger"
	"parcelmatch-service/pkg/metrics"
)

// Moderation applies manual approve/reject/request-visa decisions to
// pending requests. Every action is idempotent-safe: repeating one
// answers "already in that state" and causes no second effect.
type Moderation struct {
	requestRepo repository.RequestRepository
	messenger   repository.Messenger
	matcher     *Matcher
	formatter   *Formatter
	modChatID   string
	logger      logger.Logger
	metrics     *metrics.Metrics
}

// NewModeration creates a new moderation gate
func NewModeration(
	requestRepo repository.RequestRepository,
	messenger repository.Messenger,
	matcher *Matcher,
	formatter *Formatter,
	modChatID string,
	logger logger.Logger,
	metrics *metrics.Metrics,
) *Moderation {
	return &Moderation{
		requestRepo: requestRepo,
		messenger:   messenger,
		matcher:     matcher,
		formatter:   formatter,
		modChatID:   modChatID,
		logger:      logger,
		metrics:     metrics,
	}
}

func (m *Moderation) ack(ctx context.Context, text string) error {
	return m.messenger.SendText(ctx, m.modChatID, text)
}

// Approve moves a request to approved and immediately runs candidate
// discovery against all approved, unlocked counterparts.
func (m *Moderation) Approve(ctx context.Context, reqID string) error {
	req, err := m.requestRepo.FindByID(ctx, reqID)
	if err != nil {
		return err
	}
	if req == nil {
		return m.ack(ctx, fmt.Sprintf("Request %s not found.", reqID))
	}

	switch req.Status {
	case entity.StatusApproved:
		return m.ack(ctx, fmt.Sprintf("%s is already approved.", reqID))
	case entity.StatusRejected:
		return m.ack(ctx, fmt.Sprintf("%s is already rejected.", reqID))
	case entity.StatusTerminated:
		return m.ack(ctx, fmt.Sprintf("%s was terminated.", reqID))
	case entity.StatusVisaRequested:
		return m.ack(ctx, fmt.Sprintf("%s has an outstanding visa request. Resolve the visa step first.", reqID))
	}

	if err := m.requestRepo.UpdateStatus(ctx, reqID, entity.StatusApproved, ""); err != nil {
		m.metrics.ErrorsCount.WithLabelValues("approve").Inc()
		return err
	}
	req.Status = entity.StatusApproved
	m.logger.Info("Request approved", "requestId", reqID)

	if err := m.messenger.SendText(ctx, req.OwnerID,
		fmt.Sprintf("Your request %s was approved! We're now looking for a match.", reqID)); err != nil {
		m.logger.Error("Failed to notify owner", "actorId", req.OwnerID, "error", err)
	}
	if err := m.ack(ctx, fmt.Sprintf("%s approved.", reqID)); err != nil {
		m.logger.Error("Failed to ack moderator", "error", err)
	}

	return m.matcher.RunDiscovery(ctx, req)
}

// OfferRejectReasons sends the fixed reason list for a rejection.
func (m *Moderation) OfferRejectReasons(ctx context.Context, reqID string) error {
	actions := make([]entity.Action, 0, len(RejectReasons))
	for i, reason := range RejectReasons {
		actions = append(actions, entity.Action{Label: reason, Token: rejectReasonToken(reqID, i)})
	}
	return m.messenger.SendWithActions(ctx, m.modChatID,
		fmt.Sprintf("Reject %s — pick a reason, or use /reject %s <free text>.", reqID, reqID), actions)
}

// RejectWithReasonIndex rejects with the n-th fixed reason.
func (m *Moderation) RejectWithReasonIndex(ctx context.Context, reqID string, n int) error {
	if n < 0 || n >= len(RejectReasons) {
		return m.ack(ctx, "Unknown rejection reason.")
	}
	return m.Reject(ctx, reqID, RejectReasons[n])
}

// Reject moves a request to rejected with a reason, clearing any match
// fields; a rejected request can never be part of a live match. A locked
// counterpart is released back to approved and told the match dissolved.
func (m *Moderation) Reject(ctx context.Context, reqID, reason string) error {
	req, err := m.requestRepo.FindByID(ctx, reqID)
	if err != nil {
		return err
	}
	if req == nil {
		return m.ack(ctx, fmt.Sprintf("Request %s not found.", reqID))
	}
	if req.Status == entity.StatusRejected {
		return m.ack(ctx, fmt.Sprintf("%s is already rejected.", reqID))
	}

	if req.MatchLocked && req.MatchedWith != "" {
		counterpart, err := m.requestRepo.FindByID(ctx, req.MatchedWith)
		if err != nil {
			return err
		}
		if counterpart != nil {
			if err := m.requestRepo.ClearMatchState(ctx, counterpart.ID, entity.StatusApproved,
				"match dissolved: counterpart rejected"); err != nil {
				return err
			}
			if err := m.messenger.SendText(ctx, counterpart.OwnerID,
				"Your match was dissolved by moderation. Your request is active again and can be re-matched."); err != nil {
				m.logger.Error("Failed to notify counterpart", "actorId", counterpart.OwnerID, "error", err)
			}
		}
	}

	if err := m.requestRepo.ClearMatchState(ctx, reqID, entity.StatusRejected, reason); err != nil {
		m.metrics.ErrorsCount.WithLabelValues("reject").Inc()
		return err
	}
	m.logger.Info("Request rejected", "requestId", reqID, "reason", reason)

	if err := m.messenger.SendText(ctx, req.OwnerID,
		fmt.Sprintf("Your request %s was rejected. Reason: %s", reqID, reason)); err != nil {
		m.logger.Error("Failed to notify owner", "actorId", req.OwnerID, "error", err)
	}
	return m.ack(ctx, fmt.Sprintf("%s rejected (%s).", reqID, reason))
}

// RequestVisa asks a traveler for an extra visa document before approval.
func (m *Moderation) RequestVisa(ctx context.Context, reqID string) error {
	req, err := m.requestRepo.FindByID(ctx, reqID)
	if err != nil {
		return err
	}
	if req == nil {
		return m.ack(ctx, fmt.Sprintf("Request %s not found.", reqID))
	}
	if req.Role != entity.RoleTraveler {
		return m.ack(ctx, "Visa requests apply to traveler requests only.")
	}

	switch req.Status {
	case entity.StatusVisaRequested:
		return m.ack(ctx, fmt.Sprintf("%s already has a visa request outstanding.", reqID))
	case entity.StatusApproved, entity.StatusRejected, entity.StatusTerminated:
		return m.ack(ctx, fmt.Sprintf("%s is already %s.", reqID, req.Status))
	}

	if err := m.requestRepo.UpdateStatus(ctx, reqID, entity.StatusVisaRequested,
		"visa document requested"); err != nil {
		return err
	}
	m.logger.Info("Visa requested", "requestId", reqID)

	if err := m.messenger.SendText(ctx, req.OwnerID,
		"A moderator needs to see your visa before approval. Please send a photo of it here."); err != nil {
		m.logger.Error("Failed to notify owner", "actorId", req.OwnerID, "error", err)
	}
	return m.ack(ctx, fmt.Sprintf("Visa requested for %s.", reqID))
}

// HandleVisaUpload stores an uploaded visa photo against the actor's
// visa_requested traveler request and re-notifies moderation.
func (m *Moderation) HandleVisaUpload(ctx context.Context, req *entity.Request, photoRef string) error {
	if err := m.requestRepo.SetVisaPhoto(ctx, req.ID, photoRef); err != nil {
		return err
	}
	if err := m.requestRepo.UpdateStatus(ctx, req.ID, entity.StatusVisaUploaded, ""); err != nil {
		return err
	}
	m.logger.Info("Visa uploaded", "requestId", req.ID)

	if err := m.messenger.SendText(ctx, req.OwnerID,
		"Thanks! Your visa was forwarded to the moderators."); err != nil {
		m.logger.Error("Failed to notify owner", "actorId", req.OwnerID, "error", err)
	}

	if err := m.messenger.SendPhoto(ctx, m.modChatID, photoRef,
		fmt.Sprintf("Visa uploaded for %s", req.ID)); err != nil {
		m.logger.Error("Failed to forward visa", "requestId", req.ID, "error", err)
	}
	return m.messenger.SendWithActions(ctx, m.modChatID,
		fmt.Sprintf("Review visa for %s:", req.ID), []entity.Action{
			{Label: "✅ Approve", Token: modToken("approve", req.ID)},
			{Label: "❌ Reject", Token: modToken("reject", req.ID)},
		})
}

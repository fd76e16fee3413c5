package usecase

import (
	"context"
	"strconv"
	"strings"
	"time"

	"parcelmatch-service/internal/domain/entity"
	"parcelmatch-service/internal/domain/repository"
	"parcelmatch-service/pkg/logger"
	"parcelmatch-service/pkg/metrics"
)

const (
	msgInternalError = "Something went wrong on our side. Please retry in a moment."
	msgDenied        = "This action isn't available."

	helpText = "I pair parcel senders with travelers.\n\n" +
		"/send — register a parcel\n" +
		"/travel — register a trip\n" +
		"/help — this message\n" +
		"/support — contact support"
	supportText = "For any problem write to support@parcelmatch.example — a human will answer."
)

// Dispatcher is the single entry point for inbound chat events. It runs
// the suspension gate first, then routes to the submission flow, button
// handlers, relay, or the command menu. It is also the recovery boundary:
// a panic inside one event never takes down handling for other actors.
type Dispatcher struct {
	flow        *SubmissionFlow
	moderation  *Moderation
	matcher     *Matcher
	gate        *Gate
	relay       *Relay
	sessionRepo repository.SessionRepository
	requestRepo repository.RequestRepository
	authRepo    repository.AuthSessionRepository
	messenger   repository.Messenger

	modChatID       string
	moderatorIDs    map[string]bool
	moderatorSecret string

	logger  logger.Logger
	metrics *metrics.Metrics
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(
	flow *SubmissionFlow,
	moderation *Moderation,
	matcher *Matcher,
	gate *Gate,
	relay *Relay,
	sessionRepo repository.SessionRepository,
	requestRepo repository.RequestRepository,
	authRepo repository.AuthSessionRepository,
	messenger repository.Messenger,
	modChatID string,
	moderatorIDs []string,
	moderatorSecret string,
	logger logger.Logger,
	metrics *metrics.Metrics,
) *Dispatcher {
	ids := make(map[string]bool, len(moderatorIDs))
	for _, id := range moderatorIDs {
		ids[id] = true
	}
	return &Dispatcher{
		flow:            flow,
		moderation:      moderation,
		matcher:         matcher,
		gate:            gate,
		relay:           relay,
		sessionRepo:     sessionRepo,
		requestRepo:     requestRepo,
		authRepo:        authRepo,
		messenger:       messenger,
		modChatID:       modChatID,
		moderatorIDs:    ids,
		moderatorSecret: moderatorSecret,
		logger:          logger,
		metrics:         metrics,
	}
}

// HandleEvent processes one inbound event to completion.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev entity.Event) {
	start := time.Now()
	d.metrics.EventsProcessed.WithLabelValues(string(ev.Kind)).Inc()

	defer func() {
		d.metrics.HandlerDuration.Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			d.metrics.ErrorsCount.WithLabelValues("panic").Inc()
			d.logger.Error("Panic in event handler", "actorId", ev.ActorID, "panic", r)
			d.messenger.SendText(ctx, ev.ActorID, msgInternalError)
		}
	}()

	allowed, err := d.gate.Allowed(ctx, ev)
	if err != nil {
		d.fail(ctx, ev.ActorID, "gate", err)
		return
	}
	if !allowed {
		return
	}

	switch ev.Kind {
	case entity.EventButton:
		err = d.handleButton(ctx, ev)
	case entity.EventPhoto:
		err = d.handlePhoto(ctx, ev)
	default:
		err = d.handleText(ctx, ev)
	}
	if err != nil {
		d.fail(ctx, ev.ActorID, "handle", err)
	}
}

// fail logs an unexpected failure and answers the actor with a generic
// notice. Nothing propagates past the event.
func (d *Dispatcher) fail(ctx context.Context, actorID, operation string, err error) {
	d.metrics.ErrorsCount.WithLabelValues(operation).Inc()
	d.logger.Error("Event handling failed", "actorId", actorID, "operation", operation, "error", err)
	d.messenger.SendText(ctx, actorID, msgInternalError)
}

func (d *Dispatcher) isModerator(ctx context.Context, actorID string) bool {
	if d.moderatorIDs[actorID] {
		return true
	}
	session, err := d.authRepo.Get(ctx, actorID)
	if err != nil {
		d.logger.Error("Auth lookup failed", "actorId", actorID, "error", err)
		return false
	}
	return session != nil
}

func (d *Dispatcher) handleButton(ctx context.Context, ev entity.Event) error {
	parts := splitToken(ev.Token)
	if len(parts) < 2 {
		return d.messenger.SendText(ctx, ev.ActorID, msgDenied)
	}

	switch parts[0] {
	case "flow":
		session, err := d.sessionRepo.Get(ctx, ev.ActorID)
		if err != nil {
			return err
		}
		if session == nil {
			// stale button after completion/cancel: idempotent no-op
			return d.messenger.SendText(ctx, ev.ActorID, "There is no submission in progress.")
		}
		switch ev.Token {
		case tokenFlowConfirm:
			return d.flow.Confirm(ctx, session)
		case tokenFlowCancel:
			return d.flow.Cancel(ctx, session)
		case tokenFlowVisaSkip:
			return d.flow.SkipVisa(ctx, session)
		}
		return d.messenger.SendText(ctx, ev.ActorID, msgDenied)

	case "match":
		if len(parts) != 4 {
			return d.messenger.SendText(ctx, ev.ActorID, msgDenied)
		}
		switch parts[1] {
		case "confirm":
			return d.matcher.Confirm(ctx, ev.ActorID, parts[2], parts[3])
		case "skip":
			return d.matcher.Skip(ctx, ev.ActorID, parts[2], parts[3])
		}
		return d.messenger.SendText(ctx, ev.ActorID, msgDenied)

	case "mod":
		// neutral denial for non-moderators: no hint whether the target exists
		if !d.isModerator(ctx, ev.ActorID) {
			return d.messenger.SendText(ctx, ev.ActorID, msgDenied)
		}
		switch parts[1] {
		case "approve":
			return d.moderation.Approve(ctx, parts[2])
		case "reject":
			return d.moderation.OfferRejectReasons(ctx, parts[2])
		case "rejreason":
			if len(parts) != 4 {
				return d.messenger.SendText(ctx, ev.ActorID, msgDenied)
			}
			n, err := strconv.Atoi(parts[3])
			if err != nil {
				return d.messenger.SendText(ctx, ev.ActorID, msgDenied)
			}
			return d.moderation.RejectWithReasonIndex(ctx, parts[2], n)
		case "visa":
			return d.moderation.RequestVisa(ctx, parts[2])
		case "terminate":
			return d.gate.Terminate(ctx, parts[2], "terminated by moderator")
		case "suspend":
			return d.gate.Suspend(ctx, parts[2], "suspended by moderator")
		case "unsuspend":
			return d.gate.Unsuspend(ctx, parts[2])
		}
		return d.messenger.SendText(ctx, ev.ActorID, msgDenied)
	}

	return d.messenger.SendText(ctx, ev.ActorID, msgDenied)
}

func (d *Dispatcher) handleText(ctx context.Context, ev entity.Event) error {
	if strings.HasPrefix(ev.Text, "/") {
		return d.handleCommand(ctx, ev)
	}

	session, err := d.sessionRepo.Get(ctx, ev.ActorID)
	if err != nil {
		return err
	}
	if session != nil {
		return d.flow.HandleInput(ctx, session, ev)
	}

	matched, err := d.requestRepo.FindActiveMatch(ctx, ev.ActorID)
	if err != nil {
		return err
	}
	if matched != nil {
		return d.relay.Forward(ctx, matched, ev)
	}

	return d.messenger.SendText(ctx, ev.ActorID, helpText)
}

func (d *Dispatcher) handleCommand(ctx context.Context, ev entity.Event) error {
	fields := strings.Fields(ev.Text)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "/start", "/help":
		return d.messenger.SendText(ctx, ev.ActorID, helpText)

	case "/support":
		return d.messenger.SendText(ctx, ev.ActorID, supportText)

	case "/send":
		return d.flow.Start(ctx, ev.ActorID, entity.RoleSender)

	case "/travel":
		return d.flow.Start(ctx, ev.ActorID, entity.RoleTraveler)

	case "/login":
		if d.moderatorSecret == "" || len(args) != 1 || args[0] != d.moderatorSecret {
			return d.messenger.SendText(ctx, ev.ActorID, msgDenied)
		}
		if err := d.authRepo.Save(ctx, &entity.AuthSession{ActorID: ev.ActorID, LoggedInAt: time.Now()}); err != nil {
			return err
		}
		return d.messenger.SendText(ctx, ev.ActorID, "Logged in as moderator.")

	case "/logout":
		if err := d.authRepo.Delete(ctx, ev.ActorID); err != nil {
			return err
		}
		return d.messenger.SendText(ctx, ev.ActorID, "Logged out.")

	case "/reject":
		if !d.isModerator(ctx, ev.ActorID) {
			return d.messenger.SendText(ctx, ev.ActorID, msgDenied)
		}
		if len(args) < 2 {
			return d.messenger.SendText(ctx, ev.ActorID, "Usage: /reject <requestId> <reason>")
		}
		return d.moderation.Reject(ctx, args[0], strings.Join(args[1:], " "))

	case "/suspend":
		if !d.isModerator(ctx, ev.ActorID) {
			return d.messenger.SendText(ctx, ev.ActorID, msgDenied)
		}
		if len(args) < 1 {
			return d.messenger.SendText(ctx, ev.ActorID, "Usage: /suspend <actorId> [reason]")
		}
		return d.gate.Suspend(ctx, args[0], strings.Join(args[1:], " "))

	case "/unsuspend":
		if !d.isModerator(ctx, ev.ActorID) {
			return d.messenger.SendText(ctx, ev.ActorID, msgDenied)
		}
		if len(args) != 1 {
			return d.messenger.SendText(ctx, ev.ActorID, "Usage: /unsuspend <actorId>")
		}
		return d.gate.Unsuspend(ctx, args[0])

	case "/terminate":
		if !d.isModerator(ctx, ev.ActorID) {
			return d.messenger.SendText(ctx, ev.ActorID, msgDenied)
		}
		if len(args) < 1 {
			return d.messenger.SendText(ctx, ev.ActorID, "Usage: /terminate <requestId> [reason]")
		}
		reason := "terminated by moderator"
		if len(args) > 1 {
			reason = strings.Join(args[1:], " ")
		}
		return d.gate.Terminate(ctx, args[0], reason)
	}

	return d.messenger.SendText(ctx, ev.ActorID, "Unknown command. "+helpText)
}

func (d *Dispatcher) handlePhoto(ctx context.Context, ev entity.Event) error {
	session, err := d.sessionRepo.Get(ctx, ev.ActorID)
	if err != nil {
		return err
	}
	if session != nil {
		return d.flow.HandleInput(ctx, session, ev)
	}

	// a photo from a traveler with an outstanding visa request is the
	// visa document
	pending, err := d.requestRepo.FindByOwner(ctx, ev.ActorID, entity.StatusVisaRequested)
	if err != nil {
		return err
	}
	for _, req := range pending {
		if req.Role == entity.RoleTraveler {
			return d.moderation.HandleVisaUpload(ctx, req, ev.PhotoRef)
		}
	}

	matched, err := d.requestRepo.FindActiveMatch(ctx, ev.ActorID)
	if err != nil {
		return err
	}
	if matched != nil {
		return d.relay.Forward(ctx, matched, ev)
	}

	return d.messenger.SendText(ctx, ev.ActorID, "I wasn't expecting a photo right now. "+helpText)
}

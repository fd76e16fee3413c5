package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"parcelmatch-service/internal/domain/entity"
	"parcelmatch-service/internal/domain/repository"
	"parcelmatch-service/pkg/logger"
	"parcelmatch-service/pkg/metrics"
	"parcelmatch-service/pkg/validate"
)

// errAbortFlow signals that the whole submission must be discarded, not
// re-prompted (out-of-range weight).
var errAbortFlow = errors.New("submission aborted")

// stepSpec is one row of the submission transition table: the prompt for
// the state, the single input modality it accepts, the validator/applier,
// and the next state.
type stepSpec struct {
	prompt  string
	kind    entity.EventKind
	actions []entity.Action
	apply   func(sess *entity.Session, input string) error
	next    entity.FlowState
}

func applyName(sess *entity.Session, input string) error {
	name := strings.TrimSpace(input)
	if name == "" {
		return errors.New("Please send your full name as text.")
	}
	sess.Contact.Name = name
	return nil
}

func applyPhone(sess *entity.Session, input string) error {
	if !validate.Phone(input) {
		return errors.New("That doesn't look like a phone number. Send it as + followed by 8-15 digits, e.g. +919876543210.")
	}
	sess.Contact.Phone = strings.TrimSpace(input)
	return nil
}

func applyEmail(sess *entity.Session, input string) error {
	if !validate.Email(input) {
		return errors.New("That doesn't look like an email address. Please try again.")
	}
	sess.Contact.Email = strings.TrimSpace(input)
	return nil
}

func requiredText(set func(*entity.Session, string)) func(*entity.Session, string) error {
	return func(sess *entity.Session, input string) error {
		v := strings.TrimSpace(input)
		if v == "" {
			return errors.New("Please send a non-empty text answer.")
		}
		set(sess, v)
		return nil
	}
}

func pastDate(t time.Time) bool {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return d.Before(today)
}

// senderSteps is the sender transition table. States form a strictly
// ordered linear sequence; the confirm state is handled via buttons, not
// table input.
var senderSteps = map[entity.FlowState]stepSpec{
	entity.StateName:  {prompt: "Let's register your parcel. What is your full name?", kind: entity.EventText, apply: applyName, next: entity.StatePhone},
	entity.StatePhone: {prompt: "Your phone number (with country code, e.g. +919876543210)?", kind: entity.EventText, apply: applyPhone, next: entity.StateEmail},
	entity.StateEmail: {prompt: "Your email address?", kind: entity.EventText, apply: applyEmail, next: entity.StateSenderPickup},
	entity.StateSenderPickup: {prompt: "Which airport should the parcel be picked up from?", kind: entity.EventText,
		apply: requiredText(func(s *entity.Session, v string) { s.Sender.Pickup = v }), next: entity.StateSenderDestination},
	entity.StateSenderDestination: {prompt: "Which airport is it going to?", kind: entity.EventText,
		apply: requiredText(func(s *entity.Session, v string) { s.Sender.Destination = v }), next: entity.StateSenderWeight},
	entity.StateSenderWeight: {prompt: "Parcel weight in kilograms (up to 10)?", kind: entity.EventText,
		apply: func(sess *entity.Session, input string) error {
			w, err := validate.Weight(input)
			if err != nil {
				if errors.Is(err, validate.ErrWeightRange) {
					return errAbortFlow
				}
				return errors.New("Please send the weight as a number, e.g. 4.5.")
			}
			sess.Sender.WeightKg = w
			return nil
		}, next: entity.StateSenderCategory},
	entity.StateSenderCategory: {prompt: "What category is the parcel (documents, clothes, electronics, other)?", kind: entity.EventText,
		apply: requiredText(func(s *entity.Session, v string) { s.Sender.Category = v }), next: entity.StateSenderShipDate},
	entity.StateSenderShipDate: {prompt: "When should it ship? Date as: 02 Jan 2006", kind: entity.EventText,
		apply: func(sess *entity.Session, input string) error {
			d, err := validate.Date(input)
			if err != nil {
				return errors.New("Wrong date format. Send it exactly as: 02 Jan 2006")
			}
			if pastDate(d) {
				return errors.New("That date is in the past. Please send a future date.")
			}
			sess.Sender.ShipDate = d
			return nil
		}, next: entity.StateSenderArrivalDate},
	entity.StateSenderArrivalDate: {prompt: "By when must it arrive? Date as: 02 Jan 2006", kind: entity.EventText,
		apply: func(sess *entity.Session, input string) error {
			d, err := validate.Date(input)
			if err != nil {
				return errors.New("Wrong date format. Send it exactly as: 02 Jan 2006")
			}
			if d.Before(sess.Sender.ShipDate) {
				return errors.New("Arrival can't be before the ship date. Please send a later date.")
			}
			sess.Sender.ArrivalDate = d
			return nil
		}, next: entity.StateSenderParcelPhoto},
	entity.StateSenderParcelPhoto: {prompt: "Now send a photo of the parcel contents.", kind: entity.EventPhoto,
		apply: func(sess *entity.Session, input string) error {
			sess.Sender.ParcelPhoto = input
			return nil
		}, next: entity.StateNotes},
	entity.StateNotes: {prompt: "Anything else we should know? Send a note, or \"-\" for none.", kind: entity.EventText,
		apply: func(sess *entity.Session, input string) error {
			note := strings.TrimSpace(input)
			if note != "-" {
				if sess.Role == entity.RoleSender {
					sess.Sender.Notes = note
				} else {
					sess.Traveler.Notes = note
				}
			}
			return nil
		}, next: entity.StateConfirm},
}

// travelerSteps is the traveler transition table.
var travelerSteps = map[entity.FlowState]stepSpec{
	entity.StateName:  {prompt: "Let's register your trip. What is your full name?", kind: entity.EventText, apply: applyName, next: entity.StatePhone},
	entity.StatePhone: senderSteps[entity.StatePhone],
	entity.StateEmail: {prompt: "Your email address?", kind: entity.EventText, apply: applyEmail, next: entity.StateTravelerDepartAirport},
	entity.StateTravelerDepartAirport: {prompt: "Which airport do you fly from?", kind: entity.EventText,
		apply: requiredText(func(s *entity.Session, v string) { s.Traveler.DepartureAirport = v }), next: entity.StateTravelerDepartCountry},
	entity.StateTravelerDepartCountry: {prompt: "Which country is that in?", kind: entity.EventText,
		apply: requiredText(func(s *entity.Session, v string) { s.Traveler.DepartureCountry = v }), next: entity.StateTravelerArriveAirport},
	entity.StateTravelerArriveAirport: {prompt: "Which airport do you arrive at?", kind: entity.EventText,
		apply: requiredText(func(s *entity.Session, v string) { s.Traveler.ArrivalAirport = v }), next: entity.StateTravelerArriveCountry},
	entity.StateTravelerArriveCountry: {prompt: "Which country is that in?", kind: entity.EventText,
		apply: requiredText(func(s *entity.Session, v string) { s.Traveler.ArrivalCountry = v }), next: entity.StateTravelerDepartAt},
	entity.StateTravelerDepartAt: {prompt: "Departure date and time as: 02 Jan 2006 15:04", kind: entity.EventText,
		apply: func(sess *entity.Session, input string) error {
			d, err := validate.DateTime(input)
			if err != nil {
				return errors.New("Wrong format. Send it exactly as: 02 Jan 2006 15:04")
			}
			if pastDate(d) {
				return errors.New("That date is in the past. Please send a future departure.")
			}
			sess.Traveler.DepartAt = d
			return nil
		}, next: entity.StateTravelerArriveAt},
	entity.StateTravelerArriveAt: {prompt: "Arrival date and time as: 02 Jan 2006 15:04", kind: entity.EventText,
		apply: func(sess *entity.Session, input string) error {
			d, err := validate.DateTime(input)
			if err != nil {
				return errors.New("Wrong format. Send it exactly as: 02 Jan 2006 15:04")
			}
			if d.Before(sess.Traveler.DepartAt) {
				return errors.New("Arrival can't be before departure. Please check the dates.")
			}
			sess.Traveler.ArriveAt = d
			return nil
		}, next: entity.StateTravelerCapacity},
	entity.StateTravelerCapacity: {prompt: "How many kilograms can you carry (up to 10)?", kind: entity.EventText,
		apply: func(sess *entity.Session, input string) error {
			w, err := validate.Weight(input)
			if err != nil {
				if errors.Is(err, validate.ErrWeightRange) {
					return errAbortFlow
				}
				return errors.New("Please send the capacity as a number, e.g. 6.")
			}
			sess.Traveler.CapacityKg = w
			return nil
		}, next: entity.StateTravelerPassportNumber},
	entity.StateTravelerPassportNumber: {prompt: "Your passport number?", kind: entity.EventText,
		apply: requiredText(func(s *entity.Session, v string) { s.Traveler.PassportNumber = v }), next: entity.StateTravelerPassportSelfie},
	entity.StateTravelerPassportSelfie: {prompt: "Send a selfie holding your passport.", kind: entity.EventPhoto,
		apply: func(sess *entity.Session, input string) error {
			sess.Traveler.PassportSelfie = input
			return nil
		}, next: entity.StateTravelerItinerary},
	entity.StateTravelerItinerary: {prompt: "Send a photo or screenshot of your itinerary.", kind: entity.EventPhoto,
		apply: func(sess *entity.Session, input string) error {
			sess.Traveler.Itinerary = input
			return nil
		}, next: entity.StateTravelerVisa},
	entity.StateTravelerVisa: {prompt: "Send a photo of your visa, or skip if you don't need one.", kind: entity.EventPhoto,
		actions: []entity.Action{{Label: "Skip", Token: tokenFlowVisaSkip}},
		apply: func(sess *entity.Session, input string) error {
			sess.Traveler.VisaPhoto = input
			return nil
		}, next: entity.StateNotes},
	entity.StateNotes: senderSteps[entity.StateNotes],
}

func stepsFor(role entity.Role) map[entity.FlowState]stepSpec {
	if role == entity.RoleSender {
		return senderSteps
	}
	return travelerSteps
}

// SubmissionFlow drives a single user through the prompt sequence that
// collects one request, ending in a pending record.
type SubmissionFlow struct {
	sessionRepo repository.SessionRepository
	requestRepo repository.RequestRepository
	messenger   repository.Messenger
	formatter   *Formatter
	modChatID   string
	logger      logger.Logger
	metrics     *metrics.Metrics
}

// NewSubmissionFlow creates a new submission flow
func NewSubmissionFlow(
	sessionRepo repository.SessionRepository,
	requestRepo repository.RequestRepository,
	messenger repository.Messenger,
	formatter *Formatter,
	modChatID string,
	logger logger.Logger,
	metrics *metrics.Metrics,
) *SubmissionFlow {
	return &SubmissionFlow{
		sessionRepo: sessionRepo,
		requestRepo: requestRepo,
		messenger:   messenger,
		formatter:   formatter,
		modChatID:   modChatID,
		logger:      logger,
		metrics:     metrics,
	}
}

// Start opens a fresh session for the actor and sends the first prompt.
// An existing session is replaced.
func (f *SubmissionFlow) Start(ctx context.Context, actorID string, role entity.Role) error {
	session := &entity.Session{
		ActorID: actorID,
		Role:    role,
		State:   entity.StateName,
	}
	if role == entity.RoleSender {
		session.Sender = &entity.SenderDetails{}
	} else {
		session.Traveler = &entity.TravelerDetails{}
	}

	if err := f.sessionRepo.Save(ctx, session); err != nil {
		return err
	}

	return f.sendPrompt(ctx, session)
}

func (f *SubmissionFlow) sendPrompt(ctx context.Context, session *entity.Session) error {
	step, ok := stepsFor(session.Role)[session.State]
	if !ok {
		return fmt.Errorf("no step for state %s", session.State)
	}
	if len(step.actions) > 0 {
		return f.messenger.SendWithActions(ctx, session.ActorID, step.prompt, step.actions)
	}
	return f.messenger.SendText(ctx, session.ActorID, step.prompt)
}

// HandleInput advances the session with one text or photo event. Wrong
// modality and validation failures re-prompt without advancing; an
// out-of-range weight aborts the whole flow.
func (f *SubmissionFlow) HandleInput(ctx context.Context, session *entity.Session, ev entity.Event) error {
	if session.State == entity.StateConfirm {
		// only the confirm/cancel buttons act here
		return f.messenger.SendText(ctx, session.ActorID, "Please use the buttons above to submit or cancel.")
	}

	step, ok := stepsFor(session.Role)[session.State]
	if !ok {
		f.logger.Error("Session in unknown state", "actorId", session.ActorID, "state", session.State)
		return f.sessionRepo.Delete(ctx, session.ActorID)
	}

	if ev.Kind != step.kind {
		if step.kind == entity.EventPhoto {
			return f.messenger.SendText(ctx, session.ActorID, "I need a photo for this step. "+step.prompt)
		}
		return f.messenger.SendText(ctx, session.ActorID, "I need a text answer for this step. "+step.prompt)
	}

	input := ev.Text
	if ev.Kind == entity.EventPhoto {
		input = ev.PhotoRef
	}

	if err := step.apply(session, input); err != nil {
		if errors.Is(err, errAbortFlow) {
			if derr := f.sessionRepo.Delete(ctx, session.ActorID); derr != nil {
				return derr
			}
			return f.messenger.SendText(ctx, session.ActorID,
				fmt.Sprintf("We can only handle parcels over 0 and up to %.0f kg. The submission was cancelled — start again when ready.", validate.MaxWeightKg))
		}
		// validation failure: re-prompt, state unchanged
		return f.messenger.SendText(ctx, session.ActorID, err.Error())
	}

	session.State = step.next
	if err := f.sessionRepo.Save(ctx, session); err != nil {
		return err
	}

	if session.State == entity.StateConfirm {
		return f.sendConfirm(ctx, session)
	}
	return f.sendPrompt(ctx, session)
}

func (f *SubmissionFlow) sendConfirm(ctx context.Context, session *entity.Session) error {
	text := "Here is your submission:\n\n" + f.formatter.SessionSummary(ctx, session) +
		"\n\nSubmit it for review?"
	return f.messenger.SendWithActions(ctx, session.ActorID, text, []entity.Action{
		{Label: "✅ Submit", Token: tokenFlowConfirm},
		{Label: "❌ Cancel", Token: tokenFlowCancel},
	})
}

// SkipVisa advances past the optional visa step without a document.
func (f *SubmissionFlow) SkipVisa(ctx context.Context, session *entity.Session) error {
	if session.Role != entity.RoleTraveler || session.State != entity.StateTravelerVisa {
		return f.messenger.SendText(ctx, session.ActorID, "Nothing to skip right now.")
	}
	session.State = entity.StateNotes
	if err := f.sessionRepo.Save(ctx, session); err != nil {
		return err
	}
	return f.sendPrompt(ctx, session)
}

// Confirm finalizes the flow: assigns a request id, persists the pending
// record, notifies the submitter and the moderation channel, and clears
// the session.
func (f *SubmissionFlow) Confirm(ctx context.Context, session *entity.Session) error {
	if session.State != entity.StateConfirm {
		return f.messenger.SendText(ctx, session.ActorID, "The submission isn't complete yet.")
	}

	req := &entity.Request{
		ID:       entity.NewRequestID(session.Role, time.Now()),
		OwnerID:  session.ActorID,
		Role:     session.Role,
		Contact:  session.Contact,
		Status:   entity.StatusPending,
		Sender:   session.Sender,
		Traveler: session.Traveler,
	}

	if err := f.requestRepo.Insert(ctx, req); err != nil {
		f.metrics.ErrorsCount.WithLabelValues("submit").Inc()
		return fmt.Errorf("failed to persist submission: %w", err)
	}
	f.metrics.RequestsSubmitted.Inc()
	f.logger.Info("Submission completed", "requestId", req.ID, "role", req.Role, "ownerId", req.OwnerID)

	if err := f.sessionRepo.Delete(ctx, session.ActorID); err != nil {
		f.logger.Error("Failed to clear session", "actorId", session.ActorID, "error", err)
	}

	if err := f.messenger.SendText(ctx, session.ActorID,
		fmt.Sprintf("Submitted! Your request id is %s. A moderator will review it shortly.", req.ID)); err != nil {
		return err
	}

	return f.notifyModeration(ctx, req)
}

func (f *SubmissionFlow) notifyModeration(ctx context.Context, req *entity.Request) error {
	actions := []entity.Action{
		{Label: "✅ Approve", Token: modToken("approve", req.ID)},
		{Label: "❌ Reject", Token: modToken("reject", req.ID)},
	}
	if req.Role == entity.RoleTraveler {
		actions = append(actions, entity.Action{Label: "🛂 Request visa", Token: modToken("visa", req.ID)})
	}
	actions = append(actions, entity.Action{Label: "🚫 Suspend user", Token: modToken("suspend", req.OwnerID)})

	text := "New submission:\n\n" + f.formatter.Summary(ctx, req)
	return f.messenger.SendWithActions(ctx, f.modChatID, text, actions)
}

// Cancel discards the in-progress submission without persisting anything.
func (f *SubmissionFlow) Cancel(ctx context.Context, session *entity.Session) error {
	if err := f.sessionRepo.Delete(ctx, session.ActorID); err != nil {
		return err
	}
	return f.messenger.SendText(ctx, session.ActorID, "Submission cancelled. Nothing was saved.")
}

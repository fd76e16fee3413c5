package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"parcelmatch-service/internal/domain/entity"
	"parcelmatch-service/pkg/logger"
	"parcelmatch-service/pkg/metrics"
)

// promauto registers against the default registry, so the package shares
// one metrics instance across all tests.
var testMetrics = metrics.NewMetrics("test")

var testLogger = logger.NewLogger("error")

const testModChat = "modchat"

// fakeRequestRepo is an in-memory RequestRepository that reproduces the
// conditional-update (matched-count) semantics of the Mongo
// implementation, so the lock race behavior is observable in tests.
type fakeRequestRepo struct {
	mu   sync.Mutex
	docs map[string]*entity.Request
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{docs: map[string]*entity.Request{}}
}

func cloneRequest(r *entity.Request) *entity.Request {
	if r == nil {
		return nil
	}
	c := *r
	if r.Sender != nil {
		s := *r.Sender
		c.Sender = &s
	}
	if r.Traveler != nil {
		t := *r.Traveler
		c.Traveler = &t
	}
	return &c
}

func (f *fakeRequestRepo) Insert(ctx context.Context, req *entity.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[req.ID]; ok {
		return fmt.Errorf("duplicate id %s", req.ID)
	}
	now := time.Now()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	f.docs[req.ID] = cloneRequest(req)
	return nil
}

func (f *fakeRequestRepo) FindByID(ctx context.Context, id string) (*entity.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneRequest(f.docs[id]), nil
}

func (f *fakeRequestRepo) FindCandidates(ctx context.Context, role entity.Role) ([]*entity.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Request
	for _, doc := range f.docs {
		if doc.Role == role && doc.Status == entity.StatusApproved && !doc.MatchLocked {
			out = append(out, cloneRequest(doc))
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) FindByOwner(ctx context.Context, ownerID string, statuses ...entity.RequestStatus) ([]*entity.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Request
	for _, doc := range f.docs {
		if doc.OwnerID != ownerID {
			continue
		}
		if len(statuses) > 0 {
			keep := false
			for _, s := range statuses {
				if doc.Status == s {
					keep = true
				}
			}
			if !keep {
				continue
			}
		}
		out = append(out, cloneRequest(doc))
	}
	return out, nil
}

func (f *fakeRequestRepo) FindActiveMatch(ctx context.Context, ownerID string) (*entity.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, doc := range f.docs {
		if doc.OwnerID == ownerID && doc.MatchLocked {
			return cloneRequest(doc), nil
		}
	}
	return nil, nil
}

func (f *fakeRequestRepo) UpdateStatus(ctx context.Context, id string, status entity.RequestStatus, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return fmt.Errorf("no request found with id: %s", id)
	}
	doc.Status = status
	if note != "" {
		doc.ModeratorNote = note
	}
	doc.UpdatedAt = time.Now()
	return nil
}

func (f *fakeRequestRepo) SetVisaPhoto(ctx context.Context, id, photoRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok || doc.Traveler == nil {
		return fmt.Errorf("no traveler request with id: %s", id)
	}
	doc.Traveler.VisaPhoto = photoRef
	return nil
}

func (f *fakeRequestRepo) SetPendingMatch(ctx context.Context, id, counterpartID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok || doc.Status != entity.StatusApproved || doc.MatchLocked {
		return false, nil
	}
	if doc.PendingMatchWith != "" && doc.PendingMatchWith != counterpartID {
		return false, nil
	}
	doc.PendingMatchWith = counterpartID
	return true, nil
}

func (f *fakeRequestRepo) LockIfReciprocal(ctx context.Context, id, counterpartID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok || doc.Status != entity.StatusApproved || doc.MatchLocked || doc.PendingMatchWith != counterpartID {
		return false, nil
	}
	doc.MatchLocked = true
	doc.MatchedWith = counterpartID
	doc.PendingMatchWith = ""
	return true, nil
}

func (f *fakeRequestRepo) CompleteLock(ctx context.Context, id, counterpartID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok || doc.Status != entity.StatusApproved || doc.MatchLocked {
		return false, nil
	}
	doc.MatchLocked = true
	doc.MatchedWith = counterpartID
	doc.PendingMatchWith = ""
	return true, nil
}

func (f *fakeRequestRepo) ClearMatchState(ctx context.Context, id string, status entity.RequestStatus, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return fmt.Errorf("no request found with id: %s", id)
	}
	doc.MatchLocked = false
	doc.PendingMatchWith = ""
	doc.MatchedWith = ""
	doc.Status = status
	if note != "" {
		doc.ModeratorNote = note
	}
	return nil
}

// get returns the live document for assertions.
func (f *fakeRequestRepo) get(id string) *entity.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneRequest(f.docs[id])
}

// fakeSessionRepo is an in-memory SessionRepository
type fakeSessionRepo struct {
	mu   sync.Mutex
	docs map[string]*entity.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{docs: map[string]*entity.Session{}}
}

func cloneSession(s *entity.Session) *entity.Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Sender != nil {
		sd := *s.Sender
		c.Sender = &sd
	}
	if s.Traveler != nil {
		td := *s.Traveler
		c.Traveler = &td
	}
	return &c
}

func (f *fakeSessionRepo) Get(ctx context.Context, actorID string) (*entity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneSession(f.docs[actorID]), nil
}

func (f *fakeSessionRepo) Save(ctx context.Context, session *entity.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[session.ActorID] = cloneSession(session)
	return nil
}

func (f *fakeSessionRepo) Delete(ctx context.Context, actorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, actorID)
	return nil
}

// fakeControlRepo is an in-memory UserControlRepository
type fakeControlRepo struct {
	mu   sync.Mutex
	docs map[string]*entity.UserControl
}

func newFakeControlRepo() *fakeControlRepo {
	return &fakeControlRepo{docs: map[string]*entity.UserControl{}}
}

func (f *fakeControlRepo) Get(ctx context.Context, actorID string) (*entity.UserControl, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[actorID]; ok {
		c := *doc
		return &c, nil
	}
	return nil, nil
}

func (f *fakeControlRepo) SetSuspended(ctx context.Context, actorID string, suspended bool, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[actorID]
	if !ok {
		doc = &entity.UserControl{ActorID: actorID}
		f.docs[actorID] = doc
	}
	doc.Suspended = suspended
	doc.SuspendReason = reason
	return nil
}

func (f *fakeControlRepo) SetTerminated(ctx context.Context, actorID string, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[actorID]
	if !ok {
		doc = &entity.UserControl{ActorID: actorID}
		f.docs[actorID] = doc
	}
	doc.Terminated = true
	doc.TerminateReason = reason
	return nil
}

// fakeAuthRepo is an in-memory AuthSessionRepository
type fakeAuthRepo struct {
	mu   sync.Mutex
	docs map[string]*entity.AuthSession
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{docs: map[string]*entity.AuthSession{}}
}

func (f *fakeAuthRepo) Get(ctx context.Context, actorID string) (*entity.AuthSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[actorID]; ok {
		c := *doc
		return &c, nil
	}
	return nil, nil
}

func (f *fakeAuthRepo) Save(ctx context.Context, session *entity.AuthSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *session
	f.docs[session.ActorID] = &c
	return nil
}

func (f *fakeAuthRepo) Delete(ctx context.Context, actorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, actorID)
	return nil
}

type sentMessage struct {
	to      string
	text    string
	photo   string
	actions []entity.Action
}

// fakeMessenger records every outbound intent
type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{}
}

func (f *fakeMessenger) SendText(ctx context.Context, actorID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{to: actorID, text: text})
	return nil
}

func (f *fakeMessenger) SendPhoto(ctx context.Context, actorID, photoRef, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{to: actorID, text: caption, photo: photoRef})
	return nil
}

func (f *fakeMessenger) SendWithActions(ctx context.Context, actorID, text string, actions []entity.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{to: actorID, text: text, actions: actions})
	return nil
}

func (f *fakeMessenger) messagesTo(actorID string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.to == actorID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeMessenger) lastTo(actorID string) (sentMessage, bool) {
	msgs := f.messagesTo(actorID)
	if len(msgs) == 0 {
		return sentMessage{}, false
	}
	return msgs[len(msgs)-1], true
}

func (f *fakeMessenger) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

func textEvent(actorID, text string) entity.Event {
	return entity.Event{ActorID: actorID, Kind: entity.EventText, Text: text}
}

func photoEvent(actorID, ref string) entity.Event {
	return entity.Event{ActorID: actorID, Kind: entity.EventPhoto, PhotoRef: ref}
}

func buttonEvent(actorID, token string) entity.Event {
	return entity.Event{ActorID: actorID, Kind: entity.EventButton, Token: token}
}

// env wires the full usecase layer over the fakes.
type env struct {
	requests *fakeRequestRepo
	sessions *fakeSessionRepo
	controls *fakeControlRepo
	auth     *fakeAuthRepo
	msgr     *fakeMessenger

	flow       *SubmissionFlow
	moderation *Moderation
	matcher    *Matcher
	gate       *Gate
	relay      *Relay
	dispatcher *Dispatcher
}

func newEnv() *env {
	e := &env{
		requests: newFakeRequestRepo(),
		sessions: newFakeSessionRepo(),
		controls: newFakeControlRepo(),
		auth:     newFakeAuthRepo(),
		msgr:     newFakeMessenger(),
	}

	formatter := NewFormatter(nil, testLogger)
	e.matcher = NewMatcher(e.requests, e.msgr, formatter, testModChat, testLogger, testMetrics)
	e.moderation = NewModeration(e.requests, e.msgr, e.matcher, formatter, testModChat, testLogger, testMetrics)
	e.flow = NewSubmissionFlow(e.sessions, e.requests, e.msgr, formatter, testModChat, testLogger, testMetrics)
	e.gate = NewGate(e.controls, e.requests, e.msgr, testModChat, testLogger)
	e.relay = NewRelay(e.requests, e.msgr, testModChat, testLogger)
	e.dispatcher = NewDispatcher(
		e.flow, e.moderation, e.matcher, e.gate, e.relay,
		e.sessions, e.requests, e.auth, e.msgr,
		testModChat, []string{"mod1"}, "sekrit",
		testLogger, testMetrics,
	)
	return e
}

// approvedSender builds an approved sender request ready for matching.
func approvedSender(id, owner string, weight float64, ship time.Time) *entity.Request {
	return &entity.Request{
		ID:      id,
		OwnerID: owner,
		Role:    entity.RoleSender,
		Contact: entity.Contact{Name: "Sender", Phone: "+12345678901", Email: "s@example.com"},
		Status:  entity.StatusApproved,
		Sender: &entity.SenderDetails{
			Pickup:      "Mumbai International",
			Destination: "Dubai Intl",
			WeightKg:    weight,
			Category:    "documents",
			ShipDate:    ship,
			ArrivalDate: ship.AddDate(0, 0, 7),
		},
	}
}

// approvedTraveler builds an approved traveler request ready for matching.
func approvedTraveler(id, owner string, capacity float64, depart time.Time) *entity.Request {
	return &entity.Request{
		ID:      id,
		OwnerID: owner,
		Role:    entity.RoleTraveler,
		Contact: entity.Contact{Name: "Traveler", Phone: "+19876543210", Email: "t@example.com"},
		Status:  entity.StatusApproved,
		Traveler: &entity.TravelerDetails{
			DepartureAirport: "MUMBAI",
			DepartureCountry: "India",
			ArrivalAirport:   "Dubai Airport",
			ArrivalCountry:   "UAE",
			DepartAt:         depart,
			ArriveAt:         depart.Add(4 * time.Hour),
			CapacityKg:       capacity,
			PassportNumber:   "P1234567",
		},
	}
}

package usecase

import (
	"context"
	"strings"
	"testing"

	"parcelmatch-service/internal/domain/entity"
)

func pendingSender(id, owner string) *entity.Request {
	r := approvedSender(id, owner, 5, baseDay)
	r.Status = entity.StatusPending
	return r
}

func pendingTraveler(id, owner string) *entity.Request {
	r := approvedTraveler(id, owner, 6, baseDay)
	r.Status = entity.StatusPending
	return r
}

func TestApproveNotifiesAndRunsDiscovery(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.requests.Insert(ctx, pendingSender("SND-1", "u1"))
	// an already-approved compatible traveler is waiting
	e.requests.Insert(ctx, approvedTraveler("TRV-1", "u2", 6, baseDay.AddDate(0, 0, 1)))

	if err := e.moderation.Approve(ctx, "SND-1"); err != nil {
		t.Fatal(err)
	}

	if got := e.requests.get("SND-1").Status; got != entity.StatusApproved {
		t.Errorf("status = %q, want approved", got)
	}
	u1 := e.msgr.messagesTo("u1")
	if len(u1) == 0 || !strings.Contains(u1[0].text, "approved") {
		t.Errorf("owner not notified of approval: %+v", u1)
	}
	// discovery fired: both sides got offers
	hasOffer := false
	for _, m := range u1 {
		if strings.Contains(m.text, "TRV-1") {
			hasOffer = true
		}
	}
	if !hasOffer {
		t.Error("approval must trigger discovery offers")
	}
	if msgs := e.msgr.messagesTo("u2"); len(msgs) == 0 {
		t.Error("waiting counterpart must get an offer on approval")
	}
}

func TestApproveIsIdempotent(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.requests.Insert(ctx, pendingSender("SND-1", "u1"))

	e.moderation.Approve(ctx, "SND-1")
	e.msgr.reset()
	e.moderation.Approve(ctx, "SND-1")

	last, _ := e.msgr.lastTo(testModChat)
	if !strings.Contains(last.text, "already approved") {
		t.Errorf("answer = %q, want already-approved ack", last.text)
	}
	if msgs := e.msgr.messagesTo("u1"); len(msgs) != 0 {
		t.Error("repeated approval must not re-notify the owner")
	}
}

func TestApproveUnknownRequest(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	if err := e.moderation.Approve(ctx, "SND-404"); err != nil {
		t.Fatal(err)
	}
	last, _ := e.msgr.lastTo(testModChat)
	if !strings.Contains(last.text, "not found") {
		t.Errorf("answer = %q, want not-found ack", last.text)
	}
}

func TestVisaRoundTrip(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.requests.Insert(ctx, pendingTraveler("TRV-1", "u2"))

	if err := e.moderation.RequestVisa(ctx, "TRV-1"); err != nil {
		t.Fatal(err)
	}
	if got := e.requests.get("TRV-1").Status; got != entity.StatusVisaRequested {
		t.Fatalf("status = %q, want visa_requested", got)
	}
	last, _ := e.msgr.lastTo("u2")
	if !strings.Contains(last.text, "visa") {
		t.Errorf("owner not asked for visa: %q", last.text)
	}

	// approval is blocked while the visa request is outstanding
	e.moderation.Approve(ctx, "TRV-1")
	if got := e.requests.get("TRV-1").Status; got != entity.StatusVisaRequested {
		t.Errorf("approve during visa_requested must not change status, got %q", got)
	}

	// the owner's next photo outside a session is the visa document
	e.dispatcher.HandleEvent(ctx, photoEvent("u2", "file-visa"))

	req := e.requests.get("TRV-1")
	if req.Status != entity.StatusVisaUploaded {
		t.Errorf("status = %q, want visa_uploaded", req.Status)
	}
	if req.Traveler.VisaPhoto != "file-visa" {
		t.Errorf("visa photo = %q, want file-visa", req.Traveler.VisaPhoto)
	}
	// moderation channel got the document and a fresh review prompt
	mod := e.msgr.messagesTo(testModChat)
	gotPhoto, gotReview := false, false
	for _, m := range mod {
		if m.photo == "file-visa" {
			gotPhoto = true
		}
		if len(m.actions) > 0 && strings.Contains(m.text, "TRV-1") {
			gotReview = true
		}
	}
	if !gotPhoto || !gotReview {
		t.Errorf("moderation channel missing visa photo or review prompt: %+v", mod)
	}

	// now approval goes through
	if err := e.moderation.Approve(ctx, "TRV-1"); err != nil {
		t.Fatal(err)
	}
	if got := e.requests.get("TRV-1").Status; got != entity.StatusApproved {
		t.Errorf("status = %q, want approved after visa review", got)
	}
}

func TestRequestVisaSenderRefused(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.requests.Insert(ctx, pendingSender("SND-1", "u1"))

	e.moderation.RequestVisa(ctx, "SND-1")

	if got := e.requests.get("SND-1").Status; got != entity.StatusPending {
		t.Errorf("status = %q, want unchanged pending", got)
	}
	last, _ := e.msgr.lastTo(testModChat)
	if !strings.Contains(last.text, "traveler requests only") {
		t.Errorf("answer = %q, want traveler-only ack", last.text)
	}
}

func TestRejectWithFixedReason(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.requests.Insert(ctx, pendingSender("SND-1", "u1"))

	if err := e.moderation.RejectWithReasonIndex(ctx, "SND-1", 1); err != nil {
		t.Fatal(err)
	}

	req := e.requests.get("SND-1")
	if req.Status != entity.StatusRejected {
		t.Errorf("status = %q, want rejected", req.Status)
	}
	if req.ModeratorNote != RejectReasons[1] {
		t.Errorf("note = %q, want %q", req.ModeratorNote, RejectReasons[1])
	}
	last, _ := e.msgr.lastTo("u1")
	if !strings.Contains(last.text, RejectReasons[1]) {
		t.Errorf("owner notice missing reason: %q", last.text)
	}

	// out-of-range index is refused without touching anything
	e.requests.Insert(ctx, pendingSender("SND-2", "u3"))
	e.moderation.RejectWithReasonIndex(ctx, "SND-2", 99)
	if got := e.requests.get("SND-2").Status; got != entity.StatusPending {
		t.Errorf("bad reason index must not reject, got %q", got)
	}
}

func TestOfferRejectReasonsButtons(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	if err := e.moderation.OfferRejectReasons(ctx, "SND-1"); err != nil {
		t.Fatal(err)
	}
	last, _ := e.msgr.lastTo(testModChat)
	if len(last.actions) != len(RejectReasons) {
		t.Fatalf("want %d reason buttons, got %d", len(RejectReasons), len(last.actions))
	}
	if last.actions[2].Token != rejectReasonToken("SND-1", 2) {
		t.Errorf("token = %q, want %q", last.actions[2].Token, rejectReasonToken("SND-1", 2))
	}
}

func TestRejectReleasesLockedCounterpart(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.requests.Insert(ctx, approvedSender("SND-1", "u1", 5, baseDay))
	e.requests.Insert(ctx, approvedTraveler("TRV-1", "u2", 6, baseDay))
	e.matcher.Confirm(ctx, "u1", "SND-1", "TRV-1")
	e.matcher.Confirm(ctx, "u2", "TRV-1", "SND-1")
	e.msgr.reset()

	if err := e.moderation.Reject(ctx, "SND-1", "Suspected fraud"); err != nil {
		t.Fatal(err)
	}

	snd := e.requests.get("SND-1")
	if snd.Status != entity.StatusRejected || snd.MatchLocked || snd.MatchedWith != "" {
		t.Errorf("rejected request must carry no match fields: %+v", snd)
	}
	trv := e.requests.get("TRV-1")
	if trv.Status != entity.StatusApproved || trv.MatchLocked || trv.MatchedWith != "" {
		t.Errorf("counterpart must be released back to approved: %+v", trv)
	}
	last, _ := e.msgr.lastTo("u2")
	if !strings.Contains(last.text, "dissolved") {
		t.Errorf("counterpart owner notice = %q, want dissolution notice", last.text)
	}
}

func TestRejectIsIdempotent(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.requests.Insert(ctx, pendingSender("SND-1", "u1"))

	e.moderation.Reject(ctx, "SND-1", "Documents not legible")
	e.msgr.reset()
	e.moderation.Reject(ctx, "SND-1", "Documents not legible")

	last, _ := e.msgr.lastTo(testModChat)
	if !strings.Contains(last.text, "already rejected") {
		t.Errorf("answer = %q, want already-rejected ack", last.text)
	}
	if msgs := e.msgr.messagesTo("u1"); len(msgs) != 0 {
		t.Error("repeated rejection must not re-notify the owner")
	}
}

func TestTerminateDissolvesMatchSymmetrically(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.requests.Insert(ctx, approvedSender("SND-1", "u1", 5, baseDay))
	e.requests.Insert(ctx, approvedTraveler("TRV-1", "u2", 6, baseDay))
	e.matcher.Confirm(ctx, "u1", "SND-1", "TRV-1")
	e.matcher.Confirm(ctx, "u2", "TRV-1", "SND-1")
	e.msgr.reset()

	if err := e.gate.Terminate(ctx, "SND-1", "policy violation"); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"SND-1", "TRV-1"} {
		req := e.requests.get(id)
		if req.Status != entity.StatusTerminated || req.MatchLocked || req.MatchedWith != "" {
			t.Errorf("%s must end terminated with match fields cleared: %+v", id, req)
		}
	}
	for _, owner := range []string{"u1", "u2"} {
		control, _ := e.controls.Get(ctx, owner)
		if control == nil || !control.Terminated {
			t.Errorf("owner %s must carry the terminated flag", owner)
		}
		last, ok := e.msgr.lastTo(owner)
		if !ok || !strings.Contains(last.text, "terminated") {
			t.Errorf("owner %s not notified: %+v", owner, last)
		}
	}

	// termination alone does not suspend: the user can still interact
	e.msgr.reset()
	e.dispatcher.HandleEvent(ctx, textEvent("u1", "/send"))
	if sess, _ := e.sessions.Get(ctx, "u1"); sess == nil {
		t.Error("terminated-flagged user must still be able to start a new submission")
	}
}

func TestTerminateRequiresActiveMatch(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.requests.Insert(ctx, approvedSender("SND-1", "u1", 5, baseDay))

	if err := e.gate.Terminate(ctx, "SND-1", ""); err != nil {
		t.Fatal(err)
	}
	last, _ := e.msgr.lastTo(testModChat)
	if !strings.Contains(last.text, "not in an active match") {
		t.Errorf("answer = %q, want not-in-match ack", last.text)
	}
	if got := e.requests.get("SND-1").Status; got != entity.StatusApproved {
		t.Errorf("status = %q, must stay approved", got)
	}
}

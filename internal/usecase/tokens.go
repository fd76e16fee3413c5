package usecase

import (
	"fmt"
	"strings"
)

// Action token schemas. Tokens travel as opaque callback data and come
// back verbatim on button press; the transport may redeliver them, so
// every handler behind a token must be idempotent-safe.
//
//	flow:confirm                  submit the in-progress request
//	flow:cancel                   discard the in-progress request
//	flow:visaskip                 skip the optional visa upload
//	mod:approve:<reqID>           approve a pending request
//	mod:reject:<reqID>            open the rejection reason list
//	mod:rejreason:<reqID>:<n>     reject with fixed reason n
//	mod:visa:<reqID>              request an extra visa document
//	mod:terminate:<reqID>         dissolve a locked match
//	mod:suspend:<actorID>         suspend a user
//	mod:unsuspend:<actorID>       lift a suspension
//	match:confirm:<myID>:<otherID> confirm a candidate offer
//	match:skip:<myID>:<otherID>    decline a candidate offer
const (
	tokenFlowConfirm  = "flow:confirm"
	tokenFlowCancel   = "flow:cancel"
	tokenFlowVisaSkip = "flow:visaskip"
)

// RejectReasons is the fixed short list offered to moderators. Free-text
// reasons go through the /reject command instead.
var RejectReasons = []string{
	"Incomplete or unclear information",
	"Prohibited or restricted item",
	"Documents not legible",
	"Suspected fraud",
}

func modToken(subaction, id string) string {
	return fmt.Sprintf("mod:%s:%s", subaction, id)
}

func rejectReasonToken(reqID string, n int) string {
	return fmt.Sprintf("mod:rejreason:%s:%d", reqID, n)
}

func matchToken(subaction, myID, otherID string) string {
	return fmt.Sprintf("match:%s:%s:%s", subaction, myID, otherID)
}

// splitToken returns the colon-delimited parts of a callback token.
func splitToken(token string) []string {
	return strings.Split(token, ":")
}

// internal/domain/entity/user_control.go
package entity

import "time"

// UserControl holds the per-user suspension and termination flags.
// One document per participant identity, independent of any Request.
type UserControl struct {
	ActorID         string    `bson:"_id"`
	Suspended       bool      `bson:"suspended"`
	SuspendReason   string    `bson:"suspendReason,omitempty"`
	Terminated      bool      `bson:"terminated"`
	TerminateReason string    `bson:"terminateReason,omitempty"`
	UpdatedAt       time.Time `bson:"updatedAt"`
}

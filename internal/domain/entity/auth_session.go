// internal/domain/entity/auth_session.go
package entity

import "time"

// AuthSession records a moderator login. Store-backed so moderator
// authorization survives process restarts and stays auditable.
type AuthSession struct {
	ActorID    string    `bson:"_id"`
	LoggedInAt time.Time `bson:"loggedInAt"`
}

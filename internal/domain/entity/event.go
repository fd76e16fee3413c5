// internal/domain/entity/event.go
package entity

// EventKind is the input modality of an inbound chat event
type EventKind string

const (
	EventText   EventKind = "text"
	EventPhoto  EventKind = "photo"
	EventButton EventKind = "button"
)

// Event is the transport-agnostic inbound event. The core never sees
// transport envelope fields beyond these.
type Event struct {
	ActorID  string
	Kind     EventKind
	Text     string
	PhotoRef string // transport file handle, opaque to the core
	Token    string // callback token echoed back verbatim on button press
}

// Action is one inline button on an outbound message. Token is opaque to
// the transport and comes back unchanged in a button Event.
type Action struct {
	Label string
	Token string
}

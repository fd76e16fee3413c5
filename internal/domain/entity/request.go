// internal/domain/entity/request.go
package entity

import (
	"fmt"
	"time"
)

// Role distinguishes the two request variants
type Role string

const (
	RoleSender   Role = "sender"
	RoleTraveler Role = "traveler"
)

// Opposite returns the counterpart role
func (r Role) Opposite() Role {
	if r == RoleSender {
		return RoleTraveler
	}
	return RoleSender
}

// RequestStatus is the moderation lifecycle state of a request
type RequestStatus string

const (
	StatusPending       RequestStatus = "pending"
	StatusVisaRequested RequestStatus = "visa_requested" // traveler only
	StatusVisaUploaded  RequestStatus = "visa_uploaded"  // traveler only
	StatusApproved      RequestStatus = "approved"
	StatusRejected      RequestStatus = "rejected"
	StatusTerminated    RequestStatus = "terminated"
)

// Contact holds the submitter's contact fields, shared by both roles.
// Never included in candidate offers.
type Contact struct {
	Name  string `bson:"name"`
	Phone string `bson:"phone"`
	Email string `bson:"email"`
}

// SenderDetails is the sender-specific payload
type SenderDetails struct {
	Pickup      string    `bson:"pickup"`
	Destination string    `bson:"destination"`
	WeightKg    float64   `bson:"weightKg"`
	Category    string    `bson:"category"`
	ShipDate    time.Time `bson:"shipDate"`
	ArrivalDate time.Time `bson:"arrivalDate"`
	ParcelPhoto string    `bson:"parcelPhoto,omitempty"`
	Notes       string    `bson:"notes,omitempty"`
}

// TravelerDetails is the traveler-specific payload
type TravelerDetails struct {
	DepartureAirport string    `bson:"departureAirport"`
	DepartureCountry string    `bson:"departureCountry"`
	ArrivalAirport   string    `bson:"arrivalAirport"`
	ArrivalCountry   string    `bson:"arrivalCountry"`
	DepartAt         time.Time `bson:"departAt"`
	ArriveAt         time.Time `bson:"arriveAt"`
	CapacityKg       float64   `bson:"capacityKg"`
	PassportNumber   string    `bson:"passportNumber"`
	PassportSelfie   string    `bson:"passportSelfie,omitempty"`
	Itinerary        string    `bson:"itinerary,omitempty"`
	VisaPhoto        string    `bson:"visaPhoto,omitempty"`
	Notes            string    `bson:"notes,omitempty"`
}

// Request is the central entity: a shared envelope plus exactly one
// role-specific payload (Sender or Traveler, matching Role).
type Request struct {
	ID               string           `bson:"_id"` // SND-/TRV- prefix + timestamp suffix
	OwnerID          string           `bson:"ownerId"`
	Role             Role             `bson:"role"`
	Contact          Contact          `bson:"contact"`
	Status           RequestStatus    `bson:"status"`
	ModeratorNote    string           `bson:"moderatorNote,omitempty"`
	MatchLocked      bool             `bson:"matchLocked"`
	PendingMatchWith string           `bson:"pendingMatchWith,omitempty"`
	MatchedWith      string           `bson:"matchedWith,omitempty"`
	Sender           *SenderDetails   `bson:"sender,omitempty"`
	Traveler         *TravelerDetails `bson:"traveler,omitempty"`
	CreatedAt        time.Time        `bson:"createdAt"`
	UpdatedAt        time.Time        `bson:"updatedAt"`
}

// NewRequestID builds a request id from the role prefix and a
// millisecond timestamp suffix.
func NewRequestID(role Role, at time.Time) string {
	prefix := "SND"
	if role == RoleTraveler {
		prefix = "TRV"
	}
	return fmt.Sprintf("%s-%d", prefix, at.UnixMilli())
}

// Matchable reports whether the request may enter candidate discovery.
func (r *Request) Matchable() bool {
	return r.Status == StatusApproved && !r.MatchLocked
}

// RouteFrom returns the origin location for either role.
func (r *Request) RouteFrom() string {
	if r.Role == RoleSender {
		return r.Sender.Pickup
	}
	return r.Traveler.DepartureAirport
}

// RouteTo returns the destination location for either role.
func (r *Request) RouteTo() string {
	if r.Role == RoleSender {
		return r.Sender.Destination
	}
	return r.Traveler.ArrivalAirport
}

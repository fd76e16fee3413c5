// internal/domain/entity/session.go
package entity

import "time"

// FlowState is one step of the submission flow. The ordered sequence per
// role lives in the usecase transition table; the session only records
// where the user currently is.
type FlowState string

const (
	// shared head of both sequences
	StateName  FlowState = "name"
	StatePhone FlowState = "phone"
	StateEmail FlowState = "email"

	// sender sequence
	StateSenderPickup      FlowState = "sender_pickup"
	StateSenderDestination FlowState = "sender_destination"
	StateSenderWeight      FlowState = "sender_weight"
	StateSenderCategory    FlowState = "sender_category"
	StateSenderShipDate    FlowState = "sender_ship_date"
	StateSenderArrivalDate FlowState = "sender_arrival_date"
	StateSenderParcelPhoto FlowState = "sender_parcel_photo"

	// traveler sequence
	StateTravelerDepartAirport  FlowState = "traveler_depart_airport"
	StateTravelerDepartCountry  FlowState = "traveler_depart_country"
	StateTravelerArriveAirport  FlowState = "traveler_arrive_airport"
	StateTravelerArriveCountry  FlowState = "traveler_arrive_country"
	StateTravelerDepartAt       FlowState = "traveler_depart_at"
	StateTravelerArriveAt       FlowState = "traveler_arrive_at"
	StateTravelerCapacity       FlowState = "traveler_capacity"
	StateTravelerPassportNumber FlowState = "traveler_passport_number"
	StateTravelerPassportSelfie FlowState = "traveler_passport_selfie"
	StateTravelerItinerary      FlowState = "traveler_itinerary"
	StateTravelerVisa           FlowState = "traveler_visa"

	// shared tail
	StateNotes   FlowState = "notes"
	StateConfirm FlowState = "confirm"
)

// Session is one user's in-progress submission. Keyed by actor identity;
// created on flow start, deleted on completion or cancel.
type Session struct {
	ActorID   string           `bson:"_id"`
	Role      Role             `bson:"role"`
	State     FlowState        `bson:"state"`
	Contact   Contact          `bson:"contact"`
	Sender    *SenderDetails   `bson:"sender,omitempty"`
	Traveler  *TravelerDetails `bson:"traveler,omitempty"`
	CreatedAt time.Time        `bson:"createdAt"`
	UpdatedAt time.Time        `bson:"updatedAt"`
}

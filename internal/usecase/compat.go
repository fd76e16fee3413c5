package usecase

import (
	"math"
	"time"

	"parcelmatch-service/internal/domain/entity"
	"parcelmatch-service/pkg/validate"
)

const (
	// WeightToleranceKg is the allowed gap between parcel weight and
	// carry capacity.
	WeightToleranceKg = 2.0

	// DateToleranceDays is the allowed gap between ship date and
	// traveler departure, date-only.
	DateToleranceDays = 1
)

// Compatible reports whether a sender request and a traveler request are
// a viable pair. Pure function of the two snapshots: route identity under
// airport normalization in both directions, weight within tolerance,
// ship/departure dates within tolerance, and both sides matchable.
func Compatible(sender, traveler *entity.Request) bool {
	if sender == nil || traveler == nil {
		return false
	}
	if sender.Role != entity.RoleSender || traveler.Role != entity.RoleTraveler {
		return false
	}
	if sender.Sender == nil || traveler.Traveler == nil {
		return false
	}
	if !sender.Matchable() || !traveler.Matchable() {
		return false
	}
	if !validate.SameLocation(sender.Sender.Pickup, traveler.Traveler.DepartureAirport) {
		return false
	}
	if !validate.SameLocation(sender.Sender.Destination, traveler.Traveler.ArrivalAirport) {
		return false
	}
	if math.Abs(sender.Sender.WeightKg-traveler.Traveler.CapacityKg) > WeightToleranceKg {
		return false
	}
	if dateDiffDays(traveler.Traveler.DepartAt, sender.Sender.ShipDate) > DateToleranceDays {
		return false
	}
	return true
}

// CompatiblePair is the orientation-free form: either argument may be the
// sender. Swapping the arguments never changes the result.
func CompatiblePair(a, b *entity.Request) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Role == entity.RoleSender {
		return Compatible(a, b)
	}
	return Compatible(b, a)
}

func dateDiffDays(a, b time.Time) int {
	// date-only comparison, time of day ignored
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	diff := da.Sub(db)
	if diff < 0 {
		diff = -diff
	}
	return int(diff / (24 * time.Hour))
}

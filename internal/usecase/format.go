package usecase

import (
	"context"
	"fmt"
	"strings"

	"parcelmatch-service/internal/domain/entity"
	"parcelmatch-service/internal/domain/repository"
	"parcelmatch-service/pkg/logger"
	"parcelmatch-service/pkg/validate"
)

// Formatter renders user-facing request summaries and candidate offer
// cards. The airport reference table only decorates place names; when it
// is absent or a lookup misses, the raw name is shown as entered.
type Formatter struct {
	airportRepo repository.AirportRepository
	logger      logger.Logger
}

// NewFormatter creates a new formatter. airportRepo may be nil.
func NewFormatter(airportRepo repository.AirportRepository, logger logger.Logger) *Formatter {
	return &Formatter{
		airportRepo: airportRepo,
		logger:      logger,
	}
}

func (f *Formatter) place(ctx context.Context, name string) string {
	if f.airportRepo == nil {
		return name
	}
	airport, err := f.airportRepo.GetByName(ctx, validate.NormalizeAirport(name))
	if err != nil || airport == nil {
		return name
	}
	return fmt.Sprintf("%s (%s, %s)", name, airport.City, airport.Country)
}

// OfferCard renders a candidate proposal. It carries route, dates, weight
// and category only, never the counterpart's contact fields or document
// photos.
func (f *Formatter) OfferCard(ctx context.Context, candidate *entity.Request) string {
	var sb strings.Builder

	switch candidate.Role {
	case entity.RoleSender:
		s := candidate.Sender
		sb.WriteString(fmt.Sprintf("📦 Parcel %s\n", candidate.ID))
		sb.WriteString(fmt.Sprintf("Route: %s → %s\n", f.place(ctx, s.Pickup), f.place(ctx, s.Destination)))
		sb.WriteString(fmt.Sprintf("Weight: %.1f kg\n", s.WeightKg))
		sb.WriteString(fmt.Sprintf("Category: %s\n", s.Category))
		sb.WriteString(fmt.Sprintf("Ship date: %s\n", s.ShipDate.Format(validate.DateLayout)))
		sb.WriteString(fmt.Sprintf("Needed by: %s", s.ArrivalDate.Format(validate.DateLayout)))
	case entity.RoleTraveler:
		t := candidate.Traveler
		sb.WriteString(fmt.Sprintf("✈️ Traveler %s\n", candidate.ID))
		sb.WriteString(fmt.Sprintf("Route: %s, %s → %s, %s\n",
			f.place(ctx, t.DepartureAirport), t.DepartureCountry,
			f.place(ctx, t.ArrivalAirport), t.ArrivalCountry))
		sb.WriteString(fmt.Sprintf("Departs: %s\n", t.DepartAt.Format(validate.DateTimeLayout)))
		sb.WriteString(fmt.Sprintf("Arrives: %s\n", t.ArriveAt.Format(validate.DateTimeLayout)))
		sb.WriteString(fmt.Sprintf("Free capacity: %.1f kg", t.CapacityKg))
	}

	return sb.String()
}

// Summary renders the full submission, including contact fields. Sent to
// the submitter and the moderation channel only.
func (f *Formatter) Summary(ctx context.Context, req *entity.Request) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Request %s (%s)\n", req.ID, req.Role))
	sb.WriteString(fmt.Sprintf("Status: %s\n", req.Status))
	sb.WriteString(fmt.Sprintf("Name: %s\n", req.Contact.Name))
	sb.WriteString(fmt.Sprintf("Phone: %s\n", req.Contact.Phone))
	sb.WriteString(fmt.Sprintf("Email: %s\n", req.Contact.Email))

	switch req.Role {
	case entity.RoleSender:
		s := req.Sender
		sb.WriteString(fmt.Sprintf("Route: %s → %s\n", f.place(ctx, s.Pickup), f.place(ctx, s.Destination)))
		sb.WriteString(fmt.Sprintf("Weight: %.1f kg, category: %s\n", s.WeightKg, s.Category))
		sb.WriteString(fmt.Sprintf("Ship: %s, arrival: %s\n",
			s.ShipDate.Format(validate.DateLayout), s.ArrivalDate.Format(validate.DateLayout)))
		if s.Notes != "" {
			sb.WriteString(fmt.Sprintf("Notes: %s\n", s.Notes))
		}
	case entity.RoleTraveler:
		t := req.Traveler
		sb.WriteString(fmt.Sprintf("Route: %s, %s → %s, %s\n",
			f.place(ctx, t.DepartureAirport), t.DepartureCountry,
			f.place(ctx, t.ArrivalAirport), t.ArrivalCountry))
		sb.WriteString(fmt.Sprintf("Departs: %s, arrives: %s\n",
			t.DepartAt.Format(validate.DateTimeLayout), t.ArriveAt.Format(validate.DateTimeLayout)))
		sb.WriteString(fmt.Sprintf("Capacity: %.1f kg\n", t.CapacityKg))
		sb.WriteString(fmt.Sprintf("Passport: %s\n", t.PassportNumber))
		if t.Notes != "" {
			sb.WriteString(fmt.Sprintf("Notes: %s\n", t.Notes))
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

// SessionSummary renders the draft collected so far, shown at the
// confirmation step.
func (f *Formatter) SessionSummary(ctx context.Context, session *entity.Session) string {
	req := &entity.Request{
		ID:       "(not submitted yet)",
		Role:     session.Role,
		Contact:  session.Contact,
		Status:   entity.StatusPending,
		Sender:   session.Sender,
		Traveler: session.Traveler,
	}
	return f.Summary(ctx, req)
}

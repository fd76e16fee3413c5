package entity

import "time"

// Airport is a reference-table row used to decorate offers and summaries
// with city and country names.
type Airport struct {
	ID        uint
	Code      string
	Name      string
	City      string
	Country   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

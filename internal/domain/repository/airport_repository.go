package repository

import (
	"context"

	"parcelmatch-service/internal/domain/entity"
)

// AirportRepository defines the interface for the airport reference
// table. Lookups are by normalized airport name and serve display
// enrichment only; matching never consults this table.
type AirportRepository interface {
	GetByName(ctx context.Context, normalizedName string) (*entity.Airport, error)
}

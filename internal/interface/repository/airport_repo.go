package repository

import (
	"context"
	"errors"
	"time"

	"parcelmatch-service/internal/domain/entity"
	"parcelmatch-service/internal/domain/repository"

	"gorm.io/gorm"
)

// GormAirportRepository implements the AirportRepository interface
type GormAirportRepository struct {
	db *gorm.DB
}

// NewGormAirportRepository creates a new GORM airport repository
func NewGormAirportRepository(db *gorm.DB) repository.AirportRepository {
	return &GormAirportRepository{
		db: db,
	}
}

// Airports GORM model for database mapping
type Airports struct {
	ID             uint   `gorm:"primaryKey"`
	Code           string `gorm:"column:code;unique"`
	Name           string `gorm:"column:name"`
	NormalizedName string `gorm:"column:normalized_name;index"`
	City           string `gorm:"column:city"`
	Country        string `gorm:"column:country"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName overrides the default table name
func (Airports) TableName() string {
	return "m_airports"
}

// GetByName finds an airport by its normalized name
func (r *GormAirportRepository) GetByName(ctx context.Context, normalizedName string) (*entity.Airport, error) {
	var airport Airports
	result := r.db.WithContext(ctx).Where("normalized_name = ?", normalizedName).First(&airport)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	return &entity.Airport{
		ID:        airport.ID,
		Code:      airport.Code,
		Name:      airport.Name,
		City:      airport.City,
		Country:   airport.Country,
		CreatedAt: airport.CreatedAt,
		UpdatedAt: airport.UpdatedAt,
	}, nil
}

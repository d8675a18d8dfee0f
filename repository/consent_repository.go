package repository

import (
	"context"
	"time"

	"storefront-service/models"

	"gorm.io/gorm"
)

// ConsentRepository is the append-only consent audit log. There is
// deliberately no update or delete.
type ConsentRepository interface {
	Create(ctx context.Context, rec *models.ConsentRecord) error
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]models.ConsentRecord, error)
}

// GormConsentRepository implements ConsentRepository using GORM.
type GormConsentRepository struct {
	db *gorm.DB
}

// NewGormConsentRepository creates a new GormConsentRepository.
func NewGormConsentRepository(db *gorm.DB) ConsentRepository {
	return &GormConsentRepository{db: db}
}

func (r *GormConsentRepository) Create(ctx context.Context, rec *models.ConsentRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// ListCreatedBetween returns records with from <= created_at < to in insert order.
func (r *GormConsentRepository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]models.ConsentRecord, error) {
	var recs []models.ConsentRecord
	if err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("id ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

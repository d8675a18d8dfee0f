package repository

import (
	"context"

	"storefront-service/models"

	"gorm.io/gorm"
)

// DealRepository reads weekly deals written by the vendor sync job.
type DealRepository interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]*models.WeeklyDeal, error)
}

// GormDealRepository implements DealRepository using GORM.
type GormDealRepository struct {
	db *gorm.DB
}

// NewGormDealRepository creates a new GormDealRepository.
func NewGormDealRepository(db *gorm.DB) DealRepository {
	return &GormDealRepository{db: db}
}

// FindByIDs loads the given deals in one query. Missing ids are absent from
// the result.
func (r *GormDealRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*models.WeeklyDeal, error) {
	out := make(map[string]*models.WeeklyDeal, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var deals []models.WeeklyDeal
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&deals).Error; err != nil {
		return nil, err
	}
	for i := range deals {
		out[deals[i].ID] = &deals[i]
	}
	return out, nil
}

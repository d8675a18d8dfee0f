package repository

import (
	"context"
	"time"

	"storefront-service/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriberRepository defines data-access operations for newsletter subscribers.
// Emails passed in must already be normalized.
type SubscriberRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Subscriber, error)
	UpsertSubscribed(ctx context.Context, email, source string, at time.Time) error
	UpsertUnsubscribed(ctx context.Context, email string, at time.Time) error
	UnsubscribedAmong(ctx context.Context, emails []string) (map[string]bool, error)
}

// GormSubscriberRepository implements SubscriberRepository using GORM.
type GormSubscriberRepository struct {
	db *gorm.DB
}

// NewGormSubscriberRepository creates a new GormSubscriberRepository.
func NewGormSubscriberRepository(db *gorm.DB) SubscriberRepository {
	return &GormSubscriberRepository{db: db}
}

func (r *GormSubscriberRepository) FindByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	var s models.Subscriber
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertSubscribed creates the subscriber or re-subscribes an existing one.
func (r *GormSubscriberRepository) UpsertSubscribed(ctx context.Context, email, source string, at time.Time) error {
	sub := &models.Subscriber{
		Email:        email,
		Status:       models.SubscriberStatusSubscribed,
		Source:       source,
		SubscribedAt: &at,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":          models.SubscriberStatusSubscribed,
			"source":          source,
			"subscribed_at":   at,
			"unsubscribed_at": nil,
			"last_error":      "",
			"updated_at":      at,
		}),
	}).Create(sub).Error
}

// UpsertUnsubscribed marks the email as withdrawn, creating the row if the
// address was never subscribed.
func (r *GormSubscriberRepository) UpsertUnsubscribed(ctx context.Context, email string, at time.Time) error {
	sub := &models.Subscriber{
		Email:          email,
		Status:         models.SubscriberStatusUnsubscribed,
		Source:         models.ConsentTypeWithdrawal,
		UnsubscribedAt: &at,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":          models.SubscriberStatusUnsubscribed,
			"unsubscribed_at": at,
			"updated_at":      at,
		}),
	}).Create(sub).Error
}

// UnsubscribedAmong returns the subset of emails that have withdrawn.
func (r *GormSubscriberRepository) UnsubscribedAmong(ctx context.Context, emails []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(emails) == 0 {
		return out, nil
	}

	var found []string
	if err := r.db.WithContext(ctx).
		Model(&models.Subscriber{}).
		Where("email IN ? AND status = ?", emails, models.SubscriberStatusUnsubscribed).
		Pluck("email", &found).Error; err != nil {
		return nil, err
	}
	for _, e := range found {
		out[e] = true
	}
	return out, nil
}

package repository

import (
	"context"
	"time"

	"storefront-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AbandonedCartRepository defines data-access operations for abandoned carts.
// Status transitions are conditional updates so concurrent requests cannot
// move a cart backwards; they report the number of rows changed.
type AbandonedCartRepository interface {
	Create(ctx context.Context, cart *models.AbandonedCart) error
	FindByToken(ctx context.Context, token string) (*models.AbandonedCart, error)
	RefreshActive(ctx context.Context, cart *models.AbandonedCart) error
	Suppress(ctx context.Context, token string, at time.Time) (int64, error)
	SuppressActiveByEmail(ctx context.Context, email string, at time.Time) (int64, error)
	MarkPurchased(ctx context.Context, token string, at time.Time) (int64, error)
	FindDueReminders(ctx context.Context, createdBefore, now time.Time, limit int) ([]models.AbandonedCart, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error
}

// GormAbandonedCartRepository implements AbandonedCartRepository using GORM.
type GormAbandonedCartRepository struct {
	db *gorm.DB
}

// NewGormAbandonedCartRepository creates a new GormAbandonedCartRepository.
func NewGormAbandonedCartRepository(db *gorm.DB) AbandonedCartRepository {
	return &GormAbandonedCartRepository{db: db}
}

func (r *GormAbandonedCartRepository) Create(ctx context.Context, cart *models.AbandonedCart) error {
	return r.db.WithContext(ctx).Create(cart).Error
}

func (r *GormAbandonedCartRepository) FindByToken(ctx context.Context, token string) (*models.AbandonedCart, error) {
	var c models.AbandonedCart
	if err := r.db.WithContext(ctx).Where("session_token = ?", token).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// RefreshActive overwrites the snapshot fields and expiry of an active cart.
// It returns gorm.ErrRecordNotFound if the cart is no longer active.
func (r *GormAbandonedCartRepository) RefreshActive(ctx context.Context, cart *models.AbandonedCart) error {
	res := r.db.WithContext(ctx).
		Model(&models.AbandonedCart{}).
		Where("id = ? AND status = ?", cart.ID, models.CartStatusActive).
		Updates(map[string]interface{}{
			"cart_snapshot": cart.CartSnapshot,
			"deal_id":       cart.DealID,
			"deal_ends_at":  cart.DealEndsAt,
			"postal_code":   cart.PostalCode,
			"shipping_zone": cart.ShippingZone,
			"cart_total":    cart.CartTotal,
			"expires_at":    cart.ExpiresAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Suppress moves an active cart to suppressed. Carts in any other state are
// left alone.
func (r *GormAbandonedCartRepository) Suppress(ctx context.Context, token string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.AbandonedCart{}).
		Where("session_token = ? AND status = ?", token, models.CartStatusActive).
		Updates(map[string]interface{}{
			"status":        models.CartStatusSuppressed,
			"suppressed_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *GormAbandonedCartRepository) SuppressActiveByEmail(ctx context.Context, email string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.AbandonedCart{}).
		Where("email = ? AND status = ?", email, models.CartStatusActive).
		Updates(map[string]interface{}{
			"status":        models.CartStatusSuppressed,
			"suppressed_at": at,
		})
	return res.RowsAffected, res.Error
}

// MarkPurchased moves an active or suppressed cart to purchased.
func (r *GormAbandonedCartRepository) MarkPurchased(ctx context.Context, token string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.AbandonedCart{}).
		Where("session_token = ? AND status IN ?", token, []models.CartStatus{models.CartStatusActive, models.CartStatusSuppressed}).
		Updates(map[string]interface{}{
			"status":       models.CartStatusPurchased,
			"purchased_at": at,
		})
	return res.RowsAffected, res.Error
}

// FindDueReminders returns active, unexpired carts created at or before
// createdBefore that have not had a reminder yet, oldest first.
func (r *GormAbandonedCartRepository) FindDueReminders(ctx context.Context, createdBefore, now time.Time, limit int) ([]models.AbandonedCart, error) {
	var carts []models.AbandonedCart
	if err := r.db.WithContext(ctx).
		Where("status = ? AND reminder_sent_at IS NULL AND created_at <= ? AND expires_at > ?",
			models.CartStatusActive, createdBefore, now).
		Order("created_at ASC").
		Limit(limit).
		Find(&carts).Error; err != nil {
		return nil, err
	}
	return carts, nil
}

func (r *GormAbandonedCartRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.AbandonedCart{}).
		Where("id = ? AND reminder_sent_at IS NULL", id).
		Update("reminder_sent_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

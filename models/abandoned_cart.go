package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CartItem is one line of a cart snapshot. Price is the unit price in cents.
type CartItem struct {
	ID       string                 `json:"id" validate:"required,max=128"`
	Name     string                 `json:"name,omitempty" validate:"max=255"`
	Quantity int                    `json:"quantity" validate:"gt=0"`
	Price    int64                  `json:"price" validate:"gte=0"`
	DealID   string                 `json:"dealId,omitempty" validate:"max=64"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// CartItems is stored as a jsonb array and keeps line order.
type CartItems []CartItem

func (items CartItems) Value() (driver.Value, error) {
	if items == nil {
		return "[]", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (items *CartItems) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*items = nil
		return nil
	default:
		return fmt.Errorf("cannot scan %T into CartItems", src)
	}
	return json.Unmarshal(raw, items)
}

// Total is the sum of quantity * price over all lines.
func (items CartItems) Total() int64 {
	var total int64
	for _, it := range items {
		total += int64(it.Quantity) * it.Price
	}
	return total
}

// AbandonedCartTTL is how long a captured cart stays restorable.
const AbandonedCartTTL = 48 * time.Hour

// AbandonedCart is a cart snapshot captured against an email before checkout.
type AbandonedCart struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email          string     `gorm:"type:varchar(320);not null;index" json:"email"`
	SessionToken   string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	CartSnapshot   CartItems  `gorm:"type:jsonb;not null" json:"items"`
	DealID         string     `gorm:"type:varchar(64)" json:"dealId,omitempty"`
	DealEndsAt     *time.Time `json:"dealEndsAt,omitempty"`
	PostalCode     string     `gorm:"type:varchar(16)" json:"postalCode,omitempty"`
	ShippingZone   string     `gorm:"type:varchar(64)" json:"shippingZone,omitempty"`
	CartTotal      int64      `gorm:"not null" json:"cartTotal"`
	Status         CartStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	ReminderSentAt *time.Time `json:"reminderSentAt,omitempty"`
	PurchasedAt    *time.Time `json:"purchasedAt,omitempty"`
	SuppressedAt   *time.Time `json:"suppressedAt,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
	ExpiresAt      time.Time  `gorm:"not null;index" json:"expiresAt"`
}

// Expired reports whether the cart is past its restore window at now.
func (c *AbandonedCart) Expired(now time.Time) bool {
	return c.ExpiresAt.Before(now)
}

// CaptureCartRequest is the payload for POST /api/cart/capture.
type CaptureCartRequest struct {
	Email        string     `json:"email" validate:"required,email,max=320"`
	SessionToken string     `json:"sessionToken"`
	CartItems    CartItems  `json:"cartItems" validate:"required,min=1,dive"`
	DealID       string     `json:"dealId" validate:"max=64"`
	DealEndsAt   *time.Time `json:"dealEndsAt"`
	PostalCode   string     `json:"postalCode" validate:"max=16"`
	ShippingZone string     `json:"shippingZone" validate:"max=64"`
	CartTotal    int64      `json:"cartTotal" validate:"gt=0"`
	ConsentText  string     `json:"consentText"`
	PageURL      string     `json:"pageUrl" validate:"max=2048"`
}

// CaptureCartResponse is returned from a successful capture.
type CaptureCartResponse struct {
	SessionToken string    `json:"sessionToken"`
	CartID       uuid.UUID `json:"cartId"`
}

// ValidateCartRequest is the payload for POST /api/cart/validate.
type ValidateCartRequest struct {
	CartItems CartItems `json:"cartItems" validate:"dive"`
}

// ExpiredItem is one cart line that can no longer be sold.
type ExpiredItem struct {
	ID     string `json:"id"`
	DealID string `json:"dealId"`
	Reason string `json:"reason"`
}

// CartValidationResult lists the lines whose deal window has closed.
type CartValidationResult struct {
	Valid        bool          `json:"valid"`
	ExpiredItems []ExpiredItem `json:"expiredItems"`
}

// RestoredCart is the snapshot handed to the storefront when a restore ticket
// is claimed.
type RestoredCart struct {
	Email        string    `json:"email"`
	Items        CartItems `json:"items"`
	CartTotal    int64     `json:"cartTotal"`
	DealID       string    `json:"dealId,omitempty"`
	PostalCode   string    `json:"postalCode,omitempty"`
	ShippingZone string    `json:"shippingZone,omitempty"`
}

// CartEvent is published to SNS on cart lifecycle transitions.
type CartEvent struct {
	EventType string    `json:"event_type"`
	CartID    string    `json:"cart_id"`
	Email     string    `json:"email"`
	CartTotal int64     `json:"cart_total"`
	Timestamp time.Time `json:"timestamp"`
}

// CheckoutRequest is the payload for POST /api/checkout. An empty token falls
// back to the cart cookie.
type CheckoutRequest struct {
	SessionToken string `json:"sessionToken"`
}

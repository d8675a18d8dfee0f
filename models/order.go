package models

import (
	"time"

	"github.com/google/uuid"
)

const OrderStatusPaid = "paid"

// Order records a completed checkout. StripeSessionID is unique so webhook
// redelivery cannot create a second row.
type Order struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SessionToken    string    `gorm:"type:varchar(64);index" json:"-"`
	StripeSessionID string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"stripeSessionId"`
	Email           string    `gorm:"type:varchar(320)" json:"email"`
	AmountTotal     int64     `gorm:"not null" json:"amountTotal"`
	Currency        string    `gorm:"type:varchar(8)" json:"currency"`
	Status          string    `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

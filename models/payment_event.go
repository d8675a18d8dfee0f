package models

import "time"

const (
	PaymentEventSucceeded = "payment_succeeded"
	PaymentEventFailed    = "payment_failed"
)

// PaymentEvent is published by the payments pipeline. Carts are matched on
// Metadata["cart_token"].
type PaymentEvent struct {
	Type      string            `json:"type"`
	PaymentID string            `json:"payment_id,omitempty"`
	Amount    int64             `json:"amount,omitempty"`
	Currency  string            `json:"currency,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp,omitempty"`
}

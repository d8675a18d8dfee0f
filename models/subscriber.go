package models

import "time"

// Subscriber is one newsletter identity. Rows are never deleted; withdrawal
// flips Status to unsubscribed.
type Subscriber struct {
	ID             uint             `gorm:"primaryKey" json:"-"`
	Email          string           `gorm:"type:varchar(320);uniqueIndex;not null" json:"email"`
	Status         SubscriberStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Source         string           `gorm:"type:varchar(128)" json:"source"`
	ProviderRef    string           `gorm:"type:varchar(255)" json:"providerRef,omitempty"`
	SubscribedAt   *time.Time       `json:"subscribedAt,omitempty"`
	UnsubscribedAt *time.Time       `json:"unsubscribedAt,omitempty"`
	LastError      string           `gorm:"type:text" json:"-"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updatedAt"`
}

// SubscribeRequest is the payload for a newsletter opt-in.
type SubscribeRequest struct {
	Email       string `json:"email" validate:"required,email,max=320"`
	Source      string `json:"source" validate:"required,max=128"`
	ConsentText string `json:"consentText"`
	PageURL     string `json:"pageUrl" validate:"max=2048"`
}

// SubscriberEvent is published to SNS on subscribe and unsubscribe.
type SubscriberEvent struct {
	EventType string    `json:"event_type"`
	Email     string    `json:"email"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

package models

import "time"

// Known consent types. Any other string is stored as given.
const (
	ConsentTypeImpliedInquiry = "implied_inquiry"
	ConsentTypeNewsletter     = "newsletter"
	ConsentTypeWithdrawal     = "withdrawal"
)

// ConsentRecord is one row of the consent audit log. Rows are insert-only.
type ConsentRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Email         string    `gorm:"type:varchar(320);not null;index" json:"email"`
	ConsentType   string    `gorm:"type:varchar(64);not null" json:"consentType"`
	ConsentSource string    `gorm:"type:varchar(128)" json:"consentSource"`
	ConsentText   string    `gorm:"type:text" json:"consentText"`
	IPAddress     string    `gorm:"type:varchar(64)" json:"ipAddress"`
	UserAgent     string    `gorm:"type:text" json:"userAgent"`
	PageURL       string    `gorm:"type:text" json:"pageUrl"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

// RequestMeta is the requester evidence attached to a consent record.
type RequestMeta struct {
	IPAddress string
	UserAgent string
	PageURL   string
}

package models

import "time"

// WeeklyDeal is maintained by the vendor sync job; this service only reads it.
type WeeklyDeal struct {
	ID               string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	VendorProductRef string    `gorm:"type:varchar(128)" json:"vendorProductRef"`
	Title            string    `gorm:"type:varchar(255)" json:"title"`
	PriceCents       int64     `gorm:"not null;default:0" json:"priceCents"`
	IsActive         bool      `gorm:"not null" json:"isActive"`
	StartsAt         time.Time `gorm:"not null" json:"startsAt"`
	EndsAt           time.Time `gorm:"not null" json:"endsAt"`
}

// InvalidReason returns why the deal cannot be sold at now, or "" when it can.
func (d *WeeklyDeal) InvalidReason(now time.Time) string {
	switch {
	case !d.IsActive:
		return "deal is no longer active"
	case now.Before(d.StartsAt):
		return "deal has not started yet"
	case !now.Before(d.EndsAt):
		return "deal has ended"
	default:
		return ""
	}
}

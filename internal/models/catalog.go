package models

import (
	"time"
)

const AudienceAll = "all"

type Offer struct {
	ID                 uint       `json:"id" gorm:"primaryKey"`
	Title              string     `json:"title" gorm:"size:200;not null"`
	Description        string     `json:"description" gorm:"type:text"`
	DiscountPercentage int        `json:"discount_percentage"`
	TargetAudience     string     `json:"target_audience" gorm:"size:20;not null;index"`
	StartDate          time.Time  `json:"start_date" gorm:"not null"`
	EndDate            *time.Time `json:"end_date"`
	IsActive           bool       `json:"is_active" gorm:"index"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// ActiveAt reports whether the offer applies at t. A nil end date never expires.
func (o *Offer) ActiveAt(t time.Time) bool {
	if !o.IsActive || o.StartDate.After(t) {
		return false
	}
	return o.EndDate == nil || !o.EndDate.Before(t)
}

type ContactMessage struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Name       string    `json:"name" gorm:"size:100;not null"`
	Email      string    `json:"email" gorm:"size:254;not null"`
	Phone      string    `json:"phone" gorm:"size:20"`
	Subject    string    `json:"subject" gorm:"size:200"`
	Message    string    `json:"message" gorm:"type:text;not null"`
	IsRead     bool      `json:"is_read" gorm:"index"`
	IsArchived bool      `json:"is_archived" gorm:"index"`
	CreatedAt  time.Time `json:"created_at"`
}

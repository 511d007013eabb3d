package models

import (
	"time"
)

// Transaction is a manually entered deal record. Profit is supplied by the
// caller; Commission is informational.
type Transaction struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	UserID       uint         `json:"user_id" gorm:"not null;index"`
	User         *UserProfile `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	PropertyName string       `json:"property_name" gorm:"size:200;not null"`
	Region       string       `json:"region" gorm:"size:100;index"`
	AccountType  string       `json:"account_type" gorm:"size:50;index"`
	PropertyType string       `json:"property_type" gorm:"size:50;index"`
	RentPrice    float64      `json:"rent_price"`
	Commission   float64      `json:"commission"`
	Profit       float64      `json:"profit"`
	CreatedAt    time.Time    `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type UserEarning struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       uint      `json:"user_id" gorm:"not null;index"`
	User         *User     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	PropertyName string    `json:"property_name" gorm:"size:200;not null"`
	Area         string    `json:"area" gorm:"size:100"`
	PropertyType string    `json:"property_type" gorm:"size:50"`
	Earnings     float64   `json:"earnings"`
	DealDate     time.Time `json:"deal_date" gorm:"not null;index"`
	Notes        string    `json:"notes" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

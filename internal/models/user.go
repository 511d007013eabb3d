package models

import (
	"time"
)

type UserType string

const (
	UserTypeTenant   UserType = "tenant"
	UserTypeLandlord UserType = "landlord"
	UserTypeAgent    UserType = "agent"
	UserTypeOffice   UserType = "office"
	UserTypeAdmin    UserType = "admin"
)

// CanListProperties reports whether accounts of this type may submit listings.
func (t UserType) CanListProperties() bool {
	return t == UserTypeLandlord || t == UserTypeAgent || t == UserTypeOffice
}

func (t UserType) Valid() bool {
	switch t {
	case UserTypeTenant, UserTypeLandlord, UserTypeAgent, UserTypeOffice, UserTypeAdmin:
		return true
	}
	return false
}

// User is the login account. Role and contact details live on UserProfile.
type User struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	Username     string       `json:"username" gorm:"size:150;uniqueIndex;not null"`
	Email        string       `json:"email" gorm:"size:254;uniqueIndex;not null"`
	PasswordHash string       `json:"-" gorm:"not null"`
	FirstName    string       `json:"first_name" gorm:"size:150"`
	LastName     string       `json:"last_name" gorm:"size:150"`
	IsStaff      bool         `json:"is_staff"`
	IsActive     bool         `json:"is_active"`
	Profile      *UserProfile `json:"profile,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type UserProfile struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	UserID          uint       `json:"user_id" gorm:"uniqueIndex;not null"`
	UserType        UserType   `json:"user_type" gorm:"size:20;not null;index"`
	FullName        string     `json:"full_name" gorm:"size:200"`
	Email           string     `json:"email" gorm:"size:254"`
	PhoneNumber     string     `json:"phone_number" gorm:"size:20"`
	City            string     `json:"city" gorm:"size:100"`
	DateOfBirth     *time.Time `json:"date_of_birth,omitempty"`
	IsEmailVerified bool       `json:"is_email_verified"`
	IsPhoneVerified bool       `json:"is_phone_verified"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	DeviceToken     string     `json:"-" gorm:"size:255"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// DisplayName prefers the profile's full name and falls back to the username.
func (u *User) DisplayName() string {
	if u.Profile != nil && u.Profile.FullName != "" {
		return u.Profile.FullName
	}
	if u.FirstName != "" || u.LastName != "" {
		return joinName(u.FirstName, u.LastName)
	}
	return u.Username
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}

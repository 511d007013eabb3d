package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationNewUser          = "new_user"
	NotificationNewContact       = "new_contact_message"
	NotificationPropertyApproved = "property_approved"
	NotificationPropertyRejected = "property_rejected"
	NotificationPropertyPending  = "new_property"
	NotificationViewMilestone    = "view_milestone"
)

type Notification struct {
	ID                uint         `json:"id" gorm:"primaryKey"`
	RecipientID       uint         `json:"recipient_id" gorm:"not null;index"`
	Recipient         *UserProfile `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	NotificationType  string       `json:"notification_type" gorm:"size:30;not null;index"`
	Title             string       `json:"title" gorm:"size:200;not null"`
	Message           string       `json:"message" gorm:"type:text"`
	RelatedPropertyID *uuid.UUID   `json:"related_property_id" gorm:"type:uuid"`
	RelatedUserID     *uint        `json:"related_user_id"`
	IsRead            bool         `json:"is_read" gorm:"index"`
	ReadAt            *time.Time   `json:"read_at"`
	CreatedAt         time.Time    `json:"created_at" gorm:"index"`
}

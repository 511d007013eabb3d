package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ActivityAction string

const (
	ActionCreateProperty  ActivityAction = "create_property"
	ActionDeleteProperty  ActivityAction = "delete_property"
	ActionUpdateProperty  ActivityAction = "update_property"
	ActionApproveProperty ActivityAction = "approve_property"
	ActionRejectProperty  ActivityAction = "reject_property"
	ActionCreateUser      ActivityAction = "create_user"
)

// ActivityLog is an append-only, human readable record of one event.
type ActivityLog struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UserID      *uint          `json:"user_id" gorm:"index"`
	User        *User          `json:"user,omitempty" gorm:"constraint:OnDelete:SET NULL"`
	Action      ActivityAction `json:"action" gorm:"size:30;not null;index"`
	ContentType string         `json:"content_type" gorm:"size:50"`
	ObjectID    string         `json:"object_id" gorm:"size:64;index"`
	ObjectName  string         `json:"object_name" gorm:"size:255"`
	Description string         `json:"description" gorm:"type:text"`
	IPAddress   string         `json:"ip_address" gorm:"size:45"`
	Timestamp   time.Time      `json:"timestamp" gorm:"not null;index"`
}

type AuditAction string

const (
	AuditCreate  AuditAction = "create"
	AuditDelete  AuditAction = "delete"
	AuditRestore AuditAction = "restore"
	AuditApprove AuditAction = "approve"
	AuditReject  AuditAction = "reject"
)

// PropertyAuditTrail keeps full before/after snapshots of a listing.
type PropertyAuditTrail struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	PropertyID    uuid.UUID      `json:"property_id" gorm:"type:uuid;not null;index"`
	PropertyName  string         `json:"property_name" gorm:"size:200"`
	Action        AuditAction    `json:"action" gorm:"size:20;not null;index"`
	PerformedByID *uint          `json:"performed_by_id" gorm:"index"`
	PerformedBy   *User          `json:"performed_by,omitempty" gorm:"constraint:OnDelete:SET NULL"`
	BeforeData    datatypes.JSON `json:"before_data"`
	AfterData     datatypes.JSON `json:"after_data"`
	Notes         string         `json:"notes" gorm:"type:text"`
	IPAddress     string         `json:"ip_address" gorm:"size:45"`
	Timestamp     time.Time      `json:"timestamp" gorm:"not null;index"`
}

func (PropertyAuditTrail) TableName() string {
	return "property_audit_trail"
}

package models

import (
	"time"
)

const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceUnknown = "unknown"
)

// Visitor is one row per distinct client address.
type Visitor struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	IPAddress    string    `json:"ip_address" gorm:"size:45;uniqueIndex;not null"`
	UserAgent    string    `json:"user_agent" gorm:"type:text"`
	DeviceType   string    `json:"device_type" gorm:"size:20;index"`
	VisitCount   int       `json:"visit_count"`
	FirstVisited time.Time `json:"first_visited" gorm:"index"`
	LastVisited  time.Time `json:"last_visited" gorm:"index"`
}

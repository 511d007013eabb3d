package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PropertyStatus string

const (
	StatusDraft    PropertyStatus = "draft"
	StatusPending  PropertyStatus = "pending"
	StatusApproved PropertyStatus = "approved"
	StatusRejected PropertyStatus = "rejected"
)

type UsageType string

const (
	UsageStudents UsageType = "students"
	UsageFamilies UsageType = "families"
	UsageStudio   UsageType = "studio"
	UsageVacation UsageType = "vacation"
	UsageDaily    UsageType = "daily"
)

func (u UsageType) Valid() bool {
	switch u {
	case "", UsageStudents, UsageFamilies, UsageStudio, UsageVacation, UsageDaily:
		return true
	}
	return false
}

type Area struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:100;uniqueIndex;not null"`
	NameEn    string    `json:"name_en" gorm:"size:100"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Property struct {
	ID             uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	Name           string            `json:"name" gorm:"size:200;not null"`
	AreaID         *uint             `json:"area_id" gorm:"index"`
	Area           *Area             `json:"area,omitempty" gorm:"constraint:OnDelete:SET NULL"`
	Address        string            `json:"address" gorm:"size:300"`
	Price          float64           `json:"price"`
	OriginalPrice  *float64          `json:"original_price,omitempty"`
	Discount       int               `json:"discount"`
	Rooms          int               `json:"rooms"`
	Beds           int               `json:"beds"`
	Bathrooms      int               `json:"bathrooms"`
	Size           float64           `json:"size"`
	Floor          int               `json:"floor"`
	Furnished      bool              `json:"furnished"`
	UsageType      UsageType         `json:"usage_type" gorm:"size:20;index"`
	Description    string            `json:"description" gorm:"type:text"`
	Contact        string            `json:"contact" gorm:"size:50"`
	Featured       bool              `json:"featured" gorm:"index"`
	Latitude       *float64          `json:"latitude"`
	Longitude      *float64          `json:"longitude"`
	Status         PropertyStatus    `json:"status" gorm:"size:20;not null;index"`
	OwnerID        *uint             `json:"owner_id" gorm:"index"`
	Owner          *UserProfile      `json:"owner,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	ApprovedByID   *uint             `json:"approved_by_id"`
	ApprovedBy     *User             `json:"approved_by,omitempty" gorm:"constraint:OnDelete:SET NULL"`
	ApprovalNotes  string            `json:"approval_notes" gorm:"type:text"`
	SubmittedAt    *time.Time        `json:"submitted_at"`
	ApprovedAt     *time.Time        `json:"approved_at"`
	RejectedAt     *time.Time        `json:"rejected_at"`
	IsDeleted      bool              `json:"is_deleted" gorm:"index"`
	DeletedAt      *time.Time        `json:"deleted_at"`
	DeletedByID    *uint             `json:"deleted_by_id"`
	DeletedBy      *User             `json:"deleted_by,omitempty" gorm:"constraint:OnDelete:SET NULL"`
	ViewCount      int               `json:"view_count"`
	VisitorIPs     datatypes.JSONMap `json:"-"`
	UniqueVisitors int               `json:"unique_visitors"`
	Images         []PropertyImage   `json:"images" gorm:"constraint:OnDelete:CASCADE"`
	Videos         []PropertyVideo   `json:"videos" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = StatusDraft
	}
	return nil
}

// IsOwnedBy reports whether profileID owns the listing.
func (p *Property) IsOwnedBy(profileID uint) bool {
	return p.OwnerID != nil && *p.OwnerID == profileID
}

type PropertyImage struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	PropertyID uuid.UUID `json:"property_id" gorm:"type:uuid;index;not null"`
	URL        string    `json:"url" gorm:"not null"`
	Order      int       `json:"order" gorm:"column:sort_order"`
	CreatedAt  time.Time `json:"created_at"`
}

type PropertyVideo struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	PropertyID uuid.UUID `json:"property_id" gorm:"type:uuid;index;not null"`
	URL        string    `json:"url" gorm:"not null"`
	Order      int       `json:"order" gorm:"column:sort_order"`
	CreatedAt  time.Time `json:"created_at"`
}

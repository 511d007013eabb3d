package services

import (
	"eskan-backend/internal/models"

	"gorm.io/gorm"
)

// Viewer is the caller of an operation. A nil *Viewer is anonymous.
type Viewer struct {
	User    *models.User
	Profile *models.UserProfile
}

func (v *Viewer) Authenticated() bool {
	return v != nil && v.User != nil
}

func (v *Viewer) IsAdmin() bool {
	if !v.Authenticated() {
		return false
	}
	return v.User.IsStaff || (v.Profile != nil && v.Profile.UserType == models.UserTypeAdmin)
}

func (v *Viewer) CanListProperties() bool {
	return v.Authenticated() && v.Profile != nil && v.Profile.UserType.CanListProperties()
}

// ProfileID is 0 when the viewer has no profile.
func (v *Viewer) ProfileID() uint {
	if !v.Authenticated() || v.Profile == nil {
		return 0
	}
	return v.Profile.ID
}

func (v *Viewer) UserID() *uint {
	if !v.Authenticated() {
		return nil
	}
	id := v.User.ID
	return &id
}

// Owns reports whether the viewer owns the listing.
func (v *Viewer) Owns(p *models.Property) bool {
	id := v.ProfileID()
	return id != 0 && p.IsOwnedBy(id)
}

type View int

const (
	// ViewDefault is every read of live listings.
	ViewDefault View = iota
	// ViewDeleted is the admin-only listing of soft-deleted rows.
	ViewDeleted
)

// Visible is the one place deciding which listings a viewer may read.
//
//	anonymous      approved and not deleted
//	authenticated  not deleted, and approved or owned by the viewer
//	admin          not deleted; ViewDeleted shows deleted rows only
func Visible(v *Viewer, view View) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if view == ViewDeleted {
			if !v.IsAdmin() {
				return db.Where("1 = 0")
			}
			return db.Where("properties.is_deleted = ?", true)
		}

		db = db.Where("properties.is_deleted = ?", false)
		switch {
		case v.IsAdmin():
			return db
		case v.ProfileID() != 0:
			return db.Where("(properties.status = ? OR properties.owner_id = ?)", models.StatusApproved, v.ProfileID())
		default:
			return db.Where("properties.status = ?", models.StatusApproved)
		}
	}
}

package services

import (
	"context"
	"encoding/json"
	"time"

	"eskan-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditRecorder writes the activity log and the property audit trail.
// Writes are best-effort: failures are logged and never returned.
type AuditRecorder struct {
	db  *gorm.DB
	log logrus.FieldLogger
	now func() time.Time
}

func NewAuditRecorder(db *gorm.DB, log logrus.FieldLogger) *AuditRecorder {
	return &AuditRecorder{db: db, log: log, now: utcNow}
}

type ActivityEntry struct {
	ActorID     *uint
	Action      models.ActivityAction
	ContentType string
	ObjectID    string
	ObjectName  string
	Description string
	IPAddress   string
	// OncePerDay skips the write when the same action on the same object
	// was already logged today.
	OncePerDay bool
}

type AuditEntry struct {
	Property   *models.Property
	Action     models.AuditAction
	ActorID    *uint
	Before     datatypes.JSON
	After      datatypes.JSON
	Notes      string
	IPAddress  string
	OncePerDay bool
}

func (r *AuditRecorder) Activity(ctx context.Context, e ActivityEntry) {
	now := r.now()
	db := r.db.WithContext(ctx)

	if e.OncePerDay {
		var count int64
		err := db.Model(&models.ActivityLog{}).
			Where("action = ? AND object_id = ? AND timestamp >= ?", e.Action, e.ObjectID, startOfDay(now)).
			Count(&count).Error
		if err == nil && count > 0 {
			return
		}
	}

	entry := models.ActivityLog{
		UserID:      e.ActorID,
		Action:      e.Action,
		ContentType: e.ContentType,
		ObjectID:    e.ObjectID,
		ObjectName:  e.ObjectName,
		Description: e.Description,
		IPAddress:   e.IPAddress,
		Timestamp:   now,
	}
	if err := db.Create(&entry).Error; err != nil {
		r.log.WithFields(logrus.Fields{
			"action":    e.Action,
			"object_id": e.ObjectID,
			"error":     err,
		}).Warn("failed to write activity log")
	}
}

func (r *AuditRecorder) PropertyAudit(ctx context.Context, e AuditEntry) {
	now := r.now()
	db := r.db.WithContext(ctx)

	if e.OncePerDay {
		var count int64
		err := db.Model(&models.PropertyAuditTrail{}).
			Where("action = ? AND property_id = ? AND timestamp >= ?", e.Action, e.Property.ID, startOfDay(now)).
			Count(&count).Error
		if err == nil && count > 0 {
			return
		}
	}

	entry := models.PropertyAuditTrail{
		PropertyID:    e.Property.ID,
		PropertyName:  e.Property.Name,
		Action:        e.Action,
		PerformedByID: e.ActorID,
		BeforeData:    orEmpty(e.Before),
		AfterData:     orEmpty(e.After),
		Notes:         e.Notes,
		IPAddress:     e.IPAddress,
		Timestamp:     now,
	}
	if err := db.Create(&entry).Error; err != nil {
		r.log.WithFields(logrus.Fields{
			"action":      e.Action,
			"property_id": e.Property.ID,
			"error":       err,
		}).Warn("failed to write property audit trail")
	}
}

// Snapshot serializes the listing's own columns and media.
func Snapshot(p *models.Property) datatypes.JSON {
	c := *p
	c.Owner, c.ApprovedBy, c.DeletedBy = nil, nil, nil
	data, err := json.Marshal(c)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

func orEmpty(v datatypes.JSON) datatypes.JSON {
	if len(v) == 0 {
		return datatypes.JSON("{}")
	}
	return v
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eskan-backend/internal/models"

	"gorm.io/gorm"
)

const recentNotifications = 10

// NotificationService is the recipient's view of their notifications.
// Every method is scoped to the viewer's profile.
type NotificationService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db, now: utcNow}
}

type NotificationQuery struct {
	Type   string
	IsRead *bool
	Page   int
	Limit  int
}

func (s *NotificationService) scope(ctx context.Context, v *Viewer) (*gorm.DB, error) {
	if !v.Authenticated() || v.ProfileID() == 0 {
		return nil, Unauthorized("authentication required")
	}
	return s.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", v.ProfileID()), nil
}

func (s *NotificationService) List(ctx context.Context, v *Viewer, q NotificationQuery) ([]models.Notification, int64, error) {
	if _, err := s.scope(ctx, v); err != nil {
		return nil, 0, err
	}
	page, limit := Paginate(q.Page, q.Limit)

	query := func() *gorm.DB {
		db, _ := s.scope(ctx, v)
		if q.Type != "" {
			db = db.Where("notification_type = ?", q.Type)
		}
		if q.IsRead != nil {
			db = db.Where("is_read = ?", *q.IsRead)
		}
		return db
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	var notes []models.Notification
	err := query().
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&notes).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notes, total, nil
}

func (s *NotificationService) Get(ctx context.Context, v *Viewer, id uint) (*models.Notification, error) {
	db, err := s.scope(ctx, v)
	if err != nil {
		return nil, err
	}
	var note models.Notification
	err = db.Where("id = ?", id).First(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("notification not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load notification: %w", err)
	}
	return &note, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, v *Viewer, id uint) (*models.Notification, error) {
	note, err := s.Get(ctx, v, id)
	if err != nil {
		return nil, err
	}
	if note.IsRead {
		return note, nil
	}
	now := s.now()
	note.IsRead = true
	note.ReadAt = &now
	if err := s.db.WithContext(ctx).Model(note).Select("IsRead", "ReadAt").Updates(note).Error; err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return note, nil
}

// MarkAllRead returns how many notifications changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, v *Viewer) (int64, error) {
	db, err := s.scope(ctx, v)
	if err != nil {
		return 0, err
	}
	res := db.Where("is_read = ?", false).Updates(map[string]interface{}{"is_read": true, "read_at": s.now()})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, v *Viewer) (int64, error) {
	db, err := s.scope(ctx, v)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := db.Where("is_read = ?", false).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationService) Recent(ctx context.Context, v *Viewer) ([]models.Notification, error) {
	db, err := s.scope(ctx, v)
	if err != nil {
		return nil, err
	}
	var notes []models.Notification
	if err := db.Order("created_at DESC").Limit(recentNotifications).Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notes, nil
}

func (s *NotificationService) Delete(ctx context.Context, v *Viewer, id uint) error {
	note, err := s.Get(ctx, v, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(note).Error; err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

// ClearAll deletes every notification of the viewer and returns how many
// were removed.
func (s *NotificationService) ClearAll(ctx context.Context, v *Viewer) (int64, error) {
	if _, err := s.scope(ctx, v); err != nil {
		return 0, err
	}
	res := s.db.WithContext(ctx).Where("recipient_id = ?", v.ProfileID()).Delete(&models.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clear notifications: %w", res.Error)
	}
	return res.RowsAffected, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eskan-backend/internal/mailer"
	"eskan-backend/internal/models"
	"eskan-backend/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CatalogService owns the small reference tables: areas, offers and the
// contact inbox, plus the admin view of the activity log.
type CatalogService struct {
	db        *gorm.DB
	notifier  *Notifier
	mail      mailer.Mailer
	templates mailer.Templates
	log       logrus.FieldLogger
	now       func() time.Time
}

type CatalogDeps struct {
	Notifier  *Notifier
	Mailer    mailer.Mailer
	Templates mailer.Templates
	Logger    logrus.FieldLogger
}

func NewCatalogService(db *gorm.DB, deps CatalogDeps) *CatalogService {
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NewNotifier(db, log)
	}
	return &CatalogService{
		db:        db,
		notifier:  notifier,
		mail:      deps.Mailer,
		templates: deps.Templates,
		log:       log,
		now:       utcNow,
	}
}

// AreaWithCount is an area plus its live approved listing count.
type AreaWithCount struct {
	models.Area
	PropertyCount int64 `json:"property_count"`
}

type AreaInput struct {
	Name   string `json:"name" binding:"required,max=100"`
	NameEn string `json:"name_en" binding:"max=100"`
}

func (s *CatalogService) Areas(ctx context.Context) ([]AreaWithCount, error) {
	var areas []AreaWithCount
	err := s.db.WithContext(ctx).
		Table("areas").
		Select("areas.*, COUNT(properties.id) AS property_count").
		Joins("LEFT JOIN properties ON properties.area_id = areas.id AND properties.is_deleted = ? AND properties.status = ?",
			false, models.StatusApproved).
		Group("areas.id").
		Order("areas.name").
		Scan(&areas).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list areas: %w", err)
	}
	return areas, nil
}

func (s *CatalogService) CreateArea(ctx context.Context, v *Viewer, in AreaInput) (*models.Area, error) {
	if err := requireAdmin(v); err != nil {
		return nil, err
	}
	area := &models.Area{Name: strings.TrimSpace(in.Name), NameEn: strings.TrimSpace(in.NameEn)}
	if err := s.checkAreaName(ctx, area.Name, 0); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(area).Error; err != nil {
		return nil, fmt.Errorf("failed to create area: %w", err)
	}
	return area, nil
}

func (s *CatalogService) UpdateArea(ctx context.Context, v *Viewer, id uint, in AreaInput) (*models.Area, error) {
	if err := requireAdmin(v); err != nil {
		return nil, err
	}
	area, err := s.area(ctx, id)
	if err != nil {
		return nil, err
	}
	area.Name = strings.TrimSpace(in.Name)
	area.NameEn = strings.TrimSpace(in.NameEn)
	if err := s.checkAreaName(ctx, area.Name, area.ID); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(area).Select("Name", "NameEn").Updates(area).Error; err != nil {
		return nil, fmt.Errorf("failed to update area: %w", err)
	}
	return area, nil
}

// DeleteArea detaches the area's listings before removing it so that the
// behavior does not depend on the database enforcing foreign keys.
func (s *CatalogService) DeleteArea(ctx context.Context, v *Viewer, id uint) error {
	if err := requireAdmin(v); err != nil {
		return err
	}
	area, err := s.area(ctx, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Property{}).Where("area_id = ?", area.ID).Update("area_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach listings: %w", err)
		}
		if err := tx.Delete(area).Error; err != nil {
			return fmt.Errorf("failed to delete area: %w", err)
		}
		return nil
	})
}

func (s *CatalogService) area(ctx context.Context, id uint) (*models.Area, error) {
	var area models.Area
	err := s.db.WithContext(ctx).First(&area, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("area not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load area: %w", err)
	}
	return &area, nil
}

func (s *CatalogService) checkAreaName(ctx context.Context, name string, except uint) error {
	if name == "" {
		return FieldErrors(map[string]string{"name": "required"})
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Area{}).Where("name = ? AND id <> ?", name, except).Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check area name: %w", err)
	}
	if count > 0 {
		return FieldErrors(map[string]string{"name": "area already exists"})
	}
	return nil
}

type OfferInput struct {
	Title              string
	Description        string
	DiscountPercentage int
	TargetAudience     string
	StartDate          time.Time
	EndDate            *time.Time
	IsActive           bool
}

var offerOrdering = map[string]string{
	"created_at":           "created_at ASC",
	"-created_at":          "created_at DESC",
	"discount_percentage":  "discount_percentage ASC",
	"-discount_percentage": "discount_percentage DESC",
}

func (s *CatalogService) activeOffers(ctx context.Context, ordering string) *gorm.DB {
	now := s.now()
	order, ok := offerOrdering[ordering]
	if !ok {
		order = offerOrdering["-created_at"]
	}
	return s.db.WithContext(ctx).Model(&models.Offer{}).
		Where("is_active = ? AND start_date <= ?", true, now).
		Where("(end_date IS NULL OR end_date >= ?)", now).
		Order(order)
}

// ActiveOffers lists offers running now.
func (s *CatalogService) ActiveOffers(ctx context.Context, ordering string) ([]models.Offer, error) {
	var offers []models.Offer
	if err := s.activeOffers(ctx, ordering).Find(&offers).Error; err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	return offers, nil
}

// OffersFor lists running offers aimed at audience or at everyone.
func (s *CatalogService) OffersFor(ctx context.Context, audience string) ([]models.Offer, error) {
	audience = strings.TrimSpace(audience)
	if audience == "" {
		audience = models.AudienceAll
	}
	var offers []models.Offer
	err := s.activeOffers(ctx, "").
		Where("(target_audience = ? OR target_audience = ?)", audience, models.AudienceAll).
		Find(&offers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	return offers, nil
}

func (s *CatalogService) CreateOffer(ctx context.Context, v *Viewer, in OfferInput) (*models.Offer, error) {
	if err := requireAdmin(v); err != nil {
		return nil, err
	}
	offer := &models.Offer{}
	if err := applyOffer(offer, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(offer).Error; err != nil {
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}
	return offer, nil
}

func (s *CatalogService) UpdateOffer(ctx context.Context, v *Viewer, id uint, in OfferInput) (*models.Offer, error) {
	if err := requireAdmin(v); err != nil {
		return nil, err
	}
	offer, err := s.offer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyOffer(offer, in); err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(offer).
		Select("Title", "Description", "DiscountPercentage", "TargetAudience", "StartDate", "EndDate", "IsActive").
		Updates(offer).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update offer: %w", err)
	}
	return offer, nil
}

func (s *CatalogService) DeleteOffer(ctx context.Context, v *Viewer, id uint) error {
	if err := requireAdmin(v); err != nil {
		return err
	}
	offer, err := s.offer(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(offer).Error; err != nil {
		return fmt.Errorf("failed to delete offer: %w", err)
	}
	return nil
}

func (s *CatalogService) offer(ctx context.Context, id uint) (*models.Offer, error) {
	var offer models.Offer
	err := s.db.WithContext(ctx).First(&offer, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("offer not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load offer: %w", err)
	}
	return &offer, nil
}

func applyOffer(o *models.Offer, in OfferInput) error {
	fields := map[string]string{}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		fields["title"] = "required"
	}
	if in.DiscountPercentage < 0 || in.DiscountPercentage > 100 {
		fields["discount_percentage"] = "must be between 0 and 100"
	}
	if in.StartDate.IsZero() {
		fields["start_date"] = "required"
	}
	if in.EndDate != nil && !in.StartDate.IsZero() && in.EndDate.Before(in.StartDate) {
		fields["end_date"] = "must not be before start_date"
	}
	if len(fields) > 0 {
		return FieldErrors(fields)
	}

	audience := strings.TrimSpace(in.TargetAudience)
	if audience == "" {
		audience = models.AudienceAll
	}
	o.Title = title
	o.Description = strings.TrimSpace(in.Description)
	o.DiscountPercentage = in.DiscountPercentage
	o.TargetAudience = audience
	o.StartDate = in.StartDate.UTC()
	o.EndDate = nil
	if in.EndDate != nil {
		end := in.EndDate.UTC()
		o.EndDate = &end
	}
	o.IsActive = in.IsActive
	return nil
}

type ContactInput struct {
	Name    string `json:"name" binding:"required,max=100"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone" binding:"max=20"`
	Subject string `json:"subject" binding:"max=200"`
	Message string `json:"message" binding:"required"`
}

// SubmitContact stores a public contact form message, forwards it to the
// support inbox and tells the admins.
func (s *CatalogService) SubmitContact(ctx context.Context, in ContactInput) (*models.ContactMessage, error) {
	msg := &models.ContactMessage{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Subject: strings.TrimSpace(in.Subject),
		Message: strings.TrimSpace(in.Message),
	}
	if msg.Name == "" || msg.Message == "" {
		return nil, Validation("name and message are required")
	}
	if strings.TrimSpace(in.Phone) != "" {
		if msg.Phone = utils.NormalizePhone(in.Phone); msg.Phone == "" {
			return nil, FieldErrors(map[string]string{"phone": "invalid phone number"})
		}
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("failed to store contact message: %w", err)
	}

	if s.mail != nil && s.templates.SupportEmail != "" {
		mail := s.templates.ContactReceived(s.templates.SupportEmail, msg.Name, msg.Email, msg.Phone, msg.Subject, msg.Message)
		if err := s.mail.Send(ctx, mail); err != nil {
			s.log.WithFields(logrus.Fields{"contact_id": msg.ID, "error": err}).Warn("failed to forward contact message")
		}
	}
	s.notifier.ContactReceived(ctx, msg)
	return msg, nil
}

// Contacts lists the inbox newest first. unreadOnly narrows it to unread
// messages.
func (s *CatalogService) Contacts(ctx context.Context, v *Viewer, unreadOnly bool) ([]models.ContactMessage, error) {
	if err := requireAdmin(v); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx).Order("created_at DESC")
	if unreadOnly {
		db = db.Where("is_read = ?", false)
	}
	var messages []models.ContactMessage
	if err := db.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to list contact messages: %w", err)
	}
	return messages, nil
}

func (s *CatalogService) Contact(ctx context.Context, v *Viewer, id uint) (*models.ContactMessage, error) {
	if err := requireAdmin(v); err != nil {
		return nil, err
	}
	var msg models.ContactMessage
	err := s.db.WithContext(ctx).First(&msg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("contact message not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load contact message: %w", err)
	}
	return &msg, nil
}

func (s *CatalogService) MarkContactRead(ctx context.Context, v *Viewer, id uint) error {
	return s.flagContact(ctx, v, id, "is_read")
}

func (s *CatalogService) ArchiveContact(ctx context.Context, v *Viewer, id uint) error {
	return s.flagContact(ctx, v, id, "is_archived")
}

func (s *CatalogService) DeleteContact(ctx context.Context, v *Viewer, id uint) error {
	msg, err := s.Contact(ctx, v, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(msg).Error; err != nil {
		return fmt.Errorf("failed to delete contact message: %w", err)
	}
	return nil
}

func (s *CatalogService) flagContact(ctx context.Context, v *Viewer, id uint, column string) error {
	msg, err := s.Contact(ctx, v, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(msg).Update(column, true).Error; err != nil {
		return fmt.Errorf("failed to update contact message: %w", err)
	}
	return nil
}

type ActivityQuery struct {
	Action   string
	Username string
	From     *time.Time
	To       *time.Time
	Search   string
	Ordering string
	Page     int
	Limit    int
}

var activityOrdering = map[string]string{
	"timestamp":  "activity_logs.timestamp ASC",
	"-timestamp": "activity_logs.timestamp DESC",
	"action":     "activity_logs.action ASC",
	"-action":    "activity_logs.action DESC",
}

// ActivityLogs is the admin view of the activity log. To is inclusive of
// the whole day it names.
func (s *CatalogService) ActivityLogs(ctx context.Context, v *Viewer, q ActivityQuery) ([]models.ActivityLog, int64, error) {
	if err := requireAdmin(v); err != nil {
		return nil, 0, err
	}
	page, limit := Paginate(q.Page, q.Limit)
	order, ok := activityOrdering[q.Ordering]
	if !ok {
		order = activityOrdering["-timestamp"]
	}

	query := func() *gorm.DB {
		db := s.db.WithContext(ctx).Model(&models.ActivityLog{})
		if q.Action != "" {
			db = db.Where("activity_logs.action = ?", q.Action)
		}
		if q.Username != "" {
			db = db.Joins("JOIN users ON users.id = activity_logs.user_id").
				Where("users.username = ?", q.Username)
		}
		if q.From != nil {
			db = db.Where("activity_logs.timestamp >= ?", startOfDay(*q.From))
		}
		if q.To != nil {
			db = db.Where("activity_logs.timestamp < ?", startOfDay(*q.To).AddDate(0, 0, 1))
		}
		if term := strings.TrimSpace(q.Search); term != "" {
			like := "%" + strings.ToLower(term) + "%"
			db = db.Where("(LOWER(activity_logs.object_name) LIKE ? OR LOWER(activity_logs.description) LIKE ?)", like, like)
		}
		return db
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count activity: %w", err)
	}
	var logs []models.ActivityLog
	err := query().Preload("User").
		Order(order).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list activity: %w", err)
	}
	return logs, total, nil
}

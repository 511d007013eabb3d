package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"eskan-backend/internal/mailer"
	"eskan-backend/internal/models"
	"eskan-backend/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PropertyInput is what a lister may set on a new listing. Status and
// moderation fields are never taken from the caller.
type PropertyInput struct {
	Name          string
	AreaID        *uint
	Address       string
	Price         float64
	OriginalPrice *float64
	Discount      int
	Rooms         int
	Beds          int
	Bathrooms     int
	Size          float64
	Floor         int
	Furnished     bool
	UsageType     models.UsageType
	Description   string
	Contact       string
	Featured      bool
	// Latitude and Longitude are raw client values; invalid ones become null.
	Latitude  string
	Longitude string
}

// MediaUpload is one uploaded file, opened lazily.
type MediaUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// PropertyUpdate carries the only fields an admin may edit after submission.
type PropertyUpdate struct {
	Name    *string
	Address *string
	Contact *string
}

const (
	mediaImages = "images"
	mediaVideos = "videos"
)

// Submit creates a listing in the pending state on behalf of the viewer.
func (s *PropertyService) Submit(ctx context.Context, v *Viewer, in PropertyInput, images, videos []MediaUpload, ip string) (*models.Property, error) {
	if !v.Authenticated() {
		return nil, Unauthorized("authentication required")
	}
	if !v.CanListProperties() {
		return nil, Forbidden("only landlords, agents and offices can list properties")
	}
	if err := s.validateInput(ctx, &in); err != nil {
		return nil, err
	}
	if len(images)+len(videos) > 0 && s.media == nil {
		return nil, Validation("media uploads are not enabled")
	}

	now := s.now()
	ownerID := v.ProfileID()
	p := &models.Property{
		ID:            uuid.New(),
		Name:          in.Name,
		AreaID:        in.AreaID,
		Address:       strings.TrimSpace(in.Address),
		Price:         in.Price,
		OriginalPrice: in.OriginalPrice,
		Discount:      in.Discount,
		Rooms:         in.Rooms,
		Beds:          in.Beds,
		Bathrooms:     in.Bathrooms,
		Size:          in.Size,
		Floor:         in.Floor,
		Furnished:     in.Furnished,
		UsageType:     in.UsageType,
		Description:   in.Description,
		Contact:       in.Contact,
		Featured:      in.Featured && v.IsAdmin(),
		Latitude:      utils.ParseCoordinate(in.Latitude, utils.MaxLatitude),
		Longitude:     utils.ParseCoordinate(in.Longitude, utils.MaxLongitude),
		Status:        models.StatusPending,
		OwnerID:       &ownerID,
		SubmittedAt:   &now,
	}

	imageURLs, err := s.uploadMedia(ctx, p.ID, mediaImages, images)
	if err != nil {
		return nil, err
	}
	videoURLs, err := s.uploadMedia(ctx, p.ID, mediaVideos, videos)
	if err != nil {
		s.discardMedia(ctx, imageURLs)
		return nil, err
	}
	for i, url := range imageURLs {
		p.Images = append(p.Images, models.PropertyImage{URL: url, Order: i})
	}
	for i, url := range videoURLs {
		p.Videos = append(p.Videos, models.PropertyVideo{URL: url, Order: i})
	}

	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		s.discardMedia(ctx, append(imageURLs, videoURLs...))
		return nil, fmt.Errorf("failed to create property: %w", err)
	}

	created, err := s.loadAny(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	s.mailOwner(ctx, created, s.templates.PropertySubmitted)
	s.audit.Activity(ctx, ActivityEntry{
		ActorID:     v.UserID(),
		Action:      models.ActionCreateProperty,
		ContentType: "property",
		ObjectID:    created.ID.String(),
		ObjectName:  created.Name,
		Description: "Property submitted: " + created.Name,
		IPAddress:   ip,
	})
	s.audit.PropertyAudit(ctx, AuditEntry{
		Property:  created,
		Action:    models.AuditCreate,
		ActorID:   v.UserID(),
		After:     Snapshot(created),
		IPAddress: ip,
	})
	s.notifier.PropertySubmitted(ctx, created)

	s.log.WithFields(logrus.Fields{"property_id": created.ID, "owner_id": ownerID}).Info("property submitted")
	return created, nil
}

func (s *PropertyService) Approve(ctx context.Context, v *Viewer, id, notes, ip string) (*models.Property, error) {
	if err := requireAdmin(v); err != nil {
		return nil, err
	}
	p, err := s.loadForModeration(ctx, id, "approve")
	if err != nil {
		return nil, err
	}
	before := Snapshot(p)

	now := s.now()
	p.Status = models.StatusApproved
	p.ApprovedByID = v.UserID()
	p.ApprovedAt = &now
	p.ApprovalNotes = strings.TrimSpace(notes)
	if err := s.save(ctx, p, "Status", "ApprovedByID", "ApprovedAt", "ApprovalNotes"); err != nil {
		return nil, err
	}

	s.mailOwner(ctx, p, s.templates.PropertyApproved)
	s.audit.PropertyAudit(ctx, AuditEntry{
		Property:  p,
		Action:    models.AuditApprove,
		ActorID:   v.UserID(),
		Before:    before,
		After:     Snapshot(p),
		Notes:     p.ApprovalNotes,
		IPAddress: ip,
	})
	s.audit.Activity(ctx, ActivityEntry{
		ActorID:     v.UserID(),
		Action:      models.ActionApproveProperty,
		ContentType: "property",
		ObjectID:    p.ID.String(),
		ObjectName:  p.Name,
		Description: "Property approved: " + p.Name,
		IPAddress:   ip,
	})
	s.index(ctx, p)
	s.notifier.PropertyApproved(ctx, p)
	return p, nil
}

// Reject requires a reason; without one the listing is left untouched.
func (s *PropertyService) Reject(ctx context.Context, v *Viewer, id, notes, ip string) (*models.Property, error) {
	if err := requireAdmin(v); err != nil {
		return nil, err
	}
	p, err := s.loadForModeration(ctx, id, "reject")
	if err != nil {
		return nil, err
	}
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, &Error{
			Kind:    KindValidation,
			Message: "a rejection reason is required",
			Fields:  map[string]string{"approval_notes": "required"},
		}
	}
	before := Snapshot(p)

	now := s.now()
	p.Status = models.StatusRejected
	p.ApprovedByID = v.UserID()
	p.RejectedAt = &now
	p.ApprovalNotes = notes
	if err := s.save(ctx, p, "Status", "ApprovedByID", "RejectedAt", "ApprovalNotes"); err != nil {
		return nil, err
	}

	s.mailOwner(ctx, p, s.templates.PropertyRejected)
	s.notifier.PropertyRejected(ctx, p)
	s.audit.PropertyAudit(ctx, AuditEntry{
		Property:  p,
		Action:    models.AuditReject,
		ActorID:   v.UserID(),
		Before:    before,
		After:     Snapshot(p),
		Notes:     notes,
		IPAddress: ip,
	})
	s.audit.Activity(ctx, ActivityEntry{
		ActorID:     v.UserID(),
		Action:      models.ActionRejectProperty,
		ContentType: "property",
		ObjectID:    p.ID.String(),
		ObjectName:  p.Name,
		Description: "Property rejected: " + p.Name,
		IPAddress:   ip,
	})
	s.unindex(ctx, p)
	return p, nil
}

// Resubmit sends a rejected listing back to the review queue.
func (s *PropertyService) Resubmit(ctx context.Context, v *Viewer, id string) (*models.Property, error) {
	if !v.Authenticated() {
		return nil, Unauthorized("authentication required")
	}
	p, err := s.loadAny(ctx, parseIDOrNil(id))
	if err != nil {
		return nil, err
	}
	if !v.Owns(p) && !v.IsAdmin() {
		if p.IsDeleted || p.Status != models.StatusApproved {
			return nil, NotFound("property not found")
		}
		return nil, Forbidden("you cannot modify this property")
	}
	if p.IsDeleted {
		return nil, Conflict("a deleted property cannot be resubmitted")
	}
	if p.Status != models.StatusRejected {
		return nil, Conflict("only rejected properties can be resubmitted")
	}

	now := s.now()
	p.Status = models.StatusPending
	p.SubmittedAt = &now
	p.ApprovedByID = nil
	p.ApprovedBy = nil
	p.ApprovalNotes = ""
	if err := s.save(ctx, p, "Status", "SubmittedAt", "ApprovedByID", "ApprovalNotes"); err != nil {
		return nil, err
	}
	s.log.WithField("property_id", p.ID).Info("property resubmitted")
	return p, nil
}

// SoftDelete hides the listing from every normal query. The status is kept.
func (s *PropertyService) SoftDelete(ctx context.Context, v *Viewer, id, notes, ip string) error {
	if !v.Authenticated() {
		return Unauthorized("authentication required")
	}
	p, err := s.load(ctx, id, Visible(v, ViewDefault))
	if err != nil {
		return err
	}
	if !v.Owns(p) && !v.IsAdmin() {
		return Forbidden("you cannot delete this property")
	}

	s.audit.PropertyAudit(ctx, AuditEntry{
		Property:   p,
		Action:     models.AuditDelete,
		ActorID:    v.UserID(),
		Before:     Snapshot(p),
		Notes:      notes,
		IPAddress:  ip,
		OncePerDay: true,
	})

	now := s.now()
	p.IsDeleted = true
	p.DeletedAt = &now
	p.DeletedByID = v.UserID()
	if err := s.save(ctx, p, "IsDeleted", "DeletedAt", "DeletedByID"); err != nil {
		return err
	}

	s.audit.Activity(ctx, ActivityEntry{
		ActorID:     v.UserID(),
		Action:      models.ActionDeleteProperty,
		ContentType: "property",
		ObjectID:    p.ID.String(),
		ObjectName:  p.Name,
		Description: "Property deleted: " + p.Name,
		IPAddress:   ip,
		OncePerDay:  true,
	})
	s.unindex(ctx, p)
	return nil
}

func (s *PropertyService) Restore(ctx context.Context, v *Viewer, id, ip string) (*models.Property, error) {
	if err := requireAdmin(v); err != nil {
		return nil, err
	}
	p, err := s.loadAny(ctx, parseIDOrNil(id))
	if err != nil {
		return nil, err
	}
	if !p.IsDeleted {
		return nil, Conflict("property is not deleted")
	}
	before := Snapshot(p)

	p.IsDeleted = false
	p.DeletedAt = nil
	p.DeletedByID = nil
	p.DeletedBy = nil
	if err := s.save(ctx, p, "IsDeleted", "DeletedAt", "DeletedByID"); err != nil {
		return nil, err
	}

	s.audit.PropertyAudit(ctx, AuditEntry{
		Property:  p,
		Action:    models.AuditRestore,
		ActorID:   v.UserID(),
		Before:    before,
		After:     Snapshot(p),
		IPAddress: ip,
	})
	if p.Status == models.StatusApproved {
		s.index(ctx, p)
	}
	return p, nil
}

// Update applies the admin allow-list edit of name, address and contact.
func (s *PropertyService) Update(ctx context.Context, v *Viewer, id string, in PropertyUpdate, ip string) (*models.Property, error) {
	if err := requireAdmin(v); err != nil {
		return nil, err
	}
	p, err := s.load(ctx, id, Visible(v, ViewDefault))
	if err != nil {
		return nil, err
	}

	var fields []string
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, FieldErrors(map[string]string{"name": "required"})
		}
		p.Name = name
		fields = append(fields, "Name")
	}
	if in.Address != nil {
		p.Address = strings.TrimSpace(*in.Address)
		fields = append(fields, "Address")
	}
	if in.Contact != nil {
		contact, ok := normalizeContact(*in.Contact)
		if !ok {
			return nil, FieldErrors(map[string]string{"contact": "invalid phone number"})
		}
		p.Contact = contact
		fields = append(fields, "Contact")
	}
	if len(fields) == 0 {
		return p, nil
	}
	if err := s.save(ctx, p, fields...); err != nil {
		return nil, err
	}

	s.audit.Activity(ctx, ActivityEntry{
		ActorID:     v.UserID(),
		Action:      models.ActionUpdateProperty,
		ContentType: "property",
		ObjectID:    p.ID.String(),
		ObjectName:  p.Name,
		Description: "Property updated: " + p.Name,
		IPAddress:   ip,
	})
	if p.Status == models.StatusApproved {
		s.index(ctx, p)
	}
	return p, nil
}

func (s *PropertyService) validateInput(ctx context.Context, in *PropertyInput) error {
	fields := map[string]string{}

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		fields["name"] = "required"
	}
	if in.Price < 0 {
		fields["price"] = "must not be negative"
	}
	if in.OriginalPrice != nil && *in.OriginalPrice < 0 {
		fields["original_price"] = "must not be negative"
	}
	if in.Discount < 0 || in.Discount > 100 {
		fields["discount"] = "must be between 0 and 100"
	}
	if in.Rooms < 0 || in.Beds < 0 || in.Bathrooms < 0 {
		fields["rooms"] = "room counts must not be negative"
	}
	if in.Size < 0 {
		fields["size"] = "must not be negative"
	}
	if !in.UsageType.Valid() {
		fields["usage_type"] = "unknown usage type"
	}
	if contact, ok := normalizeContact(in.Contact); ok {
		in.Contact = contact
	} else {
		fields["contact"] = "invalid phone number"
	}
	if in.AreaID != nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Area{}).Where("id = ?", *in.AreaID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check area: %w", err)
		}
		if count == 0 {
			fields["area_id"] = "unknown area"
		}
	}

	if len(fields) > 0 {
		return FieldErrors(fields)
	}
	return nil
}

// normalizeContact accepts an empty contact as-is.
func normalizeContact(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", true
	}
	normalized := utils.NormalizePhone(raw)
	return normalized, normalized != ""
}

func (s *PropertyService) uploadMedia(ctx context.Context, propertyID uuid.UUID, kind string, files []MediaUpload) ([]string, error) {
	urls := make([]string, 0, len(files))
	for i, f := range files {
		url, err := s.uploadOne(ctx, MediaKey(kind, propertyID, i, f.Filename), f)
		if err != nil {
			s.discardMedia(ctx, urls)
			return nil, fmt.Errorf("failed to upload %s: %w", f.Filename, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (s *PropertyService) uploadOne(ctx context.Context, key string, f MediaUpload) (string, error) {
	body, err := f.Open()
	if err != nil {
		return "", err
	}
	defer body.Close()
	return s.media.Upload(ctx, key, body, f.Size, f.ContentType)
}

func (s *PropertyService) discardMedia(ctx context.Context, urls []string) {
	for _, url := range urls {
		if err := s.media.Delete(ctx, url); err != nil {
			s.log.WithFields(logrus.Fields{"url": url, "error": err}).Warn("failed to remove orphaned media")
		}
	}
}

func (s *PropertyService) loadForModeration(ctx context.Context, id, verb string) (*models.Property, error) {
	p, err := s.loadAny(ctx, parseIDOrNil(id))
	if err != nil {
		return nil, err
	}
	if p.IsDeleted {
		return nil, Conflict(fmt.Sprintf("cannot %s a deleted property", verb))
	}
	return p, nil
}

// mailOwner renders a mail for the listing's owner and sends it best-effort.
func (s *PropertyService) mailOwner(ctx context.Context, p *models.Property, render func(string, mailer.Listing) mailer.Message) {
	if s.mail == nil || p.OwnerID == nil {
		return
	}
	var owner models.User
	err := s.db.WithContext(ctx).
		Preload("Profile").
		Joins("JOIN user_profiles ON user_profiles.user_id = users.id").
		Where("user_profiles.id = ?", *p.OwnerID).
		First(&owner).Error
	if err != nil {
		s.log.WithFields(logrus.Fields{"property_id": p.ID, "error": err}).Warn("failed to load property owner for mail")
		return
	}
	to := owner.Email
	if to == "" && owner.Profile != nil {
		to = owner.Profile.Email
	}
	if to == "" {
		return
	}

	listing := mailer.Listing{
		ID:          p.ID.String(),
		Name:        p.Name,
		Price:       p.Price,
		OwnerName:   owner.DisplayName(),
		Notes:       p.ApprovalNotes,
		SubmittedAt: p.SubmittedAt,
	}
	if p.Area != nil {
		listing.Area = p.Area.Name
	}
	if err := s.mail.Send(ctx, render(to, listing)); err != nil {
		s.log.WithFields(logrus.Fields{"property_id": p.ID, "to": to, "error": err}).Warn("failed to send property mail")
	}
}

func (s *PropertyService) index(ctx context.Context, p *models.Property) {
	if err := s.indexer.Upsert(ctx, p); err != nil {
		s.log.WithFields(logrus.Fields{"property_id": p.ID, "error": err}).Warn("failed to index property")
	}
}

func (s *PropertyService) unindex(ctx context.Context, p *models.Property) {
	if err := s.indexer.Remove(ctx, p.ID.String()); err != nil {
		s.log.WithFields(logrus.Fields{"property_id": p.ID, "error": err}).Warn("failed to remove property from index")
	}
}

func requireAdmin(v *Viewer) error {
	if !v.Authenticated() {
		return Unauthorized("authentication required")
	}
	if !v.IsAdmin() {
		return Forbidden("admin access required")
	}
	return nil
}

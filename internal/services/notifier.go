package services

import (
	"context"
	"fmt"
	"time"

	"eskan-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ViewMilestones are the exact view counts that notify a listing's owner.
// A counter that skips a value never notifies for it.
var ViewMilestones = []int{50, 100, 200, 500, 1000, 2000}

// Deliverer pushes a stored notification over a live channel.
type Deliverer interface {
	Deliver(ctx context.Context, n *models.Notification, recipient *models.UserProfile) error
}

// Notifier stores per-recipient notifications and fans them out to the
// configured deliverers. Every method is best-effort.
type Notifier struct {
	db         *gorm.DB
	log        logrus.FieldLogger
	deliverers []Deliverer
	now        func() time.Time
}

func NewNotifier(db *gorm.DB, log logrus.FieldLogger, deliverers ...Deliverer) *Notifier {
	return &Notifier{db: db, log: log, deliverers: deliverers, now: utcNow}
}

// UserRegistered tells every admin about a new account.
func (n *Notifier) UserRegistered(ctx context.Context, user *models.User, profile *models.UserProfile) {
	userID := user.ID
	n.notifyAdmins(ctx, models.Notification{
		NotificationType: models.NotificationNewUser,
		Title:            "New user registered",
		Message:          fmt.Sprintf("%s registered as %s", user.Username, profile.UserType),
		RelatedUserID:    &userID,
	})
}

func (n *Notifier) ContactReceived(ctx context.Context, msg *models.ContactMessage) {
	n.notifyAdmins(ctx, models.Notification{
		NotificationType: models.NotificationNewContact,
		Title:            "New contact message",
		Message:          fmt.Sprintf("%s: %s", msg.Name, msg.Subject),
	})
}

func (n *Notifier) PropertyRejected(ctx context.Context, p *models.Property) {
	if p.OwnerID == nil {
		return
	}
	id := p.ID
	n.notify(ctx, *p.OwnerID, models.Notification{
		NotificationType:  models.NotificationPropertyRejected,
		Title:             "Property rejected",
		Message:           fmt.Sprintf("Your property %q was rejected: %s", p.Name, p.ApprovalNotes),
		RelatedPropertyID: &id,
	})
}

// PropertyApproved is intentionally silent; owners learn about approval by email.
func (n *Notifier) PropertyApproved(context.Context, *models.Property) {}

// PropertySubmitted is intentionally silent; admins watch the pending queue.
func (n *Notifier) PropertySubmitted(context.Context, *models.Property) {}

// ViewCountChanged notifies the owner when views land exactly on a milestone.
func (n *Notifier) ViewCountChanged(ctx context.Context, p *models.Property) {
	if p.OwnerID == nil || !IsViewMilestone(p.ViewCount) {
		return
	}
	id := p.ID
	n.notify(ctx, *p.OwnerID, models.Notification{
		NotificationType:  models.NotificationViewMilestone,
		Title:             "Your property is getting attention",
		Message:           fmt.Sprintf("%q reached %d views", p.Name, p.ViewCount),
		RelatedPropertyID: &id,
	})
}

func IsViewMilestone(count int) bool {
	for _, m := range ViewMilestones {
		if count == m {
			return true
		}
	}
	return false
}

func (n *Notifier) notifyAdmins(ctx context.Context, tmpl models.Notification) {
	var admins []models.UserProfile
	err := n.db.WithContext(ctx).
		Joins("JOIN users ON users.id = user_profiles.user_id").
		Where("user_profiles.user_type = ? OR users.is_staff = ?", models.UserTypeAdmin, true).
		Find(&admins).Error
	if err != nil {
		n.log.WithError(err).Warn("failed to load admin recipients")
		return
	}
	for i := range admins {
		n.send(ctx, &admins[i], tmpl)
	}
}

func (n *Notifier) notify(ctx context.Context, recipientID uint, tmpl models.Notification) {
	var recipient models.UserProfile
	if err := n.db.WithContext(ctx).First(&recipient, recipientID).Error; err != nil {
		n.log.WithFields(logrus.Fields{"recipient_id": recipientID, "error": err}).
			Warn("failed to load notification recipient")
		return
	}
	n.send(ctx, &recipient, tmpl)
}

func (n *Notifier) send(ctx context.Context, recipient *models.UserProfile, tmpl models.Notification) {
	note := tmpl
	note.RecipientID = recipient.ID
	note.CreatedAt = n.now()
	if err := n.db.WithContext(ctx).Create(&note).Error; err != nil {
		n.log.WithFields(logrus.Fields{
			"recipient_id": recipient.ID,
			"type":         note.NotificationType,
			"error":        err,
		}).Warn("failed to store notification")
		return
	}
	for _, d := range n.deliverers {
		if err := d.Deliver(ctx, &note, recipient); err != nil {
			n.log.WithFields(logrus.Fields{
				"notification_id": note.ID,
				"error":           err,
			}).Warn("failed to deliver notification")
		}
	}
}

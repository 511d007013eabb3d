package services

import (
	"context"
	"testing"

	"eskan-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type moderationFixture struct {
	db       *gorm.DB
	svc      *PropertyService
	mail     *fakeMailer
	media    *fakeMedia
	indexer  *fakeIndexer
	push     *fakeDeliverer
	admin    *Viewer
	landlord *Viewer
	tenant   *Viewer
}

func newModerationFixture(t *testing.T) *moderationFixture {
	t.Helper()
	db := newTestDB(t)
	log := newTestLogger()
	f := &moderationFixture{
		db:      db,
		mail:    &fakeMailer{},
		media:   &fakeMedia{},
		indexer: newFakeIndexer(),
		push:    &fakeDeliverer{},
	}
	f.svc = NewPropertyService(db, PropertyDeps{
		Notifier: NewNotifier(db, log, f.push),
		Mailer:   f.mail,
		Media:    f.media,
		Indexer:  f.indexer,
		Logger:   log,
	})
	f.admin = createViewer(t, db, "admin", models.UserTypeAdmin)
	f.landlord = createViewer(t, db, "landlord", models.UserTypeLandlord)
	f.tenant = createViewer(t, db, "tenant", models.UserTypeTenant)
	return f
}

func TestModerationRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	zamalek := createArea(t, f.db, "Zamalek")

	listing, err := f.svc.Submit(ctx, f.landlord, PropertyInput{
		Name:   "A",
		AreaID: &zamalek.ID,
		Price:  100000,
	}, nil, nil, "198.51.100.1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, listing.Status)
	require.NotNil(t, listing.SubmittedAt)
	id := listing.ID.String()

	rejected, err := f.svc.Reject(ctx, f.admin, id, "incomplete info", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.NotNil(t, rejected.RejectedAt)

	public, total, err := f.svc.List(ctx, nil, ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, public)
	assert.Zero(t, total)

	own, err := f.svc.Get(ctx, f.landlord, id, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, own.Status)
	assert.Equal(t, "incomplete info", own.ApprovalNotes)

	resubmitted, err := f.svc.Resubmit(ctx, f.landlord, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, resubmitted.Status)
	assert.Empty(t, resubmitted.ApprovalNotes)
	assert.Nil(t, resubmitted.ApprovedByID)

	approved, err := f.svc.Approve(ctx, f.admin, id, "ok", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	assert.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, "ok", approved.ApprovalNotes)

	public, total, err = f.svc.List(ctx, nil, ListQuery{})
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, listing.ID, public[0].ID)
	require.NotNil(t, public[0].Area)
	assert.Equal(t, "Zamalek", public[0].Area.Name)

	assert.Equal(t, []string{
		"Property received: A",
		"Property rejected: A",
		"Property approved: A",
	}, f.mail.subjects())
	assert.True(t, f.indexer.upserted[id])

	var actions []string
	require.NoError(t, f.db.Model(&models.PropertyAuditTrail{}).Order("id").Pluck("action", &actions).Error)
	assert.Equal(t, []string{"create", "reject", "approve"}, actions)

	var rejections []models.Notification
	require.NoError(t, f.db.Where("notification_type = ?", models.NotificationPropertyRejected).Find(&rejections).Error)
	require.Len(t, rejections, 1)
	assert.Equal(t, f.landlord.ProfileID(), rejections[0].RecipientID)
	assert.Len(t, f.push.delivered, 1)
}

func TestSubmitRoles(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	in := PropertyInput{Name: "flat", Price: 10}

	_, err := f.svc.Submit(ctx, nil, in, nil, nil, "")
	assert.Equal(t, KindUnauthorized, KindOf(err))

	_, err = f.svc.Submit(ctx, f.tenant, in, nil, nil, "")
	assert.Equal(t, KindForbidden, KindOf(err))

	in.Featured = true
	p, err := f.svc.Submit(ctx, f.landlord, in, nil, nil, "")
	require.NoError(t, err)
	assert.False(t, p.Featured)
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	missing := uint(999)

	_, err := f.svc.Submit(ctx, f.landlord, PropertyInput{
		Price:     -1,
		Discount:  101,
		UsageType: "castle",
		Contact:   "call me",
		AreaID:    &missing,
	}, nil, nil, "")
	require.Error(t, err)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindValidation, e.Kind)
	for _, field := range []string{"name", "price", "discount", "usage_type", "contact", "area_id"} {
		assert.Contains(t, e.Fields, field)
	}
}

func TestSubmitNormalizesInput(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)

	p, err := f.svc.Submit(ctx, f.landlord, PropertyInput{
		Name:      "  flat  ",
		Contact:   "010 1234 5678",
		Latitude:  "30.0626300012345",
		Longitude: "200",
	}, nil, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "flat", p.Name)
	assert.Equal(t, "+201012345678", p.Contact)
	require.NotNil(t, p.Latitude)
	assert.InDelta(t, 30.06263000, *p.Latitude, 1e-9)
	assert.Nil(t, p.Longitude)
}

func TestSubmitUploadsOrderedMedia(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)

	p, err := f.svc.Submit(ctx, f.landlord, PropertyInput{Name: "flat"},
		[]MediaUpload{upload("a.jpg"), upload("b.jpg")},
		[]MediaUpload{upload("tour.mp4")}, "")
	require.NoError(t, err)
	require.Len(t, p.Images, 2)
	require.Len(t, p.Videos, 1)
	assert.Equal(t, 0, p.Images[0].Order)
	assert.Equal(t, 1, p.Images[1].Order)
	assert.Contains(t, p.Images[0].URL, "/images/00_")
	assert.Contains(t, p.Videos[0].URL, "/videos/00_")
}

func TestSubmitDiscardsMediaWhenUploadFails(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	f.media.failOn = "videos"

	_, err := f.svc.Submit(ctx, f.landlord, PropertyInput{Name: "flat"},
		[]MediaUpload{upload("a.jpg")}, []MediaUpload{upload("tour.mp4")}, "")
	require.Error(t, err)
	assert.Equal(t, f.media.uploaded, f.media.deleted)

	var count int64
	require.NoError(t, f.db.Model(&models.Property{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRejectRequiresNotes(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	p := createProperty(t, f.db, f.landlord, models.StatusPending, 100)

	_, err := f.svc.Reject(ctx, f.admin, p.ID.String(), "   ", "")
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindValidation, e.Kind)
	assert.Equal(t, "required", e.Fields["approval_notes"])

	var stored models.Property
	require.NoError(t, f.db.First(&stored, "id = ?", p.ID).Error)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestModerationRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	p := createProperty(t, f.db, f.landlord, models.StatusPending, 100)

	_, err := f.svc.Approve(ctx, f.landlord, p.ID.String(), "", "")
	assert.Equal(t, KindForbidden, KindOf(err))
	_, err = f.svc.Reject(ctx, nil, p.ID.String(), "no", "")
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestResubmitOnlyFromRejected(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)

	for _, status := range []models.PropertyStatus{models.StatusPending, models.StatusApproved, models.StatusDraft} {
		p := createProperty(t, f.db, f.landlord, status, 100)
		_, err := f.svc.Resubmit(ctx, f.landlord, p.ID.String())
		assert.Equal(t, KindConflict, KindOf(err), string(status))
	}

	other := createViewer(t, f.db, "other", models.UserTypeAgent)
	p := createProperty(t, f.db, f.landlord, models.StatusRejected, 100)
	_, err := f.svc.Resubmit(ctx, other, p.ID.String())
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestModeratingDeletedPropertyConflicts(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	p := createProperty(t, f.db, f.landlord, models.StatusRejected, 100)
	require.NoError(t, f.svc.SoftDelete(ctx, f.landlord, p.ID.String(), "", ""))

	_, err := f.svc.Approve(ctx, f.admin, p.ID.String(), "", "")
	assert.Equal(t, KindConflict, KindOf(err))
	_, err = f.svc.Resubmit(ctx, f.landlord, p.ID.String())
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestSoftDeleteLogsOncePerDay(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	p := createProperty(t, f.db, f.landlord, models.StatusApproved, 100)
	id := p.ID.String()

	require.NoError(t, f.svc.SoftDelete(ctx, f.landlord, id, "", ""))
	err := f.svc.SoftDelete(ctx, f.admin, id, "", "")
	assert.Equal(t, KindNotFound, KindOf(err))

	// A restore and a second delete on the same day must not duplicate the logs.
	_, err = f.svc.Restore(ctx, f.admin, id, "")
	require.NoError(t, err)
	require.NoError(t, f.svc.SoftDelete(ctx, f.admin, id, "", ""))

	var audits, activities int64
	require.NoError(t, f.db.Model(&models.PropertyAuditTrail{}).Where("action = ?", models.AuditDelete).Count(&audits).Error)
	require.NoError(t, f.db.Model(&models.ActivityLog{}).Where("action = ?", models.ActionDeleteProperty).Count(&activities).Error)
	assert.Equal(t, int64(1), audits)
	assert.Equal(t, int64(1), activities)

	var stored models.Property
	require.NoError(t, f.db.First(&stored, "id = ?", p.ID).Error)
	assert.True(t, stored.IsDeleted)
	assert.Equal(t, models.StatusApproved, stored.Status)
	assert.False(t, f.indexer.upserted[id])
}

func TestSoftDeleteRequiresOwnerOrAdmin(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	p := createProperty(t, f.db, f.landlord, models.StatusApproved, 100)

	err := f.svc.SoftDelete(ctx, f.tenant, p.ID.String(), "", "")
	assert.Equal(t, KindForbidden, KindOf(err))
}

func TestRestoreRequiresDeleted(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	p := createProperty(t, f.db, f.landlord, models.StatusApproved, 100)

	_, err := f.svc.Restore(ctx, f.admin, p.ID.String(), "")
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestAdminUpdateAllowList(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	p := createProperty(t, f.db, f.landlord, models.StatusApproved, 100)

	name, contact := "Renamed", "01012345678"
	updated, err := f.svc.Update(ctx, f.admin, p.ID.String(), PropertyUpdate{Name: &name, Contact: &contact}, "")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "+201012345678", updated.Contact)
	assert.Equal(t, float64(100), updated.Price)
	assert.True(t, f.indexer.upserted[p.ID.String()])

	_, err = f.svc.Update(ctx, f.landlord, p.ID.String(), PropertyUpdate{Name: &name}, "")
	assert.Equal(t, KindForbidden, KindOf(err))

	blank := " "
	_, err = f.svc.Update(ctx, f.admin, p.ID.String(), PropertyUpdate{Name: &blank}, "")
	assert.Equal(t, KindValidation, KindOf(err))
}

package services

import (
	"context"
	"testing"
	"time"

	"eskan-backend/internal/mailer"
	"eskan-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAreasCountApprovedListings(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewCatalogService(db, CatalogDeps{Logger: newTestLogger()})
	owner := createViewer(t, db, "owner", models.UserTypeLandlord)
	maadi := createArea(t, db, "Maadi")
	createArea(t, db, "Dokki")

	for _, status := range []models.PropertyStatus{models.StatusApproved, models.StatusApproved, models.StatusPending} {
		p := createProperty(t, db, owner, status, 1)
		require.NoError(t, db.Model(p).Update("area_id", maadi.ID).Error)
	}

	areas, err := svc.Areas(ctx)
	require.NoError(t, err)
	require.Len(t, areas, 2)
	assert.Equal(t, "Dokki", areas[0].Name)
	assert.Equal(t, int64(0), areas[0].PropertyCount)
	assert.Equal(t, "Maadi", areas[1].Name)
	assert.Equal(t, int64(2), areas[1].PropertyCount)
}

func TestAreaAdministration(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewCatalogService(db, CatalogDeps{Logger: newTestLogger()})
	admin := createViewer(t, db, "admin", models.UserTypeAdmin)
	landlord := createViewer(t, db, "landlord", models.UserTypeLandlord)

	_, err := svc.CreateArea(ctx, landlord, AreaInput{Name: "Maadi"})
	assert.Equal(t, KindForbidden, KindOf(err))

	area, err := svc.CreateArea(ctx, admin, AreaInput{Name: " Maadi ", NameEn: "Maadi"})
	require.NoError(t, err)
	assert.Equal(t, "Maadi", area.Name)

	_, err = svc.CreateArea(ctx, admin, AreaInput{Name: "Maadi"})
	assert.Equal(t, KindValidation, KindOf(err))

	renamed, err := svc.UpdateArea(ctx, admin, area.ID, AreaInput{Name: "Maadi Sarayat"})
	require.NoError(t, err)
	assert.Equal(t, "Maadi Sarayat", renamed.Name)

	_, err = svc.UpdateArea(ctx, admin, 999, AreaInput{Name: "x"})
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestDeleteAreaDetachesListings(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewCatalogService(db, CatalogDeps{Logger: newTestLogger()})
	admin := createViewer(t, db, "admin", models.UserTypeAdmin)
	area := createArea(t, db, "Maadi")
	p := createProperty(t, db, admin, models.StatusApproved, 1)
	require.NoError(t, db.Model(p).Update("area_id", area.ID).Error)

	require.NoError(t, svc.DeleteArea(ctx, admin, area.ID))

	var stored models.Property
	require.NoError(t, db.First(&stored, "id = ?", p.ID).Error)
	assert.Nil(t, stored.AreaID)

	var count int64
	require.NoError(t, db.Model(&models.Area{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestActiveOffers(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewCatalogService(db, CatalogDeps{Logger: newTestLogger()})
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	admin := createViewer(t, db, "admin", models.UserTypeAdmin)

	past := now.AddDate(0, 0, -10)
	yesterday := now.AddDate(0, 0, -1)
	nextWeek := now.AddDate(0, 0, 7)
	inputs := []OfferInput{
		{Title: "Open ended", DiscountPercentage: 10, StartDate: past, IsActive: true},
		{Title: "Tenants", DiscountPercentage: 25, TargetAudience: "tenant", StartDate: past, EndDate: &nextWeek, IsActive: true},
		{Title: "Expired", DiscountPercentage: 50, StartDate: past, EndDate: &yesterday, IsActive: true},
		{Title: "Future", DiscountPercentage: 5, StartDate: nextWeek, IsActive: true},
		{Title: "Paused", DiscountPercentage: 5, StartDate: past, IsActive: false},
	}
	for _, in := range inputs {
		_, err := svc.CreateOffer(ctx, admin, in)
		require.NoError(t, err)
	}

	active, err := svc.ActiveOffers(ctx, "-discount_percentage")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Tenants", active[0].Title)
	assert.Equal(t, "Open ended", active[1].Title)

	forLandlords, err := svc.OffersFor(ctx, "landlord")
	require.NoError(t, err)
	require.Len(t, forLandlords, 1)
	assert.Equal(t, models.AudienceAll, forLandlords[0].TargetAudience)

	forTenants, err := svc.OffersFor(ctx, "tenant")
	require.NoError(t, err)
	assert.Len(t, forTenants, 2)
}

func TestOfferValidation(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewCatalogService(db, CatalogDeps{Logger: newTestLogger()})
	admin := createViewer(t, db, "admin", models.UserTypeAdmin)
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	before := start.AddDate(0, 0, -1)

	_, err := svc.CreateOffer(ctx, admin, OfferInput{Title: "", DiscountPercentage: 120, StartDate: start, EndDate: &before})
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, map[string]string{
		"title":               "required",
		"discount_percentage": "must be between 0 and 100",
		"end_date":            "must not be before start_date",
	}, e.Fields)

	offer, err := svc.CreateOffer(ctx, admin, OfferInput{Title: "Spring", DiscountPercentage: 15, StartDate: start, IsActive: true})
	require.NoError(t, err)
	updated, err := svc.UpdateOffer(ctx, admin, offer.ID, OfferInput{Title: "Spring", DiscountPercentage: 20, StartDate: start})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 20, updated.DiscountPercentage)

	require.NoError(t, svc.DeleteOffer(ctx, admin, offer.ID))
	assert.Equal(t, KindNotFound, KindOf(svc.DeleteOffer(ctx, admin, offer.ID)))
}

func TestSubmitContact(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	mail := &fakeMailer{}
	svc := NewCatalogService(db, CatalogDeps{
		Mailer:    mail,
		Templates: mailer.Templates{SupportEmail: "support@eskan.test"},
		Logger:    newTestLogger(),
	})
	admin := createViewer(t, db, "admin", models.UserTypeAdmin)

	msg, err := svc.SubmitContact(ctx, ContactInput{
		Name:    "Hany",
		Email:   "Hany@Example.com",
		Phone:   "0100 000 0000",
		Subject: "Viewing",
		Message: "Is the flat still available?",
	})
	require.NoError(t, err)
	assert.Equal(t, "hany@example.com", msg.Email)
	assert.Equal(t, "+201000000000", msg.Phone)

	require.Len(t, mail.sent, 1)
	assert.Equal(t, []string{"support@eskan.test"}, mail.sent[0].To)
	assert.Equal(t, "New message from Hany: Viewing", mail.sent[0].Subject)

	var notes []models.Notification
	require.NoError(t, db.Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationNewContact, notes[0].NotificationType)

	_, err = svc.SubmitContact(ctx, ContactInput{Name: "x", Email: "x@example.com", Message: "hi", Phone: "abc"})
	assert.Equal(t, KindValidation, KindOf(err))

	unread, err := svc.Contacts(ctx, admin, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	require.NoError(t, svc.MarkContactRead(ctx, admin, msg.ID))
	unread, err = svc.Contacts(ctx, admin, true)
	require.NoError(t, err)
	assert.Empty(t, unread)

	require.NoError(t, svc.ArchiveContact(ctx, admin, msg.ID))
	stored, err := svc.Contact(ctx, admin, msg.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsRead)
	assert.True(t, stored.IsArchived)

	require.NoError(t, svc.DeleteContact(ctx, admin, msg.ID))
	_, err = svc.Contact(ctx, admin, msg.ID)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestContactMailFailureIsSwallowed(t *testing.T) {
	db := newTestDB(t)
	svc := NewCatalogService(db, CatalogDeps{
		Mailer:    &fakeMailer{err: assert.AnError},
		Templates: mailer.Templates{SupportEmail: "support@eskan.test"},
		Logger:    newTestLogger(),
	})
	_, err := svc.SubmitContact(context.Background(), ContactInput{Name: "Hany", Email: "h@example.com", Message: "hi"})
	require.NoError(t, err)
}

func TestActivityLogFilters(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewCatalogService(db, CatalogDeps{Logger: newTestLogger()})
	admin := createViewer(t, db, "admin", models.UserTypeAdmin)
	landlord := createViewer(t, db, "landlord", models.UserTypeLandlord)

	day := func(d, h int) time.Time { return time.Date(2026, 2, d, h, 0, 0, 0, time.UTC) }
	logs := []models.ActivityLog{
		{UserID: &landlord.User.ID, Action: models.ActionCreateProperty, ObjectName: "Nile flat", Timestamp: day(1, 9)},
		{UserID: &admin.User.ID, Action: models.ActionApproveProperty, ObjectName: "Nile flat", Timestamp: day(2, 23)},
		{UserID: &admin.User.ID, Action: models.ActionRejectProperty, ObjectName: "Villa", Timestamp: day(3, 8)},
	}
	require.NoError(t, db.Create(&logs).Error)

	from, to := day(2, 0), day(2, 0)
	tests := []struct {
		name  string
		query ActivityQuery
		want  int64
	}{
		{"all", ActivityQuery{}, 3},
		{"action", ActivityQuery{Action: string(models.ActionRejectProperty)}, 1},
		{"username", ActivityQuery{Username: "landlord"}, 1},
		{"whole day", ActivityQuery{From: &from, To: &to}, 1},
		{"search", ActivityQuery{Search: "nile"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := svc.ActivityLogs(ctx, admin, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, total)
			assert.Len(t, got, int(tt.want))
		})
	}

	latest, _, err := svc.ActivityLogs(ctx, admin, ActivityQuery{})
	require.NoError(t, err)
	assert.Equal(t, "Villa", latest[0].ObjectName)
	require.NotNil(t, latest[0].User)

	_, _, err = svc.ActivityLogs(ctx, landlord, ActivityQuery{})
	assert.Equal(t, KindForbidden, KindOf(err))
}

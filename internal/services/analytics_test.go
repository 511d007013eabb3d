package services

import (
	"context"
	"testing"
	"time"

	"eskan-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceDistributionCoversApproved(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	owner := createViewer(t, db, "owner", models.UserTypeLandlord)
	for _, price := range []float64{0, 9999, 10000, 49999.5, 50000, 100000, 499999, 500000, 2500000} {
		createProperty(t, db, owner, models.StatusApproved, price)
	}
	createProperty(t, db, owner, models.StatusPending, 20000)
	gone := createProperty(t, db, owner, models.StatusApproved, 20000)
	require.NoError(t, db.Model(gone).Update("is_deleted", true).Error)

	buckets, err := NewAnalyticsService(db).PriceDistribution(ctx)
	require.NoError(t, err)
	require.Len(t, buckets, 5)

	var sum int64
	values := make([]int64, 0, len(buckets))
	for _, b := range buckets {
		sum += b.Value
		values = append(values, b.Value)
	}
	assert.Equal(t, int64(9), sum)
	assert.Equal(t, []int64{2, 2, 1, 2, 2}, values)
	assert.Nil(t, buckets[4].Max)
	require.NotNil(t, buckets[0].Max)
	assert.Equal(t, float64(10000), *buckets[0].Max)
}

func TestPropertyAndUserStats(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewAnalyticsService(db)
	owner := createViewer(t, db, "owner", models.UserTypeLandlord)
	createViewer(t, db, "tenant", models.UserTypeTenant)

	createProperty(t, db, owner, models.StatusApproved, 100)
	createProperty(t, db, owner, models.StatusPending, 300)
	featured := createProperty(t, db, owner, models.StatusApproved, 200)
	require.NoError(t, db.Model(featured).Update("featured", true).Error)
	gone := createProperty(t, db, owner, models.StatusRejected, 1000)
	require.NoError(t, db.Model(gone).Update("is_deleted", true).Error)

	stats, err := svc.PropertyStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Approved)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Deleted)
	assert.Equal(t, int64(1), stats.Featured)
	assert.Equal(t, int64(3), stats.Today)
	assert.Equal(t, float64(600), stats.TotalValue)
	assert.InDelta(t, 200, stats.AvgPrice, 1e-9)

	now := utcNow()
	require.NoError(t, db.Model(owner.Profile).Update("last_login_at", now).Error)
	visitors := NewVisitorService(db)
	_, err = visitors.RecordVisit(ctx, "203.0.113.9", iphoneUA)
	require.NoError(t, err)

	users, err := svc.UserStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), users.Total)
	assert.Equal(t, int64(1), users.ActiveUsers)
	assert.Equal(t, map[string]int64{"landlord": 1, "tenant": 1}, users.ByType)
	assert.Equal(t, int64(1), users.TotalUniqueVisitors)
	assert.Equal(t, int64(1), users.VisitorsToday)
}

func TestAreaStatsKeepsEmptyAreas(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	owner := createViewer(t, db, "owner", models.UserTypeLandlord)
	zamalek := createArea(t, db, "Zamalek")
	createArea(t, db, "Dokki")
	p := createProperty(t, db, owner, models.StatusApproved, 300)
	require.NoError(t, db.Model(p).Update("area_id", zamalek.ID).Error)

	stats, err := NewAnalyticsService(db).AreaStats(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "Zamalek", stats[0].Name)
	assert.Equal(t, int64(1), stats[0].PropertyCount)
	assert.Equal(t, "Dokki", stats[1].Name)
	assert.Zero(t, stats[1].PropertyCount)
}

func TestRoomsDistributionAndTypes(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewAnalyticsService(db)
	owner := createViewer(t, db, "owner", models.UserTypeLandlord)
	for _, rooms := range []int{1, 2, 2, 5, 7} {
		p := createProperty(t, db, owner, models.StatusApproved, float64(rooms))
		require.NoError(t, db.Model(p).Update("rooms", rooms).Error)
	}
	students := createProperty(t, db, owner, models.StatusPending, 1)
	require.NoError(t, db.Model(students).Update("usage_type", models.UsageStudents).Error)

	rooms, err := svc.RoomsDistribution(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.NamedValue{
		{Name: "1 room", Value: 1},
		{Name: "2 rooms", Value: 2},
		{Name: "3 rooms", Value: 0},
		{Name: "4+ rooms", Value: 2},
	}, rooms)

	types, err := svc.PropertyTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "unspecified", types[0].Name)
	assert.Equal(t, int64(5), types[0].Value)
	assert.Equal(t, "students", types[1].Name)
}

func TestDeviceStatsPercentages(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	visitors := NewVisitorService(db)
	for _, v := range []struct{ ip, ua string }{
		{"10.0.0.1", iphoneUA}, {"10.0.0.1", iphoneUA}, {"10.0.0.1", iphoneUA},
		{"10.0.0.2", iphoneUA},
		{"10.0.0.3", desktopUA}, {"10.0.0.3", desktopUA},
	} {
		_, err := visitors.RecordVisit(ctx, v.ip, v.ua)
		require.NoError(t, err)
	}

	stats, err := NewAnalyticsService(db).DeviceStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, models.DeviceMobile, stats[0].Device)
	assert.Equal(t, int64(2), stats[0].Count)
	assert.Equal(t, int64(4), stats[0].TotalVisits)
	assert.Equal(t, 66.67, stats[0].Percentage)
	assert.Equal(t, "Desktop", stats[1].Label)
	assert.Equal(t, 33.33, stats[1].Percentage)
}

func TestDailyActivityAndRecent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewAnalyticsService(db)
	now := time.Date(2026, 5, 20, 15, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	admin := createViewer(t, db, "admin", models.UserTypeAdmin)
	require.NoError(t, db.Create(&[]models.ActivityLog{
		{UserID: &admin.User.ID, Action: models.ActionCreateUser, ObjectName: "a", Timestamp: now.Add(-time.Hour)},
		{Action: models.ActionDeleteProperty, ObjectName: "b", Timestamp: now.Add(-2 * time.Hour)},
		{Action: models.ActionCreateProperty, ObjectName: "c", Timestamp: now.AddDate(0, 0, -2)},
		{Action: models.ActionCreateProperty, ObjectName: "old", Timestamp: now.AddDate(0, 0, -40)},
	}).Error)

	daily, err := svc.DailyActivity(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []models.DailyCount{
		{Date: "2026-05-18", Count: 1},
		{Date: "2026-05-19", Count: 0},
		{Date: "2026-05-20", Count: 2},
	}, daily)

	recent, err := svc.RecentActivities(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "admin", recent[0].User)
	assert.Equal(t, "System", recent[1].User)
}

func TestMonthlyListingsBlocks(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewAnalyticsService(db)
	now := time.Date(2026, 5, 20, 15, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	owner := createViewer(t, db, "owner", models.UserTypeLandlord)

	recent := createProperty(t, db, owner, models.StatusApproved, 100)
	older := createProperty(t, db, owner, models.StatusPending, 50)
	require.NoError(t, db.Model(recent).UpdateColumn("created_at", now.AddDate(0, 0, -1)).Error)
	require.NoError(t, db.Model(older).UpdateColumn("created_at", now.AddDate(0, 0, -45)).Error)

	blocks, err := svc.MonthlyListings(ctx)
	require.NoError(t, err)
	require.Len(t, blocks, 12)
	assert.Equal(t, now, blocks[11].End)
	assert.Equal(t, now.AddDate(0, 0, -360), blocks[0].Start)
	assert.Equal(t, int64(1), blocks[11].Count)
	assert.Equal(t, float64(100), blocks[11].Total)
	assert.Equal(t, int64(1), blocks[10].Count)
}

func TestTopOwners(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	busy := createViewer(t, db, "busy", models.UserTypeAgent)
	quiet := createViewer(t, db, "quiet", models.UserTypeAgent)
	createViewer(t, db, "landlord", models.UserTypeLandlord)
	require.NoError(t, db.Model(busy.Profile).Update("full_name", "ahmed nabil").Error)
	createProperty(t, db, busy, models.StatusApproved, 1)
	createProperty(t, db, busy, models.StatusPending, 2)

	owners, err := NewAnalyticsService(db).TopOwners(ctx, models.UserTypeAgent, 0)
	require.NoError(t, err)
	require.Len(t, owners, 2)
	assert.Equal(t, models.TopOwner{
		ID: busy.ProfileID(), Name: "ahmed nabil", Avatar: "A", Properties: 2, UserType: models.UserTypeAgent,
	}, owners[0])
	assert.Equal(t, quiet.ProfileID(), owners[1].ID)
	assert.Zero(t, owners[1].Properties)
}

func TestContactAndOfferStats(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewAnalyticsService(db)
	now := utcNow()
	require.NoError(t, db.Create(&[]models.ContactMessage{
		{Name: "a", Email: "a@x.io", Message: "hi", CreatedAt: now},
		{Name: "b", Email: "b@x.io", Message: "hi", CreatedAt: now, IsRead: true},
		{Name: "c", Email: "c@x.io", Message: "hi", CreatedAt: now.AddDate(0, 0, -3), IsArchived: true},
	}).Error)
	require.NoError(t, db.Create(&[]models.Offer{
		{Title: "a", DiscountPercentage: 10, TargetAudience: "all", StartDate: now, IsActive: true},
		{Title: "b", DiscountPercentage: 25, TargetAudience: "students", StartDate: now},
	}).Error)

	contacts, err := svc.ContactStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.ContactStats{Total: 3, Today: 2, Unread: 2, Archived: 1, AvgPerDay: 1.5}, contacts)

	offers, err := svc.OfferStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.OfferStats{Total: 2, Active: 1, AvgDiscount: 17.5}, offers)
}

func TestSummaryAssembles(t *testing.T) {
	db := newTestDB(t)
	summary, err := NewAnalyticsService(db).Summary(context.Background())
	require.NoError(t, err)
	assert.Len(t, summary.PriceDistribution, 5)
	assert.Len(t, summary.DailyActivity, 30)
	assert.Empty(t, summary.TopProperties)
}

func TestThirtyDayBlocks(t *testing.T) {
	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	blocks := thirtyDayBlocks(now, 3)
	assert.Equal(t, -1, blockIndex(blocks, now.AddDate(0, 0, -91)))
	assert.Equal(t, 0, blockIndex(blocks, now.AddDate(0, 0, -90)))
	assert.Equal(t, 2, blockIndex(blocks, now))
	assert.Equal(t, 2, blockIndex(blocks, now.AddDate(0, 0, -30)))
	assert.Equal(t, 1, blockIndex(blocks, now.AddDate(0, 0, -31)))
}

func TestAvatarLetter(t *testing.T) {
	assert.Equal(t, "", avatarLetter(""))
	assert.Equal(t, "S", avatarLetter("sara"))
	assert.Equal(t, "أ", avatarLetter("أحمد"))
}

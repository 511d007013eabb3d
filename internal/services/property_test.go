package services

import (
	"context"
	"encoding/json"
	"testing"

	"eskan-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(properties []models.Property) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(properties))
	for _, p := range properties {
		out = append(out, p.ID)
	}
	return out
}

func TestVisibility(t *testing.T) {
	f := newModerationFixture(t)
	other := createViewer(t, f.db, "agent", models.UserTypeAgent)

	approved := createProperty(t, f.db, other, models.StatusApproved, 1)
	ownPending := createProperty(t, f.db, f.landlord, models.StatusPending, 2)
	otherRejected := createProperty(t, f.db, other, models.StatusRejected, 3)
	deleted := createProperty(t, f.db, f.landlord, models.StatusApproved, 4)
	require.NoError(t, f.db.Model(deleted).Update("is_deleted", true).Error)

	tests := []struct {
		name   string
		viewer *Viewer
		view   View
		want   []uuid.UUID
	}{
		{"anonymous", nil, ViewDefault, []uuid.UUID{approved.ID}},
		{"owner", f.landlord, ViewDefault, []uuid.UUID{approved.ID, ownPending.ID}},
		{"stranger", f.tenant, ViewDefault, []uuid.UUID{approved.ID}},
		{"admin", f.admin, ViewDefault, []uuid.UUID{approved.ID, ownPending.ID, otherRejected.ID}},
		{"admin deleted view", f.admin, ViewDeleted, []uuid.UUID{deleted.ID}},
		{"non-admin deleted view", f.landlord, ViewDeleted, []uuid.UUID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []models.Property
			require.NoError(t, f.db.Scopes(Visible(tt.viewer, tt.view)).Order("price").Find(&got).Error)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestGetHidesInvisibleListings(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	pending := createProperty(t, f.db, f.landlord, models.StatusPending, 1)

	_, err := f.svc.Get(ctx, nil, pending.ID.String(), "")
	assert.Equal(t, KindNotFound, KindOf(err))
	_, err = f.svc.Get(ctx, nil, "not-a-uuid", "")
	assert.Equal(t, KindNotFound, KindOf(err))

	got, err := f.svc.Get(ctx, f.landlord, pending.ID.String(), "")
	require.NoError(t, err)
	assert.Equal(t, pending.ID, got.ID)
}

func TestRecordViewCountsUniqueAddresses(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	p := createProperty(t, f.db, f.landlord, models.StatusApproved, 1)
	id := p.ID.String()

	for _, ip := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.1", ""} {
		_, err := f.svc.Get(ctx, nil, id, ip)
		require.NoError(t, err)
	}

	var stored models.Property
	require.NoError(t, f.db.First(&stored, "id = ?", p.ID).Error)
	assert.Equal(t, 4, stored.ViewCount)
	assert.Equal(t, 2, stored.UniqueVisitors)
	assert.Equal(t, 2, hitCount(stored.VisitorIPs["203.0.113.1"]))
}

func TestRepeatViewsFromOneAddressAreDeduplicated(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	p := createProperty(t, f.db, f.landlord, models.StatusApproved, 1)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Get(ctx, nil, p.ID.String(), "203.0.113.1")
		require.NoError(t, err)
	}

	var row struct {
		ViewCount      int
		UniqueVisitors int
		VisitorIPs     string
	}
	require.NoError(t, f.db.Table("properties").
		Select("view_count, unique_visitors, visitor_ips").
		Where("id = ?", p.ID).
		Scan(&row).Error)
	assert.Equal(t, 3, row.ViewCount)
	assert.Equal(t, 1, row.UniqueVisitors)
	assert.JSONEq(t, `{"203.0.113.1":3}`, row.VisitorIPs)
}

func TestHitCount(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want int
	}{
		{"int", 3, 3},
		{"int64", int64(4), 4},
		{"float64", float64(5), 5},
		{"json number", json.Number("6"), 6},
		{"missing", nil, 0},
		{"garbage", "x", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hitCount(tt.in))
		})
	}
}

func TestViewMilestoneNotifiesOwner(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	p := createProperty(t, f.db, f.landlord, models.StatusApproved, 1)
	require.NoError(t, f.db.Model(p).Update("view_count", 49).Error)

	_, err := f.svc.Get(ctx, nil, p.ID.String(), "")
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, nil, p.ID.String(), "")
	require.NoError(t, err)

	var notes []models.Notification
	require.NoError(t, f.db.Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationViewMilestone, notes[0].NotificationType)
	assert.Equal(t, f.landlord.ProfileID(), notes[0].RecipientID)
}

func TestIsViewMilestone(t *testing.T) {
	for _, n := range []int{50, 100, 200, 500, 1000, 2000} {
		assert.True(t, IsViewMilestone(n), n)
	}
	for _, n := range []int{0, 1, 49, 51, 150, 3000} {
		assert.False(t, IsViewMilestone(n), n)
	}
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	maadi := createArea(t, f.db, "Maadi")

	cheap := createProperty(t, f.db, f.landlord, models.StatusApproved, 5000)
	family := createProperty(t, f.db, f.landlord, models.StatusApproved, 20000)
	require.NoError(t, f.db.Model(family).Updates(map[string]interface{}{
		"usage_type": models.UsageFamilies, "rooms": 3, "furnished": true, "area_id": maadi.ID,
	}).Error)

	rooms, furnished := 3, true
	lo, hi := 10000.0, 30000.0
	tests := []struct {
		name  string
		query ListQuery
		want  []uuid.UUID
	}{
		{"all by price", ListQuery{Ordering: "price"}, []uuid.UUID{cheap.ID, family.ID}},
		{"usage alias", ListQuery{UsageType: "عائلات"}, []uuid.UUID{family.ID}},
		{"rooms", ListQuery{Rooms: &rooms}, []uuid.UUID{family.ID}},
		{"furnished", ListQuery{Furnished: &furnished}, []uuid.UUID{family.ID}},
		{"price range", ListQuery{PriceMin: &lo, PriceMax: &hi}, []uuid.UUID{family.ID}},
		{"area", ListQuery{Area: "Maadi"}, []uuid.UUID{family.ID}},
		{"search", ListQuery{Search: "MAADI"}, []uuid.UUID{family.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := f.svc.List(ctx, nil, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
			assert.Equal(t, int64(len(tt.want)), total)
		})
	}
}

func TestListPagination(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	for i := 1; i <= 5; i++ {
		createProperty(t, f.db, f.landlord, models.StatusApproved, float64(i))
	}

	page, total, err := f.svc.List(ctx, nil, ListQuery{Ordering: "price", Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	assert.Equal(t, float64(3), page[0].Price)
}

func TestMineAndRejectedByMe(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	createProperty(t, f.db, f.landlord, models.StatusPending, 1)
	rejected := createProperty(t, f.db, f.landlord, models.StatusRejected, 2)
	createProperty(t, f.db, f.admin, models.StatusApproved, 3)

	mine, err := f.svc.Mine(ctx, f.landlord)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	mineRejected, err := f.svc.RejectedByMe(ctx, f.landlord)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{rejected.ID}, ids(mineRejected))

	_, err = f.svc.Mine(ctx, nil)
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestPendingQueue(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	in := PropertyInput{Name: "Garden flat"}
	submitted, err := f.svc.Submit(ctx, f.landlord, in, nil, nil, "")
	require.NoError(t, err)
	createProperty(t, f.db, f.landlord, models.StatusApproved, 1)

	for _, filter := range []string{"", "today", "this_week", "this_month"} {
		queue, err := f.svc.Pending(ctx, f.admin, PendingQuery{Filter: filter})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{submitted.ID}, ids(queue), filter)
	}

	queue, err := f.svc.Pending(ctx, f.admin, PendingQuery{Search: "landlord"})
	require.NoError(t, err)
	assert.Len(t, queue, 1)

	queue, err = f.svc.Pending(ctx, f.admin, PendingQuery{Search: "nothing"})
	require.NoError(t, err)
	assert.Empty(t, queue)

	_, err = f.svc.Pending(ctx, f.landlord, PendingQuery{})
	assert.Equal(t, KindForbidden, KindOf(err))
}

func TestStatisticsAndDeletedView(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	createProperty(t, f.db, f.landlord, models.StatusPending, 1)
	createProperty(t, f.db, f.landlord, models.StatusApproved, 2)
	gone := createProperty(t, f.db, f.landlord, models.StatusRejected, 3)
	require.NoError(t, f.svc.SoftDelete(ctx, f.admin, gone.ID.String(), "spam", ""))

	counts, err := f.svc.Statistics(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, &ModerationCounts{Total: 2, Pending: 1, Approved: 1}, counts)

	deleted, err := f.svc.Deleted(ctx, f.admin)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	require.NotNil(t, deleted[0].DeletedBy)
	assert.Equal(t, f.admin.User.ID, deleted[0].DeletedBy.ID)

	trail, err := f.svc.AuditTrail(ctx, f.admin, AuditQuery{PropertyID: gone.ID.String(), Action: "delete"})
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "spam", trail[0].Notes)
	assert.Contains(t, string(trail[0].BeforeData), `"is_deleted":false`)
}

func TestSearchUsesIndexRanking(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(t)
	first := createProperty(t, f.db, f.landlord, models.StatusApproved, 1)
	second := createProperty(t, f.db, f.landlord, models.StatusApproved, 2)
	hidden := createProperty(t, f.db, f.landlord, models.StatusPending, 3)
	f.indexer.results = []string{second.ID.String(), "junk", hidden.ID.String(), first.ID.String()}

	got, err := f.svc.Search(ctx, nil, "flat", 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{second.ID, first.ID}, ids(got))
}

func TestSortByRankKeepsIndexOrder(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	properties := []models.Property{{ID: a}, {ID: b}, {ID: c}}
	sortByRank(properties, map[uuid.UUID]int{a: 2, b: 0, c: 1})
	assert.Equal(t, []uuid.UUID{b, c, a}, ids(properties))
}

func TestSearchFallsBackToDatabase(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewPropertyService(db, PropertyDeps{Logger: newTestLogger()})
	owner := createViewer(t, db, "owner", models.UserTypeOffice)
	p := createProperty(t, db, owner, models.StatusApproved, 7)

	got, err := svc.Search(ctx, nil, "listing 7", 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{p.ID}, ids(got))
}

func TestPaginate(t *testing.T) {
	page, limit := Paginate(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultPageSize, limit)

	_, limit = Paginate(3, 1000)
	assert.Equal(t, MaxPageSize, limit)
}

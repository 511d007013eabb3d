package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"eskan-backend/internal/models"

	"gorm.io/gorm"
)

// AnalyticsService computes the admin dashboard on every call. Nothing is
// cached, so each figure reflects the database at request time.
type AnalyticsService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: db, now: utcNow}
}

// priceBuckets are half-open ranges; the last one has no upper bound.
var priceBuckets = []struct {
	label string
	min   float64
	max   float64
}{
	{"< 10,000", 0, 10000},
	{"10,000 - 50,000", 10000, 50000},
	{"50,000 - 100,000", 50000, 100000},
	{"100,000 - 500,000", 100000, 500000},
	{"> 500,000", 500000, 0},
}

var deviceLabels = map[string]string{
	models.DeviceMobile:  "Mobile",
	models.DeviceTablet:  "Tablet",
	models.DeviceDesktop: "Desktop",
	models.DeviceUnknown: "Unknown",
}

const (
	activeUserWindow = 30 * 24 * time.Hour
	blockDays        = 30
	monthlyBlocks    = 12
)

func (s *AnalyticsService) PropertyStats(ctx context.Context) (*models.PropertyStats, error) {
	db := s.db.WithContext(ctx)
	stats := &models.PropertyStats{}

	var byStatus []struct {
		Status models.PropertyStatus
		Count  int64
	}
	err := db.Model(&models.Property{}).
		Select("status, COUNT(*) AS count").
		Where("is_deleted = ?", false).
		Group("status").
		Scan(&byStatus).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count properties by status: %w", err)
	}
	for _, row := range byStatus {
		stats.Total += row.Count
		switch row.Status {
		case models.StatusApproved:
			stats.Approved = row.Count
		case models.StatusPending:
			stats.Pending = row.Count
		case models.StatusDraft:
			stats.Draft = row.Count
		case models.StatusRejected:
			stats.Rejected = row.Count
		}
	}

	var totals struct {
		TotalValue float64
		AvgPrice   float64
	}
	err = db.Model(&models.Property{}).
		Select("COALESCE(SUM(price), 0) AS total_value, COALESCE(AVG(price), 0) AS avg_price").
		Where("is_deleted = ?", false).
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum property prices: %w", err)
	}
	stats.TotalValue = totals.TotalValue
	stats.AvgPrice = totals.AvgPrice

	counts := []struct {
		dest  *int64
		query string
		args  []interface{}
	}{
		{&stats.Deleted, "is_deleted = ?", []interface{}{true}},
		{&stats.Featured, "is_deleted = ? AND featured = ?", []interface{}{false, true}},
		{&stats.Today, "is_deleted = ? AND created_at >= ?", []interface{}{false, startOfDay(s.now())}},
	}
	for _, c := range counts {
		if err := db.Model(&models.Property{}).Where(c.query, c.args...).Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to count properties: %w", err)
		}
	}
	return stats, nil
}

func (s *AnalyticsService) UserStats(ctx context.Context) (*models.UserStats, error) {
	db := s.db.WithContext(ctx)
	now := s.now()
	today := startOfDay(now)
	stats := &models.UserStats{ByType: map[string]int64{}}

	if err := db.Model(&models.UserProfile{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if err := db.Model(&models.UserProfile{}).Where("created_at >= ?", today).Count(&stats.NewToday).Error; err != nil {
		return nil, fmt.Errorf("failed to count new users: %w", err)
	}
	err := db.Model(&models.UserProfile{}).
		Where("last_login_at >= ?", now.Add(-activeUserWindow)).
		Count(&stats.ActiveUsers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count active users: %w", err)
	}

	var byType []struct {
		UserType string
		Count    int64
	}
	err = db.Model(&models.UserProfile{}).
		Select("user_type, COUNT(*) AS count").
		Group("user_type").
		Scan(&byType).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count users by type: %w", err)
	}
	for _, row := range byType {
		stats.ByType[row.UserType] = row.Count
	}

	if err := db.Model(&models.Visitor{}).Count(&stats.TotalUniqueVisitors).Error; err != nil {
		return nil, fmt.Errorf("failed to count visitors: %w", err)
	}
	err = db.Model(&models.Visitor{}).Select("COALESCE(SUM(visit_count), 0)").Scan(&stats.TotalVisits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum visits: %w", err)
	}
	if err := db.Model(&models.Visitor{}).Where("last_visited >= ?", today).Count(&stats.VisitorsToday).Error; err != nil {
		return nil, fmt.Errorf("failed to count today's visitors: %w", err)
	}
	return stats, nil
}

// AreaStats ranks areas by live listings; areas without listings are kept.
func (s *AnalyticsService) AreaStats(ctx context.Context, limit int) ([]models.AreaStat, error) {
	stats := []models.AreaStat{}
	db := s.db.WithContext(ctx).Table("areas").
		Select("areas.id, areas.name, COUNT(properties.id) AS property_count, "+
			"COALESCE(AVG(properties.price), 0) AS avg_price, COALESCE(SUM(properties.price), 0) AS total_value").
		Joins("LEFT JOIN properties ON properties.area_id = areas.id AND properties.is_deleted = ?", false).
		Group("areas.id, areas.name").
		Order("property_count DESC, areas.name ASC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	if err := db.Scan(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to compute area stats: %w", err)
	}
	return stats, nil
}

func (s *AnalyticsService) PropertyTypes(ctx context.Context) ([]models.NamedValue, error) {
	var rows []struct {
		UsageType string
		Count     int64
		AvgPrice  float64
	}
	err := s.db.WithContext(ctx).Model(&models.Property{}).
		Select("usage_type, COUNT(*) AS count, COALESCE(AVG(price), 0) AS avg_price").
		Where("is_deleted = ?", false).
		Group("usage_type").
		Order("count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group properties by type: %w", err)
	}
	types := make([]models.NamedValue, 0, len(rows))
	for _, row := range rows {
		name := row.UsageType
		if name == "" {
			name = "unspecified"
		}
		types = append(types, models.NamedValue{Name: name, Value: row.Count, AvgPrice: row.AvgPrice})
	}
	return types, nil
}

func (s *AnalyticsService) RoomsDistribution(ctx context.Context) ([]models.NamedValue, error) {
	buckets := []struct {
		name  string
		query string
		rooms int
	}{
		{"1 room", "rooms = ?", 1},
		{"2 rooms", "rooms = ?", 2},
		{"3 rooms", "rooms = ?", 3},
		{"4+ rooms", "rooms >= ?", 4},
	}
	out := make([]models.NamedValue, 0, len(buckets))
	for _, b := range buckets {
		var count int64
		err := s.approvedLive(ctx).Where(b.query, b.rooms).Count(&count).Error
		if err != nil {
			return nil, fmt.Errorf("failed to count rooms: %w", err)
		}
		out = append(out, models.NamedValue{Name: b.name, Value: count})
	}
	return out, nil
}

func (s *AnalyticsService) OfferStats(ctx context.Context) (*models.OfferStats, error) {
	db := s.db.WithContext(ctx)
	stats := &models.OfferStats{}
	if err := db.Model(&models.Offer{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count offers: %w", err)
	}
	if err := db.Model(&models.Offer{}).Where("is_active = ?", true).Count(&stats.Active).Error; err != nil {
		return nil, fmt.Errorf("failed to count active offers: %w", err)
	}
	err := db.Model(&models.Offer{}).Select("COALESCE(AVG(discount_percentage), 0)").Scan(&stats.AvgDiscount).Error
	if err != nil {
		return nil, fmt.Errorf("failed to average offer discounts: %w", err)
	}
	stats.AvgDiscount = round2(stats.AvgDiscount)
	return stats, nil
}

func (s *AnalyticsService) ContactStats(ctx context.Context) (*models.ContactStats, error) {
	db := s.db.WithContext(ctx)
	stats := &models.ContactStats{}

	var created []time.Time
	if err := db.Model(&models.ContactMessage{}).Pluck("created_at", &created).Error; err != nil {
		return nil, fmt.Errorf("failed to load contact messages: %w", err)
	}
	today := startOfDay(s.now())
	days := map[string]struct{}{}
	for _, t := range created {
		t = t.UTC()
		days[t.Format(dateLayout)] = struct{}{}
		if !t.Before(today) {
			stats.Today++
		}
	}
	stats.Total = int64(len(created))
	stats.AvgPerDay = round2(float64(stats.Total) / math.Max(float64(len(days)), 1))

	if err := db.Model(&models.ContactMessage{}).Where("is_read = ?", false).Count(&stats.Unread).Error; err != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}
	if err := db.Model(&models.ContactMessage{}).Where("is_archived = ?", true).Count(&stats.Archived).Error; err != nil {
		return nil, fmt.Errorf("failed to count archived messages: %w", err)
	}
	return stats, nil
}

// PriceDistribution buckets approved live listings. Every such listing
// lands in exactly one bucket.
func (s *AnalyticsService) PriceDistribution(ctx context.Context) ([]models.PriceBucket, error) {
	out := make([]models.PriceBucket, 0, len(priceBuckets))
	for _, b := range priceBuckets {
		bucket := models.PriceBucket{Label: b.label, Min: b.min}
		db := s.approvedLive(ctx).Where("price >= ?", b.min)
		if b.max > 0 {
			upper := b.max
			bucket.Max = &upper
			db = db.Where("price < ?", b.max)
		}
		if err := db.Count(&bucket.Value).Error; err != nil {
			return nil, fmt.Errorf("failed to count price bucket %s: %w", b.label, err)
		}
		out = append(out, bucket)
	}
	return out, nil
}

func (s *AnalyticsService) RecentActivities(ctx context.Context, limit int) ([]models.RecentActivity, error) {
	if limit <= 0 {
		limit = 10
	}
	var logs []models.ActivityLog
	err := s.db.WithContext(ctx).
		Preload("User").
		Order("timestamp DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent activities: %w", err)
	}
	out := make([]models.RecentActivity, 0, len(logs))
	for _, l := range logs {
		user := "System"
		if l.User != nil {
			user = l.User.Username
		}
		out = append(out, models.RecentActivity{
			ID:          l.ID,
			User:        user,
			Action:      string(l.Action),
			ObjectName:  l.ObjectName,
			Description: l.Description,
			Timestamp:   l.Timestamp,
		})
	}
	return out, nil
}

// TopProperties ranks approved live listings by views.
func (s *AnalyticsService) TopProperties(ctx context.Context, limit int) ([]models.TopProperty, error) {
	if limit <= 0 {
		limit = 5
	}
	var properties []models.Property
	err := s.approvedLive(ctx).
		Preload("Area").
		Order("view_count DESC, updated_at DESC").
		Limit(limit).
		Find(&properties).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load top properties: %w", err)
	}

	ids := make([]string, 0, len(properties))
	for _, p := range properties {
		ids = append(ids, p.ID.String())
	}
	var imageCounts []struct {
		PropertyID string
		Count      int64
	}
	if len(ids) > 0 {
		err = s.db.WithContext(ctx).Model(&models.PropertyImage{}).
			Select("property_id, COUNT(*) AS count").
			Where("property_id IN ?", ids).
			Group("property_id").
			Scan(&imageCounts).Error
		if err != nil {
			return nil, fmt.Errorf("failed to count property images: %w", err)
		}
	}
	images := make(map[string]int64, len(imageCounts))
	for _, c := range imageCounts {
		images[strings.ToLower(c.PropertyID)] = c.Count
	}

	out := make([]models.TopProperty, 0, len(properties))
	for _, p := range properties {
		area := "Unspecified"
		if p.Area != nil {
			area = p.Area.Name
		}
		out = append(out, models.TopProperty{
			ID:          p.ID.String(),
			Name:        p.Name,
			Area:        area,
			Price:       p.Price,
			Rooms:       p.Rooms,
			ViewCount:   p.ViewCount,
			ImagesCount: images[p.ID.String()],
			Featured:    p.Featured,
		})
	}
	return out, nil
}

// DailyActivity counts activity log entries per day, oldest first, with
// quiet days reported as zero.
func (s *AnalyticsService) DailyActivity(ctx context.Context, days int) ([]models.DailyCount, error) {
	if days < 1 {
		days = 30
	}
	start := startOfDay(s.now()).AddDate(0, 0, -(days - 1))

	var stamps []time.Time
	err := s.db.WithContext(ctx).Model(&models.ActivityLog{}).
		Where("timestamp >= ?", start).
		Pluck("timestamp", &stamps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load activity timestamps: %w", err)
	}
	counts := make(map[string]int64, days)
	for _, t := range stamps {
		counts[t.UTC().Format(dateLayout)]++
	}
	out := make([]models.DailyCount, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format(dateLayout)
		out = append(out, models.DailyCount{Date: day, Count: counts[day]})
	}
	return out, nil
}

// MonthlyListings sums new live listings over twelve 30-day blocks ending now.
func (s *AnalyticsService) MonthlyListings(ctx context.Context) ([]models.PeriodTotal, error) {
	blocks := thirtyDayBlocks(s.now(), monthlyBlocks)

	var rows []struct {
		CreatedAt time.Time
		Price     float64
	}
	err := s.db.WithContext(ctx).Model(&models.Property{}).
		Select("created_at, price").
		Where("is_deleted = ? AND created_at >= ?", false, blocks[0].Start).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load listing dates: %w", err)
	}
	for _, r := range rows {
		if i := blockIndex(blocks, r.CreatedAt); i >= 0 {
			blocks[i].Count++
			blocks[i].Total += r.Price
		}
	}
	return blocks, nil
}

func (s *AnalyticsService) TopOwners(ctx context.Context, userType models.UserType, limit int) ([]models.TopOwner, error) {
	if userType == "" {
		userType = models.UserTypeLandlord
	}
	if limit <= 0 {
		limit = 4
	}
	var rows []struct {
		ID            uint
		FullName      string
		Username      string
		FirstName     string
		LastName      string
		UserType      models.UserType
		PropertyCount int64
	}
	err := s.db.WithContext(ctx).Table("user_profiles").
		Select("user_profiles.id, user_profiles.full_name, users.username, users.first_name, users.last_name, "+
			"user_profiles.user_type, COUNT(properties.id) AS property_count").
		Joins("JOIN users ON users.id = user_profiles.user_id").
		Joins("LEFT JOIN properties ON properties.owner_id = user_profiles.id AND properties.is_deleted = ?", false).
		Where("user_profiles.user_type = ?", userType).
		Group("user_profiles.id, user_profiles.full_name, users.username, users.first_name, users.last_name, user_profiles.user_type").
		Order("property_count DESC, user_profiles.id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank owners: %w", err)
	}

	out := make([]models.TopOwner, 0, len(rows))
	for _, r := range rows {
		user := models.User{
			Username:  r.Username,
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Profile:   &models.UserProfile{FullName: r.FullName},
		}
		name := user.DisplayName()
		out = append(out, models.TopOwner{
			ID:         r.ID,
			Name:       name,
			Avatar:     avatarLetter(name),
			Properties: r.PropertyCount,
			UserType:   r.UserType,
		})
	}
	return out, nil
}

// DeviceStats splits visitors by device. Percentages are shares of total
// visits, not of distinct visitors.
func (s *AnalyticsService) DeviceStats(ctx context.Context) ([]models.DeviceStat, error) {
	var rows []struct {
		DeviceType  string
		Count       int64
		TotalVisits int64
	}
	err := s.db.WithContext(ctx).Model(&models.Visitor{}).
		Select("device_type, COUNT(*) AS count, COALESCE(SUM(visit_count), 0) AS total_visits").
		Group("device_type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group visitors by device: %w", err)
	}

	var total int64
	for _, r := range rows {
		total += r.TotalVisits
	}
	out := make([]models.DeviceStat, 0, len(rows))
	for _, r := range rows {
		label, ok := deviceLabels[r.DeviceType]
		if !ok {
			label = r.DeviceType
		}
		stat := models.DeviceStat{Device: r.DeviceType, Label: label, Count: r.Count, TotalVisits: r.TotalVisits}
		if total > 0 {
			stat.Percentage = round2(float64(r.TotalVisits) / float64(total) * 100)
		}
		out = append(out, stat)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}

// Summary assembles the full dashboard.
func (s *AnalyticsService) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	summary := &models.DashboardSummary{GeneratedAt: s.now()}

	properties, err := s.PropertyStats(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.UserStats(ctx)
	if err != nil {
		return nil, err
	}
	offers, err := s.OfferStats(ctx)
	if err != nil {
		return nil, err
	}
	contacts, err := s.ContactStats(ctx)
	if err != nil {
		return nil, err
	}
	summary.Properties, summary.Users, summary.Offers, summary.ContactMessages = *properties, *users, *offers, *contacts

	if summary.Areas, err = s.AreaStats(ctx, 10); err != nil {
		return nil, err
	}
	if summary.PropertyTypes, err = s.PropertyTypes(ctx); err != nil {
		return nil, err
	}
	if summary.RoomsDistribution, err = s.RoomsDistribution(ctx); err != nil {
		return nil, err
	}
	if summary.PriceDistribution, err = s.PriceDistribution(ctx); err != nil {
		return nil, err
	}
	if summary.RecentActivities, err = s.RecentActivities(ctx, 15); err != nil {
		return nil, err
	}
	if summary.TopProperties, err = s.TopProperties(ctx, 10); err != nil {
		return nil, err
	}
	if summary.DailyActivity, err = s.DailyActivity(ctx, 30); err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *AnalyticsService) approvedLive(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Property{}).
		Where("status = ? AND is_deleted = ?", models.StatusApproved, false)
}

// thirtyDayBlocks returns n consecutive 30-day windows, oldest first, the
// last one ending at now.
func thirtyDayBlocks(now time.Time, n int) []models.PeriodTotal {
	blocks := make([]models.PeriodTotal, n)
	end := now
	for i := n - 1; i >= 0; i-- {
		start := end.AddDate(0, 0, -blockDays)
		blocks[i] = models.PeriodTotal{Start: start, End: end}
		end = start
	}
	return blocks
}

func blockIndex(blocks []models.PeriodTotal, t time.Time) int {
	for i, b := range blocks {
		if !t.Before(b.Start) && (t.Before(b.End) || (i == len(blocks)-1 && t.Equal(b.End))) {
			return i
		}
	}
	return -1
}

func avatarLetter(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if size == 0 {
		return ""
	}
	return strings.ToUpper(string(r))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eskan-backend/internal/models"

	"gorm.io/gorm"
)

// Keyword lists are checked in this order; the first hit wins, so an
// Android tablet is reported as mobile.
var deviceKeywords = []struct {
	device   string
	keywords []string
}{
	{models.DeviceMobile, []string{"mobile", "android", "iphone", "ipod", "blackberry", "windows phone", "opera mini", "iemobile"}},
	{models.DeviceTablet, []string{"ipad", "tablet", "kindle", "silk", "playbook"}},
	{models.DeviceDesktop, []string{"windows", "macintosh", "mac os", "linux", "x11", "cros"}},
}

// ClassifyDevice guesses the device class from a User-Agent header.
func ClassifyDevice(userAgent string) string {
	ua := strings.ToLower(userAgent)
	if ua == "" {
		return models.DeviceUnknown
	}
	for _, group := range deviceKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(ua, kw) {
				return group.device
			}
		}
	}
	return models.DeviceUnknown
}

type VisitorService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewVisitorService(db *gorm.DB) *VisitorService {
	return &VisitorService{db: db, now: utcNow}
}

type VisitorTotals struct {
	UniqueVisitors int64 `json:"total_unique_visitors"`
	TotalVisits    int64 `json:"total_visits"`
}

type DailyVisitors struct {
	Date     string `json:"date"`
	Visitors int64  `json:"visitors"`
}

// RecordVisit creates the visitor row for ip or bumps its counter.
// Concurrent first visits from one address are not serialized.
func (s *VisitorService) RecordVisit(ctx context.Context, ip, userAgent string) (*models.Visitor, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return nil, Validation("client address is unknown")
	}
	now := s.now()
	device := ClassifyDevice(userAgent)
	db := s.db.WithContext(ctx)

	var visitor models.Visitor
	err := db.Where("ip_address = ?", ip).First(&visitor).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		visitor = models.Visitor{
			IPAddress:    ip,
			UserAgent:    userAgent,
			DeviceType:   device,
			VisitCount:   1,
			FirstVisited: now,
			LastVisited:  now,
		}
		if err := db.Create(&visitor).Error; err != nil {
			return nil, fmt.Errorf("failed to create visitor: %w", err)
		}
		return &visitor, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load visitor: %w", err)
	}

	visitor.VisitCount++
	visitor.UserAgent = userAgent
	visitor.DeviceType = device
	visitor.LastVisited = now
	err = db.Model(&visitor).Select("VisitCount", "UserAgent", "DeviceType", "LastVisited").Updates(&visitor).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update visitor: %w", err)
	}
	return &visitor, nil
}

// TodayCount counts addresses first seen today.
func (s *VisitorService) TodayCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Visitor{}).
		Where("first_visited >= ?", startOfDay(s.now())).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count today's visitors: %w", err)
	}
	return count, nil
}

func (s *VisitorService) Totals(ctx context.Context) (*VisitorTotals, error) {
	totals := &VisitorTotals{}
	db := s.db.WithContext(ctx).Model(&models.Visitor{})
	if err := db.Count(&totals.UniqueVisitors).Error; err != nil {
		return nil, fmt.Errorf("failed to count visitors: %w", err)
	}
	err := s.db.WithContext(ctx).Model(&models.Visitor{}).
		Select("COALESCE(SUM(visit_count), 0)").
		Scan(&totals.TotalVisits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum visits: %w", err)
	}
	return totals, nil
}

// DailyStats returns first-visit counts for the last days days, oldest
// first, with a zero entry for every quiet day.
func (s *VisitorService) DailyStats(ctx context.Context, days int) ([]DailyVisitors, error) {
	if days < 1 {
		days = 1
	}
	start := startOfDay(s.now()).AddDate(0, 0, -(days - 1))

	var firsts []time.Time
	err := s.db.WithContext(ctx).Model(&models.Visitor{}).
		Where("first_visited >= ?", start).
		Pluck("first_visited", &firsts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load visitor days: %w", err)
	}

	counts := make(map[string]int64, days)
	for _, t := range firsts {
		counts[t.UTC().Format(dateLayout)]++
	}
	stats := make([]DailyVisitors, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format(dateLayout)
		stats = append(stats, DailyVisitors{Date: day, Visitors: counts[day]})
	}
	return stats, nil
}

// List returns visitors most recent first.
func (s *VisitorService) List(ctx context.Context, v *Viewer, page, limit int) ([]models.Visitor, int64, error) {
	if err := requireAdmin(v); err != nil {
		return nil, 0, err
	}
	page, limit = Paginate(page, limit)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Visitor{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count visitors: %w", err)
	}
	var visitors []models.Visitor
	err := s.db.WithContext(ctx).
		Order("last_visited DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&visitors).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list visitors: %w", err)
	}
	return visitors, total, nil
}

const dateLayout = "2006-01-02"

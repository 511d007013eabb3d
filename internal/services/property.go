package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"eskan-backend/internal/mailer"
	"eskan-backend/internal/models"
	"eskan-backend/internal/search"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PropertyService owns the listing lifecycle and every listing read.
type PropertyService struct {
	db        *gorm.DB
	audit     *AuditRecorder
	notifier  *Notifier
	mail      mailer.Mailer
	templates mailer.Templates
	media     MediaStore
	indexer   search.Indexer
	log       logrus.FieldLogger
	now       func() time.Time
}

// PropertyDeps are the collaborators of a PropertyService. Mailer and Media
// may be nil; a nil Indexer disables search.
type PropertyDeps struct {
	Audit     *AuditRecorder
	Notifier  *Notifier
	Mailer    mailer.Mailer
	Templates mailer.Templates
	Media     MediaStore
	Indexer   search.Indexer
	Logger    logrus.FieldLogger
}

func NewPropertyService(db *gorm.DB, deps PropertyDeps) *PropertyService {
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &PropertyService{
		db:        db,
		audit:     deps.Audit,
		notifier:  deps.Notifier,
		mail:      deps.Mailer,
		templates: deps.Templates,
		media:     deps.Media,
		indexer:   deps.Indexer,
		log:       log,
		now:       utcNow,
	}
	if s.audit == nil {
		s.audit = NewAuditRecorder(db, log)
	}
	if s.notifier == nil {
		s.notifier = NewNotifier(db, log)
	}
	if s.indexer == nil {
		s.indexer = search.Noop{}
	}
	return s
}

type ListQuery struct {
	UsageType string
	Rooms     *int
	Furnished *bool
	PriceMin  *float64
	PriceMax  *float64
	Area      string
	Search    string
	Ordering  string
	Page      int
	Limit     int
}

type PendingQuery struct {
	// Filter is one of today, this_week, this_month or empty.
	Filter   string
	Search   string
	Ordering string
}

type AuditQuery struct {
	PropertyID string
	Action     string
	UserID     *uint
}

type ModerationCounts struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Draft    int64 `json:"draft"`
}

var listOrdering = map[string]string{
	"price":       "properties.price ASC",
	"-price":      "properties.price DESC",
	"created_at":  "properties.created_at ASC",
	"-created_at": "properties.created_at DESC",
	"size":        "properties.size ASC",
	"-size":       "properties.size DESC",
}

var pendingOrdering = map[string]string{
	"submitted_at":  "properties.submitted_at ASC",
	"-submitted_at": "properties.submitted_at DESC",
	"created_at":    "properties.created_at ASC",
	"-created_at":   "properties.created_at DESC",
	"price":         "properties.price ASC",
	"-price":        "properties.price DESC",
}

// usageAliases maps the Arabic labels used by the web client.
var usageAliases = map[string]models.UsageType{
	"عائلات":   models.UsageFamilies,
	"طلاب":     models.UsageStudents,
	"استوديو":  models.UsageStudio,
	"مصيفين":   models.UsageVacation,
	"حجز يومي": models.UsageDaily,
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// List returns one page of the listings the viewer may see.
func (s *PropertyService) List(ctx context.Context, v *Viewer, q ListQuery) ([]models.Property, int64, error) {
	query := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Property{}).Scopes(Visible(v, ViewDefault), listFilters(q))
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count properties: %w", err)
	}

	order, ok := listOrdering[q.Ordering]
	if !ok {
		order = listOrdering["-created_at"]
	}
	page, limit := Paginate(q.Page, q.Limit)

	var properties []models.Property
	err := query().Scopes(withRelations).
		Order(order).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&properties).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list properties: %w", err)
	}
	return properties, total, nil
}

// Get loads a visible listing and records the view.
func (s *PropertyService) Get(ctx context.Context, v *Viewer, id, ip string) (*models.Property, error) {
	p, err := s.load(ctx, id, Visible(v, ViewDefault))
	if err != nil {
		return nil, err
	}
	s.RecordView(ctx, p, ip)
	return p, nil
}

// RecordView bumps the view counter and counts each address once as a
// unique visitor. Failures are logged; views never fail a read.
func (s *PropertyService) RecordView(ctx context.Context, p *models.Property, ip string) {
	if p.VisitorIPs == nil {
		p.VisitorIPs = map[string]interface{}{}
	}
	p.ViewCount++
	if ip != "" {
		hits := hitCount(p.VisitorIPs[ip])
		if hits == 0 {
			p.UniqueVisitors++
		}
		p.VisitorIPs[ip] = hits + 1
	}

	err := s.db.WithContext(ctx).Model(p).UpdateColumns(map[string]interface{}{
		"view_count":      p.ViewCount,
		"unique_visitors": p.UniqueVisitors,
		"visitor_ips":     p.VisitorIPs,
	}).Error
	if err != nil {
		s.log.WithFields(logrus.Fields{"property_id": p.ID, "error": err}).Warn("failed to record property view")
		return
	}
	s.notifier.ViewCountChanged(ctx, p)
}

// hitCount reads a map value that is an int in memory and a json.Number
// once datatypes.JSONMap has scanned it back from the database.
func hitCount(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}

// Mine lists the viewer's own live listings in any status.
func (s *PropertyService) Mine(ctx context.Context, v *Viewer) ([]models.Property, error) {
	return s.owned(ctx, v, "")
}

func (s *PropertyService) RejectedByMe(ctx context.Context, v *Viewer) ([]models.Property, error) {
	return s.owned(ctx, v, models.StatusRejected)
}

func (s *PropertyService) owned(ctx context.Context, v *Viewer, status models.PropertyStatus) ([]models.Property, error) {
	if !v.Authenticated() {
		return nil, Unauthorized("authentication required")
	}
	if v.ProfileID() == 0 {
		return nil, Validation("user has no profile")
	}
	db := s.db.WithContext(ctx).
		Scopes(withRelations).
		Where("properties.owner_id = ? AND properties.is_deleted = ?", v.ProfileID(), false)
	if status != "" {
		db = db.Where("properties.status = ?", status)
	}
	var properties []models.Property
	if err := db.Order("properties.created_at DESC").Find(&properties).Error; err != nil {
		return nil, fmt.Errorf("failed to list own properties: %w", err)
	}
	return properties, nil
}

func (s *PropertyService) Featured(ctx context.Context, v *Viewer) ([]models.Property, error) {
	var properties []models.Property
	err := s.db.WithContext(ctx).
		Scopes(Visible(v, ViewDefault), withRelations).
		Where("properties.featured = ?", true).
		Order("properties.created_at DESC").
		Find(&properties).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list featured properties: %w", err)
	}
	return properties, nil
}

// Pending is the admin review queue.
func (s *PropertyService) Pending(ctx context.Context, v *Viewer, q PendingQuery) ([]models.Property, error) {
	if err := requireAdmin(v); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx).
		Scopes(Visible(v, ViewDefault), withRelations).
		Where("properties.status = ?", models.StatusPending)

	today := startOfDay(s.now())
	switch q.Filter {
	case "today":
		db = db.Where("properties.submitted_at >= ?", today)
	case "this_week":
		offset := (int(today.Weekday()) + 6) % 7
		db = db.Where("properties.submitted_at >= ?", today.AddDate(0, 0, -offset))
	case "this_month":
		db = db.Where("properties.submitted_at >= ?", today.AddDate(0, 0, 1-today.Day()))
	}

	if term := strings.TrimSpace(q.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		db = db.Joins("LEFT JOIN areas ON areas.id = properties.area_id").
			Joins("LEFT JOIN user_profiles ON user_profiles.id = properties.owner_id").
			Joins("LEFT JOIN users ON users.id = user_profiles.user_id").
			Where("(LOWER(properties.name) LIKE ? OR LOWER(areas.name) LIKE ? OR LOWER(users.first_name) LIKE ?)", like, like, like)
	}

	order, ok := pendingOrdering[q.Ordering]
	if !ok {
		order = pendingOrdering["-submitted_at"]
	}
	var properties []models.Property
	if err := db.Order(order).Find(&properties).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending properties: %w", err)
	}
	return properties, nil
}

func (s *PropertyService) Rejected(ctx context.Context, v *Viewer) ([]models.Property, error) {
	if err := requireAdmin(v); err != nil {
		return nil, err
	}
	var properties []models.Property
	err := s.db.WithContext(ctx).
		Scopes(Visible(v, ViewDefault), withRelations).
		Where("properties.status = ?", models.StatusRejected).
		Order("properties.rejected_at DESC").
		Find(&properties).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list rejected properties: %w", err)
	}
	return properties, nil
}

func (s *PropertyService) Deleted(ctx context.Context, v *Viewer) ([]models.Property, error) {
	if err := requireAdmin(v); err != nil {
		return nil, err
	}
	var properties []models.Property
	err := s.db.WithContext(ctx).
		Scopes(Visible(v, ViewDeleted), withRelations).
		Preload("DeletedBy").
		Order("properties.deleted_at DESC").
		Find(&properties).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list deleted properties: %w", err)
	}
	return properties, nil
}

func (s *PropertyService) AuditTrail(ctx context.Context, v *Viewer, q AuditQuery) ([]models.PropertyAuditTrail, error) {
	if err := requireAdmin(v); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx).Preload("PerformedBy")
	if q.PropertyID != "" {
		db = db.Where("property_id = ?", parseIDOrNil(q.PropertyID))
	}
	if q.Action != "" {
		db = db.Where("action = ?", q.Action)
	}
	if q.UserID != nil {
		db = db.Where("performed_by_id = ?", *q.UserID)
	}
	var entries []models.PropertyAuditTrail
	if err := db.Order("timestamp DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load audit trail: %w", err)
	}
	return entries, nil
}

func (s *PropertyService) Statistics(ctx context.Context, v *Viewer) (*ModerationCounts, error) {
	if err := requireAdmin(v); err != nil {
		return nil, err
	}
	var rows []struct {
		Status models.PropertyStatus
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&models.Property{}).
		Select("status, COUNT(*) AS count").
		Where("is_deleted = ?", false).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count properties: %w", err)
	}

	counts := &ModerationCounts{}
	for _, r := range rows {
		counts.Total += r.Count
		switch r.Status {
		case models.StatusPending:
			counts.Pending = r.Count
		case models.StatusApproved:
			counts.Approved = r.Count
		case models.StatusRejected:
			counts.Rejected = r.Count
		case models.StatusDraft:
			counts.Draft = r.Count
		}
	}
	return counts, nil
}

// Search asks the search engine for matching ids and loads the visible
// ones in rank order. Without an engine it falls back to a database scan.
func (s *PropertyService) Search(ctx context.Context, v *Viewer, query string, limit int) ([]models.Property, error) {
	_, limit = Paginate(1, limit)
	ids, err := s.indexer.Search(ctx, query, int64(limit))
	if errors.Is(err, search.ErrDisabled) {
		properties, _, err := s.List(ctx, v, ListQuery{Search: query, Limit: limit})
		return properties, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search properties: %w", err)
	}
	if len(ids) == 0 {
		return []models.Property{}, nil
	}

	valid := make([]string, 0, len(ids))
	rank := make(map[uuid.UUID]int, len(ids))
	for i, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		valid = append(valid, id.String())
		rank[id] = i
	}

	var properties []models.Property
	err = s.db.WithContext(ctx).
		Scopes(Visible(v, ViewDefault), withRelations).
		Where("properties.id IN ?", valid).
		Find(&properties).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load search results: %w", err)
	}
	sortByRank(properties, rank)
	return properties, nil
}

func sortByRank(properties []models.Property, rank map[uuid.UUID]int) {
	sort.SliceStable(properties, func(i, j int) bool {
		return rank[properties[i].ID] < rank[properties[j].ID]
	})
}

func listFilters(q ListQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if usage := strings.TrimSpace(q.UsageType); usage != "" {
			if alias, ok := usageAliases[usage]; ok {
				usage = string(alias)
			}
			db = db.Where("properties.usage_type = ?", usage)
		}
		if q.Rooms != nil {
			db = db.Where("properties.rooms = ?", *q.Rooms)
		}
		if q.Furnished != nil {
			db = db.Where("properties.furnished = ?", *q.Furnished)
		}
		if q.PriceMin != nil {
			db = db.Where("properties.price >= ?", *q.PriceMin)
		}
		if q.PriceMax != nil {
			db = db.Where("properties.price <= ?", *q.PriceMax)
		}

		area := strings.TrimSpace(q.Area)
		term := strings.TrimSpace(q.Search)
		if area == "" && term == "" {
			return db
		}
		db = db.Joins("LEFT JOIN areas ON areas.id = properties.area_id")
		if area != "" {
			db = db.Where("areas.name = ?", area)
		}
		if term != "" {
			like := "%" + strings.ToLower(term) + "%"
			db = db.Where(
				"(LOWER(properties.name) LIKE ? OR LOWER(properties.address) LIKE ? OR LOWER(areas.name) LIKE ? OR LOWER(properties.description) LIKE ?)",
				like, like, like, like,
			)
		}
		return db
	}
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Area").
		Preload("Owner").
		Preload("Images", bySortOrder).
		Preload("Videos", bySortOrder)
}

func bySortOrder(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC, id ASC")
}

// Paginate clamps page to >= 1 and limit to (0, MaxPageSize].
func Paginate(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func (s *PropertyService) load(ctx context.Context, id string, scope func(*gorm.DB) *gorm.DB) (*models.Property, error) {
	var p models.Property
	err := s.db.WithContext(ctx).
		Scopes(scope, withRelations).
		Where("properties.id = ?", parseIDOrNil(id)).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("property not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load property: %w", err)
	}
	return &p, nil
}

// loadAny ignores visibility, including soft-deleted rows.
func (s *PropertyService) loadAny(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	var p models.Property
	err := s.db.WithContext(ctx).
		Scopes(withRelations).
		Where("properties.id = ?", id).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("property not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load property: %w", err)
	}
	return &p, nil
}

func (s *PropertyService) save(ctx context.Context, p *models.Property, fields ...string) error {
	if err := s.db.WithContext(ctx).Model(p).Select(fields).Updates(p).Error; err != nil {
		return fmt.Errorf("failed to update property: %w", err)
	}
	return nil
}

// parseIDOrNil maps malformed ids to uuid.Nil, which never matches a row.
func parseIDOrNil(raw string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil
	}
	return id
}

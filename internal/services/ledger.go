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

// GroupTotal is one row of a grouped money report.
type GroupTotal struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
}

// GrowthPercentage compares this period against the last one. With no
// baseline any positive value counts as 100% growth.
func GrowthPercentage(this, last float64) float64 {
	if last > 0 {
		return round2((this - last) / last * 100)
	}
	if this > 0 {
		return 100
	}
	return 0
}

type TransactionService struct {
	db *gorm.DB
}

func NewTransactionService(db *gorm.DB) *TransactionService {
	return &TransactionService{db: db}
}

type TransactionInput struct {
	PropertyName string  `json:"property_name" binding:"required"`
	Region       string  `json:"region"`
	AccountType  string  `json:"account_type"`
	PropertyType string  `json:"property_type"`
	RentPrice    float64 `json:"rent_price" binding:"gte=0"`
	Commission   float64 `json:"commission" binding:"gte=0"`
	Profit       float64 `json:"profit"`
}

type TransactionStats struct {
	TotalTransactions int64   `json:"total_transactions"`
	TotalProfit       float64 `json:"total_profit"`
	AverageProfit     float64 `json:"average_profit"`
	HighestProfit     float64 `json:"highest_profit"`
	TotalCommission   float64 `json:"total_commission"`
	TotalRentPrice    float64 `json:"total_rent_price"`
}

var transactionOrdering = map[string]string{
	"profit":      "profit ASC",
	"-profit":     "profit DESC",
	"created_at":  "created_at ASC",
	"-created_at": "created_at DESC",
	"rent_price":  "rent_price ASC",
	"-rent_price": "rent_price DESC",
}

// scope limits non-admins to their own deals.
func (s *TransactionService) scope(ctx context.Context, v *Viewer) (*gorm.DB, error) {
	if !v.Authenticated() {
		return nil, Unauthorized("authentication required")
	}
	db := s.db.WithContext(ctx).Model(&models.Transaction{})
	if v.IsAdmin() {
		return db, nil
	}
	if v.ProfileID() == 0 {
		return nil, Validation("user has no profile")
	}
	return db.Where("user_id = ?", v.ProfileID()), nil
}

func (s *TransactionService) List(ctx context.Context, v *Viewer, search, ordering string) ([]models.Transaction, error) {
	db, err := s.scope(ctx, v)
	if err != nil {
		return nil, err
	}
	if term := strings.TrimSpace(search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		db = db.Where("(LOWER(property_name) LIKE ? OR LOWER(region) LIKE ?)", like, like)
	}
	order, ok := transactionOrdering[ordering]
	if !ok {
		order = transactionOrdering["-created_at"]
	}
	var transactions []models.Transaction
	if err := db.Order(order).Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

// Mine lists only the viewer's own deals, even for admins.
func (s *TransactionService) Mine(ctx context.Context, v *Viewer) ([]models.Transaction, error) {
	if !v.Authenticated() {
		return nil, Unauthorized("authentication required")
	}
	if v.ProfileID() == 0 {
		return nil, Validation("user has no profile")
	}
	var transactions []models.Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", v.ProfileID()).
		Order("created_at DESC").
		Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

func (s *TransactionService) Get(ctx context.Context, v *Viewer, id uint) (*models.Transaction, error) {
	db, err := s.scope(ctx, v)
	if err != nil {
		return nil, err
	}
	var t models.Transaction
	if err := db.First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("transaction not found")
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	return &t, nil
}

func (s *TransactionService) Create(ctx context.Context, v *Viewer, in TransactionInput) (*models.Transaction, error) {
	if !v.Authenticated() {
		return nil, Unauthorized("authentication required")
	}
	if v.ProfileID() == 0 {
		return nil, Validation("user has no profile")
	}
	if err := validateTransaction(in); err != nil {
		return nil, err
	}
	t := models.Transaction{UserID: v.ProfileID()}
	applyTransaction(&t, in)
	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return &t, nil
}

func (s *TransactionService) Update(ctx context.Context, v *Viewer, id uint, in TransactionInput) (*models.Transaction, error) {
	t, err := s.Get(ctx, v, id)
	if err != nil {
		return nil, err
	}
	if err := validateTransaction(in); err != nil {
		return nil, err
	}
	applyTransaction(t, in)
	if err := s.db.WithContext(ctx).Save(t).Error; err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	return t, nil
}

func (s *TransactionService) Delete(ctx context.Context, v *Viewer, id uint) error {
	t, err := s.Get(ctx, v, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(t).Error; err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}

func (s *TransactionService) Statistics(ctx context.Context, v *Viewer) (*TransactionStats, error) {
	db, err := s.scope(ctx, v)
	if err != nil {
		return nil, err
	}
	stats := &TransactionStats{}
	err = db.Select("COUNT(*) AS total_transactions, " +
		"COALESCE(SUM(profit), 0) AS total_profit, " +
		"COALESCE(AVG(profit), 0) AS average_profit, " +
		"COALESCE(MAX(profit), 0) AS highest_profit, " +
		"COALESCE(SUM(commission), 0) AS total_commission, " +
		"COALESCE(SUM(rent_price), 0) AS total_rent_price").
		Scan(stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute transaction statistics: %w", err)
	}
	return stats, nil
}

// GroupBy totals profit per value of column, largest first. Only the
// whitelisted report columns are accepted.
func (s *TransactionService) GroupBy(ctx context.Context, v *Viewer, column string) ([]GroupTotal, error) {
	switch column {
	case "property_type", "region", "account_type":
	default:
		return nil, Validation("unknown grouping " + column)
	}
	db, err := s.scope(ctx, v)
	if err != nil {
		return nil, err
	}
	groups := []GroupTotal{}
	err = db.Select(column + " AS name, COUNT(*) AS count, COALESCE(SUM(profit), 0) AS total").
		Group(column).
		Order("total DESC").
		Scan(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group transactions by %s: %w", column, err)
	}
	withAverages(groups)
	return groups, nil
}

func validateTransaction(in TransactionInput) error {
	fields := map[string]string{}
	if strings.TrimSpace(in.PropertyName) == "" {
		fields["property_name"] = "required"
	}
	if in.RentPrice < 0 {
		fields["rent_price"] = "must not be negative"
	}
	if in.Commission < 0 {
		fields["commission"] = "must not be negative"
	}
	if len(fields) > 0 {
		return FieldErrors(fields)
	}
	return nil
}

func applyTransaction(t *models.Transaction, in TransactionInput) {
	t.PropertyName = strings.TrimSpace(in.PropertyName)
	t.Region = strings.TrimSpace(in.Region)
	t.AccountType = strings.TrimSpace(in.AccountType)
	t.PropertyType = strings.TrimSpace(in.PropertyType)
	t.RentPrice = in.RentPrice
	t.Commission = in.Commission
	t.Profit = in.Profit
}

func withAverages(groups []GroupTotal) {
	for i := range groups {
		if groups[i].Count > 0 {
			groups[i].Average = round2(groups[i].Total / float64(groups[i].Count))
		}
	}
}

// EarningService keeps each account's private earnings journal.
type EarningService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewEarningService(db *gorm.DB) *EarningService {
	return &EarningService{db: db, now: utcNow}
}

type EarningInput struct {
	PropertyName string
	Area         string
	PropertyType string
	Earnings     float64
	DealDate     time.Time
	Notes        string
}

type EarningQuery struct {
	Search   string
	Ordering string
	From     *time.Time
	To       *time.Time
}

type EarningsSummary struct {
	TotalEarnings     float64 `json:"total_earnings"`
	ThisMonthEarnings float64 `json:"this_month_earnings"`
	LastMonthEarnings float64 `json:"last_month_earnings"`
	AverageDeal       float64 `json:"average_deal"`
	TotalDeals        int64   `json:"total_deals"`
	GrowthPercentage  float64 `json:"growth_percentage"`
}

var earningOrdering = map[string]string{
	"deal_date":   "deal_date ASC",
	"-deal_date":  "deal_date DESC",
	"earnings":    "earnings ASC",
	"-earnings":   "earnings DESC",
	"created_at":  "created_at ASC",
	"-created_at": "created_at DESC",
}

func (s *EarningService) scope(ctx context.Context, v *Viewer) (*gorm.DB, error) {
	if !v.Authenticated() {
		return nil, Unauthorized("authentication required")
	}
	return s.db.WithContext(ctx).Model(&models.UserEarning{}).Where("user_id = ?", v.User.ID), nil
}

// List filters the journal by free text and an inclusive date range.
func (s *EarningService) List(ctx context.Context, v *Viewer, q EarningQuery) ([]models.UserEarning, error) {
	db, err := s.scope(ctx, v)
	if err != nil {
		return nil, err
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		db = db.Where("(LOWER(property_name) LIKE ? OR LOWER(area) LIKE ? OR LOWER(property_type) LIKE ?)", like, like, like)
	}
	if q.From != nil {
		db = db.Where("deal_date >= ?", startOfDay(q.From.UTC()))
	}
	if q.To != nil {
		db = db.Where("deal_date < ?", startOfDay(q.To.UTC()).AddDate(0, 0, 1))
	}
	order, ok := earningOrdering[q.Ordering]
	if !ok {
		order = earningOrdering["-deal_date"]
	}
	var earnings []models.UserEarning
	if err := db.Order(order).Find(&earnings).Error; err != nil {
		return nil, fmt.Errorf("failed to list earnings: %w", err)
	}
	return earnings, nil
}

func (s *EarningService) Get(ctx context.Context, v *Viewer, id uint) (*models.UserEarning, error) {
	db, err := s.scope(ctx, v)
	if err != nil {
		return nil, err
	}
	var e models.UserEarning
	if err := db.First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("earning not found")
		}
		return nil, fmt.Errorf("failed to load earning: %w", err)
	}
	return &e, nil
}

func (s *EarningService) Create(ctx context.Context, v *Viewer, in EarningInput) (*models.UserEarning, error) {
	if !v.Authenticated() {
		return nil, Unauthorized("authentication required")
	}
	if err := validateEarning(in); err != nil {
		return nil, err
	}
	e := models.UserEarning{UserID: v.User.ID}
	applyEarning(&e, in)
	if err := s.db.WithContext(ctx).Create(&e).Error; err != nil {
		return nil, fmt.Errorf("failed to create earning: %w", err)
	}
	return &e, nil
}

func (s *EarningService) Update(ctx context.Context, v *Viewer, id uint, in EarningInput) (*models.UserEarning, error) {
	e, err := s.Get(ctx, v, id)
	if err != nil {
		return nil, err
	}
	if err := validateEarning(in); err != nil {
		return nil, err
	}
	applyEarning(e, in)
	if err := s.db.WithContext(ctx).Save(e).Error; err != nil {
		return nil, fmt.Errorf("failed to update earning: %w", err)
	}
	return e, nil
}

func (s *EarningService) Delete(ctx context.Context, v *Viewer, id uint) error {
	e, err := s.Get(ctx, v, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(e).Error; err != nil {
		return fmt.Errorf("failed to delete earning: %w", err)
	}
	return nil
}

// Summary compares the current calendar month with the previous one.
func (s *EarningService) Summary(ctx context.Context, v *Viewer) (*EarningsSummary, error) {
	db, err := s.scope(ctx, v)
	if err != nil {
		return nil, err
	}
	var entries []models.UserEarning
	if err := db.Select("earnings, deal_date").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load earnings: %w", err)
	}

	now := s.now()
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonth := thisMonth.AddDate(0, -1, 0)

	summary := &EarningsSummary{TotalDeals: int64(len(entries))}
	for _, e := range entries {
		summary.TotalEarnings += e.Earnings
		deal := e.DealDate.UTC()
		switch {
		case !deal.Before(thisMonth):
			summary.ThisMonthEarnings += e.Earnings
		case !deal.Before(lastMonth):
			summary.LastMonthEarnings += e.Earnings
		}
	}
	if summary.TotalDeals > 0 {
		summary.AverageDeal = round2(summary.TotalEarnings / float64(summary.TotalDeals))
	}
	summary.GrowthPercentage = GrowthPercentage(summary.ThisMonthEarnings, summary.LastMonthEarnings)
	return summary, nil
}

// GroupBy totals earnings per property_type or area, largest first.
func (s *EarningService) GroupBy(ctx context.Context, v *Viewer, column string) ([]GroupTotal, error) {
	switch column {
	case "property_type", "area":
	default:
		return nil, Validation("unknown grouping " + column)
	}
	db, err := s.scope(ctx, v)
	if err != nil {
		return nil, err
	}
	groups := []GroupTotal{}
	err = db.Select(column + " AS name, COUNT(*) AS count, COALESCE(SUM(earnings), 0) AS total").
		Group(column).
		Order("total DESC").
		Scan(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group earnings by %s: %w", column, err)
	}
	withAverages(groups)
	return groups, nil
}

// Monthly totals earnings over twelve 30-day blocks ending today.
func (s *EarningService) Monthly(ctx context.Context, v *Viewer) ([]models.PeriodTotal, error) {
	db, err := s.scope(ctx, v)
	if err != nil {
		return nil, err
	}
	blocks := thirtyDayBlocks(s.now(), monthlyBlocks)

	var entries []models.UserEarning
	err = db.Select("earnings, deal_date").
		Where("deal_date >= ?", blocks[0].Start).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load earnings: %w", err)
	}
	for _, e := range entries {
		if i := blockIndex(blocks, e.DealDate); i >= 0 {
			blocks[i].Count++
			blocks[i].Total += e.Earnings
		}
	}
	return blocks, nil
}

func validateEarning(in EarningInput) error {
	fields := map[string]string{}
	if strings.TrimSpace(in.PropertyName) == "" {
		fields["property_name"] = "required"
	}
	if in.Earnings < 0 {
		fields["earnings"] = "must not be negative"
	}
	if in.DealDate.IsZero() {
		fields["deal_date"] = "required"
	}
	if len(fields) > 0 {
		return FieldErrors(fields)
	}
	return nil
}

func applyEarning(e *models.UserEarning, in EarningInput) {
	e.PropertyName = strings.TrimSpace(in.PropertyName)
	e.Area = strings.TrimSpace(in.Area)
	e.PropertyType = strings.TrimSpace(in.PropertyType)
	e.Earnings = in.Earnings
	e.DealDate = in.DealDate.UTC()
	e.Notes = in.Notes
}

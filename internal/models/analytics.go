package models

import (
	"time"
)

// Dashboard read models. None of these are persisted.

type PropertyStats struct {
	Total      int64   `json:"total"`
	Approved   int64   `json:"approved"`
	Pending    int64   `json:"pending"`
	Draft      int64   `json:"draft"`
	Rejected   int64   `json:"rejected"`
	Deleted    int64   `json:"deleted"`
	Featured   int64   `json:"featured"`
	TotalValue float64 `json:"total_value"`
	AvgPrice   float64 `json:"avg_price"`
	Today      int64   `json:"today"`
}

type UserStats struct {
	Total               int64            `json:"total"`
	NewToday            int64            `json:"new_today"`
	ByType              map[string]int64 `json:"by_type"`
	ActiveUsers         int64            `json:"active_users"`
	TotalVisits         int64            `json:"total_visits"`
	TotalUniqueVisitors int64            `json:"total_unique_visitors"`
	VisitorsToday       int64            `json:"visitors_today"`
}

type AreaStat struct {
	ID            uint    `json:"id"`
	Name          string  `json:"name"`
	PropertyCount int64   `json:"property_count"`
	AvgPrice      float64 `json:"avg_price"`
	TotalValue    float64 `json:"total_value"`
}

// NamedValue is one slice of a chart: a label and a count.
type NamedValue struct {
	Name     string  `json:"name"`
	Value    int64   `json:"value"`
	AvgPrice float64 `json:"avg_price,omitempty"`
}

type OfferStats struct {
	Total       int64   `json:"total"`
	Active      int64   `json:"active"`
	AvgDiscount float64 `json:"avg_discount"`
}

type ContactStats struct {
	Total     int64   `json:"total"`
	Today     int64   `json:"today"`
	Unread    int64   `json:"unread"`
	Archived  int64   `json:"archived"`
	AvgPerDay float64 `json:"avg_per_day"`
}

type PriceBucket struct {
	Label string   `json:"label"`
	Min   float64  `json:"min"`
	Max   *float64 `json:"max"`
	Value int64    `json:"value"`
}

type RecentActivity struct {
	ID          uint      `json:"id"`
	User        string    `json:"user"`
	Action      string    `json:"action"`
	ObjectName  string    `json:"object_name"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

type TopProperty struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Area        string  `json:"area"`
	Price       float64 `json:"price"`
	Rooms       int     `json:"rooms"`
	ViewCount   int     `json:"view_count"`
	ImagesCount int64   `json:"images_count"`
	Featured    bool    `json:"featured"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// PeriodTotal is one fixed-width window of a series, oldest first.
type PeriodTotal struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Count int64     `json:"count"`
	Total float64   `json:"total"`
}

type TopOwner struct {
	ID         uint     `json:"id"`
	Name       string   `json:"name"`
	Avatar     string   `json:"avatar"`
	Properties int64    `json:"properties"`
	UserType   UserType `json:"user_type"`
}

type DeviceStat struct {
	Device      string  `json:"device"`
	Label       string  `json:"label"`
	Count       int64   `json:"count"`
	TotalVisits int64   `json:"total_visits"`
	Percentage  float64 `json:"percentage"`
}

type DashboardSummary struct {
	Properties        PropertyStats    `json:"properties"`
	Users             UserStats        `json:"users"`
	Areas             []AreaStat       `json:"areas"`
	PropertyTypes     []NamedValue     `json:"property_types"`
	RoomsDistribution []NamedValue     `json:"rooms_distribution"`
	Offers            OfferStats       `json:"offers"`
	ContactMessages   ContactStats     `json:"contact_messages"`
	PriceDistribution []PriceBucket    `json:"price_distribution"`
	RecentActivities  []RecentActivity `json:"recent_activities"`
	TopProperties     []TopProperty    `json:"top_properties"`
	DailyActivity     []DailyCount     `json:"daily_activity"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

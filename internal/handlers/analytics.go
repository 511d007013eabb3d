package handlers

import (
	"context"
	"net/http"
	"strings"

	"eskan-backend/internal/models"
	"eskan-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// AnalyticsHandler serves the admin dashboard. Routes are mounted behind
// AdminRequired; the service itself does not check the caller.
type AnalyticsHandler struct {
	analytics *services.AnalyticsService
}

func NewAnalyticsHandler(analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

func (h *AnalyticsHandler) Summary(c *gin.Context) {
	h.serve(c, func(ctx context.Context) (interface{}, error) { return h.analytics.Summary(ctx) })
}

func (h *AnalyticsHandler) PropertyStats(c *gin.Context) {
	h.serve(c, func(ctx context.Context) (interface{}, error) { return h.analytics.PropertyStats(ctx) })
}

func (h *AnalyticsHandler) UserStats(c *gin.Context) {
	h.serve(c, func(ctx context.Context) (interface{}, error) { return h.analytics.UserStats(ctx) })
}

func (h *AnalyticsHandler) AreaStats(c *gin.Context) {
	limit := queryInt(c, "limit", 10)
	h.serve(c, func(ctx context.Context) (interface{}, error) { return h.analytics.AreaStats(ctx, limit) })
}

func (h *AnalyticsHandler) PropertyTypes(c *gin.Context) {
	h.serve(c, func(ctx context.Context) (interface{}, error) { return h.analytics.PropertyTypes(ctx) })
}

func (h *AnalyticsHandler) RoomsDistribution(c *gin.Context) {
	h.serve(c, func(ctx context.Context) (interface{}, error) { return h.analytics.RoomsDistribution(ctx) })
}

func (h *AnalyticsHandler) OfferStats(c *gin.Context) {
	h.serve(c, func(ctx context.Context) (interface{}, error) { return h.analytics.OfferStats(ctx) })
}

func (h *AnalyticsHandler) ContactStats(c *gin.Context) {
	h.serve(c, func(ctx context.Context) (interface{}, error) { return h.analytics.ContactStats(ctx) })
}

func (h *AnalyticsHandler) PriceDistribution(c *gin.Context) {
	h.serve(c, func(ctx context.Context) (interface{}, error) { return h.analytics.PriceDistribution(ctx) })
}

func (h *AnalyticsHandler) RecentActivities(c *gin.Context) {
	limit := queryInt(c, "limit", 15)
	h.serve(c, func(ctx context.Context) (interface{}, error) { return h.analytics.RecentActivities(ctx, limit) })
}

func (h *AnalyticsHandler) TopProperties(c *gin.Context) {
	limit := queryInt(c, "limit", 10)
	h.serve(c, func(ctx context.Context) (interface{}, error) { return h.analytics.TopProperties(ctx, limit) })
}

func (h *AnalyticsHandler) DailyActivity(c *gin.Context) {
	days := queryInt(c, "days", 30)
	h.serve(c, func(ctx context.Context) (interface{}, error) { return h.analytics.DailyActivity(ctx, days) })
}

func (h *AnalyticsHandler) MonthlyListings(c *gin.Context) {
	h.serve(c, func(ctx context.Context) (interface{}, error) { return h.analytics.MonthlyListings(ctx) })
}

// TopOwners defaults to landlords when user_type is missing.
func (h *AnalyticsHandler) TopOwners(c *gin.Context) {
	userType := models.UserType(strings.ToLower(c.Query("user_type")))
	limit := queryInt(c, "limit", 4)
	h.serve(c, func(ctx context.Context) (interface{}, error) { return h.analytics.TopOwners(ctx, userType, limit) })
}

func (h *AnalyticsHandler) DeviceStats(c *gin.Context) {
	h.serve(c, func(ctx context.Context) (interface{}, error) { return h.analytics.DeviceStats(ctx) })
}

func (h *AnalyticsHandler) serve(c *gin.Context, load func(ctx context.Context) (interface{}, error)) {
	data, err := load(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

package handlers

import (
	"net/http"

	"eskan-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type VisitorHandler struct {
	visitors *services.VisitorService
}

func NewVisitorHandler(visitors *services.VisitorService) *VisitorHandler {
	return &VisitorHandler{visitors: visitors}
}

// Record is called by the frontend once per page load.
func (h *VisitorHandler) Record(c *gin.Context) {
	visitor, err := h.visitors.RecordVisit(c.Request.Context(), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, visitor)
}

func (h *VisitorHandler) TodayCount(c *gin.Context) {
	count, err := h.visitors.TodayCount(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"today_count": count})
}

func (h *VisitorHandler) TotalCount(c *gin.Context) {
	totals, err := h.visitors.Totals(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}

func (h *VisitorHandler) DailyStats(c *gin.Context) {
	stats, err := h.visitors.DailyStats(c.Request.Context(), queryInt(c, "days", 7))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *VisitorHandler) List(c *gin.Context) {
	page, limit := pageParams(c)
	visitors, total, err := h.visitors.List(c.Request.Context(), viewer(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pageResponse{Results: visitors, Count: total, Page: page, PageSize: limit})
}

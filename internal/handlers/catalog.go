package handlers

import (
	"context"
	"net/http"
	"time"

	"eskan-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves areas, offers, the contact inbox and the activity
// log.
type CatalogHandler struct {
	catalog *services.CatalogService
}

type OfferRequest struct {
	Title              string  `json:"title" binding:"required,max=200"`
	Description        string  `json:"description"`
	DiscountPercentage int     `json:"discount_percentage" binding:"gte=0,lte=100"`
	TargetAudience     string  `json:"target_audience" binding:"max=20"`
	StartDate          string  `json:"start_date" binding:"required"`
	EndDate            *string `json:"end_date"`
	IsActive           *bool   `json:"is_active"`
}

func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func (h *CatalogHandler) ListAreas(c *gin.Context) {
	areas, err := h.catalog.Areas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, areas)
}

func (h *CatalogHandler) CreateArea(c *gin.Context) {
	var req services.AreaInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	area, err := h.catalog.CreateArea(c.Request.Context(), viewer(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, area)
}

func (h *CatalogHandler) UpdateArea(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req services.AreaInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	area, err := h.catalog.UpdateArea(c.Request.Context(), viewer(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, area)
}

func (h *CatalogHandler) DeleteArea(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteArea(c.Request.Context(), viewer(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) ListOffers(c *gin.Context) {
	offers, err := h.catalog.ActiveOffers(c.Request.Context(), c.Query("ordering"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, offers)
}

func (h *CatalogHandler) OffersByAudience(c *gin.Context) {
	offers, err := h.catalog.OffersFor(c.Request.Context(), c.Query("audience"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, offers)
}

func (h *CatalogHandler) CreateOffer(c *gin.Context) {
	in, ok := bindOffer(c)
	if !ok {
		return
	}
	offer, err := h.catalog.CreateOffer(c.Request.Context(), viewer(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, offer)
}

func (h *CatalogHandler) UpdateOffer(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	in, ok := bindOffer(c)
	if !ok {
		return
	}
	offer, err := h.catalog.UpdateOffer(c.Request.Context(), viewer(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

func (h *CatalogHandler) DeleteOffer(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteOffer(c.Request.Context(), viewer(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// bindOffer accepts dates as YYYY-MM-DD or RFC 3339. New offers are active
// unless the request says otherwise.
func bindOffer(c *gin.Context) (services.OfferInput, bool) {
	var req OfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return services.OfferInput{}, false
	}
	start, err := parseDateTime(req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "fields": gin.H{"start_date": "invalid date"}})
		return services.OfferInput{}, false
	}
	in := services.OfferInput{
		Title:              req.Title,
		Description:        req.Description,
		DiscountPercentage: req.DiscountPercentage,
		TargetAudience:     req.TargetAudience,
		StartDate:          start,
		IsActive:           req.IsActive == nil || *req.IsActive,
	}
	if req.EndDate != nil && *req.EndDate != "" {
		end, err := parseDateTime(*req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "fields": gin.H{"end_date": "invalid date"}})
			return services.OfferInput{}, false
		}
		in.EndDate = &end
	}
	return in, true
}

func parseDateTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(dateLayout, raw)
}

func (h *CatalogHandler) SubmitContact(c *gin.Context) {
	var req services.ContactInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	msg, err := h.catalog.SubmitContact(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *CatalogHandler) ListContacts(c *gin.Context) {
	messages, err := h.catalog.Contacts(c.Request.Context(), viewer(c), false)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *CatalogHandler) UnreadContacts(c *gin.Context) {
	messages, err := h.catalog.Contacts(c.Request.Context(), viewer(c), true)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *CatalogHandler) GetContact(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	msg, err := h.catalog.Contact(c.Request.Context(), viewer(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *CatalogHandler) MarkContactRead(c *gin.Context) {
	h.contactAction(c, h.catalog.MarkContactRead, "Message marked as read")
}

func (h *CatalogHandler) ArchiveContact(c *gin.Context) {
	h.contactAction(c, h.catalog.ArchiveContact, "Message archived")
}

func (h *CatalogHandler) DeleteContact(c *gin.Context) {
	h.contactAction(c, h.catalog.DeleteContact, "Message deleted")
}

func (h *CatalogHandler) contactAction(c *gin.Context, action func(ctx context.Context, v *services.Viewer, id uint) error, message string) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := action(c.Request.Context(), viewer(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

func (h *CatalogHandler) ActivityLogs(c *gin.Context) {
	from, ok := queryDate(c, "date_from")
	if !ok {
		return
	}
	to, ok := queryDate(c, "date_to")
	if !ok {
		return
	}
	page, limit := pageParams(c)
	logs, total, err := h.catalog.ActivityLogs(c.Request.Context(), viewer(c), services.ActivityQuery{
		Action:   c.Query("action"),
		Username: c.Query("user"),
		From:     from,
		To:       to,
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pageResponse{Results: logs, Count: total, Page: page, PageSize: limit})
}

package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"eskan-backend/internal/config"
	"eskan-backend/internal/models"
	"eskan-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type PropertyHandler struct {
	properties *services.PropertyService
	cfg        *config.Config
}

// coordinate accepts a JSON number, a JSON string or a form value. The
// service decides whether the raw text is a usable coordinate.
type coordinate string

func (c *coordinate) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*c = ""
		return nil
	}
	*c = coordinate(strings.Trim(raw, `"`))
	return nil
}

func (c *coordinate) UnmarshalParam(param string) error {
	*c = coordinate(param)
	return nil
}

type PropertyRequest struct {
	Name          string           `json:"name" form:"name" binding:"required,max=200"`
	AreaID        *uint            `json:"area_id" form:"area_id"`
	Address       string           `json:"address" form:"address" binding:"max=300"`
	Price         float64          `json:"price" form:"price" binding:"gte=0"`
	OriginalPrice *float64         `json:"original_price" form:"original_price"`
	Discount      int              `json:"discount" form:"discount" binding:"gte=0,lte=100"`
	Rooms         int              `json:"rooms" form:"rooms" binding:"gte=0"`
	Beds          int              `json:"beds" form:"beds" binding:"gte=0"`
	Bathrooms     int              `json:"bathrooms" form:"bathrooms" binding:"gte=0"`
	Size          float64          `json:"size" form:"size" binding:"gte=0"`
	Floor         int              `json:"floor" form:"floor"`
	Furnished     bool             `json:"furnished" form:"furnished"`
	UsageType     models.UsageType `json:"usage_type" form:"usage_type"`
	Description   string           `json:"description" form:"description"`
	Contact       string           `json:"contact" form:"contact" binding:"max=50"`
	Featured      bool             `json:"featured" form:"featured"`
	Latitude      coordinate       `json:"latitude" form:"latitude"`
	Longitude     coordinate       `json:"longitude" form:"longitude"`
}

type PropertyUpdateRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	Contact *string `json:"contact"`
}

type ModerationRequest struct {
	ApprovalNotes string `json:"approval_notes"`
}

type DeleteRequest struct {
	Notes string `json:"notes"`
}

func NewPropertyHandler(properties *services.PropertyService, cfg *config.Config) *PropertyHandler {
	return &PropertyHandler{properties: properties, cfg: cfg}
}

func (h *PropertyHandler) List(c *gin.Context) {
	page, limit := pageParams(c)
	q := services.ListQuery{
		UsageType: c.Query("usage_type"),
		Furnished: queryBool(c, "furnished"),
		PriceMin:  queryFloat(c, "price_min"),
		PriceMax:  queryFloat(c, "price_max"),
		Area:      c.Query("area"),
		Search:    c.Query("search"),
		Ordering:  c.Query("ordering"),
		Page:      page,
		Limit:     limit,
	}
	if rooms, err := strconv.Atoi(c.Query("rooms")); err == nil {
		q.Rooms = &rooms
	}

	properties, total, err := h.properties.List(c.Request.Context(), viewer(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pageResponse{Results: properties, Count: total, Page: page, PageSize: limit})
}

func (h *PropertyHandler) Get(c *gin.Context) {
	p, err := h.properties.Get(c.Request.Context(), viewer(c), c.Param("id"), c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Create accepts either a JSON body or a multipart form whose images and
// videos fields carry the media in display order.
func (h *PropertyHandler) Create(c *gin.Context) {
	var req PropertyRequest
	var images, videos []services.MediaUpload

	if strings.HasPrefix(c.ContentType(), binding.MIMEMultipartPOSTForm) {
		if err := c.ShouldBindWith(&req, binding.FormMultipart); err != nil {
			bindError(c, err)
			return
		}
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
			return
		}
		if images, err = h.mediaUploads(form.File["images"], h.cfg.AllowedImageTypes); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "fields": gin.H{"images": err.Error()}})
			return
		}
		if videos, err = h.mediaUploads(form.File["videos"], h.cfg.AllowedVideoTypes); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "fields": gin.H{"videos": err.Error()}})
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	in := services.PropertyInput{
		Name:          req.Name,
		AreaID:        req.AreaID,
		Address:       req.Address,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Discount:      req.Discount,
		Rooms:         req.Rooms,
		Beds:          req.Beds,
		Bathrooms:     req.Bathrooms,
		Size:          req.Size,
		Floor:         req.Floor,
		Furnished:     req.Furnished,
		UsageType:     req.UsageType,
		Description:   req.Description,
		Contact:       req.Contact,
		Featured:      req.Featured,
		Latitude:      string(req.Latitude),
		Longitude:     string(req.Longitude),
	}
	p, err := h.properties.Submit(c.Request.Context(), viewer(c), in, images, videos, c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *PropertyHandler) mediaUploads(headers []*multipart.FileHeader, allowed []string) ([]services.MediaUpload, error) {
	uploads := make([]services.MediaUpload, 0, len(headers))
	for _, header := range headers {
		if err := h.validateMediaFile(header, allowed); err != nil {
			return nil, fmt.Errorf("%s: %w", header.Filename, err)
		}
		header := header
		uploads = append(uploads, services.MediaUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Open: func() (io.ReadCloser, error) {
				return header.Open()
			},
		})
	}
	return uploads, nil
}

func (h *PropertyHandler) validateMediaFile(header *multipart.FileHeader, allowed []string) error {
	if h.cfg.MaxFileSize > 0 && header.Size > h.cfg.MaxFileSize {
		return fmt.Errorf("file too large, maximum size is %d bytes", h.cfg.MaxFileSize)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = sniffContentType(header)
	}
	for _, allowedType := range allowed {
		if contentType == allowedType {
			return nil
		}
	}
	return fmt.Errorf("invalid file type, allowed types are: %s", strings.Join(allowed, ", "))
}

func sniffContentType(header *multipart.FileHeader) string {
	f, err := header.Open()
	if err != nil {
		return ""
	}
	defer f.Close()
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, f, 512); err != nil && err != io.EOF {
		return ""
	}
	contentType := http.DetectContentType(buf.Bytes())
	header.Header.Set("Content-Type", contentType)
	return contentType
}

func (h *PropertyHandler) Update(c *gin.Context) {
	var req PropertyUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	p, err := h.properties.Update(c.Request.Context(), viewer(c), c.Param("id"), services.PropertyUpdate{
		Name:    req.Name,
		Address: req.Address,
		Contact: req.Contact,
	}, c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PropertyHandler) Delete(c *gin.Context) {
	var req DeleteRequest
	// The body is optional on DELETE.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	if err := h.properties.SoftDelete(c.Request.Context(), viewer(c), c.Param("id"), req.Notes, c.ClientIP()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Property deleted successfully"})
}

func (h *PropertyHandler) Approve(c *gin.Context) {
	var req ModerationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	p, err := h.properties.Approve(c.Request.Context(), viewer(c), c.Param("id"), req.ApprovalNotes, c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PropertyHandler) Reject(c *gin.Context) {
	var req ModerationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	p, err := h.properties.Reject(c.Request.Context(), viewer(c), c.Param("id"), req.ApprovalNotes, c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PropertyHandler) Resubmit(c *gin.Context) {
	p, err := h.properties.Resubmit(c.Request.Context(), viewer(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PropertyHandler) Restore(c *gin.Context) {
	p, err := h.properties.Restore(c.Request.Context(), viewer(c), c.Param("id"), c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PropertyHandler) Mine(c *gin.Context) {
	h.respondList(c, h.properties.Mine)
}

func (h *PropertyHandler) RejectedByMe(c *gin.Context) {
	h.respondList(c, h.properties.RejectedByMe)
}

func (h *PropertyHandler) Featured(c *gin.Context) {
	h.respondList(c, h.properties.Featured)
}

func (h *PropertyHandler) Rejected(c *gin.Context) {
	h.respondList(c, h.properties.Rejected)
}

func (h *PropertyHandler) Deleted(c *gin.Context) {
	h.respondList(c, h.properties.Deleted)
}

func (h *PropertyHandler) Pending(c *gin.Context) {
	properties, err := h.properties.Pending(c.Request.Context(), viewer(c), services.PendingQuery{
		Filter:   c.Query("filter"),
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": properties, "count": len(properties)})
}

func (h *PropertyHandler) AuditTrail(c *gin.Context) {
	q := services.AuditQuery{
		PropertyID: c.Query("property_id"),
		Action:     c.Query("action"),
	}
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		uid := uint(id)
		q.UserID = &uid
	}
	trail, err := h.properties.AuditTrail(c.Request.Context(), viewer(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trail)
}

func (h *PropertyHandler) Statistics(c *gin.Context) {
	stats, err := h.properties.Statistics(c.Request.Context(), viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *PropertyHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	properties, err := h.properties.Search(c.Request.Context(), viewer(c), query, queryInt(c, "limit", services.DefaultPageSize))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": properties, "count": len(properties)})
}

func (h *PropertyHandler) respondList(c *gin.Context, list func(ctx context.Context, v *services.Viewer) ([]models.Property, error)) {
	properties, err := list(c.Request.Context(), viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": properties, "count": len(properties)})
}

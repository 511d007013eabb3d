package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"eskan-backend/internal/middleware"
	"eskan-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

// respondError writes err using the service error taxonomy. Anything that
// is not a *services.Error is reported as an internal error and attached
// to the context for the request logger.
func respondError(c *gin.Context, err error) {
	var e *services.Error
	if errors.As(err, &e) {
		body := gin.H{"error": e.Message}
		if len(e.Fields) > 0 {
			body["fields"] = e.Fields
		}
		c.JSON(e.Kind.Status(), body)
		return
	}
	c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// bindError turns a binding failure into a 400 with per-field messages.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fieldName(fe)] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "fields": fields})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func viewer(c *gin.Context) *services.Viewer {
	return middleware.CurrentViewer(c)
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, key string, def int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return def
}

// pageParams accepts page_size and the older limit spelling.
func pageParams(c *gin.Context) (int, int) {
	page := queryInt(c, "page", 1)
	size := queryInt(c, "page_size", 0)
	if size == 0 {
		size = queryInt(c, "limit", 0)
	}
	return services.Paginate(page, size)
}

func queryBool(c *gin.Context, key string) *bool {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func queryFloat(c *gin.Context, key string) *float64 {
	v, err := strconv.ParseFloat(c.Query(key), 64)
	if err != nil {
		return nil
	}
	return &v
}

func queryDate(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key + ", use YYYY-MM-DD"})
		return nil, false
	}
	return &t, true
}

type pageResponse struct {
	Results  interface{} `json:"results"`
	Count    int64       `json:"count"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

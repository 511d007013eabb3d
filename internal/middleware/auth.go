package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"eskan-backend/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const viewerKey = "viewer"

// Authenticator resolves a bearer token into the calling account.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*services.Viewer, error)
}

type Auth struct {
	accounts Authenticator
}

func NewAuth(accounts Authenticator) *Auth {
	return &Auth{accounts: accounts}
}

// Optional attaches the viewer when a valid token is present and lets
// anonymous requests through. An invalid token is still rejected.
func (a *Auth) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		if !a.attach(c, token) {
			return
		}
		c.Next()
	}
}

func (a *Auth) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}
		if !a.attach(c, token) {
			return
		}
		c.Next()
	}
}

// AdminRequired must run after Required.
func (a *Auth) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentViewer(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

func (a *Auth) attach(c *gin.Context, token string) bool {
	viewer, err := a.accounts.Authenticate(c.Request.Context(), token)
	if err != nil {
		status := services.KindOf(err).Status()
		if status == http.StatusInternalServerError {
			c.Error(err)
			c.AbortWithStatusJSON(status, gin.H{"error": "internal server error"})
			return false
		}
		c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
		return false
	}
	c.Set(viewerKey, viewer)
	return true
}

// CurrentViewer returns the authenticated viewer or nil.
func CurrentViewer(c *gin.Context) *services.Viewer {
	if v, ok := c.Get(viewerKey); ok {
		if viewer, ok := v.(*services.Viewer); ok {
			return viewer
		}
	}
	return nil
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter used by websocket clients.
func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(c.Query("access_token"))
}

func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

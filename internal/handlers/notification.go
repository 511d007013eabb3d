package handlers

import (
	"net/http"

	"eskan-backend/internal/services"
	"eskan-backend/internal/websocket"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications *services.NotificationService
	hub           *websocket.Hub
}

func NewNotificationHandler(notifications *services.NotificationService, hub *websocket.Hub) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, hub: hub}
}

func (h *NotificationHandler) List(c *gin.Context) {
	page, limit := pageParams(c)
	items, total, err := h.notifications.List(c.Request.Context(), viewer(c), services.NotificationQuery{
		Type:   c.Query("type"),
		IsRead: queryBool(c, "is_read"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pageResponse{Results: items, Count: total, Page: page, PageSize: limit})
}

func (h *NotificationHandler) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	n, err := h.notifications.Get(c.Request.Context(), viewer(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	n, err := h.notifications.MarkRead(c.Request.Context(), viewer(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	count, err := h.notifications.MarkAllRead(c.Request.Context(), viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "count": count})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.notifications.UnreadCount(c.Request.Context(), viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func (h *NotificationHandler) Recent(c *gin.Context) {
	items, err := h.notifications.Recent(c.Request.Context(), viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), viewer(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) ClearAll(c *gin.Context) {
	count, err := h.notifications.ClearAll(c.Request.Context(), viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications cleared", "count": count})
}

// Stream upgrades to a websocket that receives the viewer's new
// notifications as they are created.
func (h *NotificationHandler) Stream(c *gin.Context) {
	id := viewer(c).ProfileID()
	if id == 0 {
		respondError(c, services.Validation("user has no profile"))
		return
	}
	h.hub.HandleWebSocket(c, id)
}

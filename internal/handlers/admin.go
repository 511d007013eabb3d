package handlers

import (
	"net/http"

	"eskan-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves the admin user directory.
type AdminHandler struct {
	accounts *services.AccountService
}

type UpdateUserStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive"`
}

func NewAdminHandler(accounts *services.AccountService) *AdminHandler {
	return &AdminHandler{accounts: accounts}
}

func (h *AdminHandler) GetUsers(c *gin.Context) {
	page, limit := pageParams(c)
	users, total, err := h.accounts.ListUsers(c.Request.Context(), viewer(c), services.UserQuery{
		Role:   c.Query("role"),
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pageResponse{Results: users, Count: total, Page: page, PageSize: limit})
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	user, err := h.accounts.GetUser(c.Request.Context(), viewer(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req UpdateUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	user, err := h.accounts.SetUserStatus(c.Request.Context(), viewer(c), id, req.Status == "active")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/finvera/expense-approval/internal/domain/entity"
)

// SetManagerRequest assigns or clears a user's direct manager
type SetManagerRequest struct {
	ManagerID *int64 `json:"manager_id"`
}

// SetRoleRequest changes a user's role
type SetRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// ListUsers handles GET /api/users
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.userService.ListByCompany(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: users})
}

// ListManagers handles GET /api/users/managers
func (h *Handlers) ListManagers(c *gin.Context) {
	users, err := h.userService.ListManagers(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: users})
}

// ListSubordinates handles GET /api/users/subordinates
func (h *Handlers) ListSubordinates(c *gin.Context) {
	users, err := h.userService.ListSubordinates(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: users})
}

// SetUserManager handles PUT /api/users/:id/manager
func (h *Handlers) SetUserManager(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req SetManagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	user, err := h.userService.SetManager(c.Request.Context(), currentUserID(c), id, req.ManagerID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: user})
}

// SetUserRole handles PUT /api/users/:id/role
func (h *Handlers) SetUserRole(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	role := entity.RoleType(strings.ToUpper(req.Role))
	switch role {
	case entity.RoleAdmin, entity.RoleManager, entity.RoleEmployee:
	default:
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "unknown role: " + req.Role})
		return
	}

	user, err := h.userService.SetRole(c.Request.Context(), currentUserID(c), id, role)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: user})
}

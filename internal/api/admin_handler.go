package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"smartlink/internal/auth"
)

// AdminHandler serves account approval and management for admins.
type AdminHandler struct {
	auth *auth.Service
	log  logrus.FieldLogger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(authSvc *auth.Service, logger logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{auth: authSvc, log: logger}
}

// RoleRequest changes a user's role.
type RoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user admin"`
}

// ListUsers handles GET /api/admin/users.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.auth.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

// Activate handles POST /api/admin/users/:id/activate.
func (h *AdminHandler) Activate(c *gin.Context) { h.setActive(c, true) }

// Deactivate handles POST /api/admin/users/:id/deactivate.
func (h *AdminHandler) Deactivate(c *gin.Context) { h.setActive(c, false) }

func (h *AdminHandler) setActive(c *gin.Context, active bool) {
	user, err := h.auth.SetActive(c.Request.Context(), currentUser(c).ID, c.Param("id"), active)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}

// SetRole handles POST /api/admin/users/:id/role.
func (h *AdminHandler) SetRole(c *gin.Context) {
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	user, err := h.auth.SetRole(c.Request.Context(), currentUser(c).ID, c.Param("id"), req.Role)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}

// DeleteUser handles DELETE /api/admin/users/:id.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.auth.DeleteUser(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

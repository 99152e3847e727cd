package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docadmin-backend-go/internal/core"
	"docadmin-backend-go/internal/models"
)

// RoleHandler manages role definitions and user role assignments. Mutations
// are gated by the canManageRoles capability inside the permission service.
type RoleHandler struct {
	permissions core.PermissionService
}

// NewRoleHandler creates a RoleHandler.
func NewRoleHandler(permissions core.PermissionService) *RoleHandler {
	return &RoleHandler{permissions: permissions}
}

// MyPermissions reports the caller's resolved capability set, ensuring a
// user record exists for them first.
// GET /api/v1/users/me/permissions
func (h *RoleHandler) MyPermissions(c *gin.Context) {
	actor := actorFromContext(c)
	ctx := c.Request.Context()

	if _, err := h.permissions.EnsureUser(ctx, actor.UserID, actor.Email); err != nil {
		respondEngineError(c, err)
		return
	}
	perms, err := h.permissions.Resolve(ctx, actor.UserID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, PermissionsResponse{UserID: actor.UserID, Permissions: perms})
}

// ListRoles returns all role definitions.
// GET /api/v1/roles
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.permissions.ListRoles(c.Request.Context())
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roles": roles})
}

// UpsertRole creates or replaces a role definition.
// PUT /api/v1/roles/:roleName
func (h *RoleHandler) UpsertRole(c *gin.Context) {
	var req models.UpsertRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}
	role := models.Role{
		Name:        c.Param("roleName"),
		Category:    req.Category,
		Permissions: req.Permissions,
	}
	if err := h.permissions.UpsertRole(c.Request.Context(), actorFromContext(c), role); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, role)
}

// DeleteRole removes a role definition. The admin role cannot be deleted.
// DELETE /api/v1/roles/:roleName
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	err := h.permissions.DeleteRole(c.Request.Context(), actorFromContext(c), c.Param("roleName"))
	if err != nil {
		if err == core.ErrCannotDeleteAdmin {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "role deleted"})
}

// AssignRole sets the role a user resolves to.
// PUT /api/v1/users/:userId/role
func (h *RoleHandler) AssignRole(c *gin.Context) {
	var req models.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}
	err := h.permissions.AssignRole(c.Request.Context(), actorFromContext(c), c.Param("userId"), req.Role)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "role assigned"})
}

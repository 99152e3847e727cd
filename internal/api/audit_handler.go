package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docadmin-backend-go/internal/core"
)

// AuditHandler serves the read-only audit trail views.
type AuditHandler struct {
	audit       core.AuditService
	permissions core.PermissionService
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(audit core.AuditService, permissions core.PermissionService) *AuditHandler {
	return &AuditHandler{audit: audit, permissions: permissions}
}

// Recent returns the most recent audit entries across all collections.
// GET /api/v1/audit?limit=
func (h *AuditHandler) Recent(c *gin.Context) {
	if !h.requireView(c) {
		return
	}
	entries, err := h.audit.Recent(c.Request.Context(), limitParam(c))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// ForCollection returns a collection's trail, optionally narrowed to one
// document with ?documentId=.
// GET /api/v1/collections/:collection/audit
func (h *AuditHandler) ForCollection(c *gin.Context) {
	if !h.requireView(c) {
		return
	}
	collection := c.Param("collection")
	docID := c.Query("documentId")

	ctx := c.Request.Context()
	limit := limitParam(c)
	var err error
	var entries any
	if docID != "" {
		entries, err = h.audit.ForDocument(ctx, collection, docID, limit)
	} else {
		entries, err = h.audit.ForCollection(ctx, collection, limit)
	}
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *AuditHandler) requireView(c *gin.Context) bool {
	actor := actorFromContext(c)
	perms, err := h.permissions.Resolve(c.Request.Context(), actor.UserID)
	if err != nil {
		respondEngineError(c, err)
		return false
	}
	if !perms.CanView {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "viewing the audit trail requires the canView capability"})
		return false
	}
	return true
}

func limitParam(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		return 0
	}
	return limit
}

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"docadmin-backend-go/internal/core"
	"docadmin-backend-go/internal/db"
	"docadmin-backend-go/internal/middleware"
	"docadmin-backend-go/internal/models"
)

// CollectionHandler exposes the schema-driven document engine over HTTP.
type CollectionHandler struct {
	engines     *core.EngineManager
	permissions core.PermissionService
}

// NewCollectionHandler creates a CollectionHandler.
func NewCollectionHandler(engines *core.EngineManager, permissions core.PermissionService) *CollectionHandler {
	return &CollectionHandler{engines: engines, permissions: permissions}
}

// GetSchema returns the declared fields for a collection.
// GET /api/v1/collections/:collection/schema
func (h *CollectionHandler) GetSchema(c *gin.Context) {
	engine, _, ok := h.viewableEngine(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, SchemaResponse{
		Collection:      engine.Collection(),
		SchemaAvailable: engine.SchemaAvailable(),
		Fields:          engine.Fields(),
	})
}

// ListDocuments derives one page from the cached snapshot.
// GET /api/v1/collections/:collection/documents
// Query params: search, sort, dir (asc|desc), page, pageSize, and per-field
// filters as filter.<name>=<value> with op.<name>=<operator> for numbers.
func (h *CollectionHandler) ListDocuments(c *gin.Context) {
	engine, _, ok := h.viewableEngine(c)
	if !ok {
		return
	}

	params := core.QueryParams{
		Search:        c.Query("search"),
		SortField:     c.Query("sort"),
		SortDirection: core.SortDirection(c.Query("dir")),
		Filters:       parseFilters(c),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		params.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("pageSize", "0")); err == nil {
		params.PageSize = size
	}

	c.JSON(http.StatusOK, engine.Query(params))
}

// CreateDocument creates one document from raw editor values.
// POST /api/v1/collections/:collection/documents
func (h *CollectionHandler) CreateDocument(c *gin.Context) {
	engine, actor, ok := h.engine(c)
	if !ok {
		return
	}
	var req models.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}
	doc, err := engine.Create(c.Request.Context(), actor, req.Values)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// UpdateDocument merges edited fields into an existing document.
// PUT /api/v1/collections/:collection/documents/:docId
func (h *CollectionHandler) UpdateDocument(c *gin.Context) {
	engine, actor, ok := h.engine(c)
	if !ok {
		return
	}
	var req models.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}
	doc, err := engine.Update(c.Request.Context(), actor, c.Param("docId"), req.Values)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// DeleteDocument removes one document.
// DELETE /api/v1/collections/:collection/documents/:docId
func (h *CollectionHandler) DeleteDocument(c *gin.Context) {
	engine, actor, ok := h.engine(c)
	if !ok {
		return
	}
	if err := engine.Delete(c.Request.Context(), actor, c.Param("docId")); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "document deleted"})
}

// BulkEdit applies one value to one field across selected documents.
// POST /api/v1/collections/:collection/documents/bulk-edit
func (h *CollectionHandler) BulkEdit(c *gin.Context) {
	engine, actor, ok := h.engine(c)
	if !ok {
		return
	}
	var req models.BulkEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}
	if err := engine.BulkEdit(c.Request.Context(), actor, req.DocumentIDs, req.Field, req.Value); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{
		Message: fmt.Sprintf("updated %d document(s)", len(req.DocumentIDs)),
	})
}

// ExportCSV streams the cached snapshot as CSV.
// GET /api/v1/collections/:collection/export
func (h *CollectionHandler) ExportCSV(c *gin.Context) {
	engine, _, ok := h.viewableEngine(c)
	if !ok {
		return
	}
	data, err := engine.ExportCSV()
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", engine.Collection()+".csv"))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// ImportCSV applies a CSV payload with create/update semantics per row.
// POST /api/v1/collections/:collection/import
func (h *CollectionHandler) ImportCSV(c *gin.Context) {
	engine, actor, ok := h.engine(c)
	if !ok {
		return
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body", Details: err.Error()})
		return
	}
	summary, err := engine.ImportCSV(c.Request.Context(), actor, data)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ReloadSchema drops the cached engine so the schema and document set are
// refetched from scratch on the next request.
// POST /api/v1/collections/:collection/schema/reload
func (h *CollectionHandler) ReloadSchema(c *gin.Context) {
	collection := c.Param("collection")
	h.engines.Drop(collection)
	engine, _, ok := h.viewableEngine(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, SchemaResponse{
		Collection:      collection,
		SchemaAvailable: engine.SchemaAvailable(),
		Fields:          engine.Fields(),
	})
}

// engine resolves the engine for the URL's collection. It does not apply a
// capability gate; mutations re-check inside the engine.
func (h *CollectionHandler) engine(c *gin.Context) (*core.CollectionEngine, core.Actor, bool) {
	actor := actorFromContext(c)
	engine, err := h.engines.Engine(c.Request.Context(), c.Param("collection"))
	if err != nil {
		respondEngineError(c, err)
		return nil, actor, false
	}
	return engine, actor, true
}

// viewableEngine additionally requires the canView capability, which gates
// whether a collection's contents render at all.
func (h *CollectionHandler) viewableEngine(c *gin.Context) (*core.CollectionEngine, core.Actor, bool) {
	engine, actor, ok := h.engine(c)
	if !ok {
		return nil, actor, false
	}
	perms, err := h.permissions.Resolve(c.Request.Context(), actor.UserID)
	if err != nil {
		respondEngineError(c, err)
		return nil, actor, false
	}
	if !perms.CanView {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "viewing this collection requires the canView capability"})
		return nil, actor, false
	}
	return engine, actor, true
}

// parseFilters collects filter.<name>=<value> and op.<name>=<operator>
// pairs from the query string.
func parseFilters(c *gin.Context) map[string]core.FilterValue {
	filters := make(map[string]core.FilterValue)
	for key, values := range c.Request.URL.Query() {
		name, ok := strings.CutPrefix(key, "filter.")
		if !ok || len(values) == 0 {
			continue
		}
		filters[name] = core.FilterValue{
			Value:    values[0],
			Operator: core.NumericOperator(c.Query("op." + name)),
		}
	}
	return filters
}

// actorFromContext reads the identity the auth middleware stored.
func actorFromContext(c *gin.Context) core.Actor {
	return core.Actor{
		UserID: c.GetString(middleware.ContextUserID),
		Email:  c.GetString(middleware.ContextUserEmail),
	}
}

// respondEngineError maps engine error kinds onto HTTP statuses.
func respondEngineError(c *gin.Context, err error) {
	var validationErr *core.ValidationError
	var writeErr *core.WriteError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Fields: validationErr.Errors})
	case errors.Is(err, core.ErrHeaderMismatch):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "csv header mismatch", Details: err.Error()})
	case errors.Is(err, core.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "permission denied", Details: err.Error()})
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Details: err.Error()})
	case errors.Is(err, core.ErrSchemaUnavailable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "collection schema unavailable", Details: err.Error()})
	case errors.As(err, &writeErr):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "store write failed", Details: writeErr.Err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Details: err.Error()})
	}
}

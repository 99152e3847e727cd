package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docadmin-backend-go/internal/core"
	"docadmin-backend-go/internal/middleware"
)

// SetupRoutes wires all application routes. Global middleware (logging,
// recovery, CORS) is applied to the router in main before this is called.
func SetupRoutes(
	router *gin.Engine,
	logger *zap.Logger,
	authMW *middleware.AuthMiddleware,
	engines *core.EngineManager,
	permissions core.PermissionService,
	audit core.AuditService,
) {
	collectionHandler := NewCollectionHandler(engines, permissions)
	auditHandler := NewAuditHandler(audit, permissions)
	roleHandler := NewRoleHandler(permissions)

	apiV1 := router.Group("/api/v1", authMW.VerifyToken())
	{
		collections := apiV1.Group("/collections/:collection")
		{
			collections.GET("/schema", collectionHandler.GetSchema)
			collections.POST("/schema/reload", collectionHandler.ReloadSchema)

			collections.GET("/documents", collectionHandler.ListDocuments)
			collections.POST("/documents", collectionHandler.CreateDocument)
			collections.PUT("/documents/:docId", collectionHandler.UpdateDocument)
			collections.DELETE("/documents/:docId", collectionHandler.DeleteDocument)
			collections.POST("/documents/bulk-edit", collectionHandler.BulkEdit)

			collections.GET("/export", collectionHandler.ExportCSV)
			collections.POST("/import", collectionHandler.ImportCSV)

			collections.GET("/audit", auditHandler.ForCollection)
		}

		apiV1.GET("/audit", auditHandler.Recent)

		apiV1.GET("/users/me/permissions", roleHandler.MyPermissions)
		apiV1.PUT("/users/:userId/role", roleHandler.AssignRole)

		apiV1.GET("/roles", roleHandler.ListRoles)
		apiV1.PUT("/roles/:roleName", roleHandler.UpsertRole)
		apiV1.DELETE("/roles/:roleName", roleHandler.DeleteRole)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})

	logger.Info("API routes configured under /api/v1 and /health")
}

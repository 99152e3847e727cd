package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"docadmin-backend-go/internal/api"
	"docadmin-backend-go/internal/config"
	"docadmin-backend-go/internal/core"
	"docadmin-backend-go/internal/db"
	"docadmin-backend-go/internal/middleware"
)

func main() {
	// A local .env is optional; viper reads the environment either way.
	_ = godotenv.Load()

	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to initialize zap logger: %v", err)
	}
	defer zapLogger.Sync()

	appConfig, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("failed to load application configuration", zap.Error(err))
	}
	if strings.ToLower(appConfig.GinMode) == "release" {
		// Production logger once the mode says so.
		prod, err := zap.NewProduction()
		if err == nil {
			zapLogger = prod
			defer zapLogger.Sync()
		}
	}
	zapLogger.Info("configuration loaded",
		zap.String("defaultRole", appConfig.DefaultRole),
		zap.Int("pageSize", appConfig.PageSize))

	initCtx, cancelInit := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInit()
	clients, err := db.InitFirestore(initCtx, appConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to initialize Firebase Admin SDK", zap.Error(err))
	}
	defer clients.Close()

	schemaRepo := db.NewFirestoreSchemaRepository(clients.Firestore)
	documentRepo := db.NewFirestoreDocumentRepository(clients.Firestore)
	auditRepo := db.NewFirestoreAuditRepository(clients.Firestore)
	roleRepo := db.NewFirestoreRoleRepository(clients.Firestore)

	auditService := core.NewAuditService(auditRepo)
	permissionService := core.NewPermissionService(roleRepo, appConfig.DefaultRole)
	engines := core.NewEngineManager(core.EngineDeps{
		Schemas:     schemaRepo,
		Documents:   documentRepo,
		Audit:       auditService,
		Permissions: permissionService,
		Logger:      zapLogger,
		PageSize:    appConfig.PageSize,
	})
	zapLogger.Info("core services initialized")

	if strings.ToLower(appConfig.GinMode) == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	if appConfig.ClientURL != "" {
		router.Use(middleware.CORSMiddleware(appConfig))
		zapLogger.Info("CORS middleware enabled", zap.String("clientURL", appConfig.ClientURL))
	} else {
		zapLogger.Warn("CORS middleware skipped: CLIENT_URL is not configured")
	}

	authMW := middleware.NewAuthMiddleware(clients.Auth, zapLogger)
	api.SetupRoutes(router, zapLogger, authMW, engines, permissionService, auditService)

	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	zapLogger.Info("starting HTTP server",
		zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	zapLogger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Fatal("server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("server exiting gracefully")
}

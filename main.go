package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/config"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/handler"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/job"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/middleware"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/pkg/logger"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/service"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// Database
	db, err := store.InitDB(cfg.Database.DSN)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := store.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	contractRepo := store.NewContractRepo(db)
	eventRepo := store.NewEventRepo(db)
	extractionRepo := store.NewExtractionRepo(db)
	jobRepo := store.NewJobRepo(db)
	auditRepo := store.NewAuditRepo(db)
	sessionRepo := store.NewImpersonationRepo(db)

	// Redis backs the impersonation mirror and tenant cache; without it we
	// fall back to process-local stores so a dev box still boots.
	var (
		kv    service.KVStore
		cache service.TenantCache
	)
	if cfg.Redis.Addr != "" {
		rdb, err := service.NewRedisClient(&cfg.Redis)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		kv = service.NewRedisKVStore(rdb)
		cache = service.NewRedisTenantCache(rdb)
	} else {
		slog.Warn("redis not configured, using in-memory stores")
		kv = service.NewMemoryKVStore()
		cache = service.NewMemoryTenantCache()
	}

	// Object storage for contract documents
	documentSvc, err := service.NewDocumentService(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize document storage", "error", err)
		os.Exit(1)
	}
	if err := documentSvc.EnsureBucket(context.Background()); err != nil {
		slog.Error("failed to ensure document bucket", "error", err)
		os.Exit(1)
	}

	// Validation pipeline
	ccaSvc := service.NewCCAService(&cfg.CCA)
	if !ccaSvc.Configured() {
		slog.Warn("CCA agent not configured, running validation in dev mode")
	}
	validationSvc := service.NewValidationService(contractRepo, extractionRepo, jobRepo, auditRepo, ccaSvc).
		WithBusinessContext(cfg.CCA.ClientID, cfg.CCA.MatterID)
	queue := service.NewValidationQueue(validationSvc, jobRepo, cfg.Validation.QueueSize)
	queue.Start(cfg.Validation.Workers)

	poller := service.NewPoller(contractRepo, jobRepo,
		time.Duration(cfg.Poller.IntervalSeconds)*time.Second)

	// Lifecycle events and impersonation
	eventSvc := service.NewEventService(contractRepo, eventRepo)
	authority := service.NewConfigAdminAuthority(cfg)
	manager := service.NewImpersonationManager(sessionRepo, kv, cache, authority,
		cfg.Impersonation.MinReasonLength,
		time.Duration(cfg.Impersonation.StaleAfterHours)*time.Hour)

	// Background sweeps
	scheduler := job.NewScheduler(contractRepo, eventSvc, manager)
	if err := scheduler.Start(); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg, manager)
	contractHandler := handler.NewContractHandler(contractRepo, documentSvc, queue, poller, manager)
	eventHandler := handler.NewEventHandler(eventSvc, manager)
	validationHandler := handler.NewValidationHandler(contractRepo, extractionRepo, jobRepo, queue, poller, manager)
	impersonationHandler := handler.NewImpersonationHandler(manager)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(corsMiddleware())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Public routes. Login is keyed by client IP: no user identity exists
	// yet at this point in the chain.
	api := router.Group("/api")
	{
		api.POST("/auth/login", middleware.RateLimit(10, time.Minute), authHandler.Login)
	}

	// Protected routes. The rate limiter sits after auth so it buckets by
	// the authenticated user rather than a shared egress IP.
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	protected.Use(middleware.RateLimit(100, time.Minute))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)

		protected.POST("/contracts", contractHandler.Create)
		protected.GET("/contracts", contractHandler.List)
		protected.GET("/contracts/:id", contractHandler.Get)
		protected.GET("/contracts/:id/status", contractHandler.GetStatus)
		protected.POST("/contracts/:id/upload", contractHandler.Upload)

		protected.POST("/contracts/:id/events", eventHandler.Record)
		protected.GET("/contracts/:id/events", eventHandler.List)

		protected.POST("/contracts/:id/validate", validationHandler.Trigger)
		protected.GET("/contracts/:id/validation", validationHandler.GetValidation)

		protected.POST("/admin/impersonation/org", impersonationHandler.StartOrg)
		protected.POST("/admin/impersonation/user", impersonationHandler.StartUser)
		protected.DELETE("/admin/impersonation", impersonationHandler.Stop)
		protected.GET("/admin/impersonation", impersonationHandler.Current)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	scheduler.Stop()
	poller.StopAll()
	if err := queue.Shutdown(ctx); err != nil {
		slog.Error("validation queue did not drain", "error", err)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

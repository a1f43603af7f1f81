package main

import (
	// Standard library
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// External dependencies
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Internal packages
	"github.com/daysage/daysage/cmd/server/internal/api"
	"github.com/daysage/daysage/cmd/server/internal/audit"
	"github.com/daysage/daysage/cmd/server/internal/config"
	"github.com/daysage/daysage/cmd/server/internal/middleware"
	"github.com/daysage/daysage/cmd/server/internal/planner"
	"github.com/daysage/daysage/cmd/server/internal/services"
	"github.com/daysage/daysage/cmd/server/internal/store"
	"github.com/daysage/daysage/cmd/server/internal/users"
	"github.com/daysage/daysage/pkg/logger"
)

// generateRandomPassword generates a cryptographically secure random password
func generateRandomPassword(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		panic(fmt.Sprintf("failed to generate random password: %v", err))
	}
	return base64.URLEncoding.EncodeToString(bytes)[:length]
}

func main() {
	logInstance, err := logger.Init(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: os.Getenv("ENV"),
		WithSource:  os.Getenv("ENV") != "production",
		File:        os.Getenv("LOG_FILE"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	appLogger := logInstance.With("component", "scheduler-server")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		appLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := config.ValidateConfig(cfg); err != nil {
		appLogger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	appLogger.Info("configuration loaded", "env", cfg.Server.Env, "port", cfg.Server.Port)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize user secret
	userSecret := []byte(cfg.Security.JWTSecret)
	if len(userSecret) == 0 {
		userSecret = []byte("dev-secret-change-me")
	}

	// Initialize user manager
	userManager, err := users.NewManager(cfg.Data.UsersDir, userSecret, cfg.Security.TokenTTL)
	if err != nil {
		appLogger.Error("user manager init failed", "error", err)
		os.Exit(1)
	}

	// Ensure default admin with config-based password
	adminPassword := cfg.Security.AdminDefaultPassword
	if adminPassword == "" {
		if cfg.Server.Env == "dev" {
			adminPassword = generateRandomPassword(16)
			appLogger.Warn("generated random admin password", "password", adminPassword)
		} else {
			appLogger.Error("admin default password not set in production/staging")
			os.Exit(1)
		}
	}
	if err := userManager.EnsureDefaultAdmin(adminPassword); err != nil {
		appLogger.Warn("failed to ensure default admin", "error", err)
	}

	// Initialize stores
	feedbackStore, err := store.NewFileFeedbackStore(cfg.Data.UserDataDir)
	if err != nil {
		appLogger.Error("feedback store init failed", "error", err)
		os.Exit(1)
	}
	paramStore, err := store.NewFileParamStore(cfg.Data.UserDataDir, cfg.Planner.DefaultWeights)
	if err != nil {
		appLogger.Error("param store init failed", "error", err)
		os.Exit(1)
	}
	durationStore, err := store.NewFileDurationStore(cfg.Data.UserDataDir)
	if err != nil {
		appLogger.Error("duration store init failed", "error", err)
		os.Exit(1)
	}
	appLogger.Info("user data stores ready", "dir", cfg.Data.UserDataDir)

	// Initialize audit logger
	auditLogger, err := audit.NewFileLogger(cfg.Data.AuditLogsDir)
	if err != nil {
		appLogger.Error("audit logger init failed", "error", err)
		os.Exit(1)
	}
	appLogger.Info("audit logger ready", "dir", cfg.Data.AuditLogsDir)

	// Initialize planner and services
	plannerInstance := planner.New(planner.Config{TimeBudget: cfg.Planner.TimeBudget})
	scheduleSvc := services.NewScheduleService(plannerInstance, paramStore, cfg.Planner.MaxConcurrentSolves,
		logInstance.With("component", "schedule-service"))
	durationSvc := services.NewDurationService(durationStore)
	feedbackSvc := services.NewFeedbackService(
		feedbackStore, paramStore, durationSvc, auditLogger,
		logInstance.With("component", "feedback-service"),
		cfg.Planner.TrainingThreshold,
	)
	appLogger.Info("scheduling services ready",
		"time_budget", cfg.Planner.TimeBudget,
		"max_concurrent_solves", cfg.Planner.MaxConcurrentSolves,
		"training_threshold", cfg.Planner.TrainingThreshold,
	)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())

	// Health and metrics endpoints (no authentication required)
	startTime := time.Now()
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"env":     cfg.Server.Env,
			"uptime":  time.Since(startTime).String(),
			"version": "1.0.0",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Login endpoint (no authentication required)
	authLogger := logInstance.With("component", "auth")
	r.POST("/api/v1/auth/login", api.HandleLogin(userManager, auditLogger, authLogger))

	// Authenticated API routes
	v1 := r.Group("/api/v1", middleware.Auth(userManager))
	{
		v1.POST("/schedule/optimize",
			middleware.RequireScope(users.ScopePlanWrite),
			api.HandleOptimizeSchedule(scheduleSvc))
		v1.POST("/schedule/feedback",
			middleware.RequireScope(users.ScopePlanWrite),
			api.HandleRecordFeedback(feedbackSvc))
		v1.GET("/schedule/weights",
			middleware.RequireScope(users.ScopePlanRead),
			api.HandleGetWeights(scheduleSvc))
		v1.POST("/predict_duration",
			middleware.RequireScope(users.ScopePlanRead),
			api.HandlePredictDuration(durationSvc))
		v1.POST("/users",
			middleware.RequireScope(users.ScopeUserManage),
			api.HandleCreateUser(userManager, auditLogger, authLogger))
	}

	// Create HTTP server with graceful shutdown
	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		appLogger.Info("server starting", "addr", serverAddr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	appLogger.Info("shutdown signal received, shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	appLogger.Info("server shutdown complete")
}

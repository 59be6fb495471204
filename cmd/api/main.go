package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"communifund/platform-backend/internal/admins"
	"communifund/platform-backend/internal/auth"
	"communifund/platform-backend/internal/config"
	"communifund/platform-backend/internal/donations"
	"communifund/platform-backend/internal/mailer"
	"communifund/platform-backend/internal/metrics"
	"communifund/platform-backend/internal/notifications"
	"communifund/platform-backend/internal/projects"
	"communifund/platform-backend/internal/search"
	"communifund/platform-backend/internal/users"
	"communifund/platform-backend/internal/verification"
	"communifund/platform-backend/pkg/storage"
)

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if parsed, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(parsed)
	}
	logger, err := cfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging.Level)
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.Timeout)
	defer cancel()

	// Connect to the document store
	logger.Info("Connecting to MongoDB", zap.String("database", cfg.Mongo.Database))
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	if err := client.Ping(ctx, nil); err != nil {
		logger.Fatal("Failed to ping MongoDB", zap.Error(err))
	}
	db := client.Database(cfg.Mongo.Database)

	// Repositories
	userRepo, err := users.NewRepository(ctx, db)
	if err != nil {
		logger.Fatal("Failed to initialize user repository", zap.Error(err))
	}
	projectRepo, err := projects.NewRepository(ctx, db)
	if err != nil {
		logger.Fatal("Failed to initialize project repository", zap.Error(err))
	}
	donationRepo, err := donations.NewRepository(ctx, db)
	if err != nil {
		logger.Fatal("Failed to initialize donation repository", zap.Error(err))
	}
	adminRepo, err := admins.NewRepository(ctx, db)
	if err != nil {
		logger.Fatal("Failed to initialize admin repository", zap.Error(err))
	}

	// Outbound integrations
	mail, err := mailer.NewSESMailer(ctx, cfg.Mail)
	if err != nil {
		logger.Fatal("Failed to initialize mailer", zap.Error(err))
	}
	media, err := storage.NewS3Store(ctx, cfg.Storage.Region, cfg.Storage.Bucket, cfg.Storage.PublicBaseURL)
	if err != nil {
		logger.Fatal("Failed to initialize media store", zap.Error(err))
	}

	var indexer projects.Indexer = search.NoopIndexer{}
	if cfg.Search.Enabled {
		esIndexer, err := search.Connect(ctx, cfg.Search.Addresses, logger)
		if err != nil {
			logger.Warn("Search disabled, Elasticsearch unreachable", zap.Error(err))
		} else {
			indexer = esIndexer
		}
	}

	// Shared infrastructure
	m := metrics.New()
	hub := notifications.NewHub(logger)
	tokens := auth.NewTokenManager(cfg.Auth)
	mw := auth.NewMiddleware(tokens, logger)

	// Verification workflow
	verifierClient := verification.NewClient(cfg.AI.BaseURL, cfg.AI.Timeout)
	workflow := verification.NewWorkflow(verifierClient, projectRepo, hub, m, logger,
		cfg.AI.ConfidenceThreshold, cfg.AI.Timeout)
	scheduler := verification.NewScheduler(workflow, projectRepo, logger,
		cfg.AI.SweepInterval, cfg.AI.SweepBatchSize)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("Failed to start verification scheduler", zap.Error(err))
	}

	// Services and handlers
	userService := users.NewService(userRepo, tokens, mail, logger)
	userHandler := users.NewHandler(userService, logger)

	projectService := projects.NewService(projectRepo, userRepo, workflow, media, indexer, hub, m, logger)
	projectHandler := projects.NewHandler(projectService, logger)

	donationService := donations.NewService(donationRepo, projectRepo, userRepo, hub, m, logger,
		cfg.Payments.GatewaySecret, cfg.Payments.Currency)
	donationHandler := donations.NewHandler(donationService, logger)

	adminService := admins.NewService(adminRepo, projectRepo, donationRepo, userRepo,
		verifierClient, tokens, hub, m, logger, cfg.AI.ConfidenceThreshold)
	adminHandler := admins.NewHandler(adminService, hub, logger)

	// Setup Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Register Routes
	api := router.Group("/api/v1")
	{
		userHandler.RegisterRoutes(api, mw)
		projectHandler.RegisterRoutes(api, mw)
		donationHandler.RegisterRoutes(api, mw)
		adminHandler.RegisterRoutes(api, mw)
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})
	router.GET("/metrics", m.Handler())

	// Start Server
	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", srv.Addr))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	scheduler.Stop()
	hub.Close()
	if err := client.Disconnect(shutdownCtx); err != nil {
		logger.Error("Failed to disconnect MongoDB", zap.Error(err))
	}

	logger.Info("Server exiting")
}

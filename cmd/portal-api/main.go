package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"baaseteen/case-portal/case-portal-backend/internal/auth"
	"baaseteen/case-portal/case-portal-backend/internal/cases"
	"baaseteen/case-portal/case-portal-backend/internal/config"
	"baaseteen/case-portal/case-portal-backend/internal/counseling"
	"baaseteen/case-portal/case-portal-backend/internal/dashboard"
	"baaseteen/case-portal/case-portal-backend/internal/database"
	"baaseteen/case-portal/case-portal-backend/internal/documents"
	"baaseteen/case-portal/case-portal-backend/internal/notifications"
	"baaseteen/case-portal/case-portal-backend/internal/notifications/websocket"
	"baaseteen/case-portal/case-portal-backend/internal/permissions"
	"baaseteen/case-portal/case-portal-backend/internal/stages"
	"baaseteen/case-portal/case-portal-backend/pkg/pdf"
	"baaseteen/case-portal/case-portal-backend/pkg/storage"
)

func main() {
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		panic(err)
	}

	// Initialize logger
	debug := cfg.Logging.Level == "debug"
	var logger *zap.Logger
	if debug {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	logger.Info("Connecting to database",
		zap.String("host", cfg.Database.Host),
		zap.String("db", cfg.Database.DBName),
	)
	db, err := database.Open(cfg.Database, debug)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	sqlxDB, err := database.OpenSQLX(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer sqlxDB.Close()

	runner := database.NewRunner(db, database.RetryPolicy{
		MaxElapsed: cfg.Workflow.TxMaxElapsed,
		MaxRetries: cfg.Workflow.TxMaxRetries,
	}, logger)
	oracle := permissions.NewSQLOracle(sqlxDB)

	// Workflow stages
	catalog := stages.NewCatalog(stages.NewRepository(db), cfg.Workflow.StageCacheTTL, logger)
	if err := catalog.Refresh(ctx); err != nil {
		logger.Warn("Initial workflow stage load failed", zap.Error(err))
	}
	refresher := stages.NewRefresher(catalog, cfg.Workflow.StageRefreshCron, logger)
	if err := refresher.Start(ctx); err != nil {
		logger.Fatal("Failed to start stage refresher", zap.Error(err))
	}

	// Notifications
	wsManager := websocket.NewManager(logger, cfg.Server.AllowedOrigins)
	notificationRepo := notifications.NewRepository(db)
	channels := []notifications.Channel{
		notifications.NewInAppChannel(notificationRepo),
		notifications.NewWebSocketChannel(wsManager),
	}
	if cfg.Notifications.SNSTopicARN != "" {
		client, err := notifications.NewSNSClient(ctx, cfg.Notifications.AWSRegion)
		if err != nil {
			logger.Fatal("Failed to create SNS client", zap.Error(err))
		}
		channels = append(channels, notifications.NewSNSChannel(client, cfg.Notifications.SNSTopicARN))
	}
	dispatcher := notifications.NewDispatcher(notificationRepo, logger, cfg.Notifications.QueueSize, channels...)
	dispatcher.Start(ctx)

	// Case workflow
	engine := cases.NewEngine(cases.NewRepository(db, runner), oracle, catalog, dispatcher, logger)
	counselingService := counseling.NewService(counseling.NewRepository(db, runner), engine, oracle, logger)

	var letterStorage *documents.StorageProvider
	if cfg.Documents.S3Bucket != "" {
		region := cfg.Documents.S3Region
		if region == "" {
			region = cfg.Notifications.AWSRegion
		}
		s3Client, err := storage.NewS3Client(ctx, region)
		if err != nil {
			logger.Fatal("Failed to create S3 client", zap.Error(err))
		}
		letterStorage = documents.NewStorageProvider(s3Client, cfg.Documents.S3Bucket)
	}
	documentService := documents.NewService(
		documents.NewRepository(sqlxDB),
		engine,
		oracle,
		pdf.NewGenerator(pdf.DefaultOptions()),
		letterStorage,
		cfg.Documents,
		logger,
	)

	aggregator := dashboard.NewAggregator(dashboard.NewRepository(db), oracle, logger, dashboard.DefaultAggregatorConfig())

	authHandler := auth.NewHandler()
	casesHandler := cases.NewHandler(engine, logger)
	counselingHandler := counseling.NewHandler(counselingService, logger)
	documentsHandler := documents.NewHandler(documentService, logger)
	notificationsHandler := notifications.NewHandler(notifications.NewService(notificationRepo, wsManager, logger), logger)
	dashboardHandler := dashboard.NewHandler(aggregator, logger)

	// Setup Router
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

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
	api.Use(auth.Middleware(cfg.Security.JWTSecret, logger))
	{
		auth.RegisterRoutes(api, authHandler)
		casesHandler.RegisterRoutes(api)
		counselingHandler.RegisterRoutes(api)
		documentsHandler.RegisterRoutes(api)
		notificationsHandler.RegisterRoutes(api)
		dashboardHandler.RegisterRoutes(api)
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":            "healthy",
			"timestamp":         time.Now(),
			"websocket_clients": wsManager.GetConnectionCount(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", srv.Addr))

	// Graceful Shutdown
	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	wsManager.Close()
	aggregator.Stop()
	refresher.Stop()
	dispatcher.Stop()

	logger.Info("Server exiting")
}

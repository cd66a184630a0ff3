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
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/playoff-sim/internal/api"
	"github.com/stitts-dev/playoff-sim/internal/api/handlers"
	"github.com/stitts-dev/playoff-sim/internal/api/middleware"
	"github.com/stitts-dev/playoff-sim/internal/providers"
	"github.com/stitts-dev/playoff-sim/internal/services"
	"github.com/stitts-dev/playoff-sim/pkg/config"
	"github.com/stitts-dev/playoff-sim/pkg/database"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	if cfg.IsDevelopment() {
		logrus.SetLevel(logrus.DebugLevel)
		gin.SetMode(gin.DebugMode)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
		gin.SetMode(gin.ReleaseMode)
	}
	logger := logrus.StandardLogger()

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to Redis
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logrus.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logrus.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize services
	cacheService := services.NewCacheService(redisClient)
	breakers := services.NewCircuitBreakerService(cfg.CircuitBreakerThreshold, 30*time.Second, logger)
	progressHub := services.NewProgressHub(logger)
	go progressHub.Run()

	// Initialize data providers
	sportsClient := providers.NewSportsDataClient(cfg.SportsAPIBaseURL, cfg.ExternalAPITimeout, cacheService, breakers, logger)
	marketClient := providers.NewMarketClient(cfg.MarketAPIBaseURL, cfg.MarketAPIKey, cfg.ExternalAPITimeout, cacheService, breakers, logger)
	calibration := services.NewCalibrationService(logger,
		cfg.CalibrationRounds, cfg.CalibrationBatchSize,
		cfg.CalibrationTolerance, cfg.CalibrationLearnRate, cfg.HomeFieldRating)

	// Parse fetch interval
	fetchInterval, err := time.ParseDuration(cfg.DataFetchInterval)
	if err != nil {
		logrus.Warnf("Invalid fetch interval, using default 1h: %v", err)
		fetchInterval = time.Hour
	}

	// Initialize data fetcher
	dataFetcher := services.NewDataFetcherService(db, cacheService, sportsClient, marketClient, calibration, logger, fetchInterval, cfg.RunRetentionDays)
	if err := dataFetcher.Start(cfg.SkipInitialDataFetch); err != nil {
		logrus.Errorf("Failed to start data fetcher: %v", err)
	}
	defer dataFetcher.Stop()

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.ErrorLogger(logger))
	router.Use(middleware.CORS(cfg.CorsOrigins))

	// Liveness endpoint at the root for load balancers
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC(),
		})
	})

	// Setup API routes under /api/v1
	apiV1 := router.Group("/api/v1")
	api.SetupRoutes(apiV1, db, cacheService, progressHub, breakers, dataFetcher, cfg)

	// WebSocket endpoint at root level, not under /api/v1
	wsHandler := handlers.NewWebSocketHandler(progressHub, logger)
	router.GET("/ws", wsHandler.HandleWebSocket)

	// Setup server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logrus.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

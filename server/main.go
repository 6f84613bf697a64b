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

	"flightbook/api/routes"
	"flightbook/internal/notifications"
	"flightbook/internal/payments"
	"flightbook/internal/shared/config"
	"flightbook/internal/shared/database"
	"flightbook/internal/shared/database/transaction"
	"flightbook/internal/shared/middleware"
	"flightbook/internal/shared/utils/validation"
	"flightbook/pkg/logger"
	"flightbook/pkg/ratelimit"
	"flightbook/pkg/retry"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load environment variables
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		// Check if we're in production/container mode
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	// Load config
	cfg := config.Load()
	appLogger = logger.NewWithLevel(cfg.LogLevel)
	logger.SetDefault(appLogger)

	// Set Gin mode (debug/release)
	gin.SetMode(cfg.GinMode)

	if err := validation.Register(); err != nil {
		appLogger.Error("Failed to register validators", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize DB
	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("Failed to connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Every unit of work retries transient storage failures
	transactor := transaction.NewGormTransactor(db.GetPostgreSQL(), &retry.Config{
		MaxRetries:      cfg.Booking.StorageRetryMax,
		InitialInterval: cfg.Booking.StorageRetryInterval,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.2,
	})

	gateway, err := payments.NewGateway(cfg.Payment)
	if err != nil {
		appLogger.Error("Failed to initialize payment gateway", slog.Any("error", err))
		os.Exit(1)
	}
	appLogger.Info("Payment gateway initialized", slog.String("provider", gateway.Name()))

	publisher := notifications.NewPublisher(cfg.Kafka, appLogger)
	defer func() {
		if err := publisher.Close(); err != nil {
			appLogger.Error("Error closing booking event publisher", slog.Any("error", err))
		}
	}()

	// Initialize Rate Limiter
	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled && db.GetRedisClient() != nil {
		rateLimiterConfig := &ratelimit.Config{
			Enabled:                 cfg.RateLimit.Enabled,
			WindowDuration:          cfg.RateLimit.WindowDuration,
			DefaultRequests:         cfg.RateLimit.DefaultRequests,
			PublicRequests:          cfg.RateLimit.PublicRequests,
			AuthRequests:            cfg.RateLimit.AuthRequests,
			BookingRequests:         cfg.RateLimit.BookingRequests,
			AdminRequests:           cfg.RateLimit.AdminRequests,
			WhitelistedIPs:          cfg.RateLimit.WhitelistedIPs,
			BookingCriticalRequests: cfg.RateLimit.BookingCriticalRequests,
			UserRequests:            cfg.RateLimit.UserRequests,
			HealthRequests:          cfg.RateLimit.HealthRequests,
		}

		rateLimiter = ratelimit.NewRateLimiter(db.GetRedisClient(), rateLimiterConfig)
		appLogger.Info("Rate limiter initialized",
			slog.Bool("enabled", cfg.RateLimit.Enabled),
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	// Setup router with rate limiter
	appRouter := routes.NewRouter(cfg, db, transactor, publisher, gateway)
	router := setupRouter(appRouter, rateLimiter)

	// Reservation expiry sweeper
	jobCtx, jobCancel := context.WithCancel(context.Background())
	defer jobCancel()

	sweeper := appRouter.Sweeper()
	if cfg.Booking.SweepEnabled && sweeper != nil {
		sweeper.Start(jobCtx)
		defer sweeper.Stop()
	} else {
		appLogger.Info("Reservation sweeper disabled")
	}

	// HTTP server
	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info("🚀 Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("api_status", fmt.Sprintf("http://localhost:%s/status", cfg.Port)),
			slog.String("version", Version),
			slog.String("build_time", BuildTime),
			slog.String("commit", GitCommit),
			slog.Bool("redis", db.GetRedisClient() != nil),
			slog.Bool("rate_limiting", rateLimiter != nil),
			slog.Bool("kafka", cfg.Kafka.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

func setupRouter(appRouter *routes.Router, rateLimiter *ratelimit.RateLimiter) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	// Built-in middleware: logs requests + recovers from panics
	engine.Use(middleware.RequestLogger(appLogger), gin.Recovery())

	// CORS configuration
	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true // allow every origin dynamically
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Idempotency-Key", "X-RateLimit-*"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Global rate limiting middleware (applied to all routes)
	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
		appLogger.Info("Rate limiting middleware applied to all routes")
	}

	appRouter.SetupRoutes(engine)

	return engine
}

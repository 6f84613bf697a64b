// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"flightbook/internal/auth"
	"flightbook/internal/bookings"
	"flightbook/internal/flights"
	"flightbook/internal/notifications"
	"flightbook/internal/payments"
	"flightbook/internal/reservations"
	"flightbook/internal/shared/config"
	"flightbook/internal/shared/database"
	"flightbook/internal/shared/database/transaction"
	"flightbook/internal/shared/middleware"
	"flightbook/pkg/cache"
	"flightbook/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config     *config.Config
	db         *database.DB
	transactor transaction.Transactor
	publisher  notifications.Publisher
	gateway    payments.Gateway

	// Built while routes are set up, shared across features
	authRepo           auth.Repository
	flightService      flights.Service
	reservationService reservations.Service
	reservationSweeper *reservations.JobProcessor
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, transactor transaction.Transactor, publisher notifications.Publisher, gateway payments.Gateway) *Router {
	return &Router{
		config:     cfg,
		db:         db,
		transactor: transactor,
		publisher:  publisher,
		gateway:    gateway,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	authMiddleware := middleware.JWTAuthWithConfig(r.config)
	adminMiddleware := middleware.RequireAdmin()

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupAuthRoutes(api, authMiddleware)

		// Flights first: reservations and bookings depend on its service
		r.setupFlightRoutes(api, authMiddleware, adminMiddleware)
		r.setupReservationRoutes(api, authMiddleware, adminMiddleware)
		r.setupBookingRoutes(api, authMiddleware, adminMiddleware)
	}
}

// Sweeper returns the reservation expiry job built by SetupRoutes.
func (r *Router) Sweeper() *reservations.JobProcessor {
	return r.reservationSweeper
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		// Perform health checks
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "flightbook-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "flightbook-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		status := gin.H{
			"status":           "operational",
			"api_version":      r.config.APIVersion,
			"payment_provider": r.gateway.Name(),
			"timestamp":        time.Now(),
		}
		if r.reservationSweeper != nil {
			status["reservation_sweeper"] = r.reservationSweeper.GetJobStatus()
		}
		c.JSON(http.StatusOK, status)
	})
}

// setupAuthRoutes configures authentication routes
func (r *Router) setupAuthRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	r.authRepo = auth.NewRepository(r.db.GetPostgreSQL())
	authService := auth.NewService(r.authRepo, r.config)
	auth.SetupAuthRoutes(rg, auth.NewController(authService), authMiddleware)
}

// setupFlightRoutes configures flight, seat map and capacity routes
func (r *Router) setupFlightRoutes(rg *gin.RouterGroup, authMiddleware, adminMiddleware gin.HandlerFunc) {
	flightRepo := flights.NewRepository(r.db.GetPostgreSQL())
	r.flightService = flights.NewService(flightRepo, r.transactor)

	// Seat maps are cached only when Redis is available
	if redisClient := r.db.GetRedisClient(); redisClient != nil {
		r.flightService.SetCacheService(cache.NewService(redisClient))
	}

	flightController := flights.NewController(r.flightService)
	flights.SetupFlightRoutes(rg, flightController, authMiddleware, adminMiddleware)
}

// setupReservationRoutes configures seat hold routes and the expiry sweeper
func (r *Router) setupReservationRoutes(rg *gin.RouterGroup, authMiddleware, adminMiddleware gin.HandlerFunc) {
	reservationRepo := reservations.NewRepository(r.db.GetPostgreSQL())
	r.reservationService = reservations.NewService(
		reservationRepo,
		r.flightService,
		r.transactor,
		reservations.ConfigFromBooking(r.config.Booking),
		reservations.WithSeatMapCache(r.flightService),
	)

	var lease reservations.Lease
	if redisClient := r.db.GetRedisClient(); redisClient != nil {
		lease = reservations.NewRedisLease(redisClient, r.config.Booking.SweepLockTTL)
	} else {
		logger.GetDefault().Warn("Redis unavailable, reservation sweeps run without a lease")
	}
	r.reservationSweeper = reservations.NewJobProcessor(
		r.reservationService,
		r.publisher,
		lease,
		reservations.JobConfigFromBooking(r.config.Booking),
	)

	reservationController := reservations.NewController(r.reservationService, r.reservationSweeper)
	reservations.SetupReservationRoutes(rg, reservationController, authMiddleware, adminMiddleware)
}

// setupBookingRoutes configures ticket and transaction routes
func (r *Router) setupBookingRoutes(rg *gin.RouterGroup, authMiddleware, adminMiddleware gin.HandlerFunc) {
	bookingRepo := bookings.NewRepository(r.db.GetPostgreSQL())
	bookingService := bookings.NewService(
		bookingRepo,
		r.reservationService,
		r.flightService,
		r.gateway,
		r.publisher,
		auth.NewUserServiceAdapter(r.authRepo),
		r.transactor,
		bookings.ConfigFromBooking(r.config.Booking),
	)

	bookingController := bookings.NewController(bookingService)
	bookings.SetupBookingRoutes(rg, bookingController, authMiddleware, adminMiddleware)
}

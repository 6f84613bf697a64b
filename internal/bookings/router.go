package bookings

import (
	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes configures all booking-related routes
func SetupBookingRoutes(router *gin.RouterGroup, controller Controller, auth, admin gin.HandlerFunc) {
	bookings := router.Group("/bookings")
	bookings.Use(auth)
	{
		bookings.POST("/transactions", controller.CreateTransaction)  // POST /api/v1/bookings/transactions
		bookings.GET("/transactions/:id", controller.GetTransaction)  // GET /api/v1/bookings/transactions/:id
		bookings.POST("/tickets", admin, controller.CreateTickets)    // POST /api/v1/bookings/tickets
		bookings.GET("/tickets", controller.ListMyTickets)            // GET /api/v1/bookings/tickets
		bookings.GET("/tickets/:id", controller.GetTicket)            // GET /api/v1/bookings/tickets/:id
		bookings.POST("/tickets/:id/cancel", controller.CancelTicket) // POST /api/v1/bookings/tickets/:id/cancel
	}

	adminTickets := router.Group("/admin/tickets")
	adminTickets.Use(auth, admin)
	{
		adminTickets.GET("", controller.ListAllTickets) // GET /api/v1/admin/tickets?flight_id=&status=
	}
}

// Key flow:
// 1. POST /bookings/transactions with a request_id (or Idempotency-Key header)
// 2. Seats are held, the card is charged and tickets are written in one commit
// 3. Replaying the same request_id returns the same booking
// 4. POST /bookings/tickets/:id/cancel frees the seat and refunds its price

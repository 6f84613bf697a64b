package reservations

import (
	"github.com/gin-gonic/gin"
)

// SetupReservationRoutes registers seat hold routes. Holds are confirmed only by
// the booking ledger, which issues the tickets.
func SetupReservationRoutes(router *gin.RouterGroup, controller Controller, auth, admin gin.HandlerFunc) {
	reservations := router.Group("/reservations")
	reservations.Use(auth)
	{
		reservations.POST("", controller.HoldSeats)                       // POST /api/v1/reservations
		reservations.GET("/:requestId", controller.GetReservation)        // GET /api/v1/reservations/:requestId
		reservations.DELETE("/:requestId", controller.ReleaseReservation) // DELETE /api/v1/reservations/:requestId
	}

	adminReservations := router.Group("/admin/reservations")
	adminReservations.Use(auth, admin)
	{
		adminReservations.POST("/sweep", controller.SweepExpired) // POST /api/v1/admin/reservations/sweep
	}
}

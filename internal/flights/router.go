package flights

import (
	"github.com/gin-gonic/gin"
)

// SetupFlightRoutes registers the public flight catalogue and the admin inventory routes.
// auth and admin are the JWT and role middlewares built by the caller.
func SetupFlightRoutes(router *gin.RouterGroup, controller Controller, auth, admin gin.HandlerFunc) {
	publicFlights := router.Group("/flights")
	{
		publicFlights.GET("", controller.ListFlights)          // GET /api/v1/flights
		publicFlights.GET("/:id", controller.GetFlight)        // GET /api/v1/flights/:id
		publicFlights.GET("/:id/seats", controller.GetSeatMap) // GET /api/v1/flights/:id/seats?status=FREE
	}

	adminFlights := router.Group("/admin/flights")
	adminFlights.Use(auth, admin)
	{
		adminFlights.POST("", controller.CreateFlight)                   // POST /api/v1/admin/flights
		adminFlights.POST("/:id/seats", controller.AddSeat)              // POST /api/v1/admin/flights/:id/seats
		adminFlights.DELETE("/:id/seats/:seatId", controller.RemoveSeat) // DELETE /api/v1/admin/flights/:id/seats/:seatId
		adminFlights.GET("/:id/capacity", controller.GetCapacity)        // GET /api/v1/admin/flights/:id/capacity
	}
}

package auth

import (
	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes registers account routes. auth is the JWT middleware.
func SetupAuthRoutes(router *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	accounts := router.Group("/auth")
	{
		accounts.POST("/register", controller.Register) // POST /api/v1/auth/register
		accounts.POST("/login", controller.Login)       // POST /api/v1/auth/login
		accounts.POST("/refresh", controller.RefreshToken)
	}

	protected := accounts.Group("")
	protected.Use(auth)
	{
		protected.GET("/me", controller.GetMe)
		protected.PUT("/password", controller.ChangePassword) // PUT /api/v1/auth/password
	}
}

package routes

import (
	"civicreporter-be/controllers"
	"civicreporter-be/middlewares"

	"github.com/gin-gonic/gin"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(r *gin.Engine, ac *controllers.AuthController, auth *middlewares.Auth) {
	group := r.Group("/api/auth")
	{
		group.POST("/signup", ac.RegisterUser)
		group.POST("/login", ac.LoginUser)
		group.POST("/logout", ac.LogoutUser)
		group.GET("/me", auth.Required(), ac.GetMe)
		group.POST("/otp", ac.RequestOTP)
		group.PUT("/otp", ac.VerifyOTP)
	}
}

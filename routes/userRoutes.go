package routes

import (
	"civicreporter-be/controllers"
	"civicreporter-be/middlewares"

	"github.com/gin-gonic/gin"
)

// UserRoutes sets up the routes scoped to the signed-in user
func UserRoutes(r *gin.Engine, rc *controllers.ReportController, auth *middlewares.Auth) {
	user := r.Group("/api/user", auth.Required())
	{
		user.GET("/reports", rc.GetUserReports)
	}
}

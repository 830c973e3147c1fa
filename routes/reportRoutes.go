package routes

import (
	"civicreporter-be/controllers"
	"civicreporter-be/middlewares"
	"civicreporter-be/models"

	"github.com/gin-gonic/gin"
)

// ReportRoutes sets up the report routes
func ReportRoutes(r *gin.Engine, rc *controllers.ReportController, auth *middlewares.Auth, limiter *middlewares.ReportRateLimiter) {
	admin := middlewares.RequireRole(models.RoleAdmin)

	reports := r.Group("/api/reports")
	{
		reports.POST("", auth.Optional(), limiter.Handler(), rc.CreateReport)
		reports.GET("", rc.GetAllReports)
		reports.GET("/stats", auth.Required(), admin, rc.GetReportStats)
		reports.GET("/:id", rc.GetReport)
		reports.PATCH("/:id", auth.Required(), admin, rc.UpdateReportStatus)
		reports.DELETE("/:id", auth.Required(), rc.DeleteReport)
	}

	r.POST("/api/admin/images/cleanup", auth.Required(), admin, rc.CleanupImages)
}

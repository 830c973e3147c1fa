package routes

import (
	"civicreporter-be/controllers"
	"civicreporter-be/metrics"
	"civicreporter-be/middlewares"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies is everything the router wires into handlers.
type Dependencies struct {
	Auth     *controllers.AuthController
	Reports  *controllers.ReportController
	System   *controllers.SystemController
	AuthMW   *middlewares.Auth
	Limiter  *middlewares.ReportRateLimiter
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Origins  []string
	Logger   *zap.Logger
}

// NewRouter builds the gin engine with middleware and every route group.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestID(), middlewares.RequestLogger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}
	r.Use(cors.New(corsConfig(deps.Origins)))

	r.GET("/ping", deps.System.Ping)
	r.GET("/api/health", deps.System.Health)
	r.GET("/api/config/maps", deps.System.MapsConfig)
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	AuthRoutes(r, deps.Auth, deps.AuthMW)
	ReportRoutes(r, deps.Reports, deps.AuthMW, deps.Limiter)
	UserRoutes(r, deps.Reports, deps.AuthMW)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemController serves health and frontend configuration.
type SystemController struct {
	db      Pinger
	mapsKey string
	log     *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewSystemController(db Pinger, mapsKey string, log *zap.Logger, timeout time.Duration) *SystemController {
	if log == nil {
		log = zap.NewNop()
	}
	return &SystemController{db: db, mapsKey: mapsKey, log: log, timeout: timeout, now: time.Now}
}

func (sc *SystemController) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// Health reports the service and database state; 503 when the database is
// unreachable.
func (sc *SystemController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), sc.timeout)
	defer cancel()

	status, database, code := "ok", "ok", http.StatusOK
	message := "Civic reporter API is running"
	if err := sc.db.Ping(ctx); err != nil {
		sc.log.Warn("health check: database unavailable", zap.Error(err))
		status, database, code = "degraded", "unavailable", http.StatusServiceUnavailable
		message = "Database is unavailable"
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": sc.now().UTC(),
		"message":   message,
		"database":  database,
	})
}

// MapsConfig hands the mapping-service key to the frontend.
func (sc *SystemController) MapsConfig(c *gin.Context) {
	if sc.mapsKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Maps API key is not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"apiKey": sc.mapsKey})
}

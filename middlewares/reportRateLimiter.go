package middlewares

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"civicreporter-be/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const reportLimitWindow = 24 * time.Hour

// ReportRateLimiter caps report submissions per client in a rolling 24h
// window. The client is the authenticated user or, failing that, the IP.
type ReportRateLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	log    *zap.Logger
}

// NewReportRateLimiter returns a limiter; a nil client disables limiting.
func NewReportRateLimiter(client *redis.Client, prefix string, limit int, log *zap.Logger) *ReportRateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReportRateLimiter{client: client, prefix: prefix, limit: limit, log: log}
}

func (l *ReportRateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.client == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := l.key(c)

		count, err := l.client.Incr(ctx, key).Result()
		if err != nil {
			l.log.Error("redis error incrementing report count", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "redis error incrementing count"})
			c.Abort()
			return
		}

		// Set TTL only for the first increment
		if count == 1 {
			if err := l.client.Expire(ctx, key, reportLimitWindow).Err(); err != nil {
				l.log.Error("redis error setting report limit ttl", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "redis error setting TTL"})
				c.Abort()
				return
			}
		}

		if count > int64(l.limit) {
			retryAfter, _ := l.client.TTL(ctx, key).Result()
			l.log.Info("report rate limit exceeded", zap.String("client", l.describe(c)))
			c.Header("Retry-After", formatSeconds(retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retryAfter.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (l *ReportRateLimiter) key(c *gin.Context) string {
	if identity, ok := CurrentUser(c); ok {
		return l.prefix + ":user:" + identity.UserID
	}
	return l.prefix + ":ip:" + c.ClientIP()
}

func (l *ReportRateLimiter) describe(c *gin.Context) string {
	if identity, ok := CurrentUser(c); ok {
		return identity.UserID
	}
	return logger.MaskIP(c.ClientIP())
}

func formatSeconds(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return strconv.FormatInt(int64(math.Ceil(d.Seconds())), 10)
}

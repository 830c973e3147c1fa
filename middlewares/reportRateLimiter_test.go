package middlewares

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"civicreporter-be/models"
	"civicreporter-be/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"
)

func newLimitedRouter(t *testing.T, client *redis.Client, limit int, tokens *utils.TokenIssuer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	limiter := NewReportRateLimiter(client, "report-limit", limit, zaptest.NewLogger(t))
	auth := NewAuth(tokens, zaptest.NewLogger(t))

	r := gin.New()
	r.POST("/reports", auth.Optional(), limiter.Handler(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return r
}

func post(router *gin.Engine, remoteAddr, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/reports", nil)
	req.RemoteAddr = remoteAddr
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestReportRateLimiterByIP(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	router := newLimitedRouter(t, client, 2, utils.NewTokenIssuer("secret", time.Hour))

	for i := 0; i < 2; i++ {
		if rr := post(router, "192.0.2.1:1234", ""); rr.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d", i, rr.Code)
		}
	}

	rr := post(router, "192.0.2.1:1234", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	var body struct {
		Error      string  `json:"error"`
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RetryAfter <= 0 || body.RetryAfter > (24*time.Hour).Seconds() {
		t.Fatalf("unexpected retry_after %v", body.RetryAfter)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	if rr := post(router, "198.51.100.7:1234", ""); rr.Code != http.StatusCreated {
		t.Fatalf("other clients must not be limited, got %d", rr.Code)
	}

	ttl := mr.TTL("report-limit:ip:192.0.2.1")
	if ttl != 24*time.Hour {
		t.Fatalf("expected 24h window, got %s", ttl)
	}

	mr.FastForward(24*time.Hour + time.Second)
	if rr := post(router, "192.0.2.1:1234", ""); rr.Code != http.StatusCreated {
		t.Fatalf("expected window reset, got %d", rr.Code)
	}
}

func TestReportRateLimiterByUser(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	tokens := utils.NewTokenIssuer("secret", time.Hour)
	router := newLimitedRouter(t, client, 1, tokens)

	token, err := tokens.Generate(&models.User{ID: "u1", Role: models.RoleUser})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if rr := post(router, "192.0.2.1:1234", token); rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if rr := post(router, "198.51.100.7:1234", token); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected the user to be limited across addresses, got %d", rr.Code)
	}
	if !mr.Exists("report-limit:user:u1") {
		t.Fatalf("expected per-user key")
	}
}

func TestReportRateLimiterDisabledWithoutRedis(t *testing.T) {
	router := newLimitedRouter(t, nil, 1, utils.NewTokenIssuer("secret", time.Hour))
	for i := 0; i < 3; i++ {
		if rr := post(router, "192.0.2.1:1234", ""); rr.Code != http.StatusCreated {
			t.Fatalf("expected limiter to be a no-op, got %d", rr.Code)
		}
	}
}

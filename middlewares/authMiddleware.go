package middlewares

import (
	"net/http"
	"strings"

	"civicreporter-be/models"
	"civicreporter-be/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	AuthCookieName = "auth_token"

	userIDKey = "user_id"
	roleKey   = "role"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID string
	Role   models.Role
}

// IsAdmin reports whether the caller holds the ADMIN role.
func (i Identity) IsAdmin() bool { return i.Role == models.RoleAdmin }

// CurrentUser returns the identity set by Auth, if any.
func CurrentUser(c *gin.Context) (Identity, bool) {
	userID := c.GetString(userIDKey)
	if userID == "" {
		return Identity{}, false
	}
	role, _ := c.Get(roleKey)
	r, _ := role.(models.Role)
	return Identity{UserID: userID, Role: r}, true
}

// Auth authenticates requests with a session token taken from the
// Authorization header or the auth_token cookie.
type Auth struct {
	tokens *utils.TokenIssuer
	log    *zap.Logger
}

func NewAuth(tokens *utils.TokenIssuer, log *zap.Logger) *Auth {
	if log == nil {
		log = zap.NewNop()
	}
	return &Auth{tokens: tokens, log: log}
}

// Required rejects requests without a valid token.
func (a *Auth) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No authorization token provided"})
			c.Abort()
			return
		}

		claims, err := a.tokens.Parse(tokenString)
		if err != nil {
			a.log.Debug("token validation failed", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization token"})
			c.Abort()
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}

// Optional sets the identity when a valid token is present and lets every
// request through.
func (a *Auth) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := extractToken(c); tokenString != "" {
			if claims, err := a.tokens.Parse(tokenString); err == nil {
				setIdentity(c, claims)
			} else {
				a.log.Debug("ignoring invalid optional token", zap.Error(err))
			}
		}
		c.Next()
	}
}

// RequireRole must run after Required.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			c.Abort()
			return
		}
		if identity.Role != role {
			c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to perform this action"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func setIdentity(c *gin.Context, claims utils.Claims) {
	c.Set(userIDKey, claims.UserID)
	c.Set(roleKey, claims.Role)
}

func extractToken(c *gin.Context) string {
	if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
		// Extracting token from "Bearer <token>" format
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie(AuthCookieName); err == nil {
		return cookie
	}
	return ""
}

package controllers

import (
	"context"
	"net/http"
	"time"

	"civicreporter-be/middlewares"
	"civicreporter-be/models"
	"civicreporter-be/services"
	"civicreporter-be/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CookieSettings controls the auth_token cookie.
type CookieSettings struct {
	Domain     string
	Production bool
}

// AuthController serves account and OTP sign-in endpoints.
type AuthController struct {
	auth     *services.AuthService
	otp      *services.OTPService
	tokens   *utils.TokenIssuer
	cookie   CookieSettings
	debugOTP bool
	log      *zap.Logger
	timeout  time.Duration
}

func NewAuthController(auth *services.AuthService, otp *services.OTPService, tokens *utils.TokenIssuer,
	cookie CookieSettings, debugOTP bool, log *zap.Logger, timeout time.Duration) *AuthController {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthController{
		auth:     auth,
		otp:      otp,
		tokens:   tokens,
		cookie:   cookie,
		debugOTP: debugOTP,
		log:      log,
		timeout:  timeout,
	}
}

var otpErrorCases = []errorCase{
	{err: services.ErrOTPNotFound, status: http.StatusNotFound, message: services.ErrOTPNotFound.Error()},
	{err: services.ErrOTPExpired, status: http.StatusBadRequest, message: services.ErrOTPExpired.Error()},
	{err: services.ErrOTPMismatch, status: http.StatusBadRequest, message: services.ErrOTPMismatch.Error()},
	{err: services.ErrMobileConflict, status: http.StatusConflict, message: services.ErrMobileConflict.Error()},
}

// RegisterUser handles user registration
func (ac *AuthController) RegisterUser(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required,max=50"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := ac.context(c)
	defer cancel()

	user, err := ac.auth.SignUp(ctx, input.Name, input.Email, input.Password)
	if err != nil {
		respondError(c, ac.log, err, []errorCase{
			{err: services.ErrEmailTaken, status: http.StatusConflict, message: services.ErrEmailTaken.Error()},
		}, "Something went wrong")
		return
	}
	c.JSON(http.StatusCreated, userResponse(user))
}

// LoginUser handles user login
func (ac *AuthController) LoginUser(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := ac.context(c)
	defer cancel()

	user, err := ac.auth.Login(ctx, input.Email, input.Password)
	if err != nil {
		respondError(c, ac.log, err, []errorCase{
			{err: services.ErrInvalidCredentials, status: http.StatusUnauthorized, message: services.ErrInvalidCredentials.Error()},
		}, "Something went wrong")
		return
	}
	ac.startSession(c, user)
}

// GetMe retrieves the authenticated user's information
func (ac *AuthController) GetMe(c *gin.Context) {
	identity, ok := middlewares.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx, cancel := ac.context(c)
	defer cancel()

	user, err := ac.auth.Me(ctx, identity.UserID)
	if err != nil {
		respondError(c, ac.log, err, []errorCase{notFound("User not found")}, "Something went wrong")
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}

// LogoutUser clears the auth_token cookie
func (ac *AuthController) LogoutUser(c *gin.Context) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(middlewares.AuthCookieName, "", -1, "/", ac.cookieDomain(), ac.cookie.Production, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// RequestOTP issues a one-time code for a mobile number.
func (ac *AuthController) RequestOTP(c *gin.Context) {
	var input struct {
		Mobile string `json:"mobile"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := ac.context(c)
	defer cancel()

	issued, err := ac.otp.Issue(ctx, input.Mobile)
	if err != nil {
		respondError(c, ac.log, err, nil, "Failed to send OTP")
		return
	}

	body := gin.H{
		"message":   "OTP sent successfully",
		"expiresAt": issued.ExpiresAt,
	}
	if ac.debugOTP {
		body["otp"] = issued.Code
	}
	c.JSON(http.StatusOK, body)
}

// VerifyOTP consumes a code and signs the mobile's account in.
func (ac *AuthController) VerifyOTP(c *gin.Context) {
	var input struct {
		Mobile string `json:"mobile"`
		OTP    string `json:"otp"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := ac.context(c)
	defer cancel()

	user, err := ac.otp.Verify(ctx, input.Mobile, input.OTP)
	if err != nil {
		respondError(c, ac.log, err, otpErrorCases, "Failed to verify OTP")
		return
	}
	ac.startSession(c, user)
}

func (ac *AuthController) startSession(c *gin.Context, user *models.User) {
	token, err := ac.tokens.Generate(user)
	if err != nil {
		ac.log.Error("error generating token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	// SameSite=None is required for cross-origin cookies in production.
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(middlewares.AuthCookieName, token, int(ac.tokens.TTL().Seconds()), "/",
		ac.cookieDomain(), ac.cookie.Production, true)

	body := userResponse(user)
	body["token"] = token
	c.JSON(http.StatusOK, body)
}

// cookieDomain leaves the domain unset in production so cross-origin
// cookies work.
func (ac *AuthController) cookieDomain() string {
	if ac.cookie.Production {
		return ""
	}
	return ac.cookie.Domain
}

func (ac *AuthController) context(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), ac.timeout)
}

func userResponse(user *models.User) gin.H {
	body := gin.H{
		"id":        user.ID,
		"name":      user.Name,
		"email":     user.Email,
		"role":      user.Role,
		"createdAt": user.CreatedAt,
	}
	if user.Mobile != nil {
		body["mobile"] = *user.Mobile
	}
	return body
}

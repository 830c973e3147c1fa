package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"civicreporter-be/logger"
	"civicreporter-be/metrics"
	"civicreporter-be/models"
	"civicreporter-be/store"
	"civicreporter-be/validation"

	"go.uber.org/zap"
)

const (
	OTPTTL = 10 * time.Minute

	otpMin   = 100000
	otpRange = 900000
)

var (
	mobilePattern      = regexp.MustCompile(`^\+?[0-9]{6,15}$`)
	placeholderPattern = regexp.MustCompile(`^\+?[0-9]{6,15}@example\.com$`)
)

// placeholderEmail is the address given to accounts created by mobile
// sign-in. Addresses of this form cannot be registered through SignUp.
func placeholderEmail(mobile string) string {
	return mobile + "@example.com"
}

func isPlaceholderEmail(email string) bool {
	return placeholderPattern.MatchString(email)
}

// IssuedOTP is the outcome of Issue. Code must only be shown to the caller
// in development.
type IssuedOTP struct {
	Mobile    string
	Code      string
	ExpiresAt time.Time
}

// OTPService issues and verifies one-time codes for mobile sign-in.
type OTPService struct {
	otps    store.OTPStore
	users   store.UserStore
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewOTPService(otps store.OTPStore, users store.UserStore, log *zap.Logger, m *metrics.Metrics) *OTPService {
	if log == nil {
		log = zap.NewNop()
	}
	return &OTPService{otps: otps, users: users, log: log, metrics: m, now: time.Now}
}

// WithClock overrides the internal clock, used in tests.
func (s *OTPService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Issue creates a fresh code for mobile, replacing any previous one.
func (s *OTPService) Issue(ctx context.Context, mobile string) (IssuedOTP, error) {
	mobile, err := normalizeMobile(mobile)
	if err != nil {
		return IssuedOTP{}, err
	}
	code, err := generateCode()
	if err != nil {
		return IssuedOTP{}, err
	}

	now := s.now().UTC()
	record := models.OTP{
		Mobile:    mobile,
		Code:      code,
		ExpiresAt: now.Add(OTPTTL),
		CreatedAt: now,
	}
	if err := s.otps.UpsertOTP(ctx, record); err != nil {
		return IssuedOTP{}, fmt.Errorf("store otp: %w", err)
	}

	s.metrics.OTPIssuedInc()
	s.log.Info("otp issued", zap.String("mobile", logger.MaskPhone(mobile)), zap.Time("expires_at", record.ExpiresAt))
	return IssuedOTP{Mobile: mobile, Code: code, ExpiresAt: record.ExpiresAt}, nil
}

// Verify consumes the code for mobile and returns the account behind it,
// creating one on first sign-in. A wrong code leaves the record in place.
func (s *OTPService) Verify(ctx context.Context, mobile, candidate string) (*models.User, error) {
	mobile, err := normalizeMobile(mobile)
	if err != nil {
		return nil, err
	}
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return nil, &validation.ValidationError{Field: "otp", Message: "Mobile number and OTP are required"}
	}

	record, err := s.otps.FindOTP(ctx, mobile)
	if errors.Is(err, store.ErrNotFound) {
		s.metrics.OTPVerified("not_found")
		return nil, ErrOTPNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find otp: %w", err)
	}

	if record.Expired(s.now()) {
		if err := s.otps.DeleteOTP(ctx, mobile); err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("delete expired otp: %w", err)
		}
		s.metrics.OTPVerified("expired")
		return nil, ErrOTPExpired
	}

	if subtle.ConstantTimeCompare([]byte(record.Code), []byte(candidate)) != 1 {
		s.metrics.OTPVerified("mismatch")
		s.log.Info("otp mismatch", zap.String("mobile", logger.MaskPhone(mobile)))
		return nil, ErrOTPMismatch
	}

	// Losing a concurrent verification race means the code was already used.
	if err := s.otps.DeleteOTP(ctx, mobile); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.metrics.OTPVerified("not_found")
			return nil, ErrOTPNotFound
		}
		return nil, fmt.Errorf("delete otp: %w", err)
	}

	user, err := s.userForMobile(ctx, mobile)
	if err != nil {
		return nil, err
	}
	s.metrics.OTPVerified("success")
	s.log.Info("otp verified", zap.String("mobile", logger.MaskPhone(mobile)), zap.String("user_id", user.ID))
	return user, nil
}

func (s *OTPService) userForMobile(ctx context.Context, mobile string) (*models.User, error) {
	user, err := s.users.FindUserByMobile(ctx, mobile)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("find user by mobile: %w", err)
	}
	user, err = ensurePasswordlessUser(ctx, s.users, placeholderEmail(mobile), "User "+mobile, &mobile)
	if err != nil {
		return nil, fmt.Errorf("create user for mobile: %w", err)
	}
	// The placeholder address may belong to an account that never had
	// this mobile attached.
	if user.Mobile == nil || *user.Mobile != mobile {
		s.log.Warn("placeholder email owned by another account",
			zap.String("mobile", logger.MaskPhone(mobile)), zap.String("user_id", user.ID))
		return nil, ErrMobileConflict
	}
	return user, nil
}

func normalizeMobile(raw string) (string, error) {
	mobile := strings.TrimSpace(raw)
	if mobile == "" {
		return "", &validation.ValidationError{Field: "mobile", Message: "Mobile number is required"}
	}
	if !mobilePattern.MatchString(mobile) {
		return "", &validation.ValidationError{Field: "mobile", Message: "Mobile number must contain 6 to 15 digits"}
	}
	return mobile, nil
}

// generateCode returns a uniformly random six digit code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpRange))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}

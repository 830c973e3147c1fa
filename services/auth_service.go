package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"civicreporter-be/logger"
	"civicreporter-be/models"
	"civicreporter-be/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthService manages email/password accounts.
type AuthService struct {
	users store.UserStore
	log   *zap.Logger
}

func NewAuthService(users store.UserStore, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{users: users, log: log}
}

// SignUp registers a USER account.
func (s *AuthService) SignUp(ctx context.Context, name, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == models.AnonymousEmail || isPlaceholderEmail(email) {
		return nil, ErrEmailTaken
	}
	user := &models.User{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(name),
		Email:    email,
		Password: password,
		Role:     models.RoleUser,
	}
	if err := user.HashPassword(); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user registered", zap.String("user_id", user.ID), zap.String("email", logger.MaskEmail(email)))
	return user, nil
}

// Login checks email and password. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.FindUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user.IsAnonymous() || !user.ComparePassword(password) {
		s.log.Info("login rejected", zap.String("email", logger.MaskEmail(user.Email)))
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Me returns the account behind an authenticated session.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.users.FindUserByID(ctx, userID)
}

// EnsureAdmin creates the ADMIN account for email unless an account with
// that email already exists.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	candidate := &models.User{
		ID:       uuid.NewString(),
		Name:     "Admin User",
		Email:    email,
		Password: password,
		Role:     models.RoleAdmin,
	}
	if err := candidate.HashPassword(); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.EnsureUser(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("ensure admin: %w", err)
	}
	if user.Role != models.RoleAdmin {
		s.log.Warn("admin seed email belongs to a non-admin account", zap.String("email", logger.MaskEmail(email)))
	} else {
		s.log.Info("admin account ready", zap.String("email", logger.MaskEmail(email)))
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"civicreporter-be/models"
	"civicreporter-be/store"

	"github.com/google/uuid"
)

// randomSecret returns 32 random bytes hex encoded. It is used as the
// password of accounts nobody logs into with a password.
func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ensurePasswordlessUser returns the user with email, creating it with a
// random password when absent.
func ensurePasswordlessUser(ctx context.Context, users store.UserStore, email, name string, mobile *string) (*models.User, error) {
	existing, err := users.FindUserByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	secret, err := randomSecret()
	if err != nil {
		return nil, err
	}
	candidate := &models.User{
		ID:       uuid.NewString(),
		Email:    email,
		Mobile:   mobile,
		Password: secret,
		Name:     name,
		Role:     models.RoleUser,
	}
	if err := candidate.HashPassword(); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return users.EnsureUser(ctx, candidate)
}

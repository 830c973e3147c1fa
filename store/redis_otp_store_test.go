package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"civicreporter-be/models"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, server
}

func TestRedisOTPStoreUpsertReplaces(t *testing.T) {
	client, server := newTestRedis(t)
	s := NewRedisOTPStore(client, "test:otp")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.WithClock(func() time.Time { return now })
	ctx := context.Background()

	if err := s.UpsertOTP(ctx, models.OTP{Mobile: "9999999999", Code: "111111", ExpiresAt: now.Add(10 * time.Minute)}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := s.UpsertOTP(ctx, models.OTP{Mobile: "9999999999", Code: "222222", ExpiresAt: now.Add(10 * time.Minute)}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.FindOTP(ctx, "9999999999")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Code != "222222" {
		t.Fatalf("expected latest code to win, got %s", got.Code)
	}
	if !got.ExpiresAt.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", got.ExpiresAt)
	}
	if keys := server.Keys(); len(keys) != 1 || keys[0] != "test:otp:9999999999" {
		t.Fatalf("expected exactly one key, got %v", keys)
	}
	if ttl := server.TTL("test:otp:9999999999"); ttl != 11*time.Minute {
		t.Fatalf("expected ttl to cover expiry plus retention, got %v", ttl)
	}
}

func TestRedisOTPStoreDelete(t *testing.T) {
	client, _ := newTestRedis(t)
	s := NewRedisOTPStore(client, "")
	ctx := context.Background()

	if _, err := s.FindOTP(ctx, "123"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpsertOTP(ctx, models.OTP{Mobile: "123", Code: "654321", ExpiresAt: time.Now().Add(time.Minute)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.DeleteOTP(ctx, "123"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteOTP(ctx, "123"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestRedisOTPStoreRequiresMobile(t *testing.T) {
	client, _ := newTestRedis(t)
	s := NewRedisOTPStore(client, "")
	if err := s.UpsertOTP(context.Background(), models.OTP{Code: "123456"}); err == nil {
		t.Fatalf("expected error for empty mobile")
	}
}

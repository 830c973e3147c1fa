package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"civicreporter-be/models"
)

const defaultOTPKeyPrefix = "civicreporter:otp"

// expiredRetention keeps a record readable for a while past its expiry so
// verification can report "expired" rather than "not found".
const expiredRetention = time.Minute

// RedisOTPStore keeps OTP records in Redis, one key per mobile.
type RedisOTPStore struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

type redisOTPRecord struct {
	Mobile    string    `json:"mobile"`
	Code      string    `json:"otp"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewRedisOTPStore constructs the store on an existing client.
func NewRedisOTPStore(client *redis.Client, keyPrefix string) *RedisOTPStore {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultOTPKeyPrefix
	}
	return &RedisOTPStore{client: client, keyPrefix: prefix, now: time.Now}
}

// WithClock overrides the internal clock, used in tests.
func (s *RedisOTPStore) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// UpsertOTP writes the record with a single SET, replacing any previous code.
func (s *RedisOTPStore) UpsertOTP(ctx context.Context, otp models.OTP) error {
	if strings.TrimSpace(otp.Mobile) == "" {
		return errors.New("mobile is required")
	}
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = s.now().UTC()
	}
	raw, err := json.Marshal(redisOTPRecord{
		Mobile:    otp.Mobile,
		Code:      otp.Code,
		ExpiresAt: otp.ExpiresAt.UTC(),
		CreatedAt: otp.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal otp: %w", err)
	}
	ttl := otp.ExpiresAt.Sub(s.now()) + expiredRetention
	if ttl <= 0 {
		ttl = expiredRetention
	}
	if err := s.client.Set(ctx, s.key(otp.Mobile), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set otp: %w", err)
	}
	return nil
}

func (s *RedisOTPStore) FindOTP(ctx context.Context, mobile string) (*models.OTP, error) {
	raw, err := s.client.Get(ctx, s.key(mobile)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get otp: %w", err)
	}
	var rec redisOTPRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal otp: %w", err)
	}
	return &models.OTP{
		Mobile:    rec.Mobile,
		Code:      rec.Code,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}, nil
}

func (s *RedisOTPStore) DeleteOTP(ctx context.Context, mobile string) error {
	deleted, err := s.client.Del(ctx, s.key(mobile)).Result()
	if err != nil {
		return fmt.Errorf("redis delete otp: %w", err)
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisOTPStore) key(mobile string) string {
	return fmt.Sprintf("%s:%s", s.keyPrefix, strings.TrimSpace(mobile))
}

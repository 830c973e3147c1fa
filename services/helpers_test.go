package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"civicreporter-be/metrics"
	"civicreporter-be/models"
	"civicreporter-be/store"

	"go.uber.org/zap/zaptest"
)

// steppingClock returns a clock that advances by step on every call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(step)
		return current
	}
}

func newTestReportService(t *testing.T) (*ReportService, *store.MemoryStore, *metrics.Metrics) {
	t.Helper()
	st := store.NewMemoryStore()
	st.WithClock(steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Second))
	m, err := metrics.New(nil)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	return NewReportService(st, st, zaptest.NewLogger(t), m), st, m
}

func seedUser(t *testing.T, st store.UserStore, id string, role models.Role) *models.User {
	t.Helper()
	user := &models.User{ID: id, Email: id + "@example.com", Name: "User " + id, Password: "hashed", Role: role}
	if err := st.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func strPtr(s string) *string { return &s }

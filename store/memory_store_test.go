package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"civicreporter-be/models"
)

func TestMemoryStoreFindReportsFiltersAndOrders(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})
	ctx := context.Background()

	for i, st := range []models.ReportStatus{models.Pending, models.Resolved, models.Pending, models.Rejected} {
		r := &models.Report{ID: fmt.Sprintf("r%d", i), Status: st, UserID: fmt.Sprintf("u%d", i%2)}
		if err := s.CreateReport(ctx, r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all, _ := s.FindReports(ctx, ReportFilter{})
	if len(all) != 4 || all[0].ID != "r3" || all[3].ID != "r0" {
		t.Fatalf("expected newest first, got %v", ids(all))
	}
	oldest, _ := s.FindReports(ctx, ReportFilter{OldestFirst: true, Limit: 2, Offset: 1})
	if got := ids(oldest); len(got) != 2 || got[0] != "r1" || got[1] != "r2" {
		t.Fatalf("unexpected page %v", got)
	}
	pending, _ := s.FindReports(ctx, ReportFilter{Status: models.Pending})
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	mine, _ := s.FindReports(ctx, ReportFilter{UserID: "u1", Limit: 1})
	if len(mine) != 1 || mine[0].ID != "r3" {
		t.Fatalf("unexpected user filter result %v", ids(mine))
	}
	past, _ := s.FindReports(ctx, ReportFilter{Offset: 10})
	if len(past) != 0 {
		t.Fatalf("expected empty page past the end")
	}

	counts, _ := s.CountReportsByStatus(ctx)
	if counts[models.Pending] != 2 || counts[models.Resolved] != 1 || counts[models.Rejected] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestMemoryStoreReportsAreCopied(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	img := "https://example.com/a.png"
	r := &models.Report{ID: "r1", ImageURL: &img, Status: models.Pending}
	if err := s.CreateReport(ctx, r); err != nil {
		t.Fatalf("create: %v", err)
	}
	img = "mutated"

	got, err := s.FindReportByID(ctx, "r1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if *got.ImageURL != "https://example.com/a.png" {
		t.Fatalf("stored report aliased caller memory: %s", *got.ImageURL)
	}
	if err := s.UpdateReportImage(ctx, "r1", nil); err != nil {
		t.Fatalf("clear image: %v", err)
	}
	got, _ = s.FindReportByID(ctx, "r1")
	if got.ImageURL != nil {
		t.Fatalf("expected image to be cleared")
	}
}

func TestMemoryStoreMissingRecords(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if _, err := s.FindReportByID(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.UpdateReportStatus(ctx, "nope", models.Resolved); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteReport(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.FindUserByMobile(ctx, "1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreUserUniqueness(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	mobile := "9876543210"
	if err := s.CreateUser(ctx, &models.User{ID: "u1", Email: "a@example.com", Mobile: &mobile}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateUser(ctx, &models.User{ID: "u2", Email: "a@example.com"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
	other := "9876543210"
	if err := s.CreateUser(ctx, &models.User{ID: "u3", Email: "b@example.com", Mobile: &other}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate mobile error, got %v", err)
	}
	got, err := s.FindUserByMobile(ctx, mobile)
	if err != nil || got.ID != "u1" {
		t.Fatalf("find by mobile: %v %v", got, err)
	}
}

func TestMemoryStoreEnsureUserIsAtomic(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]string, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := s.EnsureUser(ctx, &models.User{ID: fmt.Sprintf("id-%d", i), Email: models.AnonymousEmail})
			if err != nil {
				t.Errorf("ensure: %v", err)
				return
			}
			results[i] = u.ID
		}(i)
	}
	wg.Wait()

	if s.UserCount() != 1 {
		t.Fatalf("expected exactly one user, got %d", s.UserCount())
	}
	for _, id := range results {
		if id != results[0] {
			t.Fatalf("callers observed different users: %v", results)
		}
	}
}

func TestMemoryStoreOTPLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	exp := time.Now().Add(10 * time.Minute)
	_ = s.UpsertOTP(ctx, models.OTP{Mobile: "1", Code: "111111", ExpiresAt: exp})
	_ = s.UpsertOTP(ctx, models.OTP{Mobile: "1", Code: "222222", ExpiresAt: exp})
	got, err := s.FindOTP(ctx, "1")
	if err != nil || got.Code != "222222" {
		t.Fatalf("expected replaced code, got %v %v", got, err)
	}
	if err := s.DeleteOTP(ctx, "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.FindOTP(ctx, "1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func ids(reports []models.Report) []string {
	out := make([]string, len(reports))
	for i, r := range reports {
		out[i] = r.ID
	}
	return out
}

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

// runStoreTests checks the behaviour every database backend must share.
// open returns an empty store for each subtest.
func runStoreTests(t *testing.T, open func(t *testing.T) Store) {
	t.Run("report round trip", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		image := "https://example.com/bin.jpg"
		address := "MG Road"
		in := &models.Report{
			ID:          "r1",
			Title:       "Overflowing bin",
			Description: "The bin at the park entrance is overflowing.",
			ImageURL:    &image,
			Latitude:    12.9716,
			Longitude:   -0.1276,
			Address:     &address,
			Status:      models.Pending,
			UserID:      "u1",
		}
		if err := s.CreateReport(ctx, in); err != nil {
			t.Fatalf("create: %v", err)
		}

		got, err := s.FindReportByID(ctx, "r1")
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.Title != in.Title || got.Description != in.Description || got.Status != models.Pending ||
			got.UserID != "u1" || got.Latitude != 12.9716 || got.Longitude != -0.1276 {
			t.Fatalf("unexpected report %+v", got)
		}
		if got.ImageURL == nil || *got.ImageURL != image || got.Address == nil || *got.Address != address {
			t.Fatalf("optional fields lost: %+v", got)
		}
		if got.CreatedAt.IsZero() {
			t.Fatalf("expected creation time to be set")
		}

		if _, err := s.FindReportByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("status update", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seedReports(t, s, "r1")

		updated, err := s.UpdateReportStatus(ctx, "r1", models.Resolved)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.ID != "r1" || updated.Status != models.Resolved || updated.Title == "" {
			t.Fatalf("expected the full updated row back, got %+v", updated)
		}
		stored, err := s.FindReportByID(ctx, "r1")
		if err != nil || stored.Status != models.Resolved {
			t.Fatalf("expected status persisted, got %+v %v", stored, err)
		}

		if _, err := s.UpdateReportStatus(ctx, "missing", models.Rejected); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("image update", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seedReports(t, s, "r1")

		if err := s.UpdateReportImage(ctx, "r1", nil); err != nil {
			t.Fatalf("clear image: %v", err)
		}
		got, err := s.FindReportByID(ctx, "r1")
		if err != nil || got.ImageURL != nil {
			t.Fatalf("expected image cleared, got %+v %v", got, err)
		}

		replacement := "https://example.com/new.jpg"
		if err := s.UpdateReportImage(ctx, "r1", &replacement); err != nil {
			t.Fatalf("set image: %v", err)
		}
		got, err = s.FindReportByID(ctx, "r1")
		if err != nil || got.ImageURL == nil || *got.ImageURL != replacement {
			t.Fatalf("expected image replaced, got %+v %v", got, err)
		}

		if err := s.UpdateReportImage(ctx, "missing", nil); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("delete and count", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seedReports(t, s, "r1", "r2", "r3")
		if _, err := s.UpdateReportStatus(ctx, "r3", models.InProgress); err != nil {
			t.Fatalf("update: %v", err)
		}

		counts, err := s.CountReportsByStatus(ctx)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if counts[models.Pending] != 2 || counts[models.InProgress] != 1 || counts[models.Resolved] != 0 {
			t.Fatalf("unexpected counts %v", counts)
		}

		if err := s.DeleteReport(ctx, "r1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := s.DeleteReport(ctx, "r1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found on second delete, got %v", err)
		}
		remaining, err := s.FindReports(ctx, ReportFilter{Status: models.Pending})
		if err != nil || len(remaining) != 1 || remaining[0].ID != "r2" {
			t.Fatalf("unexpected remaining reports %v %v", ids(remaining), err)
		}
	})

	t.Run("users", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		mobile := "9876543210"
		user := &models.User{ID: "u1", Email: "asha@example.com", Mobile: &mobile, Name: "Asha", Password: "hashed", Role: models.RoleUser}
		if err := s.CreateUser(ctx, user); err != nil {
			t.Fatalf("create user: %v", err)
		}
		dup := &models.User{ID: "u2", Email: "asha@example.com", Name: "Other", Password: "hashed", Role: models.RoleUser}
		if err := s.CreateUser(ctx, dup); !errors.Is(err, ErrDuplicate) {
			t.Fatalf("expected duplicate email, got %v", err)
		}

		byMobile, err := s.FindUserByMobile(ctx, mobile)
		if err != nil || byMobile.ID != "u1" {
			t.Fatalf("find by mobile: %+v %v", byMobile, err)
		}
		byID, err := s.FindUserByID(ctx, "u1")
		if err != nil || byID.Email != "asha@example.com" || byID.Role != models.RoleUser {
			t.Fatalf("find by id: %+v %v", byID, err)
		}
		if _, err := s.FindUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("concurrent ensure user", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		const workers = 20
		var wg sync.WaitGroup
		got := make([]string, workers)
		errs := make([]error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				candidate := &models.User{
					ID:       fmt.Sprintf("anon-%d", i),
					Email:    models.AnonymousEmail,
					Name:     "Anonymous User",
					Password: "hashed",
					Role:     models.RoleUser,
				}
				user, err := s.EnsureUser(ctx, candidate)
				if err == nil {
					got[i] = user.ID
				}
				errs[i] = err
			}(i)
		}
		wg.Wait()

		distinct := map[string]bool{}
		for i := range got {
			if errs[i] != nil {
				t.Fatalf("ensure user %d: %v", i, errs[i])
			}
			distinct[got[i]] = true
		}
		if len(distinct) != 1 {
			t.Fatalf("expected one anonymous account, got %v", distinct)
		}
		stored, err := s.FindUserByEmail(ctx, models.AnonymousEmail)
		if err != nil || !distinct[stored.ID] {
			t.Fatalf("stored account %+v does not match returned ids %v: %v", stored, distinct, err)
		}
	})

	t.Run("otp upsert", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

		first := models.OTP{Mobile: "9999999999", Code: "111111", ExpiresAt: issued.Add(10 * time.Minute), CreatedAt: issued}
		second := models.OTP{Mobile: "9999999999", Code: "222222", ExpiresAt: issued.Add(20 * time.Minute), CreatedAt: issued.Add(10 * time.Minute)}
		for _, otp := range []models.OTP{first, second} {
			if err := s.UpsertOTP(ctx, otp); err != nil {
				t.Fatalf("upsert: %v", err)
			}
		}

		got, err := s.FindOTP(ctx, "9999999999")
		if err != nil {
			t.Fatalf("find otp: %v", err)
		}
		if got.Code != "222222" || !got.ExpiresAt.Equal(second.ExpiresAt) {
			t.Fatalf("expected the second code to replace the first, got %+v", got)
		}

		if err := s.DeleteOTP(ctx, "9999999999"); err != nil {
			t.Fatalf("delete otp: %v", err)
		}
		if err := s.DeleteOTP(ctx, "9999999999"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found on second delete, got %v", err)
		}
		if _, err := s.FindOTP(ctx, "9999999999"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found after delete, got %v", err)
		}
	})
}

func seedReports(t *testing.T, s Store, reportIDs ...string) {
	t.Helper()
	image := "data:image/png;base64,iVBORw0KGgo="
	for _, id := range reportIDs {
		r := &models.Report{
			ID:          id,
			Title:       "Report " + id,
			Description: "Something needs fixing here.",
			ImageURL:    &image,
			Latitude:    1,
			Longitude:   2,
			Status:      models.Pending,
			UserID:      "u1",
		}
		if err := s.CreateReport(context.Background(), r); err != nil {
			t.Fatalf("seed report %s: %v", id, err)
		}
	}
}

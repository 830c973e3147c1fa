package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"civicreporter-be/models"
	"civicreporter-be/store"
	"civicreporter-be/validation"

	"go.uber.org/zap/zaptest"
)

func TestNeedsCleanup(t *testing.T) {
	cases := []struct {
		name  string
		image *string
		want  bool
	}{
		{"nil", nil, false},
		{"data uri", strPtr(pngImage), false},
		{"url", strPtr("https://example.com/a.png"), false},
		{"marker", strPtr(validation.LegacyCorruptedMarker), true},
		{"oversized", strPtr("data:image/png;base64," + strings.Repeat("A", validation.MaxImageLength)), true},
		{"bad data uri", strPtr("data:image/bmp;base64,AAAA"), true},
		{"plain text", strPtr("not an image"), true},
	}
	for _, tc := range cases {
		if got := NeedsCleanup(tc.image); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestImageCleanupRun(t *testing.T) {
	st := store.NewMemoryStore()
	st.WithClock(steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Second))
	ctx := context.Background()

	images := []*string{
		nil,
		strPtr(pngImage),
		strPtr(validation.LegacyCorruptedMarker),
		strPtr("https://example.com/a.png"),
		strPtr("garbage"),
	}
	const total = 120
	corrupted := 0
	for i := 0; i < total; i++ {
		image := images[i%len(images)]
		if NeedsCleanup(image) {
			corrupted++
		}
		report := &models.Report{
			ID:          fmt.Sprintf("r%03d", i),
			Title:       "Pothole",
			Description: "Large pothole near the school gate.",
			ImageURL:    image,
			Status:      models.Pending,
			UserID:      "u1",
		}
		if err := st.CreateReport(ctx, report); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	cleanup := NewImageCleanup(st, zaptest.NewLogger(t))
	cleanup.pause = 0
	stats, err := cleanup.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.TotalReports != total || stats.CorruptedCount != corrupted || stats.FixedCount != corrupted {
		t.Fatalf("unexpected stats %+v, expected %d corrupted", stats, corrupted)
	}
	if stats.EndTime.Before(stats.StartTime) {
		t.Fatalf("end time before start time")
	}

	reports, err := st.FindReports(ctx, store.ReportFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, r := range reports {
		if NeedsCleanup(r.ImageURL) {
			t.Fatalf("report %s still has a corrupted image", r.ID)
		}
	}

	again, err := cleanup.Run(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if again.CorruptedCount != 0 || again.TotalReports != total {
		t.Fatalf("expected a clean second pass, got %+v", again)
	}
}

func TestImageCleanupStopsOnCancel(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < cleanupBatchSize+1; i++ {
		if err := st.CreateReport(ctx, &models.Report{ID: fmt.Sprintf("r%03d", i), UserID: "u1", Status: models.Pending}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	cleanup := NewImageCleanup(st, zaptest.NewLogger(t))
	cleanup.pause = time.Hour

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	if _, err := cleanup.Run(ctx); err != context.Canceled {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

package services

import (
	"context"
	"sync/atomic"
	"time"

	"civicreporter-be/models"
	"civicreporter-be/store"
	"civicreporter-be/validation"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	cleanupBatchSize   = 50
	cleanupBatchPause  = 100 * time.Millisecond
	cleanupConcurrency = 5
)

// CleanupStats summarises one backfill run.
type CleanupStats struct {
	StartTime      time.Time `json:"startTime"`
	EndTime        time.Time `json:"endTime"`
	TotalReports   int       `json:"totalReports"`
	CorruptedCount int       `json:"corruptedCount"`
	FixedCount     int       `json:"fixedCount"`
}

// ImageCleanup clears stored image values that no longer pass the image
// policy, such as rows written by older releases.
type ImageCleanup struct {
	reports   store.ReportStore
	log       *zap.Logger
	batchSize int
	pause     time.Duration
	now       func() time.Time
}

func NewImageCleanup(reports store.ReportStore, log *zap.Logger) *ImageCleanup {
	if log == nil {
		log = zap.NewNop()
	}
	return &ImageCleanup{
		reports:   reports,
		log:       log,
		batchSize: cleanupBatchSize,
		pause:     cleanupBatchPause,
		now:       time.Now,
	}
}

// NeedsCleanup reports whether a stored image value should be cleared.
func NeedsCleanup(imageURL *string) bool {
	if imageURL == nil {
		return false
	}
	raw := *imageURL
	return raw == validation.LegacyCorruptedMarker ||
		len(raw) > validation.MaxImageLength ||
		validation.ValidateImage(imageURL) == nil
}

// Run walks every report oldest first and clears corrupted images. A failed
// update is logged and counted as unfixed; only cancellation or a failed
// batch read stops the run.
func (c *ImageCleanup) Run(ctx context.Context) (CleanupStats, error) {
	stats := CleanupStats{StartTime: c.now().UTC()}
	c.log.Info("image cleanup started")

	for offset := 0; ; offset += c.batchSize {
		batch, err := c.reports.FindReports(ctx, store.ReportFilter{
			Limit:       c.batchSize,
			Offset:      offset,
			OldestFirst: true,
		})
		if err != nil {
			stats.EndTime = c.now().UTC()
			return stats, err
		}
		stats.TotalReports += len(batch)

		corrupted, fixed, err := c.cleanBatch(ctx, batch)
		stats.CorruptedCount += corrupted
		stats.FixedCount += fixed
		if err != nil {
			stats.EndTime = c.now().UTC()
			return stats, err
		}

		if len(batch) < c.batchSize {
			break
		}
		if err := c.wait(ctx); err != nil {
			stats.EndTime = c.now().UTC()
			return stats, err
		}
	}

	stats.EndTime = c.now().UTC()
	c.log.Info("image cleanup finished",
		zap.Int("total_reports", stats.TotalReports),
		zap.Int("corrupted", stats.CorruptedCount),
		zap.Int("fixed", stats.FixedCount),
		zap.Duration("took", stats.EndTime.Sub(stats.StartTime)))
	return stats, nil
}

// RunEvery repeats Run on interval until ctx is cancelled.
func (c *ImageCleanup) RunEvery(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := c.Run(ctx); err != nil && ctx.Err() == nil {
				c.log.Error("periodic image cleanup failed", zap.Error(err))
			}
		}
	}
}

func (c *ImageCleanup) cleanBatch(ctx context.Context, batch []models.Report) (int, int, error) {
	var corrupted, fixed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cleanupConcurrency)

	for _, report := range batch {
		if !NeedsCleanup(report.ImageURL) {
			continue
		}
		corrupted.Add(1)
		id, length := report.ID, len(*report.ImageURL)
		g.Go(func() error {
			if err := c.reports.UpdateReportImage(gctx, id, nil); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.log.Error("failed to clear image", zap.String("report_id", id), zap.Error(err))
				return nil
			}
			fixed.Add(1)
			c.log.Info("cleared corrupted image", zap.String("report_id", id), zap.Int("length", length))
			return nil
		})
	}

	err := g.Wait()
	return int(corrupted.Load()), int(fixed.Load()), err
}

func (c *ImageCleanup) wait(ctx context.Context) error {
	if c.pause <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(c.pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

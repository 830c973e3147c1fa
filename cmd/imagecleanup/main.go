// Command imagecleanup runs the stored-image backfill once and exits.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"civicreporter-be/config"
	"civicreporter-be/logger"
	"civicreporter-be/services"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.OpenStore(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to open store", zap.Error(err))
	}
	defer db.Close()

	stats, err := services.NewImageCleanup(db, zlog).Run(ctx)
	if err != nil {
		zlog.Fatal("image cleanup failed", zap.Error(err))
	}
	zlog.Info("image cleanup summary",
		zap.Time("start", stats.StartTime),
		zap.Time("end", stats.EndTime),
		zap.Int("total_reports", stats.TotalReports),
		zap.Int("corrupted", stats.CorruptedCount),
		zap.Int("fixed", stats.FixedCount))
}

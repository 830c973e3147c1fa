package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"civicreporter-be/config"
	"civicreporter-be/controllers"
	"civicreporter-be/logger"
	"civicreporter-be/metrics"
	"civicreporter-be/middlewares"
	"civicreporter-be/routes"
	"civicreporter-be/services"
	"civicreporter-be/store"
	"civicreporter-be/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

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

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.OpenStore(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb, err := config.NewRedisClient(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	var otps store.OTPStore = db
	if rdb != nil {
		defer rdb.Close()
		otps = store.NewRedisOTPStore(rdb, "")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	authSvc := services.NewAuthService(db, zlog)
	otpSvc := services.NewOTPService(otps, db, zlog, m)
	reportSvc := services.NewReportService(db, db, zlog, m)
	cleanup := services.NewImageCleanup(db, zlog)

	if cfg.AdminEmail != "" {
		seedCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		_, err := authSvc.EnsureAdmin(seedCtx, cfg.AdminEmail, cfg.AdminPassword)
		cancel()
		if err != nil {
			return err
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.NewRouter(routes.Dependencies{
		Auth: controllers.NewAuthController(authSvc, otpSvc, tokens,
			controllers.CookieSettings{Domain: cfg.Domain, Production: cfg.IsProduction()},
			cfg.OTPDebugResponse, zlog, cfg.RequestTimeout),
		Reports:  controllers.NewReportController(reportSvc, cleanup, zlog, cfg.RequestTimeout),
		System:   controllers.NewSystemController(db, cfg.MapsAPIKey, zlog, cfg.RequestTimeout),
		AuthMW:   middlewares.NewAuth(tokens, zlog),
		Limiter:  middlewares.NewReportRateLimiter(rdb, cfg.ReportLimitQueue, cfg.ReportDailyLimit, zlog),
		Metrics:  m,
		Gatherer: reg,
		Origins:  cfg.Origins,
		Logger:   zlog,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zlog.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		zlog.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.ImageCleanupInterval > 0 {
		g.Go(func() error {
			zlog.Info("periodic image cleanup enabled", zap.Duration("interval", cfg.ImageCleanupInterval))
			return cleanup.RunEvery(gctx, cfg.ImageCleanupInterval)
		})
	}

	return g.Wait()
}

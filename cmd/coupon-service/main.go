package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron"

	"github.com/kissaten/coupon-platform/internal/api"
	"github.com/kissaten/coupon-platform/internal/api/handlers"
	"github.com/kissaten/coupon-platform/internal/batchlock"
	"github.com/kissaten/coupon-platform/internal/cache"
	"github.com/kissaten/coupon-platform/internal/clock"
	"github.com/kissaten/coupon-platform/internal/repository"
	"github.com/kissaten/coupon-platform/internal/service"
	"github.com/kissaten/coupon-platform/pkg/db"
	"github.com/kissaten/coupon-platform/pkg/logger"
)

// The nightly batch materializes issues for the following day, so
// schedules are in place before their windows open.
const batchCronSpec = "0 0 1 * * *" // 01:00 daily, with seconds field

func main() {
	cfg, err := db.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	conn, err := db.NewPostgresConnection(cfg.Postgres)
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	defer conn.Close()

	if err := db.RunMigrations(conn, cfg.MigrationsDir); err != nil {
		log.WithError(err).Fatal("run migrations")
	}

	// Redis is optional: without it the service runs uncached and
	// batch runs are serialized only by the schedule watermarks.
	var (
		issueCache service.IssueCache
		runLocker  service.RunLocker
	)
	if rdb, err := db.NewRedisClient(cfg.Redis); err != nil {
		log.WithError(err).Warn("redis unavailable; caching and batch locking disabled")
	} else {
		defer rdb.Close()
		issueCache = cache.NewIssueCache(rdb, log)
		runLocker = batchlock.New(rdb)
	}

	clk := clock.System()
	couponRepo := repository.NewCouponRepo(conn)
	scheduleRepo := repository.NewScheduleRepo(conn)
	issueRepo := repository.NewIssueRepo(conn)
	acquisitionRepo := repository.NewAcquisitionRepo(conn)
	shopRepo := repository.NewShopRepo(conn)

	couponSvc := service.NewCouponService(couponRepo, scheduleRepo, clk, log)
	issuanceSvc := service.NewIssuanceService(couponRepo, issueRepo, issueCache, clk, log)
	acquisitionSvc := service.NewAcquisitionService(shopRepo, couponRepo, issueRepo, acquisitionRepo, issueCache, clk, log)
	batchSvc := service.NewBatchService(scheduleRepo, issueRepo, acquisitionRepo, issueCache, runLocker, clk, log)

	adminHandler := handlers.NewAdminHandler(couponSvc, issuanceSvc, batchSvc, log)
	mobileHandler := handlers.NewMobileHandler(acquisitionSvc, log)
	router := api.NewRouter(adminHandler, mobileHandler, log)

	c := cron.New()
	if err := c.AddFunc(batchCronSpec, func() {
		targetDate := clk.Now().AddDate(0, 0, 1)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := batchSvc.ProcessSchedulesForDate(ctx, targetDate, false); err != nil {
			log.WithError(err).Error("nightly schedule batch failed")
		}
	}); err != nil {
		log.WithError(err).Fatal("register batch cron")
	}
	c.Start()
	defer c.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Error("http server shutdown")
		}
		close(idleConnsClosed)
	}()

	log.WithField("addr", srv.Addr).Info("starting coupon-service")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("listen")
	}

	<-idleConnsClosed
	log.Info("server stopped")
}

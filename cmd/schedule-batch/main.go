package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kissaten/coupon-platform/internal/batchlock"
	"github.com/kissaten/coupon-platform/internal/clock"
	"github.com/kissaten/coupon-platform/internal/repository"
	"github.com/kissaten/coupon-platform/internal/service"
	"github.com/kissaten/coupon-platform/pkg/db"
	"github.com/kissaten/coupon-platform/pkg/logger"
)

// schedule-batch runs the issuance batch once and exits; the long-
// running service has its own cron, this binary exists for external
// schedulers and manual backfills.
func main() {
	dateFlag := flag.String("date", "", "target date YYYY-MM-DD (default: tomorrow)")
	dryRun := flag.Bool("dry-run", false, "report what would be issued without writing")
	flag.Parse()

	cfg, err := db.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	targetDate := time.Now().AddDate(0, 0, 1)
	if *dateFlag != "" {
		parsed, err := time.Parse("2006-01-02", *dateFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -date %q; use YYYY-MM-DD\n", *dateFlag)
			os.Exit(1)
		}
		targetDate = parsed
	}

	conn, err := db.NewPostgresConnection(cfg.Postgres)
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	defer conn.Close()

	var runLocker service.RunLocker
	if rdb, err := db.NewRedisClient(cfg.Redis); err != nil {
		log.WithError(err).Warn("redis unavailable; running without batch lock")
	} else {
		defer rdb.Close()
		runLocker = batchlock.New(rdb)
	}

	batchSvc := service.NewBatchService(
		repository.NewScheduleRepo(conn),
		repository.NewIssueRepo(conn),
		repository.NewAcquisitionRepo(conn),
		nil,
		runLocker,
		clock.System(),
		log,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := batchSvc.ProcessSchedulesForDate(ctx, targetDate, *dryRun)
	if err != nil {
		log.WithError(err).Error("schedule batch failed")
		os.Exit(1)
	}

	fmt.Printf("target date:  %s\n", result.TargetDate.Format("2006-01-02"))
	fmt.Printf("dry run:      %v\n", result.DryRun)
	fmt.Printf("schedules:    %d\n", result.TotalSchedules)
	fmt.Printf("issued:       %d\n", result.IssuedCount)
	fmt.Printf("skipped:      %d\n", result.SkippedCount)
	for _, e := range result.Errors {
		fmt.Printf("error:        schedule %s: %s\n", e.ScheduleID, e.Message)
	}
	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}

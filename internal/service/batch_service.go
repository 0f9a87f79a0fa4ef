package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/kissaten/coupon-platform/internal/clock"
	"github.com/kissaten/coupon-platform/internal/concurrency"
	"github.com/kissaten/coupon-platform/internal/models"
)

const (
	batchLockKey = "coupon-schedule-batch"
	batchWorkers = 4
)

// BatchService materializes coupon issues from schedules for a target
// date. Runs are idempotent per (schedule, date); the per-schedule
// watermark in the store is the dedup authority and a distributed run
// lock keeps overlapping runs from doing wasted work.
type BatchService struct {
	schedules    ScheduleRepo
	issues       IssueRepo
	acquisitions AcquisitionRepo
	cache        IssueCache
	locker       RunLocker
	clk          clock.Clock
	log          *logrus.Logger
}

func NewBatchService(
	schedules ScheduleRepo,
	issues IssueRepo,
	acquisitions AcquisitionRepo,
	cache IssueCache,
	locker RunLocker,
	clk clock.Clock,
	log *logrus.Logger,
) *BatchService {
	return &BatchService{
		schedules:    schedules,
		issues:       issues,
		acquisitions: acquisitions,
		cache:        cache,
		locker:       locker,
		clk:          clk,
		log:          log,
	}
}

type BatchResult struct {
	TargetDate     time.Time
	DryRun         bool
	TotalSchedules int
	IssuedCount    int
	SkippedCount   int
	Errors         []BatchError
}

type BatchError struct {
	ScheduleID string
	Message    string
}

// ProcessSchedulesForDate runs the batch for one calendar date. A
// failing schedule is recorded and never aborts the rest of the run.
// With dryRun set, nothing is written; the result reports what a real
// run would do.
func (s *BatchService) ProcessSchedulesForDate(ctx context.Context, targetDate time.Time, dryRun bool) (*BatchResult, error) {
	if s.locker != nil {
		release, err := s.locker.Obtain(ctx, batchLockKey)
		if err != nil {
			return nil, ErrBatchRunning
		}
		defer func() {
			if err := release(ctx); err != nil {
				s.log.WithError(err).Warn("release batch lock")
			}
		}()
	}

	targetDate = models.DateOf(targetDate)
	log := s.log.WithFields(logrus.Fields{"target_date": targetDate.Format("2006-01-02"), "dry_run": dryRun})
	log.Info("schedule batch started")

	if !dryRun {
		s.sweepExpired(ctx, log)
	}

	candidates, err := s.schedules.ListForDate(ctx, targetDate)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{TargetDate: targetDate, DryRun: dryRun, TotalSchedules: len(candidates)}
	var (
		mu    sync.Mutex
		shops = map[string]struct{}{}
	)

	concurrency.ForEach(ctx, batchWorkers, len(candidates), func(ctx context.Context, i int) {
		sched := candidates[i]
		issued, err := s.processSchedule(ctx, &sched, targetDate, dryRun)

		mu.Lock()
		defer mu.Unlock()
		switch {
		case err != nil:
			result.Errors = append(result.Errors, BatchError{ScheduleID: sched.ID, Message: err.Error()})
			log.WithError(err).WithField("schedule_id", sched.ID).Error("schedule processing failed")
		case issued:
			result.IssuedCount++
			shops[sched.ShopID] = struct{}{}
		default:
			result.SkippedCount++
		}
	})

	if s.cache != nil && !dryRun {
		for shopID := range shops {
			s.cache.Invalidate(ctx, shopID)
		}
	}

	log.WithFields(logrus.Fields{
		"total":   result.TotalSchedules,
		"issued":  result.IssuedCount,
		"skipped": result.SkippedCount,
		"errors":  len(result.Errors),
	}).Info("schedule batch finished")
	return result, nil
}

func (s *BatchService) processSchedule(ctx context.Context, sched *models.ScheduleWithCoupon, targetDate time.Time, dryRun bool) (bool, error) {
	if !sched.CouponIsActive || !sched.AppliesOn(targetDate) || sched.ProcessedFor(targetDate) {
		return false, nil
	}
	if dryRun {
		return true, nil
	}

	start, end := sched.Window(targetDate)
	scheduleID := sched.ID
	issue := &models.Issue{
		ID:            xid.New().String(),
		CouponID:      sched.CouponID,
		ShopID:        sched.ShopID,
		ScheduleID:    &scheduleID,
		IssueType:     models.IssueBatchGenerated,
		TargetDate:    targetDate,
		StartTime:     start,
		EndTime:       end,
		StartTimeOnly: sched.StartTime,
		EndTimeOnly:   sched.EndTime,
		Status:        models.IssueActive,
		IsActive:      true,
		IssuedAt:      start,
	}
	if sched.MaxAcquisitions != nil {
		n := *sched.MaxAcquisitions
		issue.MaxAcquisitions = &n
	}

	created, err := s.schedules.MaterializeIssue(ctx, sched.ID, targetDate, issue)
	if err != nil {
		return false, err
	}
	if created {
		s.log.WithFields(logrus.Fields{
			"schedule_id": sched.ID,
			"issue_id":    issue.ID,
			"coupon_id":   sched.CouponID,
		}).Info("batch issue created")
	}
	return created, nil
}

// sweepExpired transitions lapsed issues and acquisitions before new
// ones are generated. Failures here are logged and do not block the
// run.
func (s *BatchService) sweepExpired(ctx context.Context, log *logrus.Entry) {
	now := s.clk.Now()
	if n, err := s.issues.ExpireOverdue(ctx, now); err != nil {
		log.WithError(err).Warn("expire overdue issues")
	} else if n > 0 {
		log.WithField("count", n).Info("issues expired")
	}
	if n, err := s.acquisitions.ExpireOverdue(ctx, now); err != nil {
		log.WithError(err).Warn("expire overdue acquisitions")
	} else if n > 0 {
		log.WithField("count", n).Info("acquisitions expired")
	}
}

package service

import (
	"context"
	"errors"

	"github.com/avast/retry-go"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/kissaten/coupon-platform/internal/clock"
	"github.com/kissaten/coupon-platform/internal/models"
	"github.com/kissaten/coupon-platform/internal/repository"
)

const acquireAttempts = 3

// AcquisitionService is the user-facing surface: browsing live issues,
// acquiring coupons, the wallet, and redemption.
type AcquisitionService struct {
	shops        ShopRepo
	coupons      CouponRepo
	issues       IssueRepo
	acquisitions AcquisitionRepo
	cache        IssueCache
	clk          clock.Clock
	log          *logrus.Logger
}

func NewAcquisitionService(
	shops ShopRepo,
	coupons CouponRepo,
	issues IssueRepo,
	acquisitions AcquisitionRepo,
	cache IssueCache,
	clk clock.Clock,
	log *logrus.Logger,
) *AcquisitionService {
	return &AcquisitionService{
		shops:        shops,
		coupons:      coupons,
		issues:       issues,
		acquisitions: acquisitions,
		cache:        cache,
		clk:          clk,
		log:          log,
	}
}

// AcquireCoupon claims one acquisition of the issue for the user. The
// pre-checks here give fast, specific errors; the repository re-runs
// every check inside the locking transaction, so they are advisory
// only and the transaction is the source of truth. Serialization
// conflicts are retried a few times; domain errors never are.
func (s *AcquisitionService) AcquireCoupon(ctx context.Context, userID, issueID string) (*models.Acquisition, error) {
	issue, err := s.issues.FindByID(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, ErrNotFound
	}

	now := s.clk.Now()
	if issue.Status != models.IssueActive || !issue.IsActive {
		return nil, ErrNotAvailable
	}
	if !now.Before(issue.EndTime) {
		return nil, ErrNotAvailable
	}
	existing, err := s.acquisitions.FindByIssueAndUser(ctx, issueID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyAcquired
	}
	if !issue.HasCapacity() {
		return nil, ErrCapacityExceeded
	}

	a := &models.Acquisition{
		ID:            xid.New().String(),
		CouponIssueID: issueID,
		UserID:        userID,
		AcquiredAt:    now,
		ExpiredAt:     issue.EndTime.Add(models.AcquisitionGracePeriod),
		Status:        models.AcquisitionActive,
	}

	err = retry.Do(
		func() error { return s.acquisitions.Acquire(ctx, a, now) },
		retry.Attempts(acquireAttempts),
		retry.RetryIf(repository.IsTransient),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, mapAcquireErr(err)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, issue.ShopID)
	}
	s.log.WithFields(logrus.Fields{
		"acquisition_id": a.ID,
		"issue_id":       issueID,
		"user_id":        userID,
	}).Info("coupon acquired")
	return a, nil
}

func mapAcquireErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrIssueNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrIssueNotActive),
		errors.Is(err, repository.ErrIssueWindowClosed):
		return ErrNotAvailable
	case errors.Is(err, repository.ErrAlreadyAcquired):
		return ErrAlreadyAcquired
	case errors.Is(err, repository.ErrCapacityExceeded):
		return ErrCapacityExceeded
	default:
		return err
	}
}

// UseCoupon redeems one of the user's acquisitions.
func (s *AcquisitionService) UseCoupon(ctx context.Context, userID, acquisitionID string, processedBy *string, notes string) (*models.Acquisition, error) {
	a, err := s.acquisitions.FindByIDAndUser(ctx, acquisitionID, userID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}

	now := s.clk.Now()
	if a.Status != models.AcquisitionActive {
		return nil, ErrNotUsable
	}
	if a.IsExpired(now) {
		return nil, ErrExpired
	}

	if err := s.acquisitions.Use(ctx, acquisitionID, processedBy, notes, now); err != nil {
		if errors.Is(err, repository.ErrNotUsable) {
			return nil, ErrNotUsable
		}
		return nil, err
	}

	a.Status = models.AcquisitionUsed
	a.UsedAt = &now
	a.ProcessedBy = processedBy
	a.UsageNotes = notes

	s.log.WithFields(logrus.Fields{
		"acquisition_id": acquisitionID,
		"user_id":        userID,
	}).Info("coupon used")
	return a, nil
}

// GetUserCoupons returns the user's wallet, newest first, with expiry
// state derived at read time.
func (s *AcquisitionService) GetUserCoupons(ctx context.Context, userID string) ([]models.UserCouponView, error) {
	views, err := s.acquisitions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	for i := range views {
		v := &views[i]
		v.Expired = v.Status == models.AcquisitionExpired || v.IsExpired(now)
		v.Usable = v.IsUsable(now)
		v.TimeUntilExpiry = v.FormatTimeUntilExpiry(now)
	}
	return views, nil
}

// GetShopCoupons lists a shop's active coupons for the public surface.
func (s *AcquisitionService) GetShopCoupons(ctx context.Context, shopID string) ([]models.CouponWithCounts, error) {
	shop, err := s.shops.FindByID(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, ErrNotFound
	}

	all, err := s.coupons.ListByShop(ctx, shopID, s.clk.Now())
	if err != nil {
		return nil, err
	}
	out := make([]models.CouponWithCounts, 0, len(all))
	for _, c := range all {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetActiveIssues lists the shop's currently acquirable issues. The
// per-shop cache is read-through; derived countdown fields are always
// recomputed against the clock so cached entries stay honest.
func (s *AcquisitionService) GetActiveIssues(ctx context.Context, shopID string) ([]models.ActiveIssueView, error) {
	shop, err := s.shops.FindByID(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, ErrNotFound
	}

	now := s.clk.Now()
	views, ok := []models.ActiveIssueView(nil), false
	if s.cache != nil {
		views, ok = s.cache.GetActiveIssues(ctx, shopID)
	}
	if !ok {
		views, err = s.issues.ListActiveByShop(ctx, shopID, now)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.SetActiveIssues(ctx, shopID, views)
		}
	}

	for i := range views {
		v := &views[i]
		v.RemainingCount = v.Issue.RemainingCount()
		v.TimeRemaining = v.Issue.TimeRemaining(now)
		v.TimeRemainingText = models.FormatTimeRemaining(v.TimeRemaining)
		v.Available = v.Issue.IsAvailable(now)
	}
	return views, nil
}

package service

import (
	"context"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/kissaten/coupon-platform/internal/clock"
	"github.com/kissaten/coupon-platform/internal/models"
)

const defaultManualDurationMinutes = 60

// IssuanceService handles admin-triggered issuance: immediate manual
// issues and stopping live ones.
type IssuanceService struct {
	coupons CouponRepo
	issues  IssueRepo
	cache   IssueCache
	clk     clock.Clock
	log     *logrus.Logger
}

func NewIssuanceService(coupons CouponRepo, issues IssueRepo, cache IssueCache, clk clock.Clock, log *logrus.Logger) *IssuanceService {
	return &IssuanceService{coupons: coupons, issues: issues, cache: cache, clk: clk, log: log}
}

type IssueNowInput struct {
	DurationMinutes int
	MaxAcquisitions *int
}

// IssueNow opens a manual issue for the coupon starting immediately.
// Any live manual issue for the same coupon is superseded; batch
// issues are left alone.
func (s *IssuanceService) IssueNow(ctx context.Context, admin *models.ShopAdmin, couponID string, in IssueNowInput) (*models.Issue, error) {
	c, err := s.coupons.FindByID(ctx, couponID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	if c.ShopID != admin.ShopID {
		return nil, ErrForbidden
	}
	if !c.IsActive {
		return nil, ErrInvalidState
	}

	duration := in.DurationMinutes
	if duration <= 0 {
		duration = defaultManualDurationMinutes
	}
	if in.MaxAcquisitions != nil && *in.MaxAcquisitions <= 0 {
		return nil, validationErr("max acquisitions must be positive")
	}

	superseded, err := s.issues.CancelActiveManualByCoupon(ctx, couponID)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	end := now.Add(time.Duration(duration) * time.Minute)
	adminID := admin.ID
	issue := &models.Issue{
		ID:              xid.New().String(),
		CouponID:        couponID,
		ShopID:          c.ShopID,
		IssueType:       models.IssueManual,
		StartTime:       now,
		EndTime:         end,
		TargetDate:      models.DateOf(now),
		StartTimeOnly:   models.TimeOfDayOf(now),
		EndTimeOnly:     models.TimeOfDayOf(end),
		MaxAcquisitions: in.MaxAcquisitions,
		Status:          models.IssueActive,
		IsActive:        true,
		IssuedBy:        &adminID,
		IssuedAt:        now,
	}
	if err := s.issues.Create(ctx, issue); err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, admin.ShopID)
	}
	s.log.WithFields(logrus.Fields{
		"issue_id":   issue.ID,
		"coupon_id":  couponID,
		"duration":   duration,
		"superseded": superseded,
	}).Info("manual coupon issue created")
	return issue, nil
}

// StopIssue cancels a live issue immediately.
func (s *IssuanceService) StopIssue(ctx context.Context, admin *models.ShopAdmin, issueID string) error {
	issue, err := s.issues.FindByID(ctx, issueID)
	if err != nil {
		return err
	}
	if issue == nil {
		return ErrNotFound
	}

	c, err := s.coupons.FindByID(ctx, issue.CouponID)
	if err != nil {
		return err
	}
	if c == nil || c.ShopID != admin.ShopID {
		return ErrForbidden
	}
	if issue.Status != models.IssueActive && issue.Status != models.IssueFull {
		return ErrInvalidState
	}

	if err := s.issues.Cancel(ctx, issueID); err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, admin.ShopID)
	}
	s.log.WithFields(logrus.Fields{"issue_id": issueID, "coupon_id": issue.CouponID}).Info("coupon issue stopped")
	return nil
}

// ListActiveIssues returns the shop's currently live issues for the
// admin dashboard.
func (s *IssuanceService) ListActiveIssues(ctx context.Context, admin *models.ShopAdmin) ([]models.ActiveIssueView, error) {
	return s.issues.ListActiveByShop(ctx, admin.ShopID, s.clk.Now())
}

package service

import (
	"context"
	"time"

	"github.com/kissaten/coupon-platform/internal/models"
)

// Persistence interfaces consumed by the services; the repository
// package provides the Postgres implementations and the tests provide
// in-memory fakes with the same atomicity guarantees.

type CouponRepo interface {
	Create(ctx context.Context, c *models.Coupon) error
	FindByID(ctx context.Context, id string) (*models.Coupon, error)
	Update(ctx context.Context, c *models.Coupon) error
	Delete(ctx context.Context, id string) error
	HasLiveIssues(ctx context.Context, couponID string, now time.Time) (bool, error)
	ListByShop(ctx context.Context, shopID string, now time.Time) ([]models.CouponWithCounts, error)
}

type ScheduleRepo interface {
	Create(ctx context.Context, s *models.Schedule) error
	FindByIDAndShop(ctx context.Context, id, shopID string) (*models.Schedule, error)
	Update(ctx context.Context, s *models.Schedule) error
	Delete(ctx context.Context, id string) error
	ListByShop(ctx context.Context, shopID string) ([]models.Schedule, error)
	ListForDate(ctx context.Context, date time.Time) ([]models.ScheduleWithCoupon, error)
	MaterializeIssue(ctx context.Context, scheduleID string, targetDate time.Time, issue *models.Issue) (bool, error)
}

type IssueRepo interface {
	Create(ctx context.Context, i *models.Issue) error
	FindByID(ctx context.Context, id string) (*models.Issue, error)
	Cancel(ctx context.Context, id string) error
	CancelActiveManualByCoupon(ctx context.Context, couponID string) (int64, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
	ListActiveByShop(ctx context.Context, shopID string, now time.Time) ([]models.ActiveIssueView, error)
}

type AcquisitionRepo interface {
	FindByIssueAndUser(ctx context.Context, issueID, userID string) (*models.Acquisition, error)
	FindByIDAndUser(ctx context.Context, id, userID string) (*models.Acquisition, error)
	Acquire(ctx context.Context, a *models.Acquisition, now time.Time) error
	Use(ctx context.Context, id string, processedBy *string, notes string, now time.Time) error
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
	ListByUser(ctx context.Context, userID string) ([]models.UserCouponView, error)
}

type ShopRepo interface {
	FindByID(ctx context.Context, id string) (*models.Shop, error)
}

// IssueCache caches the public active-issue view per shop.
// Implementations must be safe for concurrent use; a nil cache
// disables caching.
type IssueCache interface {
	GetActiveIssues(ctx context.Context, shopID string) ([]models.ActiveIssueView, bool)
	SetActiveIssues(ctx context.Context, shopID string, views []models.ActiveIssueView)
	Invalidate(ctx context.Context, shopID string)
}

// RunLocker serializes batch runs across service instances.
type RunLocker interface {
	// Obtain acquires the named lock or fails fast when held
	// elsewhere. The returned func releases it.
	Obtain(ctx context.Context, key string) (release func(context.Context) error, err error)
}

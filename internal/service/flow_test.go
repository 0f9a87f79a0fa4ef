package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kissaten/coupon-platform/internal/clock"
	"github.com/kissaten/coupon-platform/internal/models"
)

// Exercises the whole lifecycle over one shared store: nightly batch
// materializes a capped daily issue, users race for it, one redeems,
// the window lapses, acquisitions outlive the issue.
func TestDailyScheduleLifecycle(t *testing.T) {
	store := newMemStore()
	store.addShop(models.Shop{ID: "shop-1", Name: "Corner Roasters"})
	store.addCoupon(models.Coupon{ID: "coupon-1", ShopID: "shop-1", Title: "Morning espresso", IsActive: true})

	five := 5
	store.addSchedule(models.Schedule{
		ID:              "sched-1",
		CouponID:        "coupon-1",
		ShopID:          "shop-1",
		Name:            "daily morning",
		DayType:         models.DayDaily,
		StartTime:       models.TimeOfDay{Hour: 10},
		EndTime:         models.TimeOfDay{Hour: 12},
		MaxAcquisitions: &five,
		ValidFrom:       date(2026, time.June, 1),
		IsActive:        true,
	})

	clk := clock.NewFixed(time.Date(2026, time.June, 15, 1, 0, 0, 0, time.UTC))
	cache := newMemCache()
	batch := NewBatchService(&memSchedules{store}, &memIssues{store}, &memAcquisitions{store}, cache, &memLocker{}, clk, testLogger())
	acquire := NewAcquisitionService(&memShops{store}, &memCoupons{store}, &memIssues{store}, &memAcquisitions{store}, cache, clk, testLogger())

	// 01:00 nightly run for the same day.
	result, err := batch.ProcessSchedulesForDate(context.Background(), date(2026, time.June, 15), false)
	require.NoError(t, err)
	require.Equal(t, 1, result.IssuedCount)

	var issueID string
	store.mu.Lock()
	for id := range store.issues {
		issueID = id
	}
	store.mu.Unlock()

	// Before the window opens nothing is acquirable.
	views, err := acquire.GetActiveIssues(context.Background(), "shop-1")
	require.NoError(t, err)
	assert.Empty(t, views)

	// 10:30, window open: five users get in, the sixth is turned away.
	clk.Set(time.Date(2026, time.June, 15, 10, 30, 0, 0, time.UTC))
	var first *models.Acquisition
	for i := 0; i < 5; i++ {
		a, err := acquire.AcquireCoupon(context.Background(), fmt.Sprintf("user-%d", i), issueID)
		require.NoError(t, err)
		if first == nil {
			first = a
		}
	}
	_, err = acquire.AcquireCoupon(context.Background(), "user-late", issueID)
	assert.ErrorIs(t, err, ErrNotAvailable, "issue is full")
	assert.Equal(t, models.IssueFull, store.issue(issueID).Status)

	// One redemption in the shop.
	staff := "admin-1"
	used, err := acquire.UseCoupon(context.Background(), "user-0", first.ID, &staff, "")
	require.NoError(t, err)
	assert.Equal(t, models.AcquisitionUsed, used.Status)

	// 13:00: window over; unredeemed acquisitions stay usable through
	// the grace period even though the issue itself has lapsed.
	clk.Set(time.Date(2026, time.June, 15, 13, 0, 0, 0, time.UTC))
	wallet, err := acquire.GetUserCoupons(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, wallet, 1)
	assert.True(t, wallet[0].Usable)

	// Re-running the batch for the day changes nothing.
	again, err := batch.ProcessSchedulesForDate(context.Background(), date(2026, time.June, 15), false)
	require.NoError(t, err)
	assert.Equal(t, 0, again.IssuedCount)
	assert.Equal(t, 1, store.issueCount())
}

// Acquisition expiry is fixed at acquire time; stopping or mutating
// the issue afterwards never shortens an already-held coupon.
func TestAcquisitionExpiryIndependentOfIssue(t *testing.T) {
	f := newAcquisitionFixture(t)
	f.addLiveIssue("issue-1", nil)

	a, err := f.svc.AcquireCoupon(context.Background(), "user-1", "issue-1")
	require.NoError(t, err)
	originalExpiry := a.ExpiredAt

	// Admin stops the issue right after.
	f.store.mu.Lock()
	f.store.issues["issue-1"].Status = models.IssueCancelled
	f.store.issues["issue-1"].IsActive = false
	f.store.issues["issue-1"].EndTime = testNow
	f.store.mu.Unlock()

	wallet, err := f.svc.GetUserCoupons(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, wallet, 1)
	assert.Equal(t, originalExpiry, wallet[0].ExpiredAt)
	assert.True(t, wallet[0].Usable)

	used, err := f.svc.UseCoupon(context.Background(), "user-1", a.ID, nil, "")
	require.NoError(t, err, "held coupons redeem regardless of the issue's fate")
	assert.Equal(t, models.AcquisitionUsed, used.Status)
}

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func liveIssue() *Issue {
	return &Issue{
		ID:        "issue-1",
		CouponID:  "coupon-1",
		ShopID:    "shop-1",
		IssueType: IssueManual,
		StartTime: time.Date(2026, time.June, 15, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC),
		Status:    IssueActive,
		IsActive:  true,
	}
}

func TestIssueIsAvailable(t *testing.T) {
	inWindow := time.Date(2026, time.June, 15, 11, 0, 0, 0, time.UTC)

	i := liveIssue()
	assert.True(t, i.IsAvailable(inWindow))

	before := i.StartTime.Add(-time.Minute)
	assert.False(t, i.IsAvailable(before))

	atEnd := i.EndTime
	assert.False(t, i.IsAvailable(atEnd), "window end is exclusive")

	i = liveIssue()
	i.Status = IssueCancelled
	assert.False(t, i.IsAvailable(inWindow))

	i = liveIssue()
	i.IsActive = false
	assert.False(t, i.IsAvailable(inWindow))

	i = liveIssue()
	cap := 5
	i.MaxAcquisitions = &cap
	i.CurrentAcquisitions = 5
	assert.False(t, i.IsAvailable(inWindow))

	i.CurrentAcquisitions = 4
	assert.True(t, i.IsAvailable(inWindow))
}

func TestIssueRemainingCount(t *testing.T) {
	i := liveIssue()
	assert.Nil(t, i.RemainingCount(), "uncapped issue has no remaining count")

	cap := 10
	i.MaxAcquisitions = &cap
	i.CurrentAcquisitions = 3
	if n := i.RemainingCount(); assert.NotNil(t, n) {
		assert.Equal(t, 7, *n)
	}

	i.CurrentAcquisitions = 12
	if n := i.RemainingCount(); assert.NotNil(t, n) {
		assert.Equal(t, 0, *n, "remaining never goes negative")
	}
}

func TestIssueTimeRemaining(t *testing.T) {
	i := liveIssue()

	assert.Equal(t, 90, i.TimeRemaining(time.Date(2026, time.June, 15, 10, 30, 0, 0, time.UTC)))
	assert.Equal(t, 0, i.TimeRemaining(i.EndTime))
	assert.Equal(t, 0, i.TimeRemaining(i.EndTime.Add(time.Hour)))
	assert.Equal(t, 120, i.DurationMinutes())
}

func TestIssueShouldExpire(t *testing.T) {
	i := liveIssue()
	assert.False(t, i.ShouldExpire(i.EndTime.Add(-time.Minute)))
	assert.True(t, i.ShouldExpire(i.EndTime.Add(time.Minute)))

	i.Status = IssueCancelled
	assert.False(t, i.ShouldExpire(i.EndTime.Add(time.Minute)), "only active issues expire")
}

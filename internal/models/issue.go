package models

import "time"

type IssueType string

const (
	IssueManual         IssueType = "manual"
	IssueBatchGenerated IssueType = "batch_generated"
)

type IssueStatus string

const (
	IssueActive    IssueStatus = "active"
	IssueFull      IssueStatus = "full"
	IssueExpired   IssueStatus = "expired"
	IssueCancelled IssueStatus = "cancelled"
)

// Issue is a concrete, time-bounded, capacity-limited instantiation
// of a coupon. full, expired and cancelled are terminal states.
type Issue struct {
	ID                  string
	CouponID            string
	ShopID              string
	ScheduleID          *string
	IssueType           IssueType
	TargetDate          time.Time
	StartTime           time.Time
	EndTime             time.Time
	StartTimeOnly       TimeOfDay
	EndTimeOnly         TimeOfDay
	MaxAcquisitions     *int
	CurrentAcquisitions int
	Status              IssueStatus
	IsActive            bool
	IssuedBy            *string
	IssuedAt            time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsAvailable reports whether the issue can be acquired right now:
// active status and flag, now within [start, end), capacity left.
func (i *Issue) IsAvailable(now time.Time) bool {
	if i.Status != IssueActive || !i.IsActive {
		return false
	}
	if now.Before(i.StartTime) || !now.Before(i.EndTime) {
		return false
	}
	return i.HasCapacity()
}

func (i *Issue) HasCapacity() bool {
	return i.MaxAcquisitions == nil || i.CurrentAcquisitions < *i.MaxAcquisitions
}

// RemainingCount returns acquisitions left, or nil when uncapped.
func (i *Issue) RemainingCount() *int {
	if i.MaxAcquisitions == nil {
		return nil
	}
	n := *i.MaxAcquisitions - i.CurrentAcquisitions
	if n < 0 {
		n = 0
	}
	return &n
}

// TimeRemaining returns whole minutes until the window ends, zero
// once it has passed.
func (i *Issue) TimeRemaining(now time.Time) int {
	if !now.Before(i.EndTime) {
		return 0
	}
	return int(i.EndTime.Sub(now) / time.Minute)
}

func (i *Issue) DurationMinutes() int {
	return int(i.EndTime.Sub(i.StartTime) / time.Minute)
}

// ShouldExpire reports whether an active issue's window has lapsed
// without a status transition yet; used by the expiry sweep.
func (i *Issue) ShouldExpire(now time.Time) bool {
	return i.Status == IssueActive && now.After(i.EndTime)
}

package models

import "time"

// Composite read models returned by the public/mobile surface. Raw
// rows come from the repositories; derived fields are filled by the
// services against the injected clock.

// CouponSummary is the coupon slice embedded in issue and acquisition
// views.
type CouponSummary struct {
	ID          string
	Title       string
	Description string
	Conditions  string
	Notes       string
}

type AdminSummary struct {
	ID   string
	Name string
}

type ShopSummary struct {
	ID   string
	Name string
}

// ScheduleWithCoupon is a batch-engine candidate: the schedule plus
// the owning coupon's active flag, loaded in one query.
type ScheduleWithCoupon struct {
	Schedule
	CouponIsActive bool
	CouponTitle    string
}

// ActiveIssueView is one currently-acquirable issue for a shop.
type ActiveIssueView struct {
	Issue
	Coupon CouponSummary
	Issuer *AdminSummary

	RemainingCount    *int
	TimeRemaining     int
	TimeRemainingText string
	Available         bool
}

// UserCouponView is one acquired coupon in a user's wallet, newest
// first, with everything the client needs to render and redeem it.
type UserCouponView struct {
	Acquisition
	Issue  IssueSummary
	Coupon CouponSummary
	Shop   ShopSummary

	Expired         bool
	Usable          bool
	TimeUntilExpiry string
}

// IssueSummary is the issue slice embedded in UserCouponView.
type IssueSummary struct {
	ID              string
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int
	Status          IssueStatus
}

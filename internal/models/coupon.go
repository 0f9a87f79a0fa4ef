package models

import "time"

// Coupon is a shop-owned promotional definition. It is not itself
// redeemable; concrete Issues are.
type Coupon struct {
	ID          string
	ShopID      string
	Title       string
	Description string
	Conditions  string
	Notes       string
	ImageURL    string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CouponWithCounts is the shop-facing listing row.
type CouponWithCounts struct {
	Coupon
	ActiveIssueCount int
	ScheduleCount    int
	TotalIssueCount  int
}

// Shop is read-only here; profile management lives elsewhere.
type Shop struct {
	ID   string
	Name string
}

// ShopAdmin is the authenticated admin principal, resolved upstream
// and passed explicitly into every service method that needs it.
type ShopAdmin struct {
	ID     string
	ShopID string
	Name   string
}

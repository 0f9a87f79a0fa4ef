package models

import (
	"fmt"
	"time"
)

// AcquisitionGracePeriod is how long past an issue's end time an
// already-acquired coupon stays redeemable. Fixed once at acquire
// time; later changes to the issue never move it.
const AcquisitionGracePeriod = 30 * 24 * time.Hour

type AcquisitionStatus string

const (
	AcquisitionActive  AcquisitionStatus = "active"
	AcquisitionUsed    AcquisitionStatus = "used"
	AcquisitionExpired AcquisitionStatus = "expired"
)

// Acquisition is one user's claim on one issue. At most one row per
// (user, issue) pair exists; the store enforces this with a unique
// constraint.
type Acquisition struct {
	ID            string
	CouponIssueID string
	UserID        string
	AcquiredAt    time.Time
	UsedAt        *time.Time
	ExpiredAt     time.Time
	Status        AcquisitionStatus
	ProcessedBy   *string
	UsageNotes    string

	// Notification bookkeeping; toggled outside this core.
	IsNotificationRead bool
	NotificationReadAt *time.Time
	IsBannerShown      bool
	BannerShownAt      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *Acquisition) IsExpired(now time.Time) bool {
	return now.After(a.ExpiredAt)
}

func (a *Acquisition) IsUsable(now time.Time) bool {
	return a.Status == AcquisitionActive && !a.IsExpired(now)
}

func (a *Acquisition) TimeUntilExpiry(now time.Time) time.Duration {
	if a.IsExpired(now) {
		return 0
	}
	return a.ExpiredAt.Sub(now)
}

// FormatTimeUntilExpiry renders the remaining validity for user
// display: "3 days", "5 hours", "42 minutes", or "expired".
func (a *Acquisition) FormatTimeUntilExpiry(now time.Time) string {
	d := a.TimeUntilExpiry(now)
	switch {
	case d <= 0:
		return "expired"
	case d >= 24*time.Hour:
		return fmt.Sprintf("%d days", int(d/(24*time.Hour)))
	case d >= time.Hour:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	default:
		m := int(d / time.Minute)
		if m < 1 {
			m = 1
		}
		return fmt.Sprintf("%d minutes", m)
	}
}

// FormatTimeRemaining renders an issue window countdown, e.g.
// "1h 30m" or "45m".
func FormatTimeRemaining(minutes int) string {
	if minutes <= 0 {
		return "0m"
	}
	if minutes >= 60 {
		return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}

package models

import (
	"fmt"
	"time"
)

// DayType selects which calendar days a schedule fires on. The set is
// closed; anything else fails validation.
type DayType string

const (
	DayDaily    DayType = "daily"
	DayWeekdays DayType = "weekdays"
	DayWeekends DayType = "weekends"
	DayCustom   DayType = "custom"
)

func (d DayType) Valid() bool {
	switch d {
	case DayDaily, DayWeekdays, DayWeekends, DayCustom:
		return true
	}
	return false
}

// Schedule is a recurring issuance rule attached to one coupon. The
// batch engine materializes one Issue per matching calendar date;
// LastProcessedDate is the watermark that prevents duplicates.
type Schedule struct {
	ID                string
	CouponID          string
	ShopID            string
	Name              string
	DayType           DayType
	CustomDays        []Weekday
	StartTime         TimeOfDay
	EndTime           TimeOfDay
	MaxAcquisitions   *int
	ValidFrom         time.Time
	ValidUntil        *time.Time
	IsActive          bool
	LastProcessedDate *time.Time
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AppliesOn reports whether the schedule fires on the given calendar
// date. Pure; validity window bounds are inclusive.
func (s *Schedule) AppliesOn(date time.Time) bool {
	d := DateOf(date)
	if d.Before(DateOf(s.ValidFrom)) {
		return false
	}
	if s.ValidUntil != nil && d.After(DateOf(*s.ValidUntil)) {
		return false
	}

	day := WeekdayOf(d)
	switch s.DayType {
	case DayDaily:
		return true
	case DayWeekdays:
		return day >= Monday && day <= Friday
	case DayWeekends:
		return day == Saturday || day == Sunday
	case DayCustom:
		for _, c := range s.CustomDays {
			if c == day {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Window computes the absolute acquisition window for a target date.
// An end time-of-day at or before the start rolls to the next day, so
// overnight schedules (22:00–02:00) end on targetDate+1.
func (s *Schedule) Window(targetDate time.Time) (start, end time.Time) {
	date := DateOf(targetDate)
	start = s.StartTime.At(date)
	end = s.EndTime.At(date)
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end
}

// ProcessedFor reports whether the watermark already covers the date.
// A nil watermark means never processed.
func (s *Schedule) ProcessedFor(date time.Time) bool {
	return s.LastProcessedDate != nil && SameDate(*s.LastProcessedDate, date)
}

// DurationMinutes returns the length of the daily window, accounting
// for overnight rollover.
func (s *Schedule) DurationMinutes() int {
	d := s.EndTime.Minutes() - s.StartTime.Minutes()
	if d <= 0 {
		d += 24 * 60
	}
	return d
}

// Validate checks the fields an admin controls. A zero-length window
// is rejected; an end before the start is allowed and means the
// window crosses midnight.
func (s *Schedule) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("schedule name is required")
	}
	if s.CouponID == "" {
		return fmt.Errorf("coupon id is required")
	}
	if !s.DayType.Valid() {
		return fmt.Errorf("unknown day type %q", s.DayType)
	}
	if s.DayType == DayCustom {
		if len(s.CustomDays) == 0 {
			return fmt.Errorf("custom day type requires at least one weekday")
		}
		for _, d := range s.CustomDays {
			if !d.Valid() {
				return fmt.Errorf("invalid weekday index %d", d)
			}
		}
	}
	if s.StartTime == s.EndTime {
		return fmt.Errorf("end time must differ from start time")
	}
	if s.ValidFrom.IsZero() {
		return fmt.Errorf("valid_from is required")
	}
	if s.ValidUntil != nil && DateOf(*s.ValidUntil).Before(DateOf(s.ValidFrom)) {
		return fmt.Errorf("valid_until is before valid_from")
	}
	if s.MaxAcquisitions != nil && *s.MaxAcquisitions <= 0 {
		return fmt.Errorf("max acquisitions must be positive")
	}
	return nil
}

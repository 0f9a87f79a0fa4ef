package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func baseSchedule() *Schedule {
	return &Schedule{
		ID:        "sched-1",
		CouponID:  "coupon-1",
		ShopID:    "shop-1",
		Name:      "morning special",
		DayType:   DayDaily,
		StartTime: TimeOfDay{Hour: 10},
		EndTime:   TimeOfDay{Hour: 12},
		ValidFrom: date(2026, time.January, 1),
		IsActive:  true,
	}
}

func TestScheduleAppliesOnDayTypes(t *testing.T) {
	// 2026-08-31 is a Monday.
	monday := date(2026, time.August, 31)
	saturday := date(2026, time.September, 5)
	sunday := date(2026, time.September, 6)
	tuesday := date(2026, time.September, 1)
	thursday := date(2026, time.September, 3)

	s := baseSchedule()

	s.DayType = DayDaily
	assert.True(t, s.AppliesOn(monday))
	assert.True(t, s.AppliesOn(sunday))

	s.DayType = DayWeekdays
	assert.True(t, s.AppliesOn(monday))
	assert.False(t, s.AppliesOn(saturday))
	assert.False(t, s.AppliesOn(sunday))

	s.DayType = DayWeekends
	assert.False(t, s.AppliesOn(monday))
	assert.True(t, s.AppliesOn(saturday))
	assert.True(t, s.AppliesOn(sunday))

	s.DayType = DayCustom
	s.CustomDays = []Weekday{Tuesday, Thursday}
	assert.True(t, s.AppliesOn(tuesday))
	assert.True(t, s.AppliesOn(thursday))
	assert.False(t, s.AppliesOn(monday))
	assert.False(t, s.AppliesOn(saturday))
}

func TestScheduleAppliesOnValidityBounds(t *testing.T) {
	s := baseSchedule()
	s.ValidFrom = date(2026, time.March, 10)
	until := date(2026, time.March, 20)
	s.ValidUntil = &until

	assert.False(t, s.AppliesOn(date(2026, time.March, 9)))
	assert.True(t, s.AppliesOn(date(2026, time.March, 10)), "valid_from is inclusive")
	assert.True(t, s.AppliesOn(date(2026, time.March, 20)), "valid_until is inclusive")
	assert.False(t, s.AppliesOn(date(2026, time.March, 21)))
}

func TestScheduleWindow(t *testing.T) {
	s := baseSchedule()
	target := date(2026, time.June, 15)

	start, end := s.Window(target)
	assert.Equal(t, time.Date(2026, time.June, 15, 10, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC), end)
	assert.Equal(t, 120, s.DurationMinutes())
}

func TestScheduleWindowOvernight(t *testing.T) {
	s := baseSchedule()
	s.StartTime = TimeOfDay{Hour: 22}
	s.EndTime = TimeOfDay{Hour: 2}
	target := date(2026, time.June, 15)

	start, end := s.Window(target)
	assert.Equal(t, time.Date(2026, time.June, 15, 22, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, time.June, 16, 2, 0, 0, 0, time.UTC), end, "end rolls to the next day")
	assert.Equal(t, 4*60, s.DurationMinutes())
}

func TestScheduleProcessedFor(t *testing.T) {
	s := baseSchedule()
	target := date(2026, time.June, 15)

	assert.False(t, s.ProcessedFor(target), "nil watermark means never processed")

	mark := date(2026, time.June, 14)
	s.LastProcessedDate = &mark
	assert.False(t, s.ProcessedFor(target))

	mark = target
	s.LastProcessedDate = &mark
	assert.True(t, s.ProcessedFor(target))
}

func TestScheduleValidate(t *testing.T) {
	ok := baseSchedule()
	require.NoError(t, ok.Validate())

	overnight := baseSchedule()
	overnight.StartTime = TimeOfDay{Hour: 22}
	overnight.EndTime = TimeOfDay{Hour: 2}
	assert.NoError(t, overnight.Validate(), "overnight windows are valid")

	cases := map[string]func(*Schedule){
		"empty name":            func(s *Schedule) { s.Name = "" },
		"missing coupon":        func(s *Schedule) { s.CouponID = "" },
		"unknown day type":      func(s *Schedule) { s.DayType = "fortnightly" },
		"custom without days":   func(s *Schedule) { s.DayType = DayCustom; s.CustomDays = nil },
		"custom day out range":  func(s *Schedule) { s.DayType = DayCustom; s.CustomDays = []Weekday{7} },
		"zero-length window":    func(s *Schedule) { s.EndTime = s.StartTime },
		"missing valid_from":    func(s *Schedule) { s.ValidFrom = time.Time{} },
		"inverted validity":     func(s *Schedule) { u := s.ValidFrom.AddDate(0, 0, -1); s.ValidUntil = &u },
		"non-positive capacity": func(s *Schedule) { n := 0; s.MaxAcquisitions = &n },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := baseSchedule()
			mutate(s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 9, Minute: 30}, got)

	got, err = ParseTimeOfDay("22:15:00")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 22, Minute: 15}, got)

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
	_, err = ParseTimeOfDay("noonish")
	assert.Error(t, err)
}

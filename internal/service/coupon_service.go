package service

import (
	"context"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/kissaten/coupon-platform/internal/clock"
	"github.com/kissaten/coupon-platform/internal/models"
)

// CouponService covers the admin-facing coupon and schedule CRUD.
// Every method takes the authenticated admin explicitly; ownership is
// checked against the admin's shop before any mutation.
type CouponService struct {
	coupons   CouponRepo
	schedules ScheduleRepo
	clk       clock.Clock
	log       *logrus.Logger
}

func NewCouponService(coupons CouponRepo, schedules ScheduleRepo, clk clock.Clock, log *logrus.Logger) *CouponService {
	return &CouponService{coupons: coupons, schedules: schedules, clk: clk, log: log}
}

type CreateCouponInput struct {
	Title       string
	Description string
	Conditions  string
	Notes       string
	ImageURL    string
	IsActive    *bool
}

type UpdateCouponInput struct {
	Title       *string
	Description *string
	Conditions  *string
	Notes       *string
	ImageURL    *string
	IsActive    *bool
}

type ScheduleInput struct {
	CouponID        string
	Name            string
	DayType         models.DayType
	CustomDays      []models.Weekday
	StartTime       models.TimeOfDay
	EndTime         models.TimeOfDay
	MaxAcquisitions *int
	ValidFrom       time.Time
	ValidUntil      *time.Time
	IsActive        *bool
}

func (s *CouponService) ListCoupons(ctx context.Context, admin *models.ShopAdmin) ([]models.CouponWithCounts, error) {
	return s.coupons.ListByShop(ctx, admin.ShopID, s.clk.Now())
}

func (s *CouponService) CreateCoupon(ctx context.Context, admin *models.ShopAdmin, in CreateCouponInput) (*models.Coupon, error) {
	if err := validateCouponFields(in.Title, in.ImageURL); err != nil {
		return nil, err
	}

	c := &models.Coupon{
		ID:          xid.New().String(),
		ShopID:      admin.ShopID,
		Title:       in.Title,
		Description: in.Description,
		Conditions:  in.Conditions,
		Notes:       in.Notes,
		ImageURL:    in.ImageURL,
		IsActive:    true,
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if err := s.coupons.Create(ctx, c); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"coupon_id": c.ID, "shop_id": c.ShopID}).Info("coupon created")
	return c, nil
}

func (s *CouponService) UpdateCoupon(ctx context.Context, admin *models.ShopAdmin, couponID string, in UpdateCouponInput) (*models.Coupon, error) {
	c, err := s.ownedCoupon(ctx, admin, couponID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		c.Title = *in.Title
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Conditions != nil {
		c.Conditions = *in.Conditions
	}
	if in.Notes != nil {
		c.Notes = *in.Notes
	}
	if in.ImageURL != nil {
		c.ImageURL = *in.ImageURL
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if err := validateCouponFields(c.Title, c.ImageURL); err != nil {
		return nil, err
	}

	if err := s.coupons.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCoupon removes the coupon unless an issue is still live.
func (s *CouponService) DeleteCoupon(ctx context.Context, admin *models.ShopAdmin, couponID string) error {
	c, err := s.ownedCoupon(ctx, admin, couponID)
	if err != nil {
		return err
	}

	live, err := s.coupons.HasLiveIssues(ctx, c.ID, s.clk.Now())
	if err != nil {
		return err
	}
	if live {
		return validationErr("coupon has live issues and cannot be deleted")
	}

	if err := s.coupons.Delete(ctx, c.ID); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"coupon_id": c.ID, "shop_id": c.ShopID}).Info("coupon deleted")
	return nil
}

func (s *CouponService) CreateSchedule(ctx context.Context, admin *models.ShopAdmin, in ScheduleInput) (*models.Schedule, error) {
	if _, err := s.ownedCoupon(ctx, admin, in.CouponID); err != nil {
		return nil, err
	}

	sched := &models.Schedule{
		ID:              xid.New().String(),
		CouponID:        in.CouponID,
		ShopID:          admin.ShopID,
		Name:            in.Name,
		DayType:         in.DayType,
		CustomDays:      in.CustomDays,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		MaxAcquisitions: in.MaxAcquisitions,
		ValidFrom:       in.ValidFrom,
		ValidUntil:      in.ValidUntil,
		IsActive:        true,
		CreatedBy:       admin.ID,
	}
	if in.IsActive != nil {
		sched.IsActive = *in.IsActive
	}
	if err := sched.Validate(); err != nil {
		return nil, validationErr("%v", err)
	}

	if err := s.schedules.Create(ctx, sched); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"schedule_id": sched.ID,
		"coupon_id":   sched.CouponID,
		"day_type":    sched.DayType,
	}).Info("coupon schedule created")
	return sched, nil
}

func (s *CouponService) UpdateSchedule(ctx context.Context, admin *models.ShopAdmin, scheduleID string, in ScheduleInput) (*models.Schedule, error) {
	sched, err := s.ownedSchedule(ctx, admin, scheduleID)
	if err != nil {
		return nil, err
	}

	sched.Name = in.Name
	sched.DayType = in.DayType
	sched.CustomDays = in.CustomDays
	sched.StartTime = in.StartTime
	sched.EndTime = in.EndTime
	sched.MaxAcquisitions = in.MaxAcquisitions
	sched.ValidFrom = in.ValidFrom
	sched.ValidUntil = in.ValidUntil
	if in.IsActive != nil {
		sched.IsActive = *in.IsActive
	}
	if err := sched.Validate(); err != nil {
		return nil, validationErr("%v", err)
	}

	if err := s.schedules.Update(ctx, sched); err != nil {
		return nil, err
	}
	return sched, nil
}

func (s *CouponService) DeleteSchedule(ctx context.Context, admin *models.ShopAdmin, scheduleID string) error {
	sched, err := s.ownedSchedule(ctx, admin, scheduleID)
	if err != nil {
		return err
	}
	return s.schedules.Delete(ctx, sched.ID)
}

func (s *CouponService) ToggleSchedule(ctx context.Context, admin *models.ShopAdmin, scheduleID string) (*models.Schedule, error) {
	sched, err := s.ownedSchedule(ctx, admin, scheduleID)
	if err != nil {
		return nil, err
	}

	sched.IsActive = !sched.IsActive
	if err := s.schedules.Update(ctx, sched); err != nil {
		return nil, err
	}
	return sched, nil
}

func (s *CouponService) ListSchedules(ctx context.Context, admin *models.ShopAdmin) ([]models.Schedule, error) {
	return s.schedules.ListByShop(ctx, admin.ShopID)
}

// ListTodaySchedules returns the shop's active schedules that fire on
// today's date.
func (s *CouponService) ListTodaySchedules(ctx context.Context, admin *models.ShopAdmin) ([]models.Schedule, error) {
	all, err := s.schedules.ListByShop(ctx, admin.ShopID)
	if err != nil {
		return nil, err
	}
	today := s.clk.Now()

	var out []models.Schedule
	for _, sched := range all {
		if sched.IsActive && sched.AppliesOn(today) {
			out = append(out, sched)
		}
	}
	return out, nil
}

func (s *CouponService) ownedCoupon(ctx context.Context, admin *models.ShopAdmin, couponID string) (*models.Coupon, error) {
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
	return c, nil
}

func (s *CouponService) ownedSchedule(ctx context.Context, admin *models.ShopAdmin, scheduleID string) (*models.Schedule, error) {
	sched, err := s.schedules.FindByIDAndShop(ctx, scheduleID, admin.ShopID)
	if err != nil {
		return nil, err
	}
	if sched == nil {
		return nil, ErrNotFound
	}
	return sched, nil
}

func validateCouponFields(title, imageURL string) error {
	if title == "" {
		return validationErr("title is required")
	}
	if len(title) > 255 {
		return validationErr("title must be at most 255 characters")
	}
	if len(imageURL) > 500 {
		return validationErr("image url must be at most 500 characters")
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kissaten/coupon-platform/internal/models"
	"github.com/kissaten/coupon-platform/internal/repository"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// memStore is the shared state behind the in-memory repositories. A
// single mutex guards everything so Acquire and MaterializeIssue keep
// the same all-or-nothing semantics as the Postgres transactions they
// stand in for.
type memStore struct {
	mu           sync.Mutex
	shops        map[string]*models.Shop
	coupons      map[string]*models.Coupon
	schedules    map[string]*models.Schedule
	issues       map[string]*models.Issue
	acquisitions map[string]*models.Acquisition

	// MaterializeIssue fails for these schedule IDs.
	failSchedules map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		shops:         map[string]*models.Shop{},
		coupons:       map[string]*models.Coupon{},
		schedules:     map[string]*models.Schedule{},
		issues:        map[string]*models.Issue{},
		acquisitions:  map[string]*models.Acquisition{},
		failSchedules: map[string]error{},
	}
}

func (s *memStore) addShop(shop models.Shop) {
	s.shops[shop.ID] = &shop
}

func (s *memStore) addCoupon(c models.Coupon) {
	s.coupons[c.ID] = &c
}

func (s *memStore) addSchedule(sched models.Schedule) {
	s.schedules[sched.ID] = &sched
}

func (s *memStore) addIssue(i models.Issue) {
	s.issues[i.ID] = &i
}

func (s *memStore) issue(id string) models.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.issues[id]
}

func (s *memStore) schedule(id string) models.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.schedules[id]
}

func (s *memStore) issueCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.issues)
}

func copyCoupon(c *models.Coupon) *models.Coupon {
	cc := *c
	return &cc
}

// --- CouponRepo ---

type memCoupons struct{ s *memStore }

func (r *memCoupons) Create(_ context.Context, c *models.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.coupons[c.ID] = copyCoupon(c)
	return nil
}

func (r *memCoupons) FindByID(_ context.Context, id string) (*models.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.coupons[id]
	if !ok {
		return nil, nil
	}
	return copyCoupon(c), nil
}

func (r *memCoupons) Update(_ context.Context, c *models.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.coupons[c.ID] = copyCoupon(c)
	return nil
}

func (r *memCoupons) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.coupons, id)
	return nil
}

func (r *memCoupons) HasLiveIssues(_ context.Context, couponID string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, i := range r.s.issues {
		if i.CouponID == couponID && i.Status == models.IssueActive && i.IsActive && i.EndTime.After(now) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memCoupons) ListByShop(_ context.Context, shopID string, now time.Time) ([]models.CouponWithCounts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.CouponWithCounts
	for _, c := range r.s.coupons {
		if c.ShopID != shopID {
			continue
		}
		row := models.CouponWithCounts{Coupon: *c}
		for _, i := range r.s.issues {
			if i.CouponID != c.ID {
				continue
			}
			row.TotalIssueCount++
			if i.Status == models.IssueActive && i.EndTime.After(now) {
				row.ActiveIssueCount++
			}
		}
		for _, sched := range r.s.schedules {
			if sched.CouponID == c.ID {
				row.ScheduleCount++
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// --- ScheduleRepo ---

type memSchedules struct{ s *memStore }

func (r *memSchedules) Create(_ context.Context, sched *models.Schedule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *sched
	r.s.schedules[sched.ID] = &cp
	return nil
}

func (r *memSchedules) FindByIDAndShop(_ context.Context, id, shopID string) (*models.Schedule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sched, ok := r.s.schedules[id]
	if !ok || sched.ShopID != shopID {
		return nil, nil
	}
	cp := *sched
	return &cp, nil
}

func (r *memSchedules) Update(_ context.Context, sched *models.Schedule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.schedules[sched.ID]
	if !ok {
		return errors.New("schedule not found")
	}
	cp := *sched
	cp.LastProcessedDate = existing.LastProcessedDate
	r.s.schedules[sched.ID] = &cp
	return nil
}

func (r *memSchedules) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.schedules, id)
	return nil
}

func (r *memSchedules) ListByShop(_ context.Context, shopID string) ([]models.Schedule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Schedule
	for _, sched := range r.s.schedules {
		if sched.ShopID == shopID {
			out = append(out, *sched)
		}
	}
	return out, nil
}

func (r *memSchedules) ListForDate(_ context.Context, date time.Time) ([]models.ScheduleWithCoupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d := models.DateOf(date)
	var out []models.ScheduleWithCoupon
	for _, sched := range r.s.schedules {
		if !sched.IsActive {
			continue
		}
		if d.Before(models.DateOf(sched.ValidFrom)) {
			continue
		}
		if sched.ValidUntil != nil && d.After(models.DateOf(*sched.ValidUntil)) {
			continue
		}
		row := models.ScheduleWithCoupon{Schedule: *sched}
		if c, ok := r.s.coupons[sched.CouponID]; ok {
			row.CouponIsActive = c.IsActive
			row.CouponTitle = c.Title
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *memSchedules) MaterializeIssue(_ context.Context, scheduleID string, targetDate time.Time, issue *models.Issue) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err, ok := r.s.failSchedules[scheduleID]; ok {
		return false, err
	}
	sched, ok := r.s.schedules[scheduleID]
	if !ok {
		return false, errors.New("schedule not found")
	}

	d := models.DateOf(targetDate)
	if sched.LastProcessedDate != nil && !models.DateOf(*sched.LastProcessedDate).Before(d) {
		return false, nil
	}
	sched.LastProcessedDate = &d

	cp := *issue
	r.s.issues[issue.ID] = &cp
	return true, nil
}

// --- IssueRepo ---

type memIssues struct{ s *memStore }

func (r *memIssues) Create(_ context.Context, i *models.Issue) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *i
	r.s.issues[i.ID] = &cp
	return nil
}

func (r *memIssues) FindByID(_ context.Context, id string) (*models.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.s.issues[id]
	if !ok {
		return nil, nil
	}
	cp := *i
	return &cp, nil
}

func (r *memIssues) Cancel(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if i, ok := r.s.issues[id]; ok {
		i.Status = models.IssueCancelled
		i.IsActive = false
	}
	return nil
}

func (r *memIssues) CancelActiveManualByCoupon(_ context.Context, couponID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, i := range r.s.issues {
		if i.CouponID == couponID && i.IssueType == models.IssueManual && i.Status == models.IssueActive {
			i.Status = models.IssueCancelled
			i.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *memIssues) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, i := range r.s.issues {
		if i.Status == models.IssueActive && i.EndTime.Before(now) {
			i.Status = models.IssueExpired
			n++
		}
	}
	return n, nil
}

func (r *memIssues) ListActiveByShop(_ context.Context, shopID string, now time.Time) ([]models.ActiveIssueView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.ActiveIssueView
	for _, i := range r.s.issues {
		if i.ShopID != shopID || i.Status != models.IssueActive || !i.IsActive {
			continue
		}
		if now.Before(i.StartTime) || !i.EndTime.After(now) {
			continue
		}
		c, ok := r.s.coupons[i.CouponID]
		if !ok || !c.IsActive {
			continue
		}
		out = append(out, models.ActiveIssueView{
			Issue: *i,
			Coupon: models.CouponSummary{
				ID: c.ID, Title: c.Title, Description: c.Description,
				Conditions: c.Conditions, Notes: c.Notes,
			},
		})
	}
	return out, nil
}

// --- AcquisitionRepo ---

type memAcquisitions struct{ s *memStore }

func (r *memAcquisitions) FindByIssueAndUser(_ context.Context, issueID, userID string) (*models.Acquisition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.acquisitions {
		if a.CouponIssueID == issueID && a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memAcquisitions) FindByIDAndUser(_ context.Context, id, userID string) (*models.Acquisition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.acquisitions[id]
	if !ok || a.UserID != userID {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

// Acquire reproduces the transactional semantics: every check runs
// against current state under the lock, and either everything applies
// or nothing does.
func (r *memAcquisitions) Acquire(_ context.Context, a *models.Acquisition, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	issue, ok := r.s.issues[a.CouponIssueID]
	if !ok {
		return repository.ErrIssueNotFound
	}
	if issue.Status != models.IssueActive {
		return repository.ErrIssueNotActive
	}
	if !now.Before(issue.EndTime) {
		return repository.ErrIssueWindowClosed
	}
	for _, existing := range r.s.acquisitions {
		if existing.CouponIssueID == a.CouponIssueID && existing.UserID == a.UserID {
			return repository.ErrAlreadyAcquired
		}
	}
	if issue.MaxAcquisitions != nil && issue.CurrentAcquisitions >= *issue.MaxAcquisitions {
		return repository.ErrCapacityExceeded
	}

	issue.CurrentAcquisitions++
	if issue.MaxAcquisitions != nil && issue.CurrentAcquisitions >= *issue.MaxAcquisitions {
		issue.Status = models.IssueFull
	}
	cp := *a
	r.s.acquisitions[a.ID] = &cp
	return nil
}

func (r *memAcquisitions) Use(_ context.Context, id string, processedBy *string, notes string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.acquisitions[id]
	if !ok || a.Status != models.AcquisitionActive || !a.ExpiredAt.After(now) {
		return repository.ErrNotUsable
	}
	a.Status = models.AcquisitionUsed
	a.UsedAt = &now
	a.ProcessedBy = processedBy
	a.UsageNotes = notes
	return nil
}

func (r *memAcquisitions) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, a := range r.s.acquisitions {
		if a.Status == models.AcquisitionActive && a.ExpiredAt.Before(now) {
			a.Status = models.AcquisitionExpired
			n++
		}
	}
	return n, nil
}

func (r *memAcquisitions) ListByUser(_ context.Context, userID string) ([]models.UserCouponView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.UserCouponView
	for _, a := range r.s.acquisitions {
		if a.UserID != userID {
			continue
		}
		v := models.UserCouponView{Acquisition: *a}
		if i, ok := r.s.issues[a.CouponIssueID]; ok {
			v.Issue = models.IssueSummary{
				ID:              i.ID,
				StartTime:       i.StartTime,
				EndTime:         i.EndTime,
				DurationMinutes: i.DurationMinutes(),
				Status:          i.Status,
			}
			if c, ok := r.s.coupons[i.CouponID]; ok {
				v.Coupon = models.CouponSummary{
					ID: c.ID, Title: c.Title, Description: c.Description,
					Conditions: c.Conditions, Notes: c.Notes,
				}
				if shop, ok := r.s.shops[c.ShopID]; ok {
					v.Shop = models.ShopSummary{ID: shop.ID, Name: shop.Name}
				}
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// --- ShopRepo ---

type memShops struct{ s *memStore }

func (r *memShops) FindByID(_ context.Context, id string) (*models.Shop, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	shop, ok := r.s.shops[id]
	if !ok {
		return nil, nil
	}
	cp := *shop
	return &cp, nil
}

// --- Cache and lock fakes ---

type memCache struct {
	mu          sync.Mutex
	entries     map[string][]models.ActiveIssueView
	invalidated []string
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]models.ActiveIssueView{}}
}

func (c *memCache) GetActiveIssues(_ context.Context, shopID string) ([]models.ActiveIssueView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	views, ok := c.entries[shopID]
	return views, ok
}

func (c *memCache) SetActiveIssues(_ context.Context, shopID string, views []models.ActiveIssueView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[shopID] = views
}

func (c *memCache) Invalidate(_ context.Context, shopID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, shopID)
	c.invalidated = append(c.invalidated, shopID)
}

type memLocker struct {
	mu   sync.Mutex
	held bool
}

func (l *memLocker) Obtain(_ context.Context, _ string) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, errors.New("lock held")
	}
	l.held = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		return nil
	}, nil
}

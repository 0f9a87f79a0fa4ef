package handlers

import (
	"time"

	"github.com/kissaten/coupon-platform/internal/models"
	"github.com/kissaten/coupon-platform/internal/service"
)

// --- Response DTOs ---

const dateLayout = "2006-01-02"

type couponResponse struct {
	ID          string    `json:"id"`
	ShopID      string    `json:"shop_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Conditions  string    `json:"conditions,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type couponListItem struct {
	couponResponse
	ActiveIssueCount int `json:"active_issue_count"`
	ScheduleCount    int `json:"schedule_count"`
	TotalIssueCount  int `json:"total_issue_count"`
}

type scheduleResponse struct {
	ID                string  `json:"id"`
	CouponID          string  `json:"coupon_id"`
	ShopID            string  `json:"shop_id"`
	Name              string  `json:"name"`
	DayType           string  `json:"day_type"`
	CustomDays        []int   `json:"custom_days,omitempty"`
	StartTime         string  `json:"start_time"`
	EndTime           string  `json:"end_time"`
	MaxAcquisitions   *int    `json:"max_acquisitions"`
	ValidFrom         string  `json:"valid_from"`
	ValidUntil        *string `json:"valid_until"`
	IsActive          bool    `json:"is_active"`
	LastProcessedDate *string `json:"last_processed_date"`
}

type issueResponse struct {
	ID                  string    `json:"id"`
	CouponID            string    `json:"coupon_id"`
	ShopID              string    `json:"shop_id"`
	ScheduleID          *string   `json:"schedule_id,omitempty"`
	IssueType           string    `json:"issue_type"`
	TargetDate          string    `json:"target_date"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	MaxAcquisitions     *int      `json:"max_acquisitions"`
	CurrentAcquisitions int       `json:"current_acquisitions"`
	Status              string    `json:"status"`
	IssuedBy            *string   `json:"issued_by,omitempty"`
	IssuedAt            time.Time `json:"issued_at"`
}

type couponSummaryDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Conditions  string `json:"conditions,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

type adminSummaryDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type activeIssueResponse struct {
	issueResponse
	Coupon            couponSummaryDTO `json:"coupon"`
	Issuer            *adminSummaryDTO `json:"issuer,omitempty"`
	RemainingCount    *int             `json:"remaining_count"`
	TimeRemaining     int              `json:"time_remaining_minutes"`
	TimeRemainingText string           `json:"time_remaining_text"`
	Available         bool             `json:"available"`
}

type acquisitionResponse struct {
	ID            string     `json:"id"`
	CouponIssueID string     `json:"coupon_issue_id"`
	UserID        string     `json:"user_id"`
	AcquiredAt    time.Time  `json:"acquired_at"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	ExpiredAt     time.Time  `json:"expired_at"`
	Status        string     `json:"status"`
	ProcessedBy   *string    `json:"processed_by,omitempty"`
	UsageNotes    string     `json:"usage_notes,omitempty"`
}

type issueSummaryDTO struct {
	ID              string    `json:"id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
}

type shopSummaryDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type userCouponResponse struct {
	acquisitionResponse
	Issue           issueSummaryDTO  `json:"issue"`
	Coupon          couponSummaryDTO `json:"coupon"`
	Shop            shopSummaryDTO   `json:"shop"`
	Expired         bool             `json:"expired"`
	Usable          bool             `json:"usable"`
	TimeUntilExpiry string           `json:"time_until_expiry"`
}

type batchResultResponse struct {
	TargetDate     string           `json:"target_date"`
	DryRun         bool             `json:"dry_run"`
	TotalSchedules int              `json:"total_schedules"`
	IssuedCount    int              `json:"issued_count"`
	SkippedCount   int              `json:"skipped_count"`
	Errors         []batchErrorItem `json:"errors"`
}

type batchErrorItem struct {
	ScheduleID string `json:"schedule_id"`
	Message    string `json:"message"`
}

// --- Converters ---

func toCouponResponse(c *models.Coupon) couponResponse {
	return couponResponse{
		ID:          c.ID,
		ShopID:      c.ShopID,
		Title:       c.Title,
		Description: c.Description,
		Conditions:  c.Conditions,
		Notes:       c.Notes,
		ImageURL:    c.ImageURL,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toCouponList(coupons []models.CouponWithCounts) []couponListItem {
	out := make([]couponListItem, 0, len(coupons))
	for i := range coupons {
		c := &coupons[i]
		out = append(out, couponListItem{
			couponResponse:   toCouponResponse(&c.Coupon),
			ActiveIssueCount: c.ActiveIssueCount,
			ScheduleCount:    c.ScheduleCount,
			TotalIssueCount:  c.TotalIssueCount,
		})
	}
	return out
}

func toScheduleResponse(s *models.Schedule) scheduleResponse {
	resp := scheduleResponse{
		ID:              s.ID,
		CouponID:        s.CouponID,
		ShopID:          s.ShopID,
		Name:            s.Name,
		DayType:         string(s.DayType),
		StartTime:       s.StartTime.String(),
		EndTime:         s.EndTime.String(),
		MaxAcquisitions: s.MaxAcquisitions,
		ValidFrom:       s.ValidFrom.Format(dateLayout),
		IsActive:        s.IsActive,
	}
	for _, d := range s.CustomDays {
		resp.CustomDays = append(resp.CustomDays, int(d))
	}
	if s.ValidUntil != nil {
		v := s.ValidUntil.Format(dateLayout)
		resp.ValidUntil = &v
	}
	if s.LastProcessedDate != nil {
		v := s.LastProcessedDate.Format(dateLayout)
		resp.LastProcessedDate = &v
	}
	return resp
}

func toScheduleList(schedules []models.Schedule) []scheduleResponse {
	out := make([]scheduleResponse, 0, len(schedules))
	for i := range schedules {
		out = append(out, toScheduleResponse(&schedules[i]))
	}
	return out
}

func toIssueResponse(i *models.Issue) issueResponse {
	return issueResponse{
		ID:                  i.ID,
		CouponID:            i.CouponID,
		ShopID:              i.ShopID,
		ScheduleID:          i.ScheduleID,
		IssueType:           string(i.IssueType),
		TargetDate:          i.TargetDate.Format(dateLayout),
		StartTime:           i.StartTime,
		EndTime:             i.EndTime,
		MaxAcquisitions:     i.MaxAcquisitions,
		CurrentAcquisitions: i.CurrentAcquisitions,
		Status:              string(i.Status),
		IssuedBy:            i.IssuedBy,
		IssuedAt:            i.IssuedAt,
	}
}

func toActiveIssueList(views []models.ActiveIssueView) []activeIssueResponse {
	out := make([]activeIssueResponse, 0, len(views))
	for i := range views {
		v := &views[i]
		item := activeIssueResponse{
			issueResponse: toIssueResponse(&v.Issue),
			Coupon: couponSummaryDTO{
				ID:          v.Coupon.ID,
				Title:       v.Coupon.Title,
				Description: v.Coupon.Description,
				Conditions:  v.Coupon.Conditions,
				Notes:       v.Coupon.Notes,
			},
			RemainingCount:    v.RemainingCount,
			TimeRemaining:     v.TimeRemaining,
			TimeRemainingText: v.TimeRemainingText,
			Available:         v.Available,
		}
		if v.Issuer != nil {
			item.Issuer = &adminSummaryDTO{ID: v.Issuer.ID, Name: v.Issuer.Name}
		}
		out = append(out, item)
	}
	return out
}

func toAcquisitionResponse(a *models.Acquisition) acquisitionResponse {
	return acquisitionResponse{
		ID:            a.ID,
		CouponIssueID: a.CouponIssueID,
		UserID:        a.UserID,
		AcquiredAt:    a.AcquiredAt,
		UsedAt:        a.UsedAt,
		ExpiredAt:     a.ExpiredAt,
		Status:        string(a.Status),
		ProcessedBy:   a.ProcessedBy,
		UsageNotes:    a.UsageNotes,
	}
}

func toUserCouponList(views []models.UserCouponView) []userCouponResponse {
	out := make([]userCouponResponse, 0, len(views))
	for i := range views {
		v := &views[i]
		out = append(out, userCouponResponse{
			acquisitionResponse: toAcquisitionResponse(&v.Acquisition),
			Issue: issueSummaryDTO{
				ID:              v.Issue.ID,
				StartTime:       v.Issue.StartTime,
				EndTime:         v.Issue.EndTime,
				DurationMinutes: v.Issue.DurationMinutes,
				Status:          string(v.Issue.Status),
			},
			Coupon: couponSummaryDTO{
				ID:          v.Coupon.ID,
				Title:       v.Coupon.Title,
				Description: v.Coupon.Description,
				Conditions:  v.Coupon.Conditions,
				Notes:       v.Coupon.Notes,
			},
			Shop:            shopSummaryDTO{ID: v.Shop.ID, Name: v.Shop.Name},
			Expired:         v.Expired,
			Usable:          v.Usable,
			TimeUntilExpiry: v.TimeUntilExpiry,
		})
	}
	return out
}

func toBatchResult(r *service.BatchResult) batchResultResponse {
	resp := batchResultResponse{
		TargetDate:     r.TargetDate.Format(dateLayout),
		DryRun:         r.DryRun,
		TotalSchedules: r.TotalSchedules,
		IssuedCount:    r.IssuedCount,
		SkippedCount:   r.SkippedCount,
		Errors:         []batchErrorItem{},
	}
	for _, e := range r.Errors {
		resp.Errors = append(resp.Errors, batchErrorItem{ScheduleID: e.ScheduleID, Message: e.Message})
	}
	return resp
}

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/kissaten/coupon-platform/internal/api/middleware"
	"github.com/kissaten/coupon-platform/internal/models"
	"github.com/kissaten/coupon-platform/internal/service"
)

// AdminHandler serves the shop-admin surface: coupon CRUD, schedules,
// manual issuance, and the batch trigger.
type AdminHandler struct {
	coupons  *service.CouponService
	issuance *service.IssuanceService
	batch    *service.BatchService
	log      *logrus.Logger
}

func NewAdminHandler(coupons *service.CouponService, issuance *service.IssuanceService, batch *service.BatchService, log *logrus.Logger) *AdminHandler {
	return &AdminHandler{coupons: coupons, issuance: issuance, batch: batch, log: log}
}

// --- Request DTOs ---

type createCouponRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Conditions  string `json:"conditions"`
	Notes       string `json:"notes"`
	ImageURL    string `json:"image_url"`
	IsActive    *bool  `json:"is_active"`
}

type updateCouponRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Conditions  *string `json:"conditions"`
	Notes       *string `json:"notes"`
	ImageURL    *string `json:"image_url"`
	IsActive    *bool   `json:"is_active"`
}

type scheduleRequest struct {
	CouponID        string  `json:"coupon_id"`
	Name            string  `json:"name"`
	DayType         string  `json:"day_type"`
	CustomDays      []int   `json:"custom_days"`
	StartTime       string  `json:"start_time"` // "HH:MM"
	EndTime         string  `json:"end_time"`
	MaxAcquisitions *int    `json:"max_acquisitions"`
	ValidFrom       string  `json:"valid_from"` // "YYYY-MM-DD"
	ValidUntil      *string `json:"valid_until"`
	IsActive        *bool   `json:"is_active"`
}

type issueNowRequest struct {
	DurationMinutes int  `json:"duration_minutes"`
	MaxAcquisitions *int `json:"max_acquisitions"`
}

type batchRunRequest struct {
	TargetDate string `json:"target_date"` // "YYYY-MM-DD", default tomorrow
	DryRun     bool   `json:"dry_run"`
}

func (r scheduleRequest) toInput() (service.ScheduleInput, error) {
	start, err := models.ParseTimeOfDay(r.StartTime)
	if err != nil {
		return service.ScheduleInput{}, err
	}
	end, err := models.ParseTimeOfDay(r.EndTime)
	if err != nil {
		return service.ScheduleInput{}, err
	}
	validFrom, err := time.Parse(dateLayout, r.ValidFrom)
	if err != nil {
		return service.ScheduleInput{}, err
	}

	in := service.ScheduleInput{
		CouponID:        r.CouponID,
		Name:            r.Name,
		DayType:         models.DayType(r.DayType),
		StartTime:       start,
		EndTime:         end,
		MaxAcquisitions: r.MaxAcquisitions,
		ValidFrom:       validFrom,
		IsActive:        r.IsActive,
	}
	for _, d := range r.CustomDays {
		in.CustomDays = append(in.CustomDays, models.Weekday(d))
	}
	if r.ValidUntil != nil {
		until, err := time.Parse(dateLayout, *r.ValidUntil)
		if err != nil {
			return service.ScheduleInput{}, err
		}
		in.ValidUntil = &until
	}
	return in, nil
}

// --- Coupons ---

func (h *AdminHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.ListCoupons(r.Context(), middleware.Admin(r.Context()))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toCouponList(coupons))
}

func (h *AdminHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req createCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid body")
		return
	}

	c, err := h.coupons.CreateCoupon(r.Context(), middleware.Admin(r.Context()), service.CreateCouponInput{
		Title:       req.Title,
		Description: req.Description,
		Conditions:  req.Conditions,
		Notes:       req.Notes,
		ImageURL:    req.ImageURL,
		IsActive:    req.IsActive,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCouponResponse(c))
}

func (h *AdminHandler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	var req updateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid body")
		return
	}

	c, err := h.coupons.UpdateCoupon(r.Context(), middleware.Admin(r.Context()), chi.URLParam(r, "couponID"), service.UpdateCouponInput{
		Title:       req.Title,
		Description: req.Description,
		Conditions:  req.Conditions,
		Notes:       req.Notes,
		ImageURL:    req.ImageURL,
		IsActive:    req.IsActive,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toCouponResponse(c))
}

func (h *AdminHandler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.coupons.DeleteCoupon(r.Context(), middleware.Admin(r.Context()), chi.URLParam(r, "couponID")); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Schedules ---

func (h *AdminHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.coupons.ListSchedules(r.Context(), middleware.Admin(r.Context()))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleList(schedules))
}

func (h *AdminHandler) ListTodaySchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.coupons.ListTodaySchedules(r.Context(), middleware.Admin(r.Context()))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleList(schedules))
}

func (h *AdminHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeErrorMsg(w, http.StatusBadRequest, err.Error())
		return
	}

	sched, err := h.coupons.CreateSchedule(r.Context(), middleware.Admin(r.Context()), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toScheduleResponse(sched))
}

func (h *AdminHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeErrorMsg(w, http.StatusBadRequest, err.Error())
		return
	}

	sched, err := h.coupons.UpdateSchedule(r.Context(), middleware.Admin(r.Context()), chi.URLParam(r, "scheduleID"), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponse(sched))
}

func (h *AdminHandler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := h.coupons.DeleteSchedule(r.Context(), middleware.Admin(r.Context()), chi.URLParam(r, "scheduleID")); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ToggleSchedule(w http.ResponseWriter, r *http.Request) {
	sched, err := h.coupons.ToggleSchedule(r.Context(), middleware.Admin(r.Context()), chi.URLParam(r, "scheduleID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponse(sched))
}

// --- Issuance ---

func (h *AdminHandler) IssueNow(w http.ResponseWriter, r *http.Request) {
	var req issueNowRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorMsg(w, http.StatusBadRequest, "invalid body")
			return
		}
	}

	issue, err := h.issuance.IssueNow(r.Context(), middleware.Admin(r.Context()), chi.URLParam(r, "couponID"), service.IssueNowInput{
		DurationMinutes: req.DurationMinutes,
		MaxAcquisitions: req.MaxAcquisitions,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toIssueResponse(issue))
}

func (h *AdminHandler) StopIssue(w http.ResponseWriter, r *http.Request) {
	if err := h.issuance.StopIssue(r.Context(), middleware.Admin(r.Context()), chi.URLParam(r, "issueID")); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ListActiveIssues(w http.ResponseWriter, r *http.Request) {
	views, err := h.issuance.ListActiveIssues(r.Context(), middleware.Admin(r.Context()))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toActiveIssueList(views))
}

// --- Batch ---

// RunBatch triggers the schedule batch on demand, mostly for ops and
// backfills; the nightly cron is the usual driver.
func (h *AdminHandler) RunBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRunRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorMsg(w, http.StatusBadRequest, "invalid body")
			return
		}
	}

	targetDate := time.Now().AddDate(0, 0, 1)
	if req.TargetDate != "" {
		parsed, err := time.Parse(dateLayout, req.TargetDate)
		if err != nil {
			writeErrorMsg(w, http.StatusBadRequest, "invalid target_date; use YYYY-MM-DD")
			return
		}
		targetDate = parsed
	}

	result, err := h.batch.ProcessSchedulesForDate(r.Context(), targetDate, req.DryRun)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResult(result))
}

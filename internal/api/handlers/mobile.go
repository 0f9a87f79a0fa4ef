package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/kissaten/coupon-platform/internal/api/middleware"
	"github.com/kissaten/coupon-platform/internal/service"
)

// MobileHandler serves the end-user surface: browsing shop coupons and
// live issues, acquiring, the wallet, and redemption.
type MobileHandler struct {
	acquisitions *service.AcquisitionService
	log          *logrus.Logger
}

func NewMobileHandler(acquisitions *service.AcquisitionService, log *logrus.Logger) *MobileHandler {
	return &MobileHandler{acquisitions: acquisitions, log: log}
}

type useCouponRequest struct {
	ProcessedBy *string `json:"processed_by"`
	Notes       string  `json:"notes"`
}

func (h *MobileHandler) GetShopCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.acquisitions.GetShopCoupons(r.Context(), chi.URLParam(r, "shopID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toCouponList(coupons))
}

func (h *MobileHandler) GetActiveIssues(w http.ResponseWriter, r *http.Request) {
	views, err := h.acquisitions.GetActiveIssues(r.Context(), chi.URLParam(r, "shopID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toActiveIssueList(views))
}

func (h *MobileHandler) AcquireCoupon(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	a, err := h.acquisitions.AcquireCoupon(r.Context(), userID, chi.URLParam(r, "issueID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAcquisitionResponse(a))
}

func (h *MobileHandler) GetUserCoupons(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	views, err := h.acquisitions.GetUserCoupons(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserCouponList(views))
}

func (h *MobileHandler) UseCoupon(w http.ResponseWriter, r *http.Request) {
	var req useCouponRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorMsg(w, http.StatusBadRequest, "invalid body")
			return
		}
	}

	userID := middleware.UserID(r.Context())
	a, err := h.acquisitions.UseCoupon(r.Context(), userID, chi.URLParam(r, "acquisitionID"), req.ProcessedBy, req.Notes)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAcquisitionResponse(a))
}

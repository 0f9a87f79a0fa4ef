package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/kissaten/coupon-platform/internal/api/handlers"
	"github.com/kissaten/coupon-platform/internal/api/middleware"
)

// NewRouter builds the HTTP router for the coupon platform.
func NewRouter(admin *handlers.AdminHandler, mobile *handlers.MobileHandler, log *logrus.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.Logger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID", "X-Admin-ID", "X-Shop-ID", "X-Admin-Name"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Shop admin surface
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin)

		r.Route("/coupons", func(r chi.Router) {
			r.Get("/", admin.ListCoupons)
			r.Post("/", admin.CreateCoupon)
			r.Put("/{couponID}", admin.UpdateCoupon)
			r.Delete("/{couponID}", admin.DeleteCoupon)
			r.Post("/{couponID}/issue", admin.IssueNow)
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", admin.ListSchedules)
			r.Get("/today", admin.ListTodaySchedules)
			r.Post("/", admin.CreateSchedule)
			r.Put("/{scheduleID}", admin.UpdateSchedule)
			r.Delete("/{scheduleID}", admin.DeleteSchedule)
			r.Post("/{scheduleID}/toggle", admin.ToggleSchedule)
		})

		r.Route("/issues", func(r chi.Router) {
			r.Get("/active", admin.ListActiveIssues)
			r.Post("/{issueID}/stop", admin.StopIssue)
		})

		r.Post("/batch/run", admin.RunBatch)
	})

	// Public / mobile surface
	r.Route("/shops/{shopID}", func(r chi.Router) {
		r.Get("/coupons", mobile.GetShopCoupons)
		r.Get("/issues/active", mobile.GetActiveIssues)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Post("/issues/{issueID}/acquire", mobile.AcquireCoupon)
		r.Get("/me/coupons", mobile.GetUserCoupons)
		r.Post("/me/coupons/{acquisitionID}/use", mobile.UseCoupon)
	})

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}

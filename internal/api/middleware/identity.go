package middleware

import (
	"context"
	"net/http"

	"github.com/kissaten/coupon-platform/internal/models"
)

// Identity is resolved upstream by the API gateway, which verifies the
// session and forwards trusted headers. This service only lifts them
// into the request context.
const (
	headerUserID    = "X-User-ID"
	headerAdminID   = "X-Admin-ID"
	headerShopID    = "X-Shop-ID"
	headerAdminName = "X-Admin-Name"
)

type ctxKey int

const (
	userKey ctxKey = iota
	adminKey
)

// RequireUser rejects requests without a user identity.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(headerUserID)
		if userID == "" {
			http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects requests without a shop admin identity.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		adminID := r.Header.Get(headerAdminID)
		shopID := r.Header.Get(headerShopID)
		if adminID == "" || shopID == "" {
			http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
			return
		}
		admin := &models.ShopAdmin{
			ID:     adminID,
			ShopID: shopID,
			Name:   r.Header.Get(headerAdminName),
		}
		ctx := context.WithValue(r.Context(), adminKey, admin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userKey).(string)
	return id
}

func Admin(ctx context.Context) *models.ShopAdmin {
	admin, _ := ctx.Value(adminKey).(*models.ShopAdmin)
	return admin
}

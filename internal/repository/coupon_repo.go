package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kissaten/coupon-platform/internal/models"
)

type CouponRepo struct {
	db *sql.DB
}

func NewCouponRepo(db *sql.DB) *CouponRepo {
	return &CouponRepo{db: db}
}

const couponColumns = `id, shop_id, title, description, conditions, notes, image_url, is_active, created_at, updated_at`

func (r *CouponRepo) Create(ctx context.Context, c *models.Coupon) error {
	query := `
		INSERT INTO coupons (id, shop_id, title, description, conditions, notes, image_url, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		c.ID, c.ShopID, c.Title, c.Description, c.Conditions, c.Notes, c.ImageURL, c.IsActive,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *CouponRepo) FindByID(ctx context.Context, id string) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	var c models.Coupon
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.ShopID, &c.Title, &c.Description, &c.Conditions, &c.Notes,
		&c.ImageURL, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *CouponRepo) Update(ctx context.Context, c *models.Coupon) error {
	query := `
		UPDATE coupons
		SET title = $2, description = $3, conditions = $4, notes = $5,
		    image_url = $6, is_active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	return r.db.QueryRowContext(ctx, query,
		c.ID, c.Title, c.Description, c.Conditions, c.Notes, c.ImageURL, c.IsActive,
	).Scan(&c.UpdatedAt)
}

func (r *CouponRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	return err
}

// HasLiveIssues reports whether any issue for the coupon is still
// active and inside its window; such coupons cannot be deleted.
func (r *CouponRepo) HasLiveIssues(ctx context.Context, couponID string, now time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM coupon_issues
			WHERE coupon_id = $1 AND status = 'active' AND is_active = TRUE AND end_time > $2
		)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, couponID, now).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListByShop returns the shop's coupons, newest first, with issue and
// schedule counts for the admin listing.
func (r *CouponRepo) ListByShop(ctx context.Context, shopID string, now time.Time) ([]models.CouponWithCounts, error) {
	query := `
		SELECT ` + couponColumns + `,
		       (SELECT COUNT(*) FROM coupon_issues i
		         WHERE i.coupon_id = coupons.id AND i.status = 'active' AND i.end_time > $2) AS active_issues,
		       (SELECT COUNT(*) FROM coupon_schedules s WHERE s.coupon_id = coupons.id) AS schedules,
		       (SELECT COUNT(*) FROM coupon_issues i WHERE i.coupon_id = coupons.id) AS total_issues
		FROM coupons
		WHERE shop_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, shopID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CouponWithCounts
	for rows.Next() {
		var c models.CouponWithCounts
		if err := rows.Scan(
			&c.ID, &c.ShopID, &c.Title, &c.Description, &c.Conditions, &c.Notes,
			&c.ImageURL, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
			&c.ActiveIssueCount, &c.ScheduleCount, &c.TotalIssueCount,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

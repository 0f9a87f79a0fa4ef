package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kissaten/coupon-platform/internal/models"
)

type IssueRepo struct {
	db *sql.DB
}

func NewIssueRepo(db *sql.DB) *IssueRepo {
	return &IssueRepo{db: db}
}

const issueColumns = `id, coupon_id, shop_id, schedule_id, issue_type, target_date,
	start_time, end_time, start_time_only, end_time_only, max_acquisitions,
	current_acquisitions, status, is_active, issued_by, issued_at, created_at, updated_at`

func scanIssue(scanner interface{ Scan(...interface{}) error }, i *models.Issue) error {
	var (
		scheduleID sql.NullString
		maxAcq     sql.NullInt64
		issuedBy   sql.NullString
	)
	err := scanner.Scan(
		&i.ID, &i.CouponID, &i.ShopID, &scheduleID, &i.IssueType, &i.TargetDate,
		&i.StartTime, &i.EndTime, &i.StartTimeOnly, &i.EndTimeOnly, &maxAcq,
		&i.CurrentAcquisitions, &i.Status, &i.IsActive, &issuedBy, &i.IssuedAt,
		&i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if scheduleID.Valid {
		s := scheduleID.String
		i.ScheduleID = &s
	}
	if maxAcq.Valid {
		n := int(maxAcq.Int64)
		i.MaxAcquisitions = &n
	}
	if issuedBy.Valid {
		s := issuedBy.String
		i.IssuedBy = &s
	}
	return nil
}

func (r *IssueRepo) Create(ctx context.Context, i *models.Issue) error {
	query := `
		INSERT INTO coupon_issues (id, coupon_id, shop_id, schedule_id, issue_type, target_date,
			start_time, end_time, start_time_only, end_time_only, max_acquisitions,
			current_acquisitions, status, is_active, issued_by, issued_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())
		RETURNING created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		i.ID, i.CouponID, i.ShopID, nullableString(derefString(i.ScheduleID)), i.IssueType,
		i.TargetDate, i.StartTime, i.EndTime, i.StartTimeOnly, i.EndTimeOnly,
		nullableInt(i.MaxAcquisitions), i.CurrentAcquisitions, i.Status, i.IsActive,
		nullableString(derefString(i.IssuedBy)), i.IssuedAt,
	).Scan(&i.CreatedAt, &i.UpdatedAt)
}

func (r *IssueRepo) FindByID(ctx context.Context, id string) (*models.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM coupon_issues WHERE id = $1`

	var i models.Issue
	if err := scanIssue(r.db.QueryRowContext(ctx, query, id), &i); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &i, nil
}

// Cancel stops an issue: terminal cancelled status, flag cleared.
func (r *IssueRepo) Cancel(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE coupon_issues
		SET status = 'cancelled', is_active = FALSE, updated_at = NOW()
		WHERE id = $1`, id)
	return err
}

// CancelActiveManualByCoupon stops every live manually-issued issue
// for the coupon. Batch-generated issues are left alone; only one
// manually-controlled issue is live per coupon at a time.
func (r *IssueRepo) CancelActiveManualByCoupon(ctx context.Context, couponID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE coupon_issues
		SET status = 'cancelled', is_active = FALSE, updated_at = NOW()
		WHERE coupon_id = $1 AND issue_type = 'manual' AND status = 'active'`, couponID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExpireOverdue flips active issues whose window has lapsed to
// expired. Idempotent; safe to run opportunistically or on a sweep.
func (r *IssueRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE coupon_issues
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND end_time < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListActiveByShop returns issues currently inside their acquisition
// window for the shop, joined with coupon and issuer summaries.
func (r *IssueRepo) ListActiveByShop(ctx context.Context, shopID string, now time.Time) ([]models.ActiveIssueView, error) {
	query := `
		SELECT i.id, i.coupon_id, i.shop_id, i.schedule_id, i.issue_type, i.target_date,
		       i.start_time, i.end_time, i.start_time_only, i.end_time_only, i.max_acquisitions,
		       i.current_acquisitions, i.status, i.is_active, i.issued_by, i.issued_at,
		       i.created_at, i.updated_at,
		       c.id, c.title, c.description, c.conditions, c.notes,
		       a.id, a.name
		FROM coupon_issues i
		JOIN coupons c ON c.id = i.coupon_id AND c.is_active = TRUE
		LEFT JOIN shop_admins a ON a.id = i.issued_by
		WHERE i.shop_id = $1
		  AND i.status = 'active' AND i.is_active = TRUE
		  AND i.start_time <= $2 AND i.end_time > $2
		ORDER BY i.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, shopID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ActiveIssueView
	for rows.Next() {
		var (
			v          models.ActiveIssueView
			scheduleID sql.NullString
			maxAcq     sql.NullInt64
			issuedBy   sql.NullString
			adminID    sql.NullString
			adminName  sql.NullString
		)
		err := rows.Scan(
			&v.ID, &v.CouponID, &v.ShopID, &scheduleID, &v.IssueType, &v.TargetDate,
			&v.StartTime, &v.EndTime, &v.StartTimeOnly, &v.EndTimeOnly, &maxAcq,
			&v.CurrentAcquisitions, &v.Status, &v.IsActive, &issuedBy, &v.IssuedAt,
			&v.CreatedAt, &v.UpdatedAt,
			&v.Coupon.ID, &v.Coupon.Title, &v.Coupon.Description, &v.Coupon.Conditions, &v.Coupon.Notes,
			&adminID, &adminName,
		)
		if err != nil {
			return nil, err
		}
		if scheduleID.Valid {
			s := scheduleID.String
			v.ScheduleID = &s
		}
		if maxAcq.Valid {
			n := int(maxAcq.Int64)
			v.MaxAcquisitions = &n
		}
		if issuedBy.Valid {
			s := issuedBy.String
			v.IssuedBy = &s
		}
		if adminID.Valid {
			v.Issuer = &models.AdminSummary{ID: adminID.String, Name: adminName.String}
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

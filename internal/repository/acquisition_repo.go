package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kissaten/coupon-platform/internal/models"
)

type AcquisitionRepo struct {
	db *sql.DB
}

func NewAcquisitionRepo(db *sql.DB) *AcquisitionRepo {
	return &AcquisitionRepo{db: db}
}

const acquisitionColumns = `id, coupon_issue_id, user_id, acquired_at, used_at, expired_at,
	status, processed_by, usage_notes, is_notification_read, notification_read_at,
	is_banner_shown, banner_shown_at, created_at, updated_at`

func scanAcquisition(scanner interface{ Scan(...interface{}) error }, a *models.Acquisition) error {
	var (
		usedAt      sql.NullTime
		processedBy sql.NullString
		notes       sql.NullString
		notifReadAt sql.NullTime
		bannerAt    sql.NullTime
	)
	err := scanner.Scan(
		&a.ID, &a.CouponIssueID, &a.UserID, &a.AcquiredAt, &usedAt, &a.ExpiredAt,
		&a.Status, &processedBy, &notes, &a.IsNotificationRead, &notifReadAt,
		&a.IsBannerShown, &bannerAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if usedAt.Valid {
		t := usedAt.Time
		a.UsedAt = &t
	}
	if processedBy.Valid {
		s := processedBy.String
		a.ProcessedBy = &s
	}
	if notes.Valid {
		a.UsageNotes = notes.String
	}
	if notifReadAt.Valid {
		t := notifReadAt.Time
		a.NotificationReadAt = &t
	}
	if bannerAt.Valid {
		t := bannerAt.Time
		a.BannerShownAt = &t
	}
	return nil
}

func (r *AcquisitionRepo) FindByIssueAndUser(ctx context.Context, issueID, userID string) (*models.Acquisition, error) {
	query := `SELECT ` + acquisitionColumns + ` FROM coupon_acquisitions WHERE coupon_issue_id = $1 AND user_id = $2`

	var a models.Acquisition
	if err := scanAcquisition(r.db.QueryRowContext(ctx, query, issueID, userID), &a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *AcquisitionRepo) FindByIDAndUser(ctx context.Context, id, userID string) (*models.Acquisition, error) {
	query := `SELECT ` + acquisitionColumns + ` FROM coupon_acquisitions WHERE id = $1 AND user_id = $2`

	var a models.Acquisition
	if err := scanAcquisition(r.db.QueryRowContext(ctx, query, id, userID), &a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// Acquire performs the whole acquisition as one transaction: lock the
// issue row, re-verify every eligibility check against the locked
// state, increment the counter (flipping to full at the cap in the
// same statement), and insert the ledger row. The unique
// (user_id, coupon_issue_id) constraint backstops the existence
// check under concurrency.
func (r *AcquisitionRepo) Acquire(ctx context.Context, a *models.Acquisition, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		status  models.IssueStatus
		endTime time.Time
	)
	err = tx.QueryRowContext(ctx, `
		SELECT status, end_time FROM coupon_issues WHERE id = $1 FOR UPDATE`,
		a.CouponIssueID,
	).Scan(&status, &endTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrIssueNotFound
		}
		return fmt.Errorf("lock issue: %w", err)
	}
	if status != models.IssueActive {
		return ErrIssueNotActive
	}
	if !now.Before(endTime) {
		return ErrIssueWindowClosed
	}

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM coupon_acquisitions WHERE coupon_issue_id = $1 AND user_id = $2)`,
		a.CouponIssueID, a.UserID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check existing acquisition: %w", err)
	}
	if exists {
		return ErrAlreadyAcquired
	}

	// Increment only while capacity remains; reaching the cap flips
	// the status to full in the same statement.
	res, err := tx.ExecContext(ctx, `
		UPDATE coupon_issues
		SET current_acquisitions = current_acquisitions + 1,
		    status = CASE
		        WHEN max_acquisitions IS NOT NULL AND current_acquisitions + 1 >= max_acquisitions THEN 'full'
		        ELSE status
		    END,
		    updated_at = NOW()
		WHERE id = $1
		  AND (max_acquisitions IS NULL OR current_acquisitions < max_acquisitions)`,
		a.CouponIssueID)
	if err != nil {
		return fmt.Errorf("increment acquisitions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCapacityExceeded
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO coupon_acquisitions (id, coupon_issue_id, user_id, acquired_at, expired_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at`,
		a.ID, a.CouponIssueID, a.UserID, a.AcquiredAt, a.ExpiredAt, a.Status,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyAcquired
		}
		return fmt.Errorf("insert acquisition: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Use marks an active, unexpired acquisition as redeemed. The
// conditional update makes the transition atomic; zero affected rows
// means the acquisition was already used, expired, or missing.
func (r *AcquisitionRepo) Use(ctx context.Context, id string, processedBy *string, notes string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE coupon_acquisitions
		SET status = 'used', used_at = $2, processed_by = $3, usage_notes = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'active' AND expired_at > $2`,
		id, now, nullableString(derefString(processedBy)), notes)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotUsable
	}
	return nil
}

// ExpireOverdue flips active acquisitions past their expiry to
// expired. Idempotent sweep.
func (r *AcquisitionRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE coupon_acquisitions
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND expired_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListByUser returns the user's acquisitions newest first, joined
// with issue, coupon and shop summaries for the wallet view.
func (r *AcquisitionRepo) ListByUser(ctx context.Context, userID string) ([]models.UserCouponView, error) {
	query := `
		SELECT a.id, a.coupon_issue_id, a.user_id, a.acquired_at, a.used_at, a.expired_at,
		       a.status, a.processed_by, a.usage_notes, a.is_notification_read, a.notification_read_at,
		       a.is_banner_shown, a.banner_shown_at, a.created_at, a.updated_at,
		       i.id, i.start_time, i.end_time, i.status,
		       c.id, c.title, c.description, c.conditions, c.notes,
		       s.id, s.name
		FROM coupon_acquisitions a
		JOIN coupon_issues i ON i.id = a.coupon_issue_id
		JOIN coupons c ON c.id = i.coupon_id
		JOIN shops s ON s.id = c.shop_id
		WHERE a.user_id = $1
		ORDER BY a.acquired_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.UserCouponView
	for rows.Next() {
		var (
			v           models.UserCouponView
			usedAt      sql.NullTime
			processedBy sql.NullString
			notes       sql.NullString
			notifReadAt sql.NullTime
			bannerAt    sql.NullTime
		)
		err := rows.Scan(
			&v.ID, &v.CouponIssueID, &v.UserID, &v.AcquiredAt, &usedAt, &v.ExpiredAt,
			&v.Status, &processedBy, &notes, &v.IsNotificationRead, &notifReadAt,
			&v.IsBannerShown, &bannerAt, &v.CreatedAt, &v.UpdatedAt,
			&v.Issue.ID, &v.Issue.StartTime, &v.Issue.EndTime, &v.Issue.Status,
			&v.Coupon.ID, &v.Coupon.Title, &v.Coupon.Description, &v.Coupon.Conditions, &v.Coupon.Notes,
			&v.Shop.ID, &v.Shop.Name,
		)
		if err != nil {
			return nil, err
		}
		if usedAt.Valid {
			t := usedAt.Time
			v.UsedAt = &t
		}
		if processedBy.Valid {
			s := processedBy.String
			v.ProcessedBy = &s
		}
		if notes.Valid {
			v.UsageNotes = notes.String
		}
		if notifReadAt.Valid {
			t := notifReadAt.Time
			v.NotificationReadAt = &t
		}
		if bannerAt.Valid {
			t := bannerAt.Time
			v.BannerShownAt = &t
		}
		v.Issue.DurationMinutes = int(v.Issue.EndTime.Sub(v.Issue.StartTime) / time.Minute)
		out = append(out, v)
	}
	return out, rows.Err()
}

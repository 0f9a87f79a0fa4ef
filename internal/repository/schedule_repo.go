package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kissaten/coupon-platform/internal/models"
)

type ScheduleRepo struct {
	db *sql.DB
}

func NewScheduleRepo(db *sql.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

const scheduleColumns = `id, coupon_id, shop_id, schedule_name, day_type, custom_days,
	start_time, end_time, max_acquisitions, valid_from, valid_until, is_active,
	last_batch_processed_date, created_by, created_at, updated_at`

func scanSchedule(scanner interface{ Scan(...interface{}) error }, s *models.Schedule) error {
	var (
		customDays sql.NullString
		maxAcq     sql.NullInt64
		validUntil sql.NullTime
		processed  sql.NullTime
		createdBy  sql.NullString
	)
	err := scanner.Scan(
		&s.ID, &s.CouponID, &s.ShopID, &s.Name, &s.DayType, &customDays,
		&s.StartTime, &s.EndTime, &maxAcq, &s.ValidFrom, &validUntil, &s.IsActive,
		&processed, &createdBy, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if customDays.Valid && customDays.String != "" {
		if err := json.Unmarshal([]byte(customDays.String), &s.CustomDays); err != nil {
			return fmt.Errorf("decode custom_days for schedule %s: %w", s.ID, err)
		}
	}
	if maxAcq.Valid {
		n := int(maxAcq.Int64)
		s.MaxAcquisitions = &n
	}
	if validUntil.Valid {
		t := validUntil.Time
		s.ValidUntil = &t
	}
	if processed.Valid {
		t := processed.Time
		s.LastProcessedDate = &t
	}
	if createdBy.Valid {
		s.CreatedBy = createdBy.String
	}
	return nil
}

func encodeCustomDays(days []models.Weekday) (interface{}, error) {
	if len(days) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(days)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *ScheduleRepo) Create(ctx context.Context, s *models.Schedule) error {
	customDays, err := encodeCustomDays(s.CustomDays)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO coupon_schedules (id, coupon_id, shop_id, schedule_name, day_type, custom_days,
			start_time, end_time, max_acquisitions, valid_from, valid_until, is_active,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		s.ID, s.CouponID, s.ShopID, s.Name, s.DayType, customDays,
		s.StartTime, s.EndTime, nullableInt(s.MaxAcquisitions), s.ValidFrom,
		nullableTime(s.ValidUntil), s.IsActive, nullableString(s.CreatedBy),
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *ScheduleRepo) FindByIDAndShop(ctx context.Context, id, shopID string) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM coupon_schedules WHERE id = $1 AND shop_id = $2`

	var s models.Schedule
	if err := scanSchedule(r.db.QueryRowContext(ctx, query, id, shopID), &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *ScheduleRepo) Update(ctx context.Context, s *models.Schedule) error {
	customDays, err := encodeCustomDays(s.CustomDays)
	if err != nil {
		return err
	}
	query := `
		UPDATE coupon_schedules
		SET schedule_name = $2, day_type = $3, custom_days = $4, start_time = $5,
		    end_time = $6, max_acquisitions = $7, valid_from = $8, valid_until = $9,
		    is_active = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	return r.db.QueryRowContext(ctx, query,
		s.ID, s.Name, s.DayType, customDays, s.StartTime, s.EndTime,
		nullableInt(s.MaxAcquisitions), s.ValidFrom, nullableTime(s.ValidUntil), s.IsActive,
	).Scan(&s.UpdatedAt)
}

func (r *ScheduleRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM coupon_schedules WHERE id = $1`, id)
	return err
}

func (r *ScheduleRepo) ListByShop(ctx context.Context, shopID string) ([]models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM coupon_schedules WHERE shop_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Schedule
	for rows.Next() {
		var s models.Schedule
		if err := scanSchedule(rows, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListForDate returns active schedules whose validity window contains
// the date, joined with the owning coupon's active flag. Day-of-week
// matching happens in Go via Schedule.AppliesOn.
func (r *ScheduleRepo) ListForDate(ctx context.Context, date time.Time) ([]models.ScheduleWithCoupon, error) {
	query := `
		SELECT s.id, s.coupon_id, s.shop_id, s.schedule_name, s.day_type, s.custom_days,
		       s.start_time, s.end_time, s.max_acquisitions, s.valid_from, s.valid_until, s.is_active,
		       s.last_batch_processed_date, s.created_by, s.created_at, s.updated_at,
		       c.is_active, c.title
		FROM coupon_schedules s
		JOIN coupons c ON c.id = s.coupon_id
		WHERE s.is_active = TRUE
		  AND s.valid_from <= $1
		  AND (s.valid_until IS NULL OR s.valid_until >= $1)`

	rows, err := r.db.QueryContext(ctx, query, models.DateOf(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ScheduleWithCoupon
	for rows.Next() {
		var (
			sc         models.ScheduleWithCoupon
			customDays sql.NullString
			maxAcq     sql.NullInt64
			validUntil sql.NullTime
			processed  sql.NullTime
			createdBy  sql.NullString
		)
		err := rows.Scan(
			&sc.ID, &sc.CouponID, &sc.ShopID, &sc.Name, &sc.DayType, &customDays,
			&sc.StartTime, &sc.EndTime, &maxAcq, &sc.ValidFrom, &validUntil, &sc.IsActive,
			&processed, &createdBy, &sc.CreatedAt, &sc.UpdatedAt,
			&sc.CouponIsActive, &sc.CouponTitle,
		)
		if err != nil {
			return nil, err
		}
		if customDays.Valid && customDays.String != "" {
			if err := json.Unmarshal([]byte(customDays.String), &sc.CustomDays); err != nil {
				return nil, fmt.Errorf("decode custom_days for schedule %s: %w", sc.ID, err)
			}
		}
		if maxAcq.Valid {
			n := int(maxAcq.Int64)
			sc.MaxAcquisitions = &n
		}
		if validUntil.Valid {
			t := validUntil.Time
			sc.ValidUntil = &t
		}
		if processed.Valid {
			t := processed.Time
			sc.LastProcessedDate = &t
		}
		if createdBy.Valid {
			sc.CreatedBy = createdBy.String
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// MaterializeIssue atomically claims the target date on the schedule
// watermark and, only if the claim succeeds, inserts the generated
// issue. Returns false when another run already claimed the date.
func (r *ScheduleRepo) MaterializeIssue(ctx context.Context, scheduleID string, targetDate time.Time, issue *models.Issue) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Conditional watermark advance; zero rows means the date was
	// already processed (possibly by a concurrent run).
	res, err := tx.ExecContext(ctx, `
		UPDATE coupon_schedules
		SET last_batch_processed_date = $2, updated_at = NOW()
		WHERE id = $1
		  AND (last_batch_processed_date IS NULL OR last_batch_processed_date < $2)`,
		scheduleID, models.DateOf(targetDate))
	if err != nil {
		return false, fmt.Errorf("advance watermark: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO coupon_issues (id, coupon_id, shop_id, schedule_id, issue_type, target_date,
			start_time, end_time, start_time_only, end_time_only, max_acquisitions,
			current_acquisitions, status, is_active, issued_by, issued_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NULL, $15, NOW(), NOW())
		RETURNING created_at, updated_at`,
		issue.ID, issue.CouponID, issue.ShopID, nullableString(derefString(issue.ScheduleID)),
		issue.IssueType, issue.TargetDate, issue.StartTime, issue.EndTime,
		issue.StartTimeOnly, issue.EndTimeOnly, nullableInt(issue.MaxAcquisitions),
		issue.CurrentAcquisitions, issue.Status, issue.IsActive, issue.IssuedAt,
	).Scan(&issue.CreatedAt, &issue.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("insert issue: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func nullableInt(p *int) interface{} {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func nullableTime(p *time.Time) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

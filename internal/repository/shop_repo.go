package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kissaten/coupon-platform/internal/models"
)

// ShopRepo is a read-only lookup; shop profile management is handled
// by a different service.
type ShopRepo struct {
	db *sql.DB
}

func NewShopRepo(db *sql.DB) *ShopRepo {
	return &ShopRepo{db: db}
}

func (r *ShopRepo) FindByID(ctx context.Context, id string) (*models.Shop, error) {
	var s models.Shop
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM shops WHERE id = $1`, id).Scan(&s.ID, &s.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

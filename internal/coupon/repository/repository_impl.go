package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/notemart/internal/coupon/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, coupon *domain.Coupon) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO coupons (id, code, type, value, min_amount, max_uses, used_count, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		coupon.ID,
		coupon.Code,
		coupon.Type,
		coupon.Value,
		coupon.MinAmount,
		coupon.MaxUses,
		coupon.UsedCount,
		coupon.ExpiresAt,
		coupon.CreatedAt,
		coupon.UpdatedAt,
	).Error
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Coupon, error) {
	var c domain.Coupon
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, type, value, min_amount, max_uses, used_count, expires_at, created_at, updated_at
		 FROM coupons WHERE code = ?`,
		strings.ToUpper(code),
	).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.Coupon, error) {
	var items []domain.Coupon
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, type, value, min_amount, max_uses, used_count, expires_at, created_at, updated_at
		 FROM coupons ORDER BY created_at DESC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Redeem(ctx context.Context, db *gorm.DB, code string) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE coupons
		 SET used_count = used_count + 1
		 WHERE code = ? AND (max_uses = 0 OR used_count < max_uses)`,
		strings.ToUpper(code),
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

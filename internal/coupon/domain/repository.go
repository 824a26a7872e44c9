package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, coupon *Coupon) error
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Coupon, error)
	List(ctx context.Context, db *gorm.DB) ([]Coupon, error)
	// Redeem bumps used_count unless the cap is already reached.
	Redeem(ctx context.Context, db *gorm.DB, code string) (bool, error)
}

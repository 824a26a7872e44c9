package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	TypePercentage = "percentage"
	TypeFixed      = "fixed"
)

type Coupon struct {
	ID        snowflake.ID    `json:"id" gorm:"primaryKey"`
	Code      string          `json:"code" gorm:"type:text;not null;uniqueIndex:ux_coupons_code"`
	Type      string          `json:"type" gorm:"type:text;not null"`
	Value     decimal.Decimal `json:"value" gorm:"type:numeric(12,2);not null"`
	MinAmount decimal.Decimal `json:"min_amount" gorm:"type:numeric(12,2);not null;default:0"`
	MaxUses   int             `json:"max_uses" gorm:"not null;default:0"`
	UsedCount int             `json:"used_count" gorm:"not null;default:0"`
	ExpiresAt *time.Time      `json:"expires_at"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"not null"`
}

func (Coupon) TableName() string { return "coupons" }

// Quote is the outcome of applying a coupon to a subtotal.
type Quote struct {
	Coupon   *Coupon
	Discount decimal.Decimal
	Final    decimal.Decimal
}

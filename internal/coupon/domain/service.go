package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service interface {
	Validate(ctx context.Context, req ValidateRequest) (*ValidateResponse, error)
	// Quote applies a coupon inside the caller's transaction. It returns
	// ErrInvalidCoupon for any reason the coupon cannot be used.
	Quote(ctx context.Context, tx *gorm.DB, code string, subtotal decimal.Decimal) (*Quote, error)
	Redeem(ctx context.Context, tx *gorm.DB, code string) error

	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context) ([]Response, error)
}

type ValidateRequest struct {
	Code        string `json:"code"`
	TotalAmount string `json:"total_amount"`
}

type ValidateResponse struct {
	Valid          bool             `json:"valid"`
	Coupon         *Summary         `json:"coupon,omitempty"`
	DiscountAmount *decimal.Decimal `json:"discount_amount,omitempty"`
	FinalAmount    *decimal.Decimal `json:"final_amount,omitempty"`
}

type Summary struct {
	Code  string          `json:"code"`
	Type  string          `json:"type"`
	Value decimal.Decimal `json:"value"`
}

type CreateRequest struct {
	Code      string     `json:"code"`
	Type      string     `json:"type"`
	Value     string     `json:"value"`
	MinAmount string     `json:"min_amount"`
	MaxUses   int        `json:"max_uses"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type Response struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	Type      string          `json:"type"`
	Value     decimal.Decimal `json:"value"`
	MinAmount decimal.Decimal `json:"min_amount"`
	MaxUses   int             `json:"max_uses"`
	UsedCount int             `json:"used_count"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

var (
	ErrInvalidCode      = errors.New("invalid_code")
	ErrInvalidType      = errors.New("invalid_type")
	ErrInvalidValue     = errors.New("invalid_value")
	ErrInvalidMinAmount = errors.New("invalid_min_amount")
	ErrInvalidMaxUses   = errors.New("invalid_max_uses")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidCoupon    = errors.New("invalid_coupon")
	ErrCodeExists       = errors.New("code_exists")
)

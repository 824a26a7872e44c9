package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/notemart/internal/clock"
	"github.com/smallbiznis/notemart/internal/coupon/domain"
	"github.com/smallbiznis/notemart/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("coupon.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: clock.Or(p.Clock),
	}
}

// Validate never reveals why a coupon was rejected.
func (s *Service) Validate(ctx context.Context, req domain.ValidateRequest) (*domain.ValidateResponse, error) {
	code := normalizeCode(req.Code)
	if code == "" {
		return nil, domain.ErrInvalidCode
	}
	subtotal, err := decimal.NewFromString(strings.TrimSpace(req.TotalAmount))
	if err != nil || subtotal.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}

	quote, err := s.Quote(ctx, s.db, code, subtotal)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCoupon) {
			return &domain.ValidateResponse{Valid: false}, nil
		}
		return nil, err
	}

	return &domain.ValidateResponse{
		Valid: true,
		Coupon: &domain.Summary{
			Code:  quote.Coupon.Code,
			Type:  quote.Coupon.Type,
			Value: quote.Coupon.Value,
		},
		DiscountAmount: &quote.Discount,
		FinalAmount:    &quote.Final,
	}, nil
}

func (s *Service) Quote(ctx context.Context, tx *gorm.DB, code string, subtotal decimal.Decimal) (*domain.Quote, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, domain.ErrInvalidCoupon
	}
	c, err := s.repo.FindByCode(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrInvalidCoupon
	}
	if c.ExpiresAt != nil && !c.ExpiresAt.After(s.clock.Now()) {
		return nil, domain.ErrInvalidCoupon
	}
	if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
		return nil, domain.ErrInvalidCoupon
	}
	if subtotal.LessThan(c.MinAmount) {
		return nil, domain.ErrInvalidCoupon
	}

	discount := Discount(c, subtotal)
	return &domain.Quote{
		Coupon:   c,
		Discount: discount,
		Final:    subtotal.Sub(discount),
	}, nil
}

// Discount is never larger than the subtotal.
func Discount(c *domain.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch c.Type {
	case domain.TypePercentage:
		discount = subtotal.Mul(c.Value).Div(hundred).Round(2)
	case domain.TypeFixed:
		discount = c.Value
	default:
		return decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return discount
}

// Redeem is called once per order, on its pending to paid transition. A cap
// reached between checkout and payment does not fail the payment.
func (s *Service) Redeem(ctx context.Context, tx *gorm.DB, code string) error {
	code = normalizeCode(code)
	if code == "" {
		return nil
	}
	ok, err := s.repo.Redeem(ctx, tx, code)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Warn("coupon redeemed past its usage cap", zap.String("code", code))
	}
	return nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	code := normalizeCode(req.Code)
	if code == "" || len(code) > 64 {
		return nil, domain.ErrInvalidCode
	}
	typ := strings.ToLower(strings.TrimSpace(req.Type))
	if typ != domain.TypePercentage && typ != domain.TypeFixed {
		return nil, domain.ErrInvalidType
	}
	value, err := decimal.NewFromString(strings.TrimSpace(req.Value))
	if err != nil || !value.IsPositive() {
		return nil, domain.ErrInvalidValue
	}
	if typ == domain.TypePercentage && value.GreaterThan(hundred) {
		return nil, domain.ErrInvalidValue
	}
	minAmount := decimal.Zero
	if raw := strings.TrimSpace(req.MinAmount); raw != "" {
		minAmount, err = decimal.NewFromString(raw)
		if err != nil || minAmount.IsNegative() {
			return nil, domain.ErrInvalidMinAmount
		}
	}
	if req.MaxUses < 0 {
		return nil, domain.ErrInvalidMaxUses
	}

	now := s.clock.Now()
	c := &domain.Coupon{
		ID:        s.genID.Generate(),
		Code:      code,
		Type:      typ,
		Value:     value,
		MinAmount: minAmount,
		MaxUses:   req.MaxUses,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.ExpiresAt != nil {
		expires := req.ExpiresAt.UTC()
		c.ExpiresAt = &expires
	}
	if err := s.repo.Create(ctx, s.db, c); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrCodeExists
		}
		return nil, err
	}

	resp := toResponse(c)
	return &resp, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Response, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func toResponse(c *domain.Coupon) domain.Response {
	var expires *time.Time
	if c.ExpiresAt != nil {
		t := c.ExpiresAt.UTC()
		expires = &t
	}
	return domain.Response{
		ID:        c.ID.String(),
		Code:      c.Code,
		Type:      c.Type,
		Value:     c.Value,
		MinAmount: c.MinAmount,
		MaxUses:   c.MaxUses,
		UsedCount: c.UsedCount,
		ExpiresAt: expires,
		CreatedAt: c.CreatedAt,
	}
}

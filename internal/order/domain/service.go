package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/notemart/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, orderID string) (*Order, error)
	GetByProcessorOrderID(ctx context.Context, processorOrderID string) (*Order, error)
	GetForUser(ctx context.Context, userID snowflake.ID, orderID string) (*Response, error)
	ListForUser(ctx context.Context, userID snowflake.ID, page pagination.Pagination) (*ListResponse, error)
	Items(ctx context.Context, order *Order) ([]OrderItem, error)

	AdminList(ctx context.Context, req AdminListRequest) (*ListResponse, error)
	AdminGet(ctx context.Context, orderID string) (*Response, error)
	AdminUpdateStatus(ctx context.Context, orderID string, status string) (*Response, error)

	AttachProcessorOrder(ctx context.Context, order *Order, processorOrderID string) (*Order, error)
	// MarkPaid performs the single pending to paid transition. It reports
	// transitioned=false without error when the order is already paid.
	MarkPaid(ctx context.Context, id snowflake.ID, update PaymentUpdate) (*Order, bool, error)
	MarkFailed(ctx context.Context, id snowflake.ID, source string) (*Order, bool, error)
	MarkRefunded(ctx context.Context, id snowflake.ID, refundID string) (*Order, bool, error)
	// ExpireStale fails up to limit pending orders created before cutoff and
	// reports how many it moved.
	ExpireStale(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// Notifier receives order lifecycle events after the transaction commits.
// Implementations are best effort and must not block for long.
type Notifier interface {
	OrderCreated(ctx context.Context, order *Order, items []OrderItem)
	OrderPaid(ctx context.Context, order *Order, items []OrderItem)
	OrderRefunded(ctx context.Context, order *Order)
}

type CreateRequest struct {
	UserID         *snowflake.ID  `json:"-"`
	Items          []ItemRequest  `json:"items"`
	Customer       CustomerInfo   `json:"customer_info"`
	BillingAddress map[string]any `json:"billing_address"`
	CouponCode     string         `json:"coupon_code"`
}

// ItemRequest accepts the note id as a JSON number or string. Any price the
// client sends is ignored.
type ItemRequest struct {
	NoteID json.Number `json:"note_id"`
}

type CustomerInfo struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type AdminListRequest struct {
	Status   string
	Search   string
	DateFrom string
	DateTo   string
	pagination.Pagination
}

type ListResponse struct {
	Orders   []Response          `json:"orders"`
	PageInfo pagination.PageInfo `json:"pagination"`
}

type Response struct {
	ID               string          `json:"id"`
	OrderID          string          `json:"order_id"`
	Status           Status          `json:"status"`
	Currency         string          `json:"currency"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	CouponCode       string          `json:"coupon_code,omitempty"`
	Customer         CustomerInfo    `json:"customer"`
	CustomerName     string          `json:"customer_name"`
	BillingAddress   map[string]any  `json:"billing_address,omitempty"`
	ProcessorOrderID string          `json:"razorpay_order_id,omitempty"`
	PaymentID        string          `json:"payment_id,omitempty"`
	PaymentMethod    string          `json:"payment_method,omitempty"`
	RefundID         string          `json:"refund_id,omitempty"`
	Items            []ItemResponse  `json:"items,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	RefundedAt       *time.Time      `json:"refunded_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type ItemResponse struct {
	NoteID string          `json:"note_id"`
	Title  string          `json:"title"`
	Price  decimal.Decimal `json:"price"`
}

var (
	ErrInvalidOrderID    = errors.New("invalid_order_id")
	ErrInvalidEmail      = errors.New("invalid_email")
	ErrInvalidFirstName  = errors.New("invalid_first_name")
	ErrInvalidLastName   = errors.New("invalid_last_name")
	ErrInvalidItems      = errors.New("invalid_items")
	ErrInvalidNoteID     = errors.New("invalid_note_id")
	ErrInvalidCoupon     = errors.New("invalid_coupon")
	ErrInvalidTotal      = errors.New("invalid_total")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidDate       = errors.New("invalid_date")
	ErrItemNotFound      = errors.New("item_not_found")
	ErrNotFound          = errors.New("not_found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid_transition")
)

package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusFailed   Status = "failed"
	StatusRefunded Status = "refunded"
)

func ParseStatus(raw string) (Status, bool) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusPaid, StatusFailed, StatusRefunded:
		return s, true
	default:
		return "", false
	}
}

type Order struct {
	ID                snowflake.ID      `json:"id" gorm:"primaryKey"`
	OrderID           string            `json:"order_id" gorm:"type:varchar(64);not null;uniqueIndex:ux_orders_order_id"`
	UserID            *snowflake.ID     `json:"user_id" gorm:"index"`
	CustomerEmail     string            `json:"customer_email" gorm:"type:varchar(255);not null;index"`
	CustomerFirstName string            `json:"customer_first_name" gorm:"type:varchar(100);not null"`
	CustomerLastName  string            `json:"customer_last_name" gorm:"type:varchar(100);not null"`
	CustomerPhone     string            `json:"customer_phone" gorm:"type:varchar(32)"`
	BillingAddress    datatypes.JSONMap `json:"billing_address"`
	Subtotal          decimal.Decimal   `json:"subtotal" gorm:"type:numeric(12,2);not null"`
	DiscountAmount    decimal.Decimal   `json:"discount_amount" gorm:"type:numeric(12,2);not null;default:0"`
	TotalAmount       decimal.Decimal   `json:"total_amount" gorm:"type:numeric(12,2);not null"`
	CouponCode        *string           `json:"coupon_code" gorm:"type:varchar(64)"`
	Currency          string            `json:"currency" gorm:"type:varchar(8);not null"`
	Status            Status            `json:"status" gorm:"type:varchar(16);not null;index"`
	ProcessorOrderID  *string           `json:"processor_order_id" gorm:"type:varchar(64);uniqueIndex:ux_orders_processor_order_id"`
	PaymentID         *string           `json:"payment_id" gorm:"type:varchar(64)"`
	PaymentMethod     *string           `json:"payment_method" gorm:"type:varchar(32)"`
	RefundID          *string           `json:"refund_id" gorm:"type:varchar(64)"`
	PaidAt            *time.Time        `json:"paid_at"`
	RefundedAt        *time.Time        `json:"refunded_at"`
	CreatedAt         time.Time         `json:"created_at" gorm:"not null;index"`
	UpdatedAt         time.Time         `json:"updated_at" gorm:"not null"`
}

func (Order) TableName() string { return "orders" }

func (o Order) CustomerName() string {
	return strings.TrimSpace(o.CustomerFirstName + " " + o.CustomerLastName)
}

func (o Order) OwnedBy(userID snowflake.ID) bool {
	return o.UserID != nil && *o.UserID == userID
}

// OrderItem snapshots the note title and price at checkout.
type OrderItem struct {
	ID        snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrderID   snowflake.ID    `json:"order_id" gorm:"not null;uniqueIndex:ux_order_items_order_note,priority:1"`
	NoteID    snowflake.ID    `json:"note_id" gorm:"not null;uniqueIndex:ux_order_items_order_note,priority:2;index"`
	Title     string          `json:"title" gorm:"type:text;not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null"`
}

func (OrderItem) TableName() string { return "order_items" }

// PaymentUpdate carries the processor data stored on the paid transition.
type PaymentUpdate struct {
	PaymentID     string
	PaymentMethod string
	// Source names the path that observed the payment (verify, webhook).
	Source string
}

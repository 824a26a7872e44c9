package domain

import (
	"context"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
)

type Service interface {
	// CreateIntent returns the processor order of a pending order, creating
	// it on first use.
	CreateIntent(ctx context.Context, orderID string) (*Intent, error)
	VerifyPayment(ctx context.Context, req VerifyRequest) (*VerifyResponse, error)
	VerifySignature(req VerifyRequest) bool
	Refund(ctx context.Context, req RefundOrderRequest) (*RefundResponse, error)
}

type WebhookService interface {
	Ingest(ctx context.Context, provider string, payload []byte, headers http.Header) error
}

type Intent struct {
	ProcessorOrderID string        `json:"razorpay_order_id"`
	OrderID          string        `json:"order_id"`
	Amount           int64         `json:"amount"`
	Currency         string        `json:"currency"`
	Key              string        `json:"key"`
	Customer         *IntentPerson `json:"customer,omitempty"`
}

type IntentPerson struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type VerifyRequest struct {
	ProcessorOrderID string `json:"razorpay_order_id"`
	PaymentID        string `json:"razorpay_payment_id"`
	Signature        string `json:"razorpay_signature"`
}

type VerifyResponse struct {
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	PaymentID string `json:"payment_id"`
}

type RefundOrderRequest struct {
	OrderID string           `json:"order_id"`
	Amount  *decimal.Decimal `json:"amount"`
	Reason  string           `json:"reason"`
}

type RefundResponse struct {
	OrderID  string          `json:"order_id"`
	RefundID string          `json:"refund_id"`
	Amount   decimal.Decimal `json:"amount"`
	Status   string          `json:"status"`
}

var (
	ErrInvalidProvider    = errors.New("invalid_provider")
	ErrProviderNotFound   = errors.New("provider_not_found")
	ErrInvalidConfig      = errors.New("invalid_config")
	ErrInvalidSignature   = errors.New("invalid_signature")
	ErrInvalidPayload     = errors.New("invalid_payload")
	ErrInvalidEvent       = errors.New("invalid_event")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrPaymentNotCaptured = errors.New("payment_not_captured")
	ErrOrderNotPending    = errors.New("order_not_pending")
	ErrOrderNotPaid       = errors.New("order_not_paid")
	ErrMissingPaymentID   = errors.New("missing_payment_id")
	ErrNotConfigured      = errors.New("payment_not_configured")
)

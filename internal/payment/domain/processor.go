package domain

import (
	"context"
	"fmt"
)

// Processor is the payment processor's order, payment and refund API.
// Amounts are in the currency's minor unit.
type Processor interface {
	KeyID() string
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*ProcessorOrder, error)
	FetchPayment(ctx context.Context, paymentID string) (*ProcessorPayment, error)
	Refund(ctx context.Context, paymentID string, req RefundRequest) (*ProcessorRefund, error)
}

type CreateOrderRequest struct {
	Amount         int64
	Currency       string
	Receipt        string
	Notes          map[string]string
	PaymentCapture bool
}

type ProcessorOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type ProcessorPayment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
	Method   string `json:"method"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type RefundRequest struct {
	Amount int64
	Notes  map[string]string
}

type ProcessorRefund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// UpstreamError reports a failed processor call. Description is the
// processor's own message and is safe to show to an admin.
type UpstreamError struct {
	Op          string
	StatusCode  int
	Code        string
	Description string
	Err         error
}

func (e *UpstreamError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Description)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: upstream status %d", e.Op, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

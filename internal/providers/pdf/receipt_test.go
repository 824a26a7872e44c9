package pdf

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

func TestGenerateReceipt(t *testing.T) {
	p := New(Store{Name: "notemart", Email: "help@notemart.test"})
	r, err := p.GenerateReceipt(context.Background(), ReceiptData{
		OrderID:       "ORD-01J0000000000000000000000",
		IssueDate:     "2026-03-01",
		DatePaid:      "2026-03-01",
		PaymentID:     "pay_123",
		PaymentMethod: "upi",
		CustomerName:  "Asha Rao",
		CustomerEmail: "asha@example.com",
		Items: []ReceiptItem{
			{Description: "Organic Chemistry", Amount: "INR 9.99"},
			{Description: "Linear Algebra", Amount: "INR 14.99"},
		},
		Subtotal:   "INR 24.98",
		Discount:   "INR 2.50",
		CouponCode: "SAVE10",
		Total:      "INR 22.48",
	})
	if err != nil {
		t.Fatalf("generate receipt: %v", err)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read receipt: %v", err)
	}
	if !bytes.HasPrefix(body, []byte("%PDF")) {
		t.Fatalf("expected a PDF document, got %q", body[:min(len(body), 8)])
	}
}

func TestGenerateReceiptRequiresItems(t *testing.T) {
	_, err := New(Store{}).GenerateReceipt(context.Background(), ReceiptData{OrderID: "ORD-1"})
	if !errors.Is(err, ErrEmptyReceipt) {
		t.Fatalf("expected ErrEmptyReceipt, got %v", err)
	}
}

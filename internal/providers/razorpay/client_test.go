package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	paymentdomain "github.com/smallbiznis/notemart/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{KeyID: "rzp_test", KeySecret: "secret", BaseURL: srv.URL}, nil)
}

func TestCreateOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 2498, body["amount"])
		assert.Equal(t, "INR", body["currency"])
		assert.Equal(t, "ORD-1", body["receipt"])
		assert.EqualValues(t, 1, body["payment_capture"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "order_abc", "amount": 2498, "currency": "INR", "receipt": "ORD-1", "status": "created",
		})
	})

	order, err := client.CreateOrder(context.Background(), paymentdomain.CreateOrderRequest{
		Amount:         2498,
		Currency:       "inr",
		Receipt:        "ORD-1",
		Notes:          map[string]string{"order_id": "ORD-1"},
		PaymentCapture: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, int64(2498), order.Amount)
}

func TestFetchPayment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/pay_1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "pay_1", "order_id": "order_abc", "status": "captured", "method": "card", "amount": 100,
		})
	})

	payment, err := client.FetchPayment(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Equal(t, "captured", payment.Status)
	assert.Equal(t, "order_abc", payment.OrderID)
}

func TestRefundCarriesProcessorDescription(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/pay_1/refund", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The refund amount provided is greater than amount captured"}}`))
	})

	_, err := client.Refund(context.Background(), "pay_1", paymentdomain.RefundRequest{Amount: 99999})
	require.Error(t, err)

	var upstream *paymentdomain.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusBadRequest, upstream.StatusCode)
	assert.Equal(t, "BAD_REQUEST_ERROR", upstream.Code)
	assert.Contains(t, upstream.Error(), "greater than amount captured")
}

func TestUnconfiguredClient(t *testing.T) {
	client := New(Config{}, nil)
	_, err := client.CreateOrder(context.Background(), paymentdomain.CreateOrderRequest{Amount: 1})
	assert.ErrorIs(t, err, paymentdomain.ErrNotConfigured)
}

func TestTransportFailureIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := New(Config{KeyID: "k", KeySecret: "s", BaseURL: srv.URL}, nil)
	_, err := client.FetchPayment(context.Background(), "pay_1")
	var upstream *paymentdomain.UpstreamError
	assert.True(t, errors.As(err, &upstream))
}

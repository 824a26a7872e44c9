package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/notemart/internal/config"
	obsmetrics "github.com/smallbiznis/notemart/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/notemart/internal/order/domain"
	paymentdomain "github.com/smallbiznis/notemart/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	providerName    = "razorpay"
	capturedStatus  = "captured"
	minorUnitFactor = 100
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Cfg        config.Config
	OrderSvc   orderdomain.Service
	Processor  paymentdomain.Processor
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log           *zap.Logger
	orderSvc      orderdomain.Service
	processor     paymentdomain.Processor
	keySecret     string
	verifyCapture bool
	obsMetrics    *obsmetrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		log:           p.Log.Named("payment.service"),
		orderSvc:      p.OrderSvc,
		processor:     p.Processor,
		keySecret:     strings.TrimSpace(p.Cfg.Payment.KeySecret),
		verifyCapture: p.Cfg.Payment.VerifyCapture,
		obsMetrics:    p.ObsMetrics,
	}
}

func (s *Service) CreateIntent(ctx context.Context, orderID string) (*paymentdomain.Intent, error) {
	order, err := s.orderSvc.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != orderdomain.StatusPending {
		return nil, paymentdomain.ErrOrderNotPending
	}
	if order.ProcessorOrderID != nil {
		return s.intent(order), nil
	}

	amount, err := toMinor(order.TotalAmount)
	if err != nil {
		return nil, err
	}
	created, err := s.processor.CreateOrder(ctx, paymentdomain.CreateOrderRequest{
		Amount:         amount,
		Currency:       order.Currency,
		Receipt:        order.OrderID,
		Notes:          map[string]string{"order_id": order.OrderID},
		PaymentCapture: true,
	})
	if err != nil {
		s.log.Error("create processor order failed",
			zap.String("order_id", order.OrderID),
			zap.Error(err),
		)
		return nil, err
	}

	order, err = s.orderSvc.AttachProcessorOrder(ctx, order, created.ID)
	if err != nil {
		return nil, err
	}
	if order.ProcessorOrderID == nil {
		return nil, orderdomain.ErrNotFound
	}
	if *order.ProcessorOrderID != created.ID {
		s.log.Warn("processor order attached concurrently",
			zap.String("order_id", order.OrderID),
			zap.String("discarded", created.ID),
		)
	}

	s.log.Info("payment intent created",
		zap.String("order_id", order.OrderID),
		zap.String("processor_order_id", *order.ProcessorOrderID),
	)
	return s.intent(order), nil
}

func (s *Service) intent(order *orderdomain.Order) *paymentdomain.Intent {
	amount, _ := toMinor(order.TotalAmount)
	return &paymentdomain.Intent{
		ProcessorOrderID: *order.ProcessorOrderID,
		OrderID:          order.OrderID,
		Amount:           amount,
		Currency:         order.Currency,
		Key:              s.processor.KeyID(),
		Customer: &paymentdomain.IntentPerson{
			Name:  order.CustomerName(),
			Email: order.CustomerEmail,
		},
	}
}

// VerifySignature checks hex(HMAC-SHA256(key_secret, order_id|payment_id)).
// It has no side effects.
func (s *Service) VerifySignature(req paymentdomain.VerifyRequest) bool {
	if s.keySecret == "" {
		return false
	}
	processorOrderID := strings.TrimSpace(req.ProcessorOrderID)
	paymentID := strings.TrimSpace(req.PaymentID)
	signature := strings.ToLower(strings.TrimSpace(req.Signature))
	if processorOrderID == "" || paymentID == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(s.keySecret))
	_, _ = mac.Write([]byte(processorOrderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

func (s *Service) VerifyPayment(ctx context.Context, req paymentdomain.VerifyRequest) (*paymentdomain.VerifyResponse, error) {
	req.ProcessorOrderID = strings.TrimSpace(req.ProcessorOrderID)
	req.PaymentID = strings.TrimSpace(req.PaymentID)
	if req.ProcessorOrderID == "" || req.PaymentID == "" || strings.TrimSpace(req.Signature) == "" {
		return nil, paymentdomain.ErrInvalidRequest
	}
	if s.keySecret == "" {
		return nil, paymentdomain.ErrNotConfigured
	}
	if !s.VerifySignature(req) {
		s.log.Warn("payment signature mismatch", zap.String("processor_order_id", req.ProcessorOrderID))
		return nil, paymentdomain.ErrInvalidSignature
	}

	order, err := s.orderSvc.GetByProcessorOrderID(ctx, req.ProcessorOrderID)
	if err != nil {
		return nil, err
	}
	if order.Status == orderdomain.StatusPaid || order.Status == orderdomain.StatusRefunded {
		return verifyResponse(order), nil
	}

	update := orderdomain.PaymentUpdate{PaymentID: req.PaymentID, Source: "verify"}
	if s.verifyCapture {
		payment, err := s.processor.FetchPayment(ctx, req.PaymentID)
		if err != nil {
			return nil, err
		}
		if payment.Status != capturedStatus || payment.OrderID != req.ProcessorOrderID {
			s.log.Warn("payment not captured",
				zap.String("order_id", order.OrderID),
				zap.String("payment_status", payment.Status),
			)
			return nil, paymentdomain.ErrPaymentNotCaptured
		}
		update.PaymentMethod = payment.Method
	}

	updated, _, err := s.orderSvc.MarkPaid(ctx, order.ID, update)
	if err != nil {
		return nil, err
	}
	s.obsMetrics.RecordPaymentEvent(ctx, providerName, "verify")
	return verifyResponse(updated), nil
}

func verifyResponse(order *orderdomain.Order) *paymentdomain.VerifyResponse {
	resp := &paymentdomain.VerifyResponse{
		OrderID: order.OrderID,
		Status:  string(order.Status),
	}
	if order.PaymentID != nil {
		resp.PaymentID = *order.PaymentID
	}
	return resp
}

// Refund asks the processor first. The order only becomes refunded once
// the processor accepted the refund.
func (s *Service) Refund(ctx context.Context, req paymentdomain.RefundOrderRequest) (*paymentdomain.RefundResponse, error) {
	order, err := s.orderSvc.Get(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != orderdomain.StatusPaid {
		return nil, paymentdomain.ErrOrderNotPaid
	}
	if order.PaymentID == nil || strings.TrimSpace(*order.PaymentID) == "" {
		return nil, paymentdomain.ErrMissingPaymentID
	}

	amount := order.TotalAmount
	if req.Amount != nil {
		amount = *req.Amount
	}
	if !amount.IsPositive() || amount.GreaterThan(order.TotalAmount) || !amount.Equal(amount.Round(2)) {
		return nil, paymentdomain.ErrInvalidAmount
	}
	minor, err := toMinor(amount)
	if err != nil {
		return nil, err
	}

	notes := map[string]string{"order_id": order.OrderID}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		notes["reason"] = reason
	}
	refund, err := s.processor.Refund(ctx, *order.PaymentID, paymentdomain.RefundRequest{Amount: minor, Notes: notes})
	if err != nil {
		s.obsMetrics.RecordRefund(ctx, "upstream_error")
		s.log.Error("processor refund failed", zap.String("order_id", order.OrderID), zap.Error(err))
		return nil, err
	}

	updated, _, err := s.orderSvc.MarkRefunded(ctx, order.ID, refund.ID)
	if err != nil {
		// The processor has refunded; the row needs manual reconciliation.
		s.log.Error("refund recorded upstream but order not updated",
			zap.String("order_id", order.OrderID),
			zap.String("refund_id", refund.ID),
			zap.Error(err),
		)
		s.obsMetrics.RecordRefund(ctx, "reconcile")
		return nil, err
	}

	s.obsMetrics.RecordRefund(ctx, "succeeded")
	s.log.Info("order refunded",
		zap.String("order_id", updated.OrderID),
		zap.String("refund_id", refund.ID),
		zap.String("amount", amount.StringFixed(2)),
	)
	return &paymentdomain.RefundResponse{
		OrderID:  updated.OrderID,
		RefundID: refund.ID,
		Amount:   amount,
		Status:   string(updated.Status),
	}, nil
}

func toMinor(amount decimal.Decimal) (int64, error) {
	minor := amount.Mul(decimal.NewFromInt(minorUnitFactor)).Round(0)
	if !minor.IsPositive() {
		return 0, paymentdomain.ErrInvalidAmount
	}
	return minor.IntPart(), nil
}

package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	cartdomain "github.com/smallbiznis/notemart/internal/cart/domain"
	cartrepo "github.com/smallbiznis/notemart/internal/cart/repository"
	cartservice "github.com/smallbiznis/notemart/internal/cart/service"
	catalogdomain "github.com/smallbiznis/notemart/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/notemart/internal/catalog/repository"
	"github.com/smallbiznis/notemart/internal/config"
	coupondomain "github.com/smallbiznis/notemart/internal/coupon/domain"
	couponrepo "github.com/smallbiznis/notemart/internal/coupon/repository"
	couponservice "github.com/smallbiznis/notemart/internal/coupon/service"
	orderdomain "github.com/smallbiznis/notemart/internal/order/domain"
	orderrepo "github.com/smallbiznis/notemart/internal/order/repository"
	orderservice "github.com/smallbiznis/notemart/internal/order/service"
	paymentdomain "github.com/smallbiznis/notemart/internal/payment/domain"
	"github.com/smallbiznis/notemart/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const keySecret = "rzp_secret"

type fakeProcessor struct {
	mu          sync.Mutex
	createCalls int
	refundCalls int
	createErr   error
	refundErr   error
	payment     *paymentdomain.ProcessorPayment
	lastRefund  paymentdomain.RefundRequest
}

func (f *fakeProcessor) KeyID() string { return "rzp_test_key" }

func (f *fakeProcessor) CreateOrder(ctx context.Context, req paymentdomain.CreateOrderRequest) (*paymentdomain.ProcessorOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &paymentdomain.ProcessorOrder{ID: "order_" + req.Receipt, Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt}, nil
}

func (f *fakeProcessor) FetchPayment(ctx context.Context, paymentID string) (*paymentdomain.ProcessorPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.payment == nil {
		return nil, &paymentdomain.UpstreamError{Op: "fetch_payment", StatusCode: 404, Description: "payment not found"}
	}
	return f.payment, nil
}

func (f *fakeProcessor) Refund(ctx context.Context, paymentID string, req paymentdomain.RefundRequest) (*paymentdomain.ProcessorRefund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refundCalls++
	f.lastRefund = req
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	return &paymentdomain.ProcessorRefund{ID: "rfnd_1", PaymentID: paymentID, Amount: req.Amount, Status: "processed"}, nil
}

type fixture struct {
	svc       paymentdomain.Service
	orders    orderdomain.Service
	processor *fakeProcessor
	db        *gorm.DB
	node      *snowflake.Node
}

func newFixture(t *testing.T, verifyCapture bool) *fixture {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&catalogdomain.Note{},
		&cartdomain.CartItem{},
		&coupondomain.Coupon{},
		&orderdomain.Order{},
		&orderdomain.OrderItem{},
	))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	log := zap.NewNop()

	cfg := config.Config{}
	cfg.Payment.Currency = "INR"
	cfg.Payment.KeySecret = keySecret
	cfg.Payment.VerifyCapture = verifyCapture

	catalog := catalogrepo.Provide()
	orders := orderservice.New(orderservice.Params{
		DB:          conn,
		Log:         log,
		GenID:       node,
		Cfg:         cfg,
		Repo:        orderrepo.Provide(),
		CatalogRepo: catalog,
		CouponSvc:   couponservice.New(couponservice.Params{DB: conn, Log: log, GenID: node, Repo: couponrepo.Provide()}),
		CartSvc:     cartservice.New(cartservice.Params{DB: conn, Log: log, GenID: node, Repo: cartrepo.Provide(), CatalogRepo: catalog}),
		Storefront:  config.NewStaticStorefront(config.DefaultStorefrontConfig()),
	})

	processor := &fakeProcessor{}
	svc := NewService(Params{Log: log, Cfg: cfg, OrderSvc: orders, Processor: processor})
	return &fixture{svc: svc, orders: orders, processor: processor, db: conn, node: node}
}

func (f *fixture) order(t *testing.T, prices ...string) *orderdomain.Order {
	t.Helper()
	now := time.Now().UTC()
	items := make([]orderdomain.ItemRequest, 0, len(prices))
	for _, price := range prices {
		note := catalogdomain.Note{
			ID:        f.node.Generate(),
			Title:     "Note",
			Subject:   "Physics",
			Price:     decimal.RequireFromString(price),
			Status:    catalogdomain.StatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		require.NoError(t, f.db.Create(&note).Error)
		items = append(items, orderdomain.ItemRequest{NoteID: json.Number(note.ID.String())})
	}
	resp, err := f.orders.Create(context.Background(), orderdomain.CreateRequest{
		Items:    items,
		Customer: orderdomain.CustomerInfo{Email: "ravi@example.com", FirstName: "Ravi", LastName: "K"},
	})
	require.NoError(t, err)
	order, err := f.orders.Get(context.Background(), resp.OrderID)
	require.NoError(t, err)
	return order
}

func sign(processorOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(keySecret))
	_, _ = mac.Write([]byte(processorOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestCreateIntentIsRetrySafe(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	order := f.order(t, "9.99", "14.99")

	intent, err := f.svc.CreateIntent(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, int64(2498), intent.Amount)
	assert.Equal(t, "INR", intent.Currency)
	assert.Equal(t, "rzp_test_key", intent.Key)
	assert.Equal(t, "Ravi K", intent.Customer.Name)
	assert.Equal(t, "order_"+order.OrderID, intent.ProcessorOrderID)

	again, err := f.svc.CreateIntent(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, intent.ProcessorOrderID, again.ProcessorOrderID)
	assert.Equal(t, 1, f.processor.createCalls)
}

func TestCreateIntentUpstreamFailureLeavesOrderPending(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	order := f.order(t, "10")
	f.processor.createErr = &paymentdomain.UpstreamError{Op: "create_order", StatusCode: 500, Description: "server down"}

	_, err := f.svc.CreateIntent(ctx, order.OrderID)
	var upstream *paymentdomain.UpstreamError
	require.True(t, errors.As(err, &upstream))

	reloaded, err := f.orders.Get(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusPending, reloaded.Status)
	assert.Nil(t, reloaded.ProcessorOrderID)

	f.processor.createErr = nil
	intent, err := f.svc.CreateIntent(ctx, order.OrderID)
	require.NoError(t, err)
	assert.NotEmpty(t, intent.ProcessorOrderID)
}

func TestVerifySignature(t *testing.T) {
	f := newFixture(t, false)
	req := paymentdomain.VerifyRequest{ProcessorOrderID: "order_1", PaymentID: "pay_1", Signature: sign("order_1", "pay_1")}
	assert.True(t, f.svc.VerifySignature(req))

	req.PaymentID = "pay_2"
	assert.False(t, f.svc.VerifySignature(req))
	assert.False(t, f.svc.VerifySignature(paymentdomain.VerifyRequest{}))
}

func TestVerifyPaymentRejectsBadSignature(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	order := f.order(t, "10")
	intent, err := f.svc.CreateIntent(ctx, order.OrderID)
	require.NoError(t, err)

	_, err = f.svc.VerifyPayment(ctx, paymentdomain.VerifyRequest{
		ProcessorOrderID: intent.ProcessorOrderID,
		PaymentID:        "pay_1",
		Signature:        sign(intent.ProcessorOrderID, "pay_other"),
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)

	reloaded, err := f.orders.Get(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusPending, reloaded.Status)
}

func TestVerifyPaymentMarksPaidOnce(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	order := f.order(t, "10")
	intent, err := f.svc.CreateIntent(ctx, order.OrderID)
	require.NoError(t, err)

	req := paymentdomain.VerifyRequest{
		ProcessorOrderID: intent.ProcessorOrderID,
		PaymentID:        "pay_1",
		Signature:        sign(intent.ProcessorOrderID, "pay_1"),
	}

	f.processor.payment = &paymentdomain.ProcessorPayment{ID: "pay_1", OrderID: intent.ProcessorOrderID, Status: "authorized"}
	_, err = f.svc.VerifyPayment(ctx, req)
	assert.ErrorIs(t, err, paymentdomain.ErrPaymentNotCaptured)

	f.processor.payment = &paymentdomain.ProcessorPayment{ID: "pay_1", OrderID: intent.ProcessorOrderID, Status: "captured", Method: "card"}
	resp, err := f.svc.VerifyPayment(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "paid", resp.Status)
	assert.Equal(t, "pay_1", resp.PaymentID)

	again, err := f.svc.VerifyPayment(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "paid", again.Status)

	var count int64
	require.NoError(t, f.db.Model(&orderdomain.OrderItem{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRefund(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	order := f.order(t, "20")

	_, err := f.svc.Refund(ctx, paymentdomain.RefundOrderRequest{OrderID: order.OrderID})
	assert.ErrorIs(t, err, paymentdomain.ErrOrderNotPaid)

	_, _, err = f.orders.MarkPaid(ctx, order.ID, orderdomain.PaymentUpdate{PaymentID: "pay_9", Source: "verify"})
	require.NoError(t, err)

	tooMuch := decimal.NewFromInt(21)
	_, err = f.svc.Refund(ctx, paymentdomain.RefundOrderRequest{OrderID: order.OrderID, Amount: &tooMuch})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidAmount)
	zero := decimal.Zero
	_, err = f.svc.Refund(ctx, paymentdomain.RefundOrderRequest{OrderID: order.OrderID, Amount: &zero})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidAmount)

	f.processor.refundErr = &paymentdomain.UpstreamError{Op: "refund", StatusCode: 400, Description: "payment already refunded"}
	_, err = f.svc.Refund(ctx, paymentdomain.RefundOrderRequest{OrderID: order.OrderID, Reason: "duplicate"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payment already refunded")
	reloaded, err := f.orders.Get(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusPaid, reloaded.Status)

	f.processor.refundErr = nil
	resp, err := f.svc.Refund(ctx, paymentdomain.RefundOrderRequest{OrderID: order.OrderID, Reason: "duplicate"})
	require.NoError(t, err)
	assert.Equal(t, "refunded", resp.Status)
	assert.Equal(t, "rfnd_1", resp.RefundID)
	assert.Equal(t, int64(2000), f.processor.lastRefund.Amount)
	assert.Equal(t, "duplicate", f.processor.lastRefund.Notes["reason"])

	_, err = f.svc.Refund(ctx, paymentdomain.RefundOrderRequest{OrderID: order.OrderID})
	assert.ErrorIs(t, err, paymentdomain.ErrOrderNotPaid)
}

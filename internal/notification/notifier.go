package notification

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/notemart/internal/clock"
	"github.com/smallbiznis/notemart/internal/config"
	contactdomain "github.com/smallbiznis/notemart/internal/contact/domain"
	"github.com/smallbiznis/notemart/internal/events"
	orderdomain "github.com/smallbiznis/notemart/internal/order/domain"
	"github.com/smallbiznis/notemart/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const deliveryTimeout = 30 * time.Second

type Params struct {
	fx.In

	Log       *zap.Logger
	Cfg       config.Config
	Email     email.Provider
	Publisher events.Publisher
	Clock     clock.Clock `optional:"true"`
}

// Notifier fans order, account and contact events out to email and the
// order event topic. Deliveries run inline with the request unless async
// mode is enabled, in which case they run in the background until Wait
// starts draining them.
type Notifier struct {
	log       *zap.Logger
	email     email.Provider
	publisher events.Publisher
	clock     clock.Clock
	baseURL   string
	support   string
	async     bool

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

func New(p Params) *Notifier {
	return &Notifier{
		log:       p.Log.Named("notification"),
		email:     p.Email,
		publisher: p.Publisher,
		clock:     clock.Or(p.Clock),
		baseURL:   strings.TrimRight(strings.TrimSpace(p.Cfg.PublicBaseURL), "/"),
		support:   strings.TrimSpace(p.Cfg.Email.SupportAddress),
		async:     p.Cfg.Notification.Async,
	}
}

func (n *Notifier) OrderCreated(ctx context.Context, order *orderdomain.Order, items []orderdomain.OrderItem) {
	event := n.orderEvent(events.TypeOrderCreated, order)
	event.Data["items"] = eventItems(items)
	n.dispatch(ctx, func(ctx context.Context) {
		n.publish(ctx, event)
	})
}

func (n *Notifier) OrderPaid(ctx context.Context, order *orderdomain.Order, items []orderdomain.OrderItem) {
	event := n.orderEvent(events.TypeOrderPaid, order)
	event.Data["items"] = eventItems(items)
	if order.PaymentID != nil {
		event.Data["payment_id"] = *order.PaymentID
	}

	lines := make([]map[string]any, 0, len(items))
	for _, item := range items {
		lines = append(lines, map[string]any{
			"title": item.Title,
			"price": money(order.Currency, item.Price),
		})
	}
	data := map[string]any{
		"name":        displayName(order.CustomerName(), order.CustomerEmail),
		"order_id":    order.OrderID,
		"items":       lines,
		"total":       money(order.Currency, order.TotalAmount),
		"library_url": n.baseURL + "/my-notes",
	}
	to := order.CustomerEmail

	n.dispatch(ctx, func(ctx context.Context) {
		n.publish(ctx, event)
		n.sendTemplate(ctx, to, "order_paid", data)
	})
}

func (n *Notifier) OrderRefunded(ctx context.Context, order *orderdomain.Order) {
	event := n.orderEvent(events.TypeOrderRefunded, order)
	if order.RefundID != nil {
		event.Data["refund_id"] = *order.RefundID
	}
	data := map[string]any{
		"name":     displayName(order.CustomerName(), order.CustomerEmail),
		"order_id": order.OrderID,
	}
	to := order.CustomerEmail

	n.dispatch(ctx, func(ctx context.Context) {
		n.publish(ctx, event)
		n.sendTemplate(ctx, to, "order_refunded", data)
	})
}

func (n *Notifier) SendVerificationCode(ctx context.Context, to, name, code string) error {
	return n.email.SendTemplate(ctx, []string{to}, "verification_code", map[string]any{
		"name": displayName(name, to),
		"code": code,
	})
}

func (n *Notifier) SendPasswordReset(ctx context.Context, to, name, link string) error {
	return n.email.SendTemplate(ctx, []string{to}, "password_reset", map[string]any{
		"name": displayName(name, to),
		"link": link,
	})
}

func (n *Notifier) ContactReceived(ctx context.Context, msg *contactdomain.Message) {
	if n.support == "" || msg == nil {
		return
	}
	data := map[string]any{
		"name":    msg.Name,
		"email":   msg.Email,
		"topic":   msg.Subject,
		"message": msg.Message,
	}
	n.dispatch(ctx, func(ctx context.Context) {
		n.sendTemplate(ctx, n.support, "contact_received", data)
	})
}

// Wait blocks until background deliveries finish or ctx is done. Later
// deliveries run inline.
func (n *Notifier) Wait(ctx context.Context) error {
	n.mu.Lock()
	n.closing = true
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) dispatch(ctx context.Context, fn func(ctx context.Context)) {
	base := context.WithoutCancel(ctx)

	n.mu.Lock()
	if !n.async || n.closing {
		n.mu.Unlock()
		deliver(base, fn)
		return
	}
	n.wg.Add(1)
	n.mu.Unlock()

	go func() {
		defer n.wg.Done()
		deliver(base, fn)
	}()
}

func deliver(ctx context.Context, fn func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()
	fn(ctx)
}

func (n *Notifier) publish(ctx context.Context, event events.Event) {
	if n.publisher == nil {
		return
	}
	if err := n.publisher.Publish(ctx, event); err != nil {
		n.log.Warn("order event not published",
			zap.String("type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.Error(err))
	}
}

func (n *Notifier) sendTemplate(ctx context.Context, to, name string, data map[string]any) {
	if strings.TrimSpace(to) == "" {
		return
	}
	if err := n.email.SendTemplate(ctx, []string{to}, name, data); err != nil {
		n.log.Warn("email not sent", zap.String("template", name), zap.Error(err))
	}
}

func (n *Notifier) orderEvent(eventType string, order *orderdomain.Order) events.Event {
	return events.Event{
		Type:       eventType,
		OrderID:    order.OrderID,
		OccurredAt: n.clock.Now().UTC(),
		Data: map[string]any{
			"status":       string(order.Status),
			"currency":     order.Currency,
			"total_amount": order.TotalAmount.StringFixed(2),
		},
	}
}

func eventItems(items []orderdomain.OrderItem) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, map[string]any{
			"note_id": item.NoteID.String(),
			"title":   item.Title,
			"price":   item.Price.StringFixed(2),
		})
	}
	return out
}

func displayName(name, fallback string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	if at := strings.IndexByte(fallback, '@'); at > 0 {
		return fallback[:at]
	}
	return "there"
}

func money(currency string, amount decimal.Decimal) string {
	return currency + " " + amount.StringFixed(2)
}

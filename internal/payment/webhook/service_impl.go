package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/notemart/internal/clock"
	"github.com/smallbiznis/notemart/internal/config"
	obsmetrics "github.com/smallbiznis/notemart/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/notemart/internal/order/domain"
	"github.com/smallbiznis/notemart/internal/payment/adapters"
	paymentdomain "github.com/smallbiznis/notemart/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Cfg        config.Config
	Repo       paymentdomain.Repository
	OrderSvc   orderdomain.Service
	Adapters   *adapters.Registry
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
	Clock      clock.Clock         `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       paymentdomain.Repository
	orderSvc   orderdomain.Service
	adapters   *adapters.Registry
	secrets    map[string]map[string]any
	obsMetrics *obsmetrics.Metrics
	clock      clock.Clock
}

func NewService(p Params) paymentdomain.WebhookService {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payment.webhook"),
		genID:    p.GenID,
		repo:     p.Repo,
		orderSvc: p.OrderSvc,
		adapters: p.Adapters,
		secrets: map[string]map[string]any{
			"razorpay": {"webhook_secret": p.Cfg.Payment.WebhookSecret},
		},
		obsMetrics: p.ObsMetrics,
		clock:      clock.Or(p.Clock),
	}
}

// Ingest authenticates, records and applies one webhook delivery. A
// redelivered event that was already applied is acknowledged without
// touching the order again.
func (s *Service) Ingest(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return paymentdomain.ErrInvalidProvider
	}
	if s.adapters == nil || !s.adapters.ProviderExists(provider) {
		return paymentdomain.ErrProviderNotFound
	}

	adapter, err := s.adapters.NewAdapter(provider, paymentdomain.AdapterConfig{Config: s.secrets[provider]})
	if err != nil {
		if errors.Is(err, paymentdomain.ErrInvalidConfig) {
			s.log.Error("webhook secret not configured", zap.String("provider", provider))
			return paymentdomain.ErrNotConfigured
		}
		return err
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.log.Warn("webhook signature rejected", zap.String("provider", provider))
		return err
	}
	if !json.Valid(payload) {
		return paymentdomain.ErrInvalidPayload
	}

	event, err := adapter.Parse(ctx, payload, headers)
	if err != nil {
		return err
	}
	event.Provider = provider
	return s.process(ctx, event, payload)
}

func (s *Service) process(ctx context.Context, event *paymentdomain.PaymentEvent, payload []byte) error {
	now := s.clock.Now()
	received := paymentdomain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.ProviderEventType,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      now,
	}
	if event.ProcessorOrderID != "" {
		pid := event.ProcessorOrderID
		received.ProcessorOrderID = &pid
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		return err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, event.Provider, event.ProviderEventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			s.log.Debug("webhook event already processed",
				zap.String("provider", event.Provider),
				zap.String("event_id", event.ProviderEventID),
			)
			return nil
		}
	}

	if err := s.apply(ctx, event); err != nil {
		return err
	}
	if err := s.repo.MarkProcessed(ctx, s.db, stored.ID, s.clock.Now()); err != nil {
		return err
	}
	if inserted {
		s.obsMetrics.RecordPaymentEvent(ctx, event.Provider, event.Type)
	}
	return nil
}

func (s *Service) apply(ctx context.Context, event *paymentdomain.PaymentEvent) error {
	if event.Type == paymentdomain.EventTypeIgnored {
		s.log.Info("webhook event acknowledged without action",
			zap.String("provider", event.Provider),
			zap.String("event", event.ProviderEventType),
		)
		return nil
	}

	order, err := s.resolveOrder(ctx, event)
	if err != nil {
		if errors.Is(err, orderdomain.ErrNotFound) {
			s.log.Warn("webhook event for unknown order",
				zap.String("event", event.ProviderEventType),
				zap.String("processor_order_id", event.ProcessorOrderID),
				zap.String("order_ref", event.OrderRef),
			)
			return nil
		}
		return err
	}

	switch event.Type {
	case paymentdomain.EventTypePaymentCaptured:
		_, transitioned, err := s.orderSvc.MarkPaid(ctx, order.ID, orderdomain.PaymentUpdate{
			PaymentID:     event.PaymentID,
			PaymentMethod: event.PaymentMethod,
			Source:        "webhook",
		})
		if err != nil {
			return err
		}
		if !transitioned {
			s.log.Debug("order already settled", zap.String("order_id", order.OrderID))
		}
	case paymentdomain.EventTypePaymentFailed:
		if _, _, err := s.orderSvc.MarkFailed(ctx, order.ID, "webhook"); err != nil {
			return err
		}
	default:
		return paymentdomain.ErrInvalidEvent
	}
	return nil
}

// resolveOrder prefers the merchant order id from the payment notes and
// falls back to the processor order id. A note that points at an order
// bound to a different processor order is not trusted.
func (s *Service) resolveOrder(ctx context.Context, event *paymentdomain.PaymentEvent) (*orderdomain.Order, error) {
	if event.OrderRef != "" {
		order, err := s.orderSvc.Get(ctx, event.OrderRef)
		if err == nil {
			if event.ProcessorOrderID == "" || order.ProcessorOrderID == nil || *order.ProcessorOrderID == event.ProcessorOrderID {
				return order, nil
			}
		} else if !errors.Is(err, orderdomain.ErrNotFound) {
			return nil, err
		}
	}
	if event.ProcessorOrderID == "" {
		return nil, orderdomain.ErrNotFound
	}
	return s.orderSvc.GetByProcessorOrderID(ctx, event.ProcessorOrderID)
}

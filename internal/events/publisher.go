package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	TypeOrderCreated  = "order.created"
	TypeOrderPaid     = "order.paid"
	TypeOrderRefunded = "order.refunded"
)

// Event is the JSON envelope written to the order topic. OrderID doubles as
// the message key so one order's events stay in one partition.
type Event struct {
	Type       string         `json:"type"`
	OrderID    string         `json:"order_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer messageWriter
	topic  string
	log    *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) Publisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Logger:                 zap.NewStdLog(log.With(zap.String("kafka_component", "producer"))),
		ErrorLogger:            zap.NewStdLog(log.With(zap.String("kafka_component", "producer"))),
	}
	log.Info("kafka producer initialized", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return newKafkaPublisher(writer, topic, log)
}

func newKafkaPublisher(writer messageWriter, topic string, log *zap.Logger) *kafkaPublisher {
	return &kafkaPublisher{writer: writer, topic: topic, log: log}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("failed to produce event",
			zap.String("topic", p.topic),
			zap.String("type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.Error(err))
		return fmt.Errorf("produce event: %w", err)
	}
	p.log.Debug("produced event", zap.String("type", event.Type), zap.String("order_id", event.OrderID))
	return nil
}

func (p *kafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	p.log.Info("kafka producer closed")
	return nil
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct {
	log *zap.Logger
}

func NewNoop(log *zap.Logger) *NoopPublisher {
	return &NoopPublisher{log: log}
}

func (p *NoopPublisher) Publish(ctx context.Context, event Event) error {
	p.log.Debug("event dropped", zap.String("type", event.Type), zap.String("order_id", event.OrderID))
	return nil
}

func (p *NoopPublisher) Close() error { return nil }

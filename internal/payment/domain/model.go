package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EventRecord is a received webhook event. (provider, provider_event_id) is
// unique so a redelivered event is stored once.
type EventRecord struct {
	ID               snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider         string         `json:"provider" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event"`
	ProviderEventID  string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event"`
	EventType        string         `json:"event_type" gorm:"type:text;not null"`
	ProcessorOrderID *string        `json:"processor_order_id,omitempty" gorm:"type:text;index"`
	Payload          datatypes.JSON `json:"payload" gorm:"not null"`
	ReceivedAt       time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt      *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

const (
	EventTypePaymentCaptured = "payment_captured"
	EventTypePaymentFailed   = "payment_failed"
	EventTypeIgnored         = "ignored"
)

// PaymentEvent is the canonical payment event parsed by adapters.
type PaymentEvent struct {
	Provider          string
	ProviderEventID   string
	ProviderEventType string
	Type              string
	ProcessorOrderID  string
	PaymentID         string
	PaymentMethod     string
	PaymentStatus     string
	// OrderRef is the merchant order id echoed back in the payment notes.
	OrderRef   string
	Amount     int64
	Currency   string
	OccurredAt time.Time
	RawPayload []byte
}

package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	paymentdomain "github.com/smallbiznis/notemart/internal/payment/domain"
)

const (
	providerName    = "razorpay"
	signatureHeader = "X-Razorpay-Signature"
	eventIDHeader   = "X-Razorpay-Event-Id"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return providerName
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.PaymentAdapter, error) {
	secret, ok := readString(cfg.Config, "webhook_secret")
	if !ok {
		return nil, paymentdomain.ErrInvalidConfig
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	return &Adapter{webhookSecret: secret}, nil
}

type Adapter struct {
	webhookSecret string
}

// Verify checks the hex HMAC-SHA256 of the raw body.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	signature := strings.TrimSpace(headers.Get(signatureHeader))
	if signature == "" {
		return paymentdomain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

func (a *Adapter) Parse(ctx context.Context, payload []byte, headers http.Header) (*paymentdomain.PaymentEvent, error) {
	var event razorpayEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	eventName := strings.TrimSpace(event.Event)
	if eventName == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	payment := event.Payload.Payment.Entity
	processorOrderID := strings.TrimSpace(payment.OrderID)
	if processorOrderID == "" {
		processorOrderID = strings.TrimSpace(event.Payload.Order.Entity.ID)
	}

	out := &paymentdomain.PaymentEvent{
		Provider:          providerName,
		ProviderEventID:   eventID(headers, eventName, payment.ID, processorOrderID, payload),
		ProviderEventType: eventName,
		ProcessorOrderID:  processorOrderID,
		PaymentID:         strings.TrimSpace(payment.ID),
		PaymentMethod:     strings.TrimSpace(payment.Method),
		PaymentStatus:     strings.TrimSpace(payment.Status),
		OrderRef:          readNote(payment.Notes, "order_id"),
		Amount:            payment.Amount,
		Currency:          strings.ToUpper(strings.TrimSpace(payment.Currency)),
		OccurredAt:        timestamp(event.CreatedAt),
		RawPayload:        payload,
	}

	switch eventName {
	case "payment.captured", "order.paid":
		out.Type = paymentdomain.EventTypePaymentCaptured
		if out.PaymentID == "" || (out.ProcessorOrderID == "" && out.OrderRef == "") {
			return nil, paymentdomain.ErrInvalidEvent
		}
	case "payment.failed":
		out.Type = paymentdomain.EventTypePaymentFailed
		if out.ProcessorOrderID == "" && out.OrderRef == "" {
			return nil, paymentdomain.ErrInvalidEvent
		}
	default:
		out.Type = paymentdomain.EventTypeIgnored
	}
	return out, nil
}

type razorpayEvent struct {
	Event     string          `json:"event"`
	CreatedAt int64           `json:"created_at"`
	Payload   razorpayPayload `json:"payload"`
}

type razorpayPayload struct {
	Payment struct {
		Entity razorpayPayment `json:"entity"`
	} `json:"payment"`
	Order struct {
		Entity struct {
			ID string `json:"id"`
		} `json:"entity"`
	} `json:"order"`
}

type razorpayPayment struct {
	ID       string          `json:"id"`
	OrderID  string          `json:"order_id"`
	Method   string          `json:"method"`
	Status   string          `json:"status"`
	Amount   int64           `json:"amount"`
	Currency string          `json:"currency"`
	Notes    json.RawMessage `json:"notes"`
}

// eventID prefers the delivery id header. Without it the id is derived
// from the event so redeliveries still collapse.
func eventID(headers http.Header, event, paymentID, processorOrderID string, payload []byte) string {
	if id := strings.TrimSpace(headers.Get(eventIDHeader)); id != "" {
		return id
	}
	switch {
	case paymentID != "":
		return event + ":" + paymentID
	case processorOrderID != "":
		return event + ":" + processorOrderID
	}
	sum := sha256.Sum256(payload)
	return event + ":" + hex.EncodeToString(sum[:8])
}

// readNote tolerates notes sent as an object or as an empty array.
func readNote(raw json.RawMessage, key string) string {
	if len(raw) == 0 {
		return ""
	}
	var notes map[string]any
	if err := json.Unmarshal(raw, &notes); err != nil {
		return ""
	}
	value, ok := notes[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func timestamp(value int64) time.Time {
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}

func readString(config map[string]any, key string) (string, bool) {
	value, ok := config[key]
	if !ok {
		return "", false
	}
	switch cast := value.(type) {
	case string:
		return cast, true
	default:
		return "", false
	}
}

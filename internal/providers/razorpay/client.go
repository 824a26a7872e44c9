package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/notemart/internal/config"
	paymentdomain "github.com/smallbiznis/notemart/internal/payment/domain"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.razorpay.com"

type Config struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
}

// Client talks to the Razorpay v1 REST API with basic auth.
type Client struct {
	cfg    Config
	client *http.Client
	log    *zap.Logger
}

func NewFromConfig(cfg config.Config, log *zap.Logger) *Client {
	return New(Config{
		KeyID:     cfg.Payment.KeyID,
		KeySecret: cfg.Payment.KeySecret,
		BaseURL:   cfg.Payment.BaseURL,
		Timeout:   cfg.Payment.Timeout,
	}, log)
}

func New(cfg Config, log *zap.Logger) *Client {
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	cfg.KeySecret = strings.TrimSpace(cfg.KeySecret)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log.Named("razorpay.client"),
	}
}

func (c *Client) KeyID() string {
	return c.cfg.KeyID
}

type createOrderBody struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Receipt        string            `json:"receipt"`
	Notes          map[string]string `json:"notes,omitempty"`
	PaymentCapture int               `json:"payment_capture"`
}

func (c *Client) CreateOrder(ctx context.Context, req paymentdomain.CreateOrderRequest) (*paymentdomain.ProcessorOrder, error) {
	body := createOrderBody{
		Amount:   req.Amount,
		Currency: strings.ToUpper(req.Currency),
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	}
	if req.PaymentCapture {
		body.PaymentCapture = 1
	}

	var out paymentdomain.ProcessorOrder
	if err := c.do(ctx, "create_order", http.MethodPost, "/v1/orders", body, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &paymentdomain.UpstreamError{Op: "create_order", Description: "empty order id in response"}
	}
	return &out, nil
}

func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*paymentdomain.ProcessorPayment, error) {
	var out paymentdomain.ProcessorPayment
	path := "/v1/payments/" + url.PathEscape(strings.TrimSpace(paymentID))
	if err := c.do(ctx, "fetch_payment", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type refundBody struct {
	Amount int64             `json:"amount"`
	Notes  map[string]string `json:"notes,omitempty"`
}

func (c *Client) Refund(ctx context.Context, paymentID string, req paymentdomain.RefundRequest) (*paymentdomain.ProcessorRefund, error) {
	var out paymentdomain.ProcessorRefund
	path := "/v1/payments/" + url.PathEscape(strings.TrimSpace(paymentID)) + "/refund"
	if err := c.do(ctx, "refund", http.MethodPost, path, refundBody{Amount: req.Amount, Notes: req.Notes}, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &paymentdomain.UpstreamError{Op: "refund", Description: "empty refund id in response"}
	}
	return &out, nil
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, op, method, path string, in any, out any) error {
	if c.cfg.KeyID == "" || c.cfg.KeySecret == "" {
		return paymentdomain.ErrNotConfigured
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("razorpay request failed", zap.String("op", op), zap.Error(err))
		return &paymentdomain.UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug("razorpay request",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		upstream := &paymentdomain.UpstreamError{Op: op, StatusCode: resp.StatusCode}
		var apiErr errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil {
			upstream.Code = strings.TrimSpace(apiErr.Error.Code)
			upstream.Description = strings.TrimSpace(apiErr.Error.Description)
		}
		return upstream
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &paymentdomain.UpstreamError{Op: op, StatusCode: resp.StatusCode, Err: errors.Join(errors.New("decode response"), err)}
	}
	return nil
}

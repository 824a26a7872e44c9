package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/notemart/internal/auth/domain"
	"github.com/smallbiznis/notemart/internal/auth/token"
	"github.com/smallbiznis/notemart/internal/authorization"
	cartdomain "github.com/smallbiznis/notemart/internal/cart/domain"
	catalogdomain "github.com/smallbiznis/notemart/internal/catalog/domain"
	"github.com/smallbiznis/notemart/internal/config"
	librarydomain "github.com/smallbiznis/notemart/internal/library/domain"
	orderdomain "github.com/smallbiznis/notemart/internal/order/domain"
	paymentdomain "github.com/smallbiznis/notemart/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	userToken  = "user-token"
	adminToken = "admin-token"
)

type fakeAuthService struct {
	authdomain.Service
}

func (f *fakeAuthService) Authenticate(ctx context.Context, raw string) (*authdomain.Principal, error) {
	if raw != userToken {
		return nil, token.ErrInvalidToken
	}
	return &authdomain.Principal{ID: snowflake.ID(7), Kind: string(token.KindUser), Email: "buyer@example.com"}, nil
}

func (f *fakeAuthService) AuthenticateAdmin(ctx context.Context, raw string) (*authdomain.Principal, error) {
	if raw != adminToken {
		return nil, token.ErrInvalidToken
	}
	return &authdomain.Principal{ID: snowflake.ID(1), Kind: string(token.KindAdmin)}, nil
}

func (f *fakeAuthService) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.AuthResponse, error) {
	if req.Password != "secret123" {
		return nil, authdomain.ErrInvalidCredentials
	}
	return &authdomain.AuthResponse{AccessToken: userToken, TokenType: "Bearer"}, nil
}

func (f *fakeAuthService) AuthenticateDownload(ctx context.Context, raw, orderID, noteID string) (*authdomain.Principal, error) {
	switch {
	case raw != "link-token":
		return nil, authdomain.ErrInvalidToken
	case orderID != "ORD-01TEST" || noteID != "42":
		return nil, token.ErrLinkMismatch
	}
	return &authdomain.Principal{ID: snowflake.ID(7), Kind: string(token.KindUser)}, nil
}

type fakeAuthz struct {
	denied map[string]bool
	calls  []string
}

func (f *fakeAuthz) Authorize(ctx context.Context, actor, object, action string) error {
	key := actor + "|" + object + "|" + action
	f.calls = append(f.calls, key)
	if f.denied[key] {
		return authorization.ErrForbidden
	}
	return nil
}

type fakeCatalog struct {
	catalogdomain.Service
}

func (f *fakeCatalog) Get(ctx context.Context, id string) (*catalogdomain.Response, error) {
	if id != "42" {
		return nil, catalogdomain.ErrNotFound
	}
	return &catalogdomain.Response{ID: "42", Title: "Organic Chemistry"}, nil
}

func (f *fakeCatalog) AdminList(ctx context.Context, req catalogdomain.ListRequest) (*catalogdomain.ListResponse, error) {
	return &catalogdomain.ListResponse{Notes: []catalogdomain.Response{{ID: "42"}}}, nil
}

type fakeCart struct {
	cartdomain.Service
	seen map[string]bool
}

func (f *fakeCart) Add(ctx context.Context, userID snowflake.ID, noteID string) (*cartdomain.ItemResponse, bool, error) {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	created := !f.seen[noteID]
	f.seen[noteID] = true
	return &cartdomain.ItemResponse{ID: "1", NoteID: noteID}, created, nil
}

type fakeOrders struct {
	orderdomain.Service
	lastCreate orderdomain.CreateRequest
	createErr  error
}

func (f *fakeOrders) Create(ctx context.Context, req orderdomain.CreateRequest) (*orderdomain.Response, error) {
	f.lastCreate = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &orderdomain.Response{OrderID: "ORD-01TEST"}, nil
}

type fakePayments struct {
	paymentdomain.Service
	intentErr error
	refundErr error
}

func (f *fakePayments) Refund(ctx context.Context, req paymentdomain.RefundOrderRequest) (*paymentdomain.RefundResponse, error) {
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	return &paymentdomain.RefundResponse{OrderID: req.OrderID, RefundID: "rfnd_1", Status: "refunded"}, nil
}

func (f *fakePayments) CreateIntent(ctx context.Context, orderID string) (*paymentdomain.Intent, error) {
	if f.intentErr != nil {
		return nil, f.intentErr
	}
	return &paymentdomain.Intent{
		ProcessorOrderID: "order_rzp_1",
		OrderID:          orderID,
		Amount:           49900,
		Currency:         "INR",
		Customer:         &paymentdomain.IntentPerson{Name: "Ravi K", Email: "ravi@example.com"},
	}, nil
}

func (f *fakePayments) VerifySignature(req paymentdomain.VerifyRequest) bool {
	return req.Signature == "good"
}

type fakeLibrary struct {
	librarydomain.Service
	file     string
	lastUser snowflake.ID
}

func (f *fakeLibrary) Download(ctx context.Context, userID snowflake.ID, orderID, noteID string) (*librarydomain.File, error) {
	f.lastUser = userID
	return &librarydomain.File{Path: f.file, Name: "optics.pdf", ContentType: "application/pdf"}, nil
}

type fakeWebhooks struct {
	payload []byte
	err     error
}

func (f *fakeWebhooks) Ingest(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	f.payload = payload
	return f.err
}

type testServer struct {
	engine   *gin.Engine
	authz    *fakeAuthz
	orders   *fakeOrders
	payments *fakePayments
	webhooks *fakeWebhooks
	library  *fakeLibrary
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithDebug(t, false)
}

func newTestServerWithDebug(t *testing.T, debug bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(RequestContext())
	engine.Use(ErrorHandlingMiddleware(debug))

	ts := &testServer{
		engine:   engine,
		authz:    &fakeAuthz{denied: map[string]bool{}},
		orders:   &fakeOrders{},
		payments: &fakePayments{},
		webhooks: &fakeWebhooks{},
		library:  &fakeLibrary{},
	}

	NewServer(ServerParams{
		Gin:        engine,
		Cfg:        config.Config{Environment: "test"},
		Log:        zap.NewNop(),
		Authsvc:    &fakeAuthService{},
		AuthzSvc:   ts.authz,
		CatalogSvc: &fakeCatalog{},
		CartSvc:    &fakeCart{},
		OrderSvc:   ts.orders,
		PaymentSvc: ts.payments,
		WebhookSvc: ts.webhooks,
		LibrarySvc: ts.library,
	})
	return ts
}

func (ts *testServer) do(method, path, body, bearer string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	return resp
}

func TestNotFoundUsesErrorEnvelope(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/notes/99", "", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "not_found", resp.Error.Type)
	assert.Equal(t, "not found", resp.Message)
}

func TestGetNoteWrapsData(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/notes/42", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool                   `json:"success"`
		Data    catalogdomain.Response `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Organic Chemistry", resp.Data.Title)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/nope", "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginInvalidCredentials(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/auth/login", `{"email":"a@b.co","password":"wrong"}`, "")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", decodeError(t, rec).Message)
}

func TestUserRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	for _, bearer := range []string{"", "garbage"} {
		rec := ts.do(http.MethodPost, "/api/cart", `{"note_id":"42"}`, bearer)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "bearer %q", bearer)
	}
}

func TestAddToCartIsIdempotent(t *testing.T) {
	ts := newTestServer(t)

	first := ts.do(http.MethodPost, "/api/cart", `{"note_id":"42"}`, userToken)
	second := ts.do(http.MethodPost, "/api/cart", `{"note_id":"42"}`, userToken)

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
}

func TestAdminRoutes(t *testing.T) {
	t.Run("user token is not an admin token", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(http.MethodGet, "/api/admin/notes", "", userToken)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("policy denial is forbidden", func(t *testing.T) {
		ts := newTestServer(t)
		ts.authz.denied["admin:1|note|view"] = true
		rec := ts.do(http.MethodGet, "/api/admin/notes", "", adminToken)
		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "forbidden", decodeError(t, rec).Error.Type)
	})

	t.Run("admin lists notes", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(http.MethodGet, "/api/admin/notes", "", adminToken)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"admin:1|note|view"}, ts.authz.calls)
	})
}

func TestCheckoutGuestAndUser(t *testing.T) {
	body := `{"items":[{"note_id":42}],"customer_info":{"email":"a@b.co","first_name":"A","last_name":"B"}}`

	t.Run("guest", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(http.MethodPost, "/api/checkout/create-order", body, "")
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Nil(t, ts.orders.lastCreate.UserID)
		assert.Contains(t, rec.Body.String(), `"razorpay_order_id":"order_rzp_1"`)
		assert.Contains(t, rec.Body.String(), `"order_id":"ORD-01TEST"`)
	})

	t.Run("signed in", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(http.MethodPost, "/api/checkout/create-order", body, userToken)
		require.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, ts.orders.lastCreate.UserID)
		assert.Equal(t, snowflake.ID(7), *ts.orders.lastCreate.UserID)
	})

	t.Run("bad token is rejected", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(http.MethodPost, "/api/checkout/create-order", body, "garbage")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestCheckoutErrors(t *testing.T) {
	body := `{"items":[],"customer_info":{"email":"bad"}}`

	t.Run("validation", func(t *testing.T) {
		ts := newTestServer(t)
		ts.orders.createErr = orderdomain.ErrInvalidEmail
		rec := ts.do(http.MethodPost, "/api/checkout/create-order", body, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeError(t, rec)
		assert.Equal(t, "validation_error", resp.Error.Type)
		require.Len(t, resp.Error.Errors, 1)
		assert.Equal(t, "email", resp.Error.Errors[0].Field)
		assert.Equal(t, "invalid_email", resp.Error.Errors[0].Code)
	})

	t.Run("processor failure hides description", func(t *testing.T) {
		ts := newTestServer(t)
		ts.payments.intentErr = &paymentdomain.UpstreamError{Op: "create_order", StatusCode: 401, Description: "Authentication failed"}
		rec := ts.do(http.MethodPost, "/api/checkout/create-order", body, "")
		require.Equal(t, http.StatusBadGateway, rec.Code)
		resp := decodeError(t, rec)
		assert.Equal(t, "upstream_error", resp.Error.Type)
		assert.Equal(t, "payment processor error", resp.Message)
		assert.NotContains(t, rec.Body.String(), "Authentication failed")
	})

	t.Run("processor failure in debug mode", func(t *testing.T) {
		ts := newTestServerWithDebug(t, true)
		ts.payments.intentErr = &paymentdomain.UpstreamError{Op: "create_order", StatusCode: 503, Description: "gateway down"}
		rec := ts.do(http.MethodPost, "/api/checkout/create-order", body, "")
		require.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "payment processor error: gateway down", decodeError(t, rec).Message)
	})

	t.Run("malformed json", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(http.MethodPost, "/api/checkout/create-order", `{"items":`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRetryIntentOmitsCustomerContact(t *testing.T) {
	ts := newTestServer(t)

	created := ts.do(http.MethodPost, "/api/checkout/create-order", `{"items":[{"note_id":42}],"customer_info":{"email":"ravi@example.com"}}`, "")
	require.Equal(t, http.StatusCreated, created.Code)
	assert.Contains(t, created.Body.String(), "ravi@example.com")

	rec := ts.do(http.MethodPost, "/api/checkout/orders/ORD-01TEST/intent", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"razorpay_order_id":"order_rzp_1"`)
	assert.NotContains(t, rec.Body.String(), `"customer"`)
	assert.NotContains(t, rec.Body.String(), "ravi@example.com")
	assert.NotContains(t, rec.Body.String(), "Ravi K")
}

func TestVerifySignatureOnly(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/payments/verify", `{"razorpay_order_id":"o","razorpay_payment_id":"p","razorpay_signature":"good"}`, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":true`)
}

func TestWebhook(t *testing.T) {
	t.Run("acknowledged with raw body", func(t *testing.T) {
		ts := newTestServer(t)
		payload := `{"event":"payment.captured"}`
		rec := ts.do(http.MethodPost, "/api/webhooks/razorpay", payload, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
		assert.Equal(t, payload, string(ts.webhooks.payload))
	})

	t.Run("bad signature", func(t *testing.T) {
		ts := newTestServer(t)
		ts.webhooks.err = paymentdomain.ErrInvalidSignature
		rec := ts.do(http.MethodPost, "/api/webhooks/razorpay", `{}`, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.True(t, strings.Contains(rec.Body.String(), "invalid_signature"))
	})
}

func TestAdminRefundShowsProcessorDescription(t *testing.T) {
	ts := newTestServer(t)
	ts.payments.refundErr = &paymentdomain.UpstreamError{Op: "refund", StatusCode: 400, Description: "The refund amount exceeds the captured amount"}

	rec := ts.do(http.MethodPost, "/api/admin/payments/refund", `{"order_id":"ORD-01TEST","reason":"duplicate"}`, adminToken)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "payment processor error: The refund amount exceeds the captured amount", decodeError(t, rec).Message)

	ts.payments.refundErr = nil
	rec = ts.do(http.MethodPost, "/api/admin/payments/refund", `{"order_id":"ORD-01TEST"}`, adminToken)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDownloadAcceptsSignedLink(t *testing.T) {
	ts := newTestServer(t)
	ts.library.file = filepath.Join(t.TempDir(), "optics.pdf")
	require.NoError(t, os.WriteFile(ts.library.file, []byte("%PDF"), 0o644))

	rec := ts.do(http.MethodGet, "/api/downloads/ORD-01TEST/42?token=link-token", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "optics.pdf")
	assert.Equal(t, snowflake.ID(7), ts.library.lastUser)

	rec = ts.do(http.MethodGet, "/api/downloads/ORD-01TEST/42", "", userToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/api/downloads/ORD-01TEST/42", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodGet, "/api/downloads/ORD-01TEST/42?token=forged", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodGet, "/api/downloads/ORD-01TEST/99?token=link-token", "", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

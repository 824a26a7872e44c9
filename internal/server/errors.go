package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/notemart/internal/auth/domain"
	"github.com/smallbiznis/notemart/internal/auth/token"
	auditdomain "github.com/smallbiznis/notemart/internal/audit/domain"
	"github.com/smallbiznis/notemart/internal/authorization"
	cartdomain "github.com/smallbiznis/notemart/internal/cart/domain"
	catalogdomain "github.com/smallbiznis/notemart/internal/catalog/domain"
	contactdomain "github.com/smallbiznis/notemart/internal/contact/domain"
	coupondomain "github.com/smallbiznis/notemart/internal/coupon/domain"
	librarydomain "github.com/smallbiznis/notemart/internal/library/domain"
	orderdomain "github.com/smallbiznis/notemart/internal/order/domain"
	paymentdomain "github.com/smallbiznis/notemart/internal/payment/domain"
	reviewdomain "github.com/smallbiznis/notemart/internal/review/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Error   errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// exposeUpstreamDetailKey marks a request whose caller may read the payment
// processor's failure description.
const exposeUpstreamDetailKey = "expose_upstream_detail"

// ErrorHandlingMiddleware renders the last handler error. Processor failure
// descriptions stay in the logs unless debug is on or the handler opted in
// with exposeUpstreamDetail.
func ErrorHandlingMiddleware(debug bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if debug || c.GetBool(exposeUpstreamDetailKey) {
			payload.Message = upstreamMessage(lastErr.Err, payload.Message)
		}
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{
			Success: false,
			Message: payload.Message,
			Error:   payload,
		})
	}
}

func exposeUpstreamDetail(c *gin.Context) {
	c.Set(exposeUpstreamDetailKey, true)
}

func upstreamMessage(err error, fallback string) string {
	var upstream *paymentdomain.UpstreamError
	if !errors.As(err, &upstream) || upstream.Description == "" {
		return fallback
	}
	return "payment processor error: " + upstream.Description
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if code, ok := validationCode(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: validationErrorMessage(code),
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	var upstream *paymentdomain.UpstreamError
	if errors.As(err, &upstream) {
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: "payment processor error",
		}
	}

	switch {
	case isUnauthorizedError(err):
		message := "unauthorized"
		switch {
		case errors.Is(err, authdomain.ErrInvalidCredentials):
			message = "invalid credentials"
		case errors.Is(err, authdomain.ErrInvalidRefreshToken):
			message = "invalid or expired refresh token"
		}
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: message,
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger with the same taxonomy the
// client sees.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		return "internal_error", code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

var validationSentinels = []error{
	ErrInvalidRequest,

	authdomain.ErrInvalidEmail,
	authdomain.ErrInvalidPassword,
	authdomain.ErrInvalidName,

	catalogdomain.ErrInvalidID,
	catalogdomain.ErrInvalidTitle,
	catalogdomain.ErrInvalidSubject,
	catalogdomain.ErrInvalidPrice,
	catalogdomain.ErrInvalidStatus,
	catalogdomain.ErrInvalidFilePath,

	cartdomain.ErrInvalidID,
	cartdomain.ErrInvalidNoteID,

	coupondomain.ErrInvalidCode,
	coupondomain.ErrInvalidType,
	coupondomain.ErrInvalidValue,
	coupondomain.ErrInvalidMinAmount,
	coupondomain.ErrInvalidMaxUses,
	coupondomain.ErrInvalidAmount,
	coupondomain.ErrInvalidCoupon,

	orderdomain.ErrInvalidOrderID,
	orderdomain.ErrInvalidEmail,
	orderdomain.ErrInvalidFirstName,
	orderdomain.ErrInvalidLastName,
	orderdomain.ErrInvalidItems,
	orderdomain.ErrInvalidNoteID,
	orderdomain.ErrInvalidCoupon,
	orderdomain.ErrInvalidTotal,
	orderdomain.ErrInvalidStatus,
	orderdomain.ErrInvalidDate,
	orderdomain.ErrInvalidTransition,

	paymentdomain.ErrInvalidSignature,
	paymentdomain.ErrInvalidPayload,
	paymentdomain.ErrInvalidEvent,
	paymentdomain.ErrInvalidRequest,
	paymentdomain.ErrInvalidAmount,
	paymentdomain.ErrPaymentNotCaptured,
	paymentdomain.ErrOrderNotPending,
	paymentdomain.ErrOrderNotPaid,
	paymentdomain.ErrMissingPaymentID,
	paymentdomain.ErrInvalidProvider,

	reviewdomain.ErrInvalidID,
	reviewdomain.ErrInvalidRating,
	reviewdomain.ErrInvalidComment,
	reviewdomain.ErrNotPurchased,

	contactdomain.ErrInvalidID,
	contactdomain.ErrInvalidName,
	contactdomain.ErrInvalidEmail,
	contactdomain.ErrInvalidSubject,
	contactdomain.ErrInvalidMessage,
	contactdomain.ErrInvalidStatus,

	librarydomain.ErrInvalidID,
	librarydomain.ErrNotPaid,
	librarydomain.ErrNoteNotInOrder,

	auditdomain.ErrInvalidTimeRange,
	auditdomain.ErrInvalidAction,
}

// validationCode reports the machine code of a client input error. Auth
// errors carry human messages, so they get explicit codes.
func validationCode(err error) (string, bool) {
	switch {
	case errors.Is(err, authdomain.ErrInvalidCode):
		return "invalid_code", true
	case errors.Is(err, authdomain.ErrInvalidResetToken):
		return "invalid_reset_token", true
	}
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error(), true
		}
	}
	return "", false
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, authdomain.ErrInvalidRefreshToken),
		errors.Is(err, token.ErrInvalidToken):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, orderdomain.ErrForbidden),
		errors.Is(err, librarydomain.ErrForbidden),
		errors.Is(err, token.ErrLinkMismatch):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, reviewdomain.ErrAlreadyExists),
		errors.Is(err, coupondomain.ErrCodeExists):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, authdomain.ErrUserExists):
		return "email already registered"
	case errors.Is(err, reviewdomain.ErrAlreadyExists):
		return "you have already reviewed this note"
	case errors.Is(err, coupondomain.ErrCodeExists):
		return "coupon code already exists"
	default:
		return "conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, catalogdomain.ErrNotFound),
		errors.Is(err, cartdomain.ErrNotFound),
		errors.Is(err, cartdomain.ErrNoteNotFound),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, orderdomain.ErrItemNotFound),
		errors.Is(err, reviewdomain.ErrNotFound),
		errors.Is(err, reviewdomain.ErrNoteNotFound),
		errors.Is(err, contactdomain.ErrNotFound),
		errors.Is(err, librarydomain.ErrNotFound),
		errors.Is(err, librarydomain.ErrFileMissing),
		errors.Is(err, paymentdomain.ErrProviderNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "invalid_signature":
		return "razorpay_signature"
	case "payment_not_captured", "missing_payment_id":
		return "razorpay_payment_id"
	case "order_not_pending", "order_not_paid", "invalid_transition":
		return "status"
	case "invalid_total":
		return "coupon_code"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_signature":
		return "payment signature verification failed"
	case "payment_not_captured":
		return "payment has not been captured"
	case "invalid_coupon":
		return "coupon is not valid for this order"
	case "invalid_total":
		return "order total must be greater than zero"
	case "not_purchased":
		return "only buyers of this note can review it"
	case "order_not_paid":
		return "order is not paid"
	case "order_not_pending":
		return "order is not pending"
	case "invalid_transition":
		return "status change not allowed"
	case "invalid_code":
		return "invalid or expired verification code"
	case "invalid_reset_token":
		return "invalid or expired reset token"
	default:
		return "invalid value"
	}
}

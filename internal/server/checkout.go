package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	coupondomain "github.com/smallbiznis/notemart/internal/coupon/domain"
	orderdomain "github.com/smallbiznis/notemart/internal/order/domain"
	paymentdomain "github.com/smallbiznis/notemart/internal/payment/domain"
)

const maxWebhookBodyBytes = 1 << 20

// CreateCheckoutOrder records a pending order and opens the processor order
// for it. When the processor call fails the order stays pending and the
// client retries through RetryPaymentIntent.
func (s *Server) CreateCheckoutOrder(c *gin.Context) {
	var req orderdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.UserID = nil
	if userID, ok := s.userIDFromContext(c); ok {
		req.UserID = &userID
	}

	order, err := s.orderSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	intent, err := s.paymentSvc.CreateIntent(c.Request.Context(), order.OrderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondMessage(c, http.StatusCreated, "order created", intent)
}

// RetryPaymentIntent is reachable by anyone holding the order id, so the
// customer's name and email are left out. The checkout page already has
// them from CreateCheckoutOrder.
func (s *Server) RetryPaymentIntent(c *gin.Context) {
	intent, err := s.paymentSvc.CreateIntent(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	intent.Customer = nil

	respond(c, http.StatusOK, intent)
}

func (s *Server) VerifyPayment(c *gin.Context) {
	var req paymentdomain.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.paymentSvc.VerifyPayment(c.Request.Context(), paymentdomain.VerifyRequest{
		ProcessorOrderID: strings.TrimSpace(req.ProcessorOrderID),
		PaymentID:        strings.TrimSpace(req.PaymentID),
		Signature:        strings.TrimSpace(req.Signature),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondMessage(c, http.StatusOK, "payment verified", resp)
}

// VerifySignature only checks the checkout signature. It never changes
// order state.
func (s *Server) VerifySignature(c *gin.Context) {
	var req paymentdomain.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	valid := s.paymentSvc.VerifySignature(paymentdomain.VerifyRequest{
		ProcessorOrderID: strings.TrimSpace(req.ProcessorOrderID),
		PaymentID:        strings.TrimSpace(req.PaymentID),
		Signature:        strings.TrimSpace(req.Signature),
	})

	respond(c, http.StatusOK, gin.H{"valid": valid})
}

func (s *Server) ValidateCoupon(c *gin.Context) {
	var req coupondomain.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.couponSvc.Validate(c.Request.Context(), coupondomain.ValidateRequest{
		Code:        strings.TrimSpace(req.Code),
		TotalAmount: strings.TrimSpace(req.TotalAmount),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.webhookSvc.Ingest(c.Request.Context(), provider, payload, c.Request.Header); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/notemart/internal/order/domain"
	paymentdomain "github.com/smallbiznis/notemart/internal/payment/domain"
	"github.com/smallbiznis/notemart/pkg/db/pagination"
)

type listAdminOrdersQuery struct {
	pagination.Pagination
	Status   string `form:"status"`
	Search   string `form:"search"`
	DateFrom string `form:"date_from"`
	DateTo   string `form:"date_to"`
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) ListMyOrders(c *gin.Context) {
	userID, ok := s.userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.ListForUser(c.Request.Context(), userID, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) GetMyOrder(c *gin.Context) {
	userID, ok := s.userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.orderSvc.GetForUser(c.Request.Context(), userID, c.Param("order_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) ListMyNotes(c *gin.Context) {
	userID, ok := s.userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	notes, err := s.librarySvc.MyNotes(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, notes)
}

func (s *Server) DownloadReceipt(c *gin.Context) {
	userID, ok := s.userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	doc, err := s.librarySvc.Receipt(c.Request.Context(), userID, c.Param("order_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.DataFromReader(http.StatusOK, -1, doc.ContentType, doc.Body, map[string]string{
		"Content-Disposition": `attachment; filename="` + doc.Name + `"`,
	})
}

func (s *Server) DownloadNote(c *gin.Context) {
	orderID := c.Param("order_id")
	noteID := c.Param("note_id")

	userID, ok := s.userIDFromContext(c)
	if raw := strings.TrimSpace(c.Query("token")); raw != "" {
		principal, err := s.authsvc.AuthenticateDownload(c.Request.Context(), raw, orderID, noteID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if ok && principal.ID != userID {
			AbortWithError(c, ErrForbidden)
			return
		}
		userID, ok = principal.ID, true
	}
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	file, err := s.librarySvc.Download(c.Request.Context(), userID, orderID, noteID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Type", file.ContentType)
	c.FileAttachment(file.Path, file.Name)
}

func (s *Server) AdminListOrders(c *gin.Context) {
	var query listAdminOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.AdminList(c.Request.Context(), orderdomain.AdminListRequest{
		Status:     strings.TrimSpace(query.Status),
		Search:     strings.TrimSpace(query.Search),
		DateFrom:   strings.TrimSpace(query.DateFrom),
		DateTo:     strings.TrimSpace(query.DateTo),
		Pagination: query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) AdminGetOrder(c *gin.Context) {
	resp, err := s.orderSvc.AdminGet(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) AdminUpdateOrderStatus(c *gin.Context) {
	var req orderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.AdminUpdateStatus(c.Request.Context(), c.Param("order_id"), strings.TrimSpace(req.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "order.status_update", "order", resp.OrderID, map[string]any{
		"status": string(resp.Status),
	})

	respondMessage(c, http.StatusOK, "order status updated", resp)
}

func (s *Server) AdminRefund(c *gin.Context) {
	var req paymentdomain.RefundOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.OrderID = strings.TrimSpace(req.OrderID)
	req.Reason = strings.TrimSpace(req.Reason)

	resp, err := s.paymentSvc.Refund(c.Request.Context(), req)
	if err != nil {
		exposeUpstreamDetail(c)
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "payment.refund", "order", resp.OrderID, map[string]any{
		"refund_id": resp.RefundID,
		"amount":    resp.Amount.StringFixed(2),
		"reason":    req.Reason,
	})

	respondMessage(c, http.StatusOK, "refund processed", resp)
}

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	coupondomain "github.com/smallbiznis/notemart/internal/coupon/domain"
)

func (s *Server) GetDashboardStats(c *gin.Context) {
	resp, err := s.dashboardSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) AdminListCoupons(c *gin.Context) {
	resp, err := s.couponSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) AdminCreateCoupon(c *gin.Context) {
	var req coupondomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.couponSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "coupon.create", "coupon", resp.ID, map[string]any{
		"code":     resp.Code,
		"type":     resp.Type,
		"value":    resp.Value.String(),
		"max_uses": resp.MaxUses,
	})

	respondMessage(c, http.StatusCreated, "coupon created", resp)
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	contactdomain "github.com/smallbiznis/notemart/internal/contact/domain"
	"github.com/smallbiznis/notemart/pkg/db/pagination"
)

type listContactsQuery struct {
	pagination.Pagination
	Unread string `form:"unread"`
	Status string `form:"status"`
}

type contactStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) SubmitContact(c *gin.Context) {
	var req contactdomain.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.contactSvc.Submit(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondMessage(c, http.StatusCreated, "thank you for contacting us, we will get back to you soon", gin.H{"id": resp.ID})
}

func (s *Server) AdminListContacts(c *gin.Context) {
	var query listContactsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	unread, err := parseOptionalBool(query.Unread)
	if err != nil {
		AbortWithError(c, newValidationError("unread", "invalid_unread", "invalid unread"))
		return
	}

	resp, err := s.contactSvc.AdminList(c.Request.Context(), contactdomain.ListRequest{
		Unread:     unread != nil && *unread,
		Status:     strings.TrimSpace(query.Status),
		Pagination: query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) AdminMarkContactRead(c *gin.Context) {
	resp, err := s.contactSvc.MarkRead(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "contact.read", "contact", resp.ID, nil)

	respond(c, http.StatusOK, resp)
}

func (s *Server) AdminUpdateContactStatus(c *gin.Context) {
	var req contactStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.contactSvc.UpdateStatus(c.Request.Context(), c.Param("id"), strings.TrimSpace(req.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "contact.status_update", "contact", resp.ID, map[string]any{
		"status": string(resp.Status),
	})

	respond(c, http.StatusOK, resp)
}

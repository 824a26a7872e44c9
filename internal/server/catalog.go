package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/notemart/internal/catalog/domain"
	"github.com/smallbiznis/notemart/pkg/db/pagination"
)

type listNotesQuery struct {
	pagination.Pagination
	Subject  string `form:"subject"`
	Search   string `form:"search"`
	MinPrice string `form:"min_price"`
	MaxPrice string `form:"max_price"`
	Status   string `form:"status"`
	SortBy   string `form:"sort"`
	OrderBy  string `form:"order"`
}

func (q listNotesQuery) request() catalogdomain.ListRequest {
	return catalogdomain.ListRequest{
		Subject:    strings.TrimSpace(q.Subject),
		Search:     strings.TrimSpace(q.Search),
		MinPrice:   strings.TrimSpace(q.MinPrice),
		MaxPrice:   strings.TrimSpace(q.MaxPrice),
		Status:     strings.TrimSpace(q.Status),
		SortBy:     strings.TrimSpace(q.SortBy),
		OrderBy:    strings.TrimSpace(q.OrderBy),
		Pagination: q.Pagination,
	}
}

type noteStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) ListNotes(c *gin.Context) {
	var query listNotesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.List(c.Request.Context(), query.request())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) GetNote(c *gin.Context) {
	resp, err := s.catalogSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) ListSubjects(c *gin.Context) {
	resp, err := s.catalogSvc.Subjects(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) AdminListNotes(c *gin.Context) {
	var query listNotesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.AdminList(c.Request.Context(), query.request())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) AdminGetNote(c *gin.Context) {
	resp, err := s.catalogSvc.AdminGet(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) AdminCreateNote(c *gin.Context) {
	var req catalogdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "note.create", "note", resp.ID, map[string]any{
		"title":   resp.Title,
		"subject": resp.Subject,
		"price":   resp.Price.StringFixed(2),
		"status":  resp.Status,
	})

	respondMessage(c, http.StatusCreated, "note created", resp)
}

func (s *Server) AdminUpdateNote(c *gin.Context) {
	var req catalogdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = c.Param("id")

	resp, err := s.catalogSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "note.update", "note", resp.ID, map[string]any{
		"title": resp.Title,
		"price": resp.Price.StringFixed(2),
	})

	respondMessage(c, http.StatusOK, "note updated", resp)
}

func (s *Server) AdminSetNoteStatus(c *gin.Context) {
	var req noteStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.SetStatus(c.Request.Context(), c.Param("id"), strings.TrimSpace(req.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "note.status_update", "note", resp.ID, map[string]any{
		"status": resp.Status,
	})

	respond(c, http.StatusOK, resp)
}

func (s *Server) AdminDeleteNote(c *gin.Context) {
	id := c.Param("id")
	if err := s.catalogSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "note.delete", "note", id, nil)

	respondMessage(c, http.StatusOK, "note deleted", nil)
}

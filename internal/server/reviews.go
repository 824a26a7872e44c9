package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	reviewdomain "github.com/smallbiznis/notemart/internal/review/domain"
	"github.com/smallbiznis/notemart/pkg/db/pagination"
)

type createReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (s *Server) CreateReview(c *gin.Context) {
	userID, ok := s.userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	me, err := s.authsvc.Me(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reviewSvc.Create(c.Request.Context(), reviewdomain.CreateRequest{
		UserID:   userID,
		UserName: me.Name,
		NoteID:   c.Param("id"),
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondMessage(c, http.StatusCreated, "review submitted", resp)
}

func (s *Server) ListNoteReviews(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reviewSvc.ListForNote(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) AdminListReviews(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reviewSvc.AdminList(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) AdminDeleteReview(c *gin.Context) {
	id := c.Param("id")
	if err := s.reviewSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "review.delete", "review", id, nil)

	respondMessage(c, http.StatusOK, "review deleted", nil)
}

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type addToCartRequest struct {
	NoteID string `json:"note_id"`
}

func (s *Server) ListCart(c *gin.Context) {
	userID, ok := s.userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.cartSvc.List(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) GetCartItem(c *gin.Context) {
	userID, ok := s.userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.cartSvc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

// AddToCart is idempotent: adding a note twice returns the existing line
// with 200 instead of 201.
func (s *Server) AddToCart(c *gin.Context) {
	userID, ok := s.userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, created, err := s.cartSvc.Add(c.Request.Context(), userID, req.NoteID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if !created {
		respondMessage(c, http.StatusOK, "note already in cart", item)
		return
	}
	respondMessage(c, http.StatusCreated, "note added to cart", item)
}

func (s *Server) RemoveFromCart(c *gin.Context) {
	userID, ok := s.userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.cartSvc.Remove(c.Request.Context(), userID, c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	respondMessage(c, http.StatusOK, "item removed from cart", nil)
}

func (s *Server) ClearCart(c *gin.Context) {
	userID, ok := s.userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.cartSvc.Clear(c.Request.Context(), userID); err != nil {
		AbortWithError(c, err)
		return
	}

	respondMessage(c, http.StatusOK, "cart cleared", nil)
}

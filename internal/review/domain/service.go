package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/notemart/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	ListForNote(ctx context.Context, noteID string, page pagination.Pagination) (*NoteReviewsResponse, error)
	AdminList(ctx context.Context, page pagination.Pagination) (*ListResponse, error)
	Delete(ctx context.Context, id string) error
}

type CreateRequest struct {
	UserID   snowflake.ID `json:"-"`
	UserName string       `json:"-"`
	NoteID   string       `json:"-"`
	Rating   int          `json:"rating"`
	Comment  string       `json:"comment"`
}

type Response struct {
	ID        string    `json:"id"`
	NoteID    string    `json:"note_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type NoteReviewsResponse struct {
	Reviews       []Response          `json:"reviews"`
	Count         int64               `json:"count"`
	AverageRating float64             `json:"average_rating"`
	PageInfo      pagination.PageInfo `json:"pagination"`
}

type ListResponse struct {
	Reviews  []Response          `json:"reviews"`
	PageInfo pagination.PageInfo `json:"pagination"`
}

var (
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidRating  = errors.New("invalid_rating")
	ErrInvalidComment = errors.New("invalid_comment")
	ErrNoteNotFound   = errors.New("note_not_found")
	ErrNotPurchased   = errors.New("not_purchased")
	ErrAlreadyExists  = errors.New("review_exists")
	ErrNotFound       = errors.New("not_found")
)

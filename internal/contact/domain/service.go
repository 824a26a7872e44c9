package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/notemart/pkg/db/pagination"
)

type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*Response, error)
	AdminList(ctx context.Context, req ListRequest) (*ListResponse, error)
	MarkRead(ctx context.Context, id string) (*Response, error)
	UpdateStatus(ctx context.Context, id string, status string) (*Response, error)
}

// Notifier is told about new submissions after they are stored.
type Notifier interface {
	ContactReceived(ctx context.Context, msg *Message)
}

type SubmitRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type ListRequest struct {
	Unread bool
	Status string
	pagination.Pagination
}

type Response struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Status    Status    `json:"status"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ListResponse struct {
	Messages []Response          `json:"messages"`
	PageInfo pagination.PageInfo `json:"pagination"`
}

var (
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidEmail   = errors.New("invalid_email")
	ErrInvalidSubject = errors.New("invalid_subject")
	ErrInvalidMessage = errors.New("invalid_message")
	ErrInvalidStatus  = errors.New("invalid_status")
	ErrNotFound       = errors.New("not_found")
)

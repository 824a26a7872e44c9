package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/notemart/pkg/db/pagination"
)

type Service interface {
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	Get(ctx context.Context, id string) (*Response, error)
	Subjects(ctx context.Context) ([]SubjectResponse, error)

	AdminList(ctx context.Context, req ListRequest) (*ListResponse, error)
	AdminGet(ctx context.Context, id string) (*Response, error)
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id string, status string) (*Response, error)
}

type ListRequest struct {
	Subject  string
	Search   string
	MinPrice string
	MaxPrice string
	Status   string
	SortBy   string
	OrderBy  string
	pagination.Pagination
}

type ListResponse struct {
	Notes    []Response          `json:"notes"`
	PageInfo pagination.PageInfo `json:"pagination"`
}

type CreateRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Subject      string `json:"subject"`
	Price        string `json:"price"`
	FilePath     string `json:"file_path"`
	PreviewImage string `json:"preview_image"`
	Status       string `json:"status"`
}

type UpdateRequest struct {
	ID           string  `json:"-"`
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Subject      *string `json:"subject"`
	Price        *string `json:"price"`
	FilePath     *string `json:"file_path"`
	PreviewImage *string `json:"preview_image"`
}

type Response struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Subject      string          `json:"subject"`
	SubjectSlug  string          `json:"subject_slug"`
	Price        decimal.Decimal `json:"price"`
	Status       string          `json:"status"`
	PreviewImage string          `json:"preview_image,omitempty"`
	Downloads    int64           `json:"downloads"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type SubjectResponse struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int64  `json:"count"`
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidTitle    = errors.New("invalid_title")
	ErrInvalidSubject  = errors.New("invalid_subject")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrInvalidFilePath = errors.New("invalid_file_path")
	ErrNotFound        = errors.New("not_found")
)

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/notemart/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, note *Note) error
	Update(ctx context.Context, db *gorm.DB, note *Note) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Note, error)
	// FindActiveByIDs returns only notes whose status is active.
	FindActiveByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Note, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]Note, int64, error)
	Subjects(ctx context.Context, db *gorm.DB) ([]SubjectCount, error)
	SetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string) (bool, error)
	IncrementDownloads(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}

// ListFilter holds normalized catalog filters. Empty fields are ignored.
type ListFilter struct {
	Status   string
	Subject  string
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	SortBy   string
	OrderBy  string
}

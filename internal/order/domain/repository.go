package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/notemart/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	InsertItems(ctx context.Context, db *gorm.DB, items []OrderItem) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	FindByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*Order, error)
	FindByProcessorOrderID(ctx context.Context, db *gorm.DB, processorOrderID string) (*Order, error)
	Items(ctx context.Context, db *gorm.DB, orderIDs ...snowflake.ID) ([]OrderItem, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]Order, int64, error)
	// ListStalePending returns pending orders created before cutoff, oldest first.
	ListStalePending(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]snowflake.ID, error)

	// Guarded writes report whether the row was in the expected state.
	AttachProcessorOrder(ctx context.Context, db *gorm.DB, id snowflake.ID, processorOrderID string) (bool, error)
	TransitionPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, update PaymentUpdate, at time.Time) (bool, error)
	TransitionFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	TransitionRefunded(ctx context.Context, db *gorm.DB, id snowflake.ID, refundID string, at time.Time) (bool, error)
}

type ListFilter struct {
	UserID   *snowflake.ID
	Status   Status
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
}

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/notemart/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, review *Review) error
	ListForNote(ctx context.Context, db *gorm.DB, noteID snowflake.ID, page pagination.Pagination) ([]Review, int64, error)
	Summary(ctx context.Context, db *gorm.DB, noteID snowflake.ID) (Summary, error)
	List(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]Review, int64, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	// HasPurchased reports whether the user holds a paid order containing
	// the note.
	HasPurchased(ctx context.Context, db *gorm.DB, userID, noteID snowflake.ID) (bool, error)
}

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert reports false when the (user, note) pair already exists.
	Insert(ctx context.Context, db *gorm.DB, item *CartItem) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*CartItem, error)
	FindByNote(ctx context.Context, db *gorm.DB, userID, noteID snowflake.ID) (*CartItem, error)
	ListLines(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]CartLine, error)
	Delete(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (bool, error)
	Clear(ctx context.Context, db *gorm.DB, userID snowflake.ID) error
	RemoveNotes(ctx context.Context, db *gorm.DB, userID snowflake.ID, noteIDs []snowflake.ID) error
}

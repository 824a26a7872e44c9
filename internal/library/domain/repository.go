package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PurchaseRow is one note from one paid order of a user.
type PurchaseRow struct {
	NoteID       snowflake.ID    `gorm:"column:note_id"`
	OrderID      string          `gorm:"column:order_id"`
	Title        string          `gorm:"column:title"`
	Subject      string          `gorm:"column:subject"`
	PreviewImage string          `gorm:"column:preview_image"`
	Price        decimal.Decimal `gorm:"column:price"`
	PurchasedAt  time.Time       `gorm:"column:purchased_at"`
}

type Repository interface {
	Purchases(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]PurchaseRow, error)
}

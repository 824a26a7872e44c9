package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type CartItem struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID    snowflake.ID `json:"user_id" gorm:"not null;uniqueIndex:ux_cart_items_user_note,priority:1"`
	NoteID    snowflake.ID `json:"note_id" gorm:"not null;uniqueIndex:ux_cart_items_user_note,priority:2"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
}

func (CartItem) TableName() string { return "cart_items" }

// CartLine is a cart item joined with its note.
type CartLine struct {
	ID           snowflake.ID
	NoteID       snowflake.ID
	Title        string
	Subject      string
	Price        decimal.Decimal
	PreviewImage string
	Status       string
	CreatedAt    time.Time
}

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service interface {
	Add(ctx context.Context, userID snowflake.ID, noteID string) (*ItemResponse, bool, error)
	Get(ctx context.Context, userID snowflake.ID, id string) (*ItemResponse, error)
	List(ctx context.Context, userID snowflake.ID) (*CartResponse, error)
	Remove(ctx context.Context, userID snowflake.ID, id string) error
	Clear(ctx context.Context, userID snowflake.ID) error
	// RemovePurchased drops purchased notes from the cart inside the caller's transaction.
	RemovePurchased(ctx context.Context, tx *gorm.DB, userID snowflake.ID, noteIDs []snowflake.ID) error
}

type ItemResponse struct {
	ID           string          `json:"id"`
	NoteID       string          `json:"note_id"`
	Title        string          `json:"title,omitempty"`
	Subject      string          `json:"subject,omitempty"`
	Price        decimal.Decimal `json:"price"`
	PreviewImage string          `json:"preview_image,omitempty"`
	Available    bool            `json:"available"`
	CreatedAt    time.Time       `json:"created_at"`
}

type CartResponse struct {
	Items    []ItemResponse  `json:"items"`
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

var (
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidNoteID = errors.New("invalid_note_id")
	ErrNoteNotFound  = errors.New("note_not_found")
	ErrNotFound      = errors.New("not_found")
)

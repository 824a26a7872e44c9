package domain

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Service serves what a shopper owns: purchased notes, their files and
// receipts.
type Service interface {
	MyNotes(ctx context.Context, userID snowflake.ID) ([]PurchasedNote, error)
	Download(ctx context.Context, userID snowflake.ID, orderID string, noteID string) (*File, error)
	Receipt(ctx context.Context, userID snowflake.ID, orderID string) (*Document, error)
}

// LinkSigner issues the token carried by a download link.
type LinkSigner interface {
	IssueDownload(userID snowflake.ID, orderID string, noteID snowflake.ID) (string, time.Time, error)
}

type PurchasedNote struct {
	NoteID       string          `json:"note_id"`
	OrderID      string          `json:"order_id"`
	Title        string          `json:"title"`
	Subject      string          `json:"subject"`
	PreviewImage string          `json:"preview_image,omitempty"`
	Price        decimal.Decimal `json:"price"`
	PurchasedAt  time.Time       `json:"purchased_at"`
	DownloadURL  string          `json:"download_url"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
}

// File is a resolved note file on local storage.
type File struct {
	Path        string
	Name        string
	ContentType string
}

type Document struct {
	Name        string
	ContentType string
	Body        io.Reader
}

var (
	ErrInvalidID      = errors.New("invalid_id")
	ErrNotFound       = errors.New("not_found")
	ErrForbidden      = errors.New("forbidden")
	ErrNotPaid        = errors.New("order_not_paid")
	ErrNoteNotInOrder = errors.New("note_not_in_order")
	ErrFileMissing    = errors.New("file_missing")
)

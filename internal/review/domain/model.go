package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is a buyer's rating of a purchased note. A user reviews a note at
// most once.
type Review struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	NoteID    snowflake.ID `json:"note_id" gorm:"not null;uniqueIndex:ux_reviews_note_user,priority:1"`
	UserID    snowflake.ID `json:"user_id" gorm:"not null;uniqueIndex:ux_reviews_note_user,priority:2;index"`
	UserName  string       `json:"user_name" gorm:"type:text;not null"`
	Rating    int          `json:"rating" gorm:"not null"`
	Comment   string       `json:"comment" gorm:"type:text"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;index"`
}

func (Review) TableName() string { return "reviews" }

// Summary aggregates the ratings of one note.
type Summary struct {
	Count   int64
	Average float64
}

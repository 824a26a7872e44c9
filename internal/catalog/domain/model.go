package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Note struct {
	ID           snowflake.ID    `json:"id" gorm:"primaryKey"`
	Title        string          `json:"title" gorm:"type:text;not null"`
	Description  string          `json:"description" gorm:"type:text"`
	Subject      string          `json:"subject" gorm:"type:text;not null;index"`
	Price        decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Status       string          `json:"status" gorm:"type:text;not null;default:active;index"`
	FilePath     string          `json:"file_path" gorm:"type:text"`
	PreviewImage string          `json:"preview_image" gorm:"type:text"`
	Downloads    int64           `json:"downloads" gorm:"not null;default:0"`
	CreatedAt    time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time       `json:"updated_at" gorm:"not null"`
}

func (Note) TableName() string { return "notes" }

func (n Note) IsActive() bool { return n.Status == StatusActive }

// SubjectCount is an aggregate row over active notes.
type SubjectCount struct {
	Subject string
	Count   int64
}

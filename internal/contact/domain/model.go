package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
)

func ParseStatus(raw string) (Status, bool) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusNew, StatusInProgress, StatusResolved:
		return s, true
	default:
		return "", false
	}
}

// Message is a contact form submission.
type Message struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Email     string       `json:"email" gorm:"type:text;not null"`
	Subject   string       `json:"subject" gorm:"type:text;not null"`
	Message   string       `json:"message" gorm:"type:text;not null"`
	Status    Status       `json:"status" gorm:"type:varchar(16);not null;index"`
	IsRead    bool         `json:"is_read" gorm:"not null;default:false;index"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;index"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

func (Message) TableName() string { return "contacts" }

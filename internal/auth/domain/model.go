// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is a shopper account.
type User struct {
	ID                    snowflake.ID `gorm:"primaryKey"`
	Email                 string       `gorm:"type:text;not null;uniqueIndex"`
	Name                  string       `gorm:"type:text;not null"`
	PasswordHash          string       `gorm:"type:text;not null"`
	EmailVerified         bool         `gorm:"not null;default:false"`
	VerificationCode      *string      `gorm:"type:text"`
	VerificationExpiresAt *time.Time
	CreatedAt             time.Time `gorm:"not null"`
	UpdatedAt             time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Admin is a back-office account. Admins never share a table or a token
// audience with shoppers.
type Admin struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	Username     string       `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string       `gorm:"type:text;not null"`
	CreatedAt    time.Time    `gorm:"not null"`
}

func (Admin) TableName() string { return "admins" }

// RefreshToken stores the sha256 of the raw token handed to the client.
type RefreshToken struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	UserID    snowflake.ID `gorm:"not null;index"`
	TokenHash string       `gorm:"type:text;not null;uniqueIndex"`
	ExpiresAt time.Time    `gorm:"not null"`
	Revoked   bool         `gorm:"not null;default:false"`
	CreatedAt time.Time    `gorm:"not null"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

type PasswordReset struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	UserID    snowflake.ID `gorm:"not null;index"`
	TokenHash string       `gorm:"type:text;not null;uniqueIndex"`
	ExpiresAt time.Time    `gorm:"not null"`
	UsedAt    *time.Time
	CreatedAt time.Time `gorm:"not null"`
}

func (PasswordReset) TableName() string { return "password_resets" }

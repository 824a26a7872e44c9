package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	CreateUser(ctx context.Context, db *gorm.DB, user *User) error
	FindUserByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindUserByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	UpdateUserFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error

	CreateAdmin(ctx context.Context, db *gorm.DB, admin *Admin) error
	FindAdminByUsername(ctx context.Context, db *gorm.DB, username string) (*Admin, error)

	InsertRefreshToken(ctx context.Context, db *gorm.DB, token *RefreshToken) error
	FindRefreshToken(ctx context.Context, db *gorm.DB, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	RevokeUserRefreshTokens(ctx context.Context, db *gorm.DB, userID snowflake.ID) error

	InsertPasswordReset(ctx context.Context, db *gorm.DB, reset *PasswordReset) error
	FindPasswordReset(ctx context.Context, db *gorm.DB, tokenHash string) (*PasswordReset, error)
	ConsumePasswordReset(ctx context.Context, db *gorm.DB, id snowflake.ID, usedAt time.Time) (bool, error)
}

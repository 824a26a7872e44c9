package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/notemart/internal/auth/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreateUser(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Create(user).Error
}

func (r *repo) FindUserByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) UpdateUserFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	tx := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *repo) CreateAdmin(ctx context.Context, db *gorm.DB, admin *domain.Admin) error {
	return db.WithContext(ctx).Create(admin).Error
}

func (r *repo) FindAdminByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.Admin, error) {
	var admin domain.Admin
	err := db.WithContext(ctx).Where("username = ?", username).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *repo) InsertRefreshToken(ctx context.Context, db *gorm.DB, token *domain.RefreshToken) error {
	return db.WithContext(ctx).Create(token).Error
}

func (r *repo) FindRefreshToken(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.RefreshToken, error) {
	var token domain.RefreshToken
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, token_hash, expires_at, revoked, created_at
		 FROM refresh_tokens
		 WHERE token_hash = ?
		 LIMIT 1`,
		tokenHash,
	).Scan(&token).Error
	if err != nil {
		return nil, err
	}
	if token.ID == 0 {
		return nil, nil
	}
	return &token, nil
}

// RevokeRefreshToken reports whether this call revoked the token. A token
// that was already revoked returns false.
func (r *repo) RevokeRefreshToken(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE refresh_tokens SET revoked = ? WHERE id = ? AND revoked = ?`,
		true,
		id,
		false,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) RevokeUserRefreshTokens(ctx context.Context, db *gorm.DB, userID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE refresh_tokens SET revoked = ? WHERE user_id = ? AND revoked = ?`,
		true,
		userID,
		false,
	).Error
}

func (r *repo) InsertPasswordReset(ctx context.Context, db *gorm.DB, reset *domain.PasswordReset) error {
	return db.WithContext(ctx).Create(reset).Error
}

func (r *repo) FindPasswordReset(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.PasswordReset, error) {
	var reset domain.PasswordReset
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, token_hash, expires_at, used_at, created_at
		 FROM password_resets
		 WHERE token_hash = ?
		 LIMIT 1`,
		tokenHash,
	).Scan(&reset).Error
	if err != nil {
		return nil, err
	}
	if reset.ID == 0 {
		return nil, nil
	}
	return &reset, nil
}

func (r *repo) ConsumePasswordReset(ctx context.Context, db *gorm.DB, id snowflake.ID, usedAt time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE password_resets SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		usedAt,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

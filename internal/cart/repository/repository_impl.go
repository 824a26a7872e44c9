package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/notemart/internal/cart/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, item *domain.CartItem) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO cart_items (id, user_id, note_id, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, note_id) DO NOTHING`,
		item.ID,
		item.UserID,
		item.NoteID,
		item.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*domain.CartItem, error) {
	var item domain.CartItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, note_id, created_at FROM cart_items WHERE user_id = ? AND id = ?`,
		userID,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByNote(ctx context.Context, db *gorm.DB, userID, noteID snowflake.ID) (*domain.CartItem, error) {
	var item domain.CartItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, note_id, created_at FROM cart_items WHERE user_id = ? AND note_id = ?`,
		userID,
		noteID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListLines(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]domain.CartLine, error) {
	var rows []domain.CartLine
	err := db.WithContext(ctx).Raw(
		`SELECT c.id, c.note_id, n.title, n.subject, n.price, n.preview_image, n.status, c.created_at
		 FROM cart_items c
		 JOIN notes n ON n.id = c.note_id
		 WHERE c.user_id = ?
		 ORDER BY c.created_at ASC`,
		userID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM cart_items WHERE user_id = ? AND id = ?`,
		userID,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Clear(ctx context.Context, db *gorm.DB, userID snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM cart_items WHERE user_id = ?`, userID).Error
}

func (r *repo) RemoveNotes(ctx context.Context, db *gorm.DB, userID snowflake.ID, noteIDs []snowflake.ID) error {
	if len(noteIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`DELETE FROM cart_items WHERE user_id = ? AND note_id IN ?`,
		userID,
		noteIDs,
	).Error
}

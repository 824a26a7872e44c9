package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/notemart/internal/library/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Purchases lists every note of the user's paid orders, newest first. A note
// bought twice appears once per order.
func (r *repo) Purchases(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]domain.PurchaseRow, error) {
	var rows []domain.PurchaseRow
	err := db.WithContext(ctx).Raw(
		`SELECT oi.note_id AS note_id,
		        o.order_id AS order_id,
		        oi.title AS title,
		        COALESCE(n.subject, '') AS subject,
		        COALESCE(n.preview_image, '') AS preview_image,
		        oi.price AS price,
		        o.paid_at AS purchased_at
		 FROM order_items oi
		 JOIN orders o ON o.id = oi.order_id
		 LEFT JOIN notes n ON n.id = oi.note_id
		 WHERE o.user_id = ? AND o.status = 'paid'
		 ORDER BY o.paid_at DESC, oi.id ASC`,
		userID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

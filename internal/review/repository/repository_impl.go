package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/notemart/internal/review/domain"
	"github.com/smallbiznis/notemart/pkg/db/option"
	"github.com/smallbiznis/notemart/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, review *domain.Review) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO reviews (id, note_id, user_id, user_name, rating, comment, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		review.ID,
		review.NoteID,
		review.UserID,
		review.UserName,
		review.Rating,
		review.Comment,
		review.CreatedAt,
	).Error
}

func (r *repo) ListForNote(ctx context.Context, db *gorm.DB, noteID snowflake.ID, page pagination.Pagination) ([]domain.Review, int64, error) {
	return r.list(ctx, db, page, option.ApplyOperator(option.Condition{Field: "note_id", Value: noteID}))
}

func (r *repo) List(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]domain.Review, int64, error) {
	return r.list(ctx, db, page)
}

func (r *repo) list(ctx context.Context, db *gorm.DB, page pagination.Pagination, opts ...option.QueryOption) ([]domain.Review, int64, error) {
	var (
		items []domain.Review
		total int64
	)
	base := func() *gorm.DB {
		return option.Apply(db.WithContext(ctx).Model(&domain.Review{}), opts...)
	}
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	stmt := option.Apply(base(),
		option.WithSortBy(option.QuerySortBy{Default: "created_at"}),
		option.ApplyPagination(page),
	)
	if err := stmt.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repo) Summary(ctx context.Context, db *gorm.DB, noteID snowflake.ID) (domain.Summary, error) {
	var row struct {
		Count   int64
		Average *float64
	}
	if err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS count, AVG(rating) AS average
		 FROM reviews
		 WHERE note_id = ?`,
		noteID,
	).Scan(&row).Error; err != nil {
		return domain.Summary{}, err
	}
	summary := domain.Summary{Count: row.Count}
	if row.Average != nil {
		summary.Average = *row.Average
	}
	return summary, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM reviews WHERE id = ?`, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) HasPurchased(ctx context.Context, db *gorm.DB, userID, noteID snowflake.ID) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*)
		 FROM order_items oi
		 JOIN orders o ON o.id = oi.order_id
		 WHERE o.user_id = ? AND oi.note_id = ? AND o.status = 'paid'`,
		userID,
		noteID,
	).Scan(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

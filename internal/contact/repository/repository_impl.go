package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/notemart/internal/contact/domain"
	"github.com/smallbiznis/notemart/pkg/db/option"
	"github.com/smallbiznis/notemart/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, msg *domain.Message) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO contacts (id, name, email, subject, message, status, is_read, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID,
		msg.Name,
		msg.Email,
		msg.Subject,
		msg.Message,
		msg.Status,
		msg.IsRead,
		msg.CreatedAt,
		msg.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Message, error) {
	var msg domain.Message
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, subject, message, status, is_read, created_at, updated_at
		 FROM contacts WHERE id = ?`,
		id,
	).Scan(&msg).Error
	if err != nil {
		return nil, err
	}
	if msg.ID == 0 {
		return nil, nil
	}
	return &msg, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]domain.Message, int64, error) {
	var (
		items []domain.Message
		total int64
	)
	base := func() *gorm.DB {
		opts := make([]option.QueryOption, 0, 2)
		if filter.UnreadOnly {
			opts = append(opts, option.ApplyOperator(option.Condition{Field: "is_read", Value: false}))
		}
		if filter.Status != "" {
			opts = append(opts, option.ApplyOperator(option.Condition{Field: "status", Value: filter.Status}))
		}
		return option.Apply(db.WithContext(ctx).Model(&domain.Message{}), opts...)
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

func (r *repo) MarkRead(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE contacts SET is_read = ?, updated_at = ? WHERE id = ?`,
		true,
		at,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE contacts SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		at,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/notemart/internal/catalog/domain"
	"github.com/smallbiznis/notemart/pkg/db/option"
	"github.com/smallbiznis/notemart/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, note *domain.Note) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO notes (id, title, description, subject, price, status, file_path, preview_image, downloads, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		note.ID,
		note.Title,
		note.Description,
		note.Subject,
		note.Price,
		note.Status,
		note.FilePath,
		note.PreviewImage,
		note.Downloads,
		note.CreatedAt,
		note.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, note *domain.Note) error {
	if note == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE notes
		 SET title = ?, description = ?, subject = ?, price = ?, file_path = ?, preview_image = ?, updated_at = ?
		 WHERE id = ?`,
		note.Title,
		note.Description,
		note.Subject,
		note.Price,
		note.FilePath,
		note.PreviewImage,
		note.UpdatedAt,
		note.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Note, error) {
	var n domain.Note
	err := db.WithContext(ctx).Raw(
		`SELECT id, title, description, subject, price, status, file_path, preview_image, downloads, created_at, updated_at
		 FROM notes WHERE id = ?`,
		id,
	).Scan(&n).Error
	if err != nil {
		return nil, err
	}
	if n.ID == 0 {
		return nil, nil
	}
	return &n, nil
}

func (r *repo) FindActiveByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Note, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.Note
	err := db.WithContext(ctx).
		Model(&domain.Note{}).
		Where("id IN ? AND status = ?", ids, domain.StatusActive).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

var sortable = map[string]bool{
	"created_at": true,
	"price":      true,
	"title":      true,
	"downloads":  true,
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]domain.Note, int64, error) {
	var (
		items []domain.Note
		total int64
	)

	filters := make([]option.QueryOption, 0, 5)
	if filter.Status != "" {
		filters = append(filters, option.ApplyOperator(option.Condition{Field: "status", Value: filter.Status}))
	}
	if filter.Subject != "" {
		filters = append(filters, option.ApplyOperator(option.Condition{Field: "LOWER(subject)", Value: strings.ToLower(filter.Subject)}))
	}
	if filter.MinPrice != nil {
		filters = append(filters, option.ApplyOperator(option.Condition{Field: "price", Operator: option.GTE, Value: *filter.MinPrice}))
	}
	if filter.MaxPrice != nil {
		filters = append(filters, option.ApplyOperator(option.Condition{Field: "price", Operator: option.LTE, Value: *filter.MaxPrice}))
	}

	base := func() *gorm.DB {
		stmt := option.Apply(db.WithContext(ctx).Model(&domain.Note{}), filters...)
		if filter.Search != "" {
			like := "%" + strings.ToLower(filter.Search) + "%"
			stmt = stmt.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", like, like)
		}
		return stmt
	}

	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	stmt := option.Apply(base(),
		option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, sortable)),
		option.ApplyPagination(page),
	)
	if err := stmt.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repo) Subjects(ctx context.Context, db *gorm.DB) ([]domain.SubjectCount, error) {
	var rows []domain.SubjectCount
	err := db.WithContext(ctx).Raw(
		`SELECT subject, COUNT(*) AS count
		 FROM notes
		 WHERE status = ?
		 GROUP BY subject
		 ORDER BY subject ASC`,
		domain.StatusActive,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) SetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE notes SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		time.Now().UTC(),
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) IncrementDownloads(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE notes SET downloads = downloads + 1 WHERE id = ?`,
		id,
	).Error
}

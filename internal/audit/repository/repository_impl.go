package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/notemart/internal/audit/domain"
	"github.com/smallbiznis/notemart/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_logs (
			id, actor_type, actor_id, action, target_type, target_id,
			metadata, ip_address, user_agent, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ActorType,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		entry.Metadata,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.AuditLog, int64, error) {
	base := func() *gorm.DB {
		opts := make([]option.QueryOption, 0, 6)
		if action := strings.TrimSpace(filter.Action); action != "" {
			opts = append(opts, option.ApplyOperator(option.Condition{Field: "action", Value: action}))
		}
		if targetType := strings.TrimSpace(filter.TargetType); targetType != "" {
			opts = append(opts, option.ApplyOperator(option.Condition{Field: "target_type", Value: targetType}))
		}
		if targetID := strings.TrimSpace(filter.TargetID); targetID != "" {
			opts = append(opts, option.ApplyOperator(option.Condition{Field: "target_id", Value: targetID}))
		}
		if actorType := strings.TrimSpace(filter.ActorType); actorType != "" {
			opts = append(opts, option.ApplyOperator(option.Condition{Field: "actor_type", Value: actorType}))
		}
		if filter.StartAt != nil {
			opts = append(opts, option.ApplyOperator(option.Condition{Field: "created_at", Operator: option.GTE, Value: filter.StartAt.UTC()}))
		}
		if filter.EndAt != nil {
			opts = append(opts, option.ApplyOperator(option.Condition{Field: "created_at", Operator: option.LTE, Value: filter.EndAt.UTC()}))
		}
		return option.Apply(db.WithContext(ctx).Model(&domain.AuditLog{}), opts...)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []*domain.AuditLog
	stmt := base().Order("created_at desc, id desc").Offset(filter.Offset)
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	if err := stmt.Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

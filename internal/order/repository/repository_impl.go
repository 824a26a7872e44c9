package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/notemart/internal/order/domain"
	"github.com/smallbiznis/notemart/pkg/db/option"
	"github.com/smallbiznis/notemart/pkg/db/pagination"
	"gorm.io/gorm"
)

const orderColumns = `id, order_id, user_id, customer_email, customer_first_name, customer_last_name,
	customer_phone, billing_address, subtotal, discount_amount, total_amount, coupon_code, currency,
	status, processor_order_id, payment_id, payment_method, refund_id, paid_at, refunded_at,
	created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.OrderID,
		order.UserID,
		order.CustomerEmail,
		order.CustomerFirstName,
		order.CustomerLastName,
		order.CustomerPhone,
		order.BillingAddress,
		order.Subtotal,
		order.DiscountAmount,
		order.TotalAmount,
		order.CouponCode,
		order.Currency,
		order.Status,
		order.ProcessorOrderID,
		order.PaymentID,
		order.PaymentMethod,
		order.RefundID,
		order.PaidAt,
		order.RefundedAt,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.OrderItem) error {
	for _, item := range items {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO order_items (id, order_id, note_id, title, price, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			item.ID,
			item.OrderID,
			item.NoteID,
			item.Title,
			item.Price,
			item.CreatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*domain.Order, error) {
	return r.findOne(ctx, db, "order_id = ?", orderID)
}

func (r *repo) FindByProcessorOrderID(ctx context.Context, db *gorm.DB, processorOrderID string) (*domain.Order, error) {
	return r.findOne(ctx, db, "processor_order_id = ?", processorOrderID)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, arg any) (*domain.Order, error) {
	var o domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT `+orderColumns+` FROM orders WHERE `+where+` LIMIT 1`,
		arg,
	).Scan(&o).Error
	if err != nil {
		return nil, err
	}
	if o.ID == 0 {
		return nil, nil
	}
	return &o, nil
}

func (r *repo) Items(ctx context.Context, db *gorm.DB, orderIDs ...snowflake.ID) ([]domain.OrderItem, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	var items []domain.OrderItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, note_id, title, price, created_at
		 FROM order_items WHERE order_id IN ? ORDER BY id ASC`,
		orderIDs,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]domain.Order, int64, error) {
	var (
		items []domain.Order
		total int64
	)

	base := func() *gorm.DB {
		opts := make([]option.QueryOption, 0, 4)
		if filter.UserID != nil {
			opts = append(opts, option.ApplyOperator(option.Condition{Field: "user_id", Value: *filter.UserID}))
		}
		if filter.Status != "" {
			opts = append(opts, option.ApplyOperator(option.Condition{Field: "status", Value: filter.Status}))
		}
		if filter.DateFrom != nil {
			opts = append(opts, option.ApplyOperator(option.Condition{Field: "created_at", Operator: option.GTE, Value: *filter.DateFrom}))
		}
		if filter.DateTo != nil {
			opts = append(opts, option.ApplyOperator(option.Condition{Field: "created_at", Operator: option.LTE, Value: *filter.DateTo}))
		}
		stmt := option.Apply(db.WithContext(ctx).Model(&domain.Order{}), opts...)
		if search := strings.TrimSpace(filter.Search); search != "" {
			like := "%" + strings.ToLower(search) + "%"
			stmt = stmt.Where(
				"(LOWER(order_id) LIKE ? OR LOWER(customer_email) LIKE ? OR LOWER(customer_first_name) LIKE ? OR LOWER(customer_last_name) LIKE ?)",
				like, like, like, like,
			)
		}
		return stmt
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

func (r *repo) ListStalePending(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Table("orders").
		Select("id").
		Where("status = ? AND created_at < ?", domain.StatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) AttachProcessorOrder(ctx context.Context, db *gorm.DB, id snowflake.ID, processorOrderID string) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET processor_order_id = ?, updated_at = ?
		 WHERE id = ? AND processor_order_id IS NULL`,
		processorOrderID,
		time.Now().UTC(),
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// TransitionPaid also accepts failed orders: a failed attempt can be followed
// by a captured retry on the same processor order.
func (r *repo) TransitionPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, update domain.PaymentUpdate, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, payment_id = ?, payment_method = ?, paid_at = ?, updated_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		domain.StatusPaid,
		nullable(update.PaymentID),
		nullable(update.PaymentMethod),
		at,
		at,
		id,
		domain.StatusPending,
		domain.StatusFailed,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) TransitionFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		domain.StatusFailed,
		at,
		id,
		domain.StatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) TransitionRefunded(ctx context.Context, db *gorm.DB, id snowflake.ID, refundID string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, refund_id = ?, refunded_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusRefunded,
		nullable(refundID),
		at,
		at,
		id,
		domain.StatusPaid,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func nullable(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

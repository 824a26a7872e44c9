package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/notemart/internal/clock"
	"github.com/smallbiznis/notemart/internal/config"
	"github.com/smallbiznis/notemart/internal/dashboard/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const latestOrdersLimit = 5

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Cfg        config.Config
	Storefront *config.StorefrontHolder
	Clock      clock.Clock `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	currency   string
	storefront *config.StorefrontHolder
	clock      clock.Clock
}

func NewService(p Params) domain.Service {
	currency := strings.ToUpper(strings.TrimSpace(p.Cfg.Payment.Currency))
	if currency == "" {
		currency = "INR"
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("dashboard.service"),
		currency:   currency,
		storefront: p.Storefront,
		clock:      clock.Or(p.Clock),
	}
}

type totalsRow struct {
	TotalRevenue   decimal.Decimal `gorm:"column:total_revenue"`
	TotalNotes     int64           `gorm:"column:total_notes"`
	TotalDownloads int64           `gorm:"column:total_downloads"`
}

type orderRow struct {
	OrderID           string          `gorm:"column:order_id"`
	CustomerFirstName string          `gorm:"column:customer_first_name"`
	CustomerLastName  string          `gorm:"column:customer_last_name"`
	TotalAmount       decimal.Decimal `gorm:"column:total_amount"`
	Status            string          `gorm:"column:status"`
	CreatedAt         time.Time       `gorm:"column:created_at"`
}

type subjectRow struct {
	Subject string          `gorm:"column:subject"`
	Sales   int64           `gorm:"column:sales"`
	Revenue decimal.Decimal `gorm:"column:revenue"`
}

type paidRow struct {
	PaidAt      time.Time       `gorm:"column:paid_at"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount"`
}

func (s *Service) Stats(ctx context.Context) (*domain.StatsResponse, error) {
	cfg := s.storefront.Get()
	now := s.clock.Now()
	db := s.db.WithContext(ctx)

	var totals totalsRow
	if err := db.Raw(
		`SELECT
			(SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE status = 'paid') AS total_revenue,
			(SELECT COUNT(*) FROM notes) AS total_notes,
			(SELECT COALESCE(SUM(downloads), 0) FROM notes) AS total_downloads`,
	).Scan(&totals).Error; err != nil {
		return nil, err
	}

	var activeUsers int64
	if err := db.Raw(
		`SELECT COUNT(DISTINCT user_id)
		 FROM orders
		 WHERE status = 'paid' AND user_id IS NOT NULL AND created_at >= ?`,
		now.AddDate(0, 0, -positive(cfg.ActiveUsersDays, 30)),
	).Scan(&activeUsers).Error; err != nil {
		return nil, err
	}

	var recentOrders int64
	if err := db.Raw(
		`SELECT COUNT(*) FROM orders WHERE created_at >= ?`,
		now.AddDate(0, 0, -positive(cfg.RecentOrdersDays, 7)),
	).Scan(&recentOrders).Error; err != nil {
		return nil, err
	}

	var latest []orderRow
	if err := db.Raw(
		`SELECT order_id, customer_first_name, customer_last_name, total_amount, status, created_at
		 FROM orders
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		latestOrdersLimit,
	).Scan(&latest).Error; err != nil {
		return nil, err
	}

	var subjects []subjectRow
	if err := db.Raw(
		`SELECT n.subject AS subject, COUNT(*) AS sales, COALESCE(SUM(oi.price), 0) AS revenue
		 FROM order_items oi
		 JOIN orders o ON o.id = oi.order_id
		 JOIN notes n ON n.id = oi.note_id
		 WHERE o.status = 'paid'
		 GROUP BY n.subject
		 ORDER BY sales DESC, n.subject ASC
		 LIMIT ?`,
		positive(cfg.PopularSubjectsLimit, 5),
	).Scan(&subjects).Error; err != nil {
		return nil, err
	}

	monthly, err := s.monthlyRevenue(ctx, now, positive(cfg.MonthlyRevenueMonths, 6))
	if err != nil {
		return nil, err
	}

	resp := &domain.StatsResponse{
		Currency:        s.currency,
		TotalRevenue:    totals.TotalRevenue.Round(2),
		TotalNotes:      totals.TotalNotes,
		TotalDownloads:  totals.TotalDownloads,
		ActiveUsers:     activeUsers,
		RecentOrders:    recentOrders,
		LatestOrders:    make([]domain.OrderSummary, 0, len(latest)),
		PopularSubjects: make([]domain.SubjectSales, 0, len(subjects)),
		MonthlyRevenue:  monthly,
		Window: map[string]int{
			"recent_orders_days": positive(cfg.RecentOrdersDays, 7),
			"active_users_days":  positive(cfg.ActiveUsersDays, 30),
		},
		GeneratedAt: now,
	}
	for _, row := range latest {
		resp.LatestOrders = append(resp.LatestOrders, domain.OrderSummary{
			OrderID:      row.OrderID,
			CustomerName: strings.TrimSpace(row.CustomerFirstName + " " + row.CustomerLastName),
			TotalAmount:  row.TotalAmount.Round(2),
			Status:       row.Status,
			CreatedAt:    row.CreatedAt,
		})
	}
	for _, row := range subjects {
		resp.PopularSubjects = append(resp.PopularSubjects, domain.SubjectSales{
			Subject: row.Subject,
			Sales:   row.Sales,
			Revenue: row.Revenue.Round(2),
		})
	}
	return resp, nil
}

// monthlyRevenue buckets paid orders by calendar month in Go so the query
// stays portable across dialects. Months without sales are reported as zero.
func (s *Service) monthlyRevenue(ctx context.Context, now time.Time, months int) ([]domain.MonthlyRevenue, error) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

	var rows []paidRow
	if err := s.db.WithContext(ctx).Raw(
		`SELECT paid_at, total_amount
		 FROM orders
		 WHERE status = 'paid' AND paid_at IS NOT NULL AND paid_at >= ?`,
		start,
	).Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]domain.MonthlyRevenue, months)
	index := make(map[string]int, months)
	for i := 0; i < months; i++ {
		key := start.AddDate(0, i, 0).Format("2006-01")
		out[i] = domain.MonthlyRevenue{Month: key, Revenue: decimal.Zero}
		index[key] = i
	}
	for _, row := range rows {
		i, ok := index[row.PaidAt.UTC().Format("2006-01")]
		if !ok {
			continue
		}
		out[i].Revenue = out[i].Revenue.Add(row.TotalAmount)
		out[i].Orders++
	}
	for i := range out {
		out[i].Revenue = out[i].Revenue.Round(2)
	}
	return out, nil
}

func positive(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

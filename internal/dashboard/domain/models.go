package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	Stats(ctx context.Context) (*StatsResponse, error)
}

// StatsResponse is the admin dashboard summary. Revenue counts paid orders
// only; refunded orders drop out.
type StatsResponse struct {
	Currency        string           `json:"currency"`
	TotalRevenue    decimal.Decimal  `json:"total_revenue"`
	TotalNotes      int64            `json:"total_notes"`
	TotalDownloads  int64            `json:"total_downloads"`
	ActiveUsers     int64            `json:"active_users"`
	RecentOrders    int64            `json:"recent_orders"`
	LatestOrders    []OrderSummary   `json:"latest_orders"`
	PopularSubjects []SubjectSales   `json:"popular_subjects"`
	MonthlyRevenue  []MonthlyRevenue `json:"monthly_revenue"`
	Window          map[string]int   `json:"window"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

type OrderSummary struct {
	OrderID      string          `json:"order_id"`
	CustomerName string          `json:"customer_name"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

type SubjectSales struct {
	Subject string          `json:"subject"`
	Sales   int64           `json:"sales"`
	Revenue decimal.Decimal `json:"revenue"`
}

type MonthlyRevenue struct {
	Month   string          `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int64           `json:"orders"`
}

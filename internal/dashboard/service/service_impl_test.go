package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/notemart/internal/catalog/domain"
	"github.com/smallbiznis/notemart/internal/clock"
	"github.com/smallbiznis/notemart/internal/config"
	orderdomain "github.com/smallbiznis/notemart/internal/order/domain"
	"github.com/smallbiznis/notemart/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

type seeder struct {
	t    *testing.T
	db   *gorm.DB
	node *snowflake.Node
}

func (s seeder) note(subject string, downloads int64) catalogdomain.Note {
	n := catalogdomain.Note{
		ID:        s.node.Generate(),
		Title:     subject + " notes",
		Subject:   subject,
		Price:     decimal.RequireFromString("10.00"),
		Status:    catalogdomain.StatusActive,
		Downloads: downloads,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(s.t, s.db.Create(&n).Error)
	return n
}

func (s seeder) order(userID *snowflake.ID, status orderdomain.Status, createdAt time.Time, total string, notes ...catalogdomain.Note) {
	o := orderdomain.Order{
		ID:                s.node.Generate(),
		OrderID:           "ORD-" + s.node.Generate().String(),
		UserID:            userID,
		CustomerEmail:     "c@example.com",
		CustomerFirstName: "Meera",
		CustomerLastName:  "Iyer",
		Subtotal:          decimal.RequireFromString(total),
		TotalAmount:       decimal.RequireFromString(total),
		Currency:          "INR",
		Status:            status,
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}
	if status == orderdomain.StatusPaid {
		paidAt := createdAt.Add(time.Minute)
		o.PaidAt = &paidAt
	}
	require.NoError(s.t, s.db.Create(&o).Error)
	for _, n := range notes {
		require.NoError(s.t, s.db.Create(&orderdomain.OrderItem{
			ID:        s.node.Generate(),
			OrderID:   o.ID,
			NoteID:    n.ID,
			Title:     n.Title,
			Price:     n.Price,
			CreatedAt: createdAt,
		}).Error)
	}
}

func TestStats(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&catalogdomain.Note{}, &orderdomain.Order{}, &orderdomain.OrderItem{}))
	node, err := snowflake.NewNode(13)
	require.NoError(t, err)
	s := seeder{t: t, db: conn, node: node}

	physics := s.note("Physics", 4)
	maths := s.note("Maths", 6)
	biology := s.note("Biology", 0)

	alice := node.Generate()
	bob := node.Generate()
	s.order(&alice, orderdomain.StatusPaid, now.Add(-2*24*time.Hour), "20.00", physics, maths)
	s.order(&bob, orderdomain.StatusPaid, now.AddDate(0, -2, 0), "10.00", physics)
	s.order(&bob, orderdomain.StatusRefunded, now.Add(-24*time.Hour), "10.00", biology)
	s.order(nil, orderdomain.StatusPending, now.Add(-time.Hour), "10.00", maths)

	svc := NewService(Params{
		DB:         conn,
		Log:        zap.NewNop(),
		Storefront: config.NewStaticStorefront(config.DefaultStorefrontConfig()),
		Clock:      clock.NewFakeClock(now),
	})

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "INR", stats.Currency)
	assert.True(t, decimal.RequireFromString("30.00").Equal(stats.TotalRevenue), stats.TotalRevenue.String())
	assert.Equal(t, int64(3), stats.TotalNotes)
	assert.Equal(t, int64(10), stats.TotalDownloads)
	// bob's paid order is older than the 30 day window
	assert.Equal(t, int64(1), stats.ActiveUsers)
	assert.Equal(t, int64(3), stats.RecentOrders)
	require.Len(t, stats.LatestOrders, 4)
	assert.Equal(t, "pending", stats.LatestOrders[0].Status)
	assert.Equal(t, "Meera Iyer", stats.LatestOrders[0].CustomerName)

	require.Len(t, stats.PopularSubjects, 2)
	assert.Equal(t, "Physics", stats.PopularSubjects[0].Subject)
	assert.Equal(t, int64(2), stats.PopularSubjects[0].Sales)
	assert.True(t, decimal.RequireFromString("20.00").Equal(stats.PopularSubjects[0].Revenue))

	require.Len(t, stats.MonthlyRevenue, 6)
	assert.Equal(t, "2026-01", stats.MonthlyRevenue[0].Month)
	assert.Equal(t, "2026-06", stats.MonthlyRevenue[5].Month)
	assert.True(t, decimal.RequireFromString("20.00").Equal(stats.MonthlyRevenue[5].Revenue))
	assert.Equal(t, int64(1), stats.MonthlyRevenue[5].Orders)
	assert.True(t, decimal.RequireFromString("10.00").Equal(stats.MonthlyRevenue[3].Revenue))
	assert.True(t, stats.MonthlyRevenue[4].Revenue.IsZero())
}

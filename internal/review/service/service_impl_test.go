package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/notemart/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/notemart/internal/catalog/repository"
	"github.com/smallbiznis/notemart/internal/config"
	orderdomain "github.com/smallbiznis/notemart/internal/order/domain"
	"github.com/smallbiznis/notemart/internal/review/domain"
	"github.com/smallbiznis/notemart/internal/review/repository"
	"github.com/smallbiznis/notemart/pkg/db"
	"github.com/smallbiznis/notemart/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc  *Service
	db   *gorm.DB
	node *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&catalogdomain.Note{},
		&orderdomain.Order{},
		&orderdomain.OrderItem{},
		&domain.Review{},
	))

	node, err := snowflake.NewNode(11)
	require.NoError(t, err)

	svc := New(Params{
		DB:          conn,
		Log:         zap.NewNop(),
		GenID:       node,
		Repo:        repository.Provide(),
		CatalogRepo: catalogrepo.Provide(),
		Storefront:  config.NewStaticStorefront(config.DefaultStorefrontConfig()),
	}).(*Service)
	return &fixture{svc: svc, db: conn, node: node}
}

func (f *fixture) note(t *testing.T) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	n := catalogdomain.Note{
		ID:        f.node.Generate(),
		Title:     "Organic Chemistry",
		Subject:   "Chemistry",
		Price:     decimal.RequireFromString("9.99"),
		Status:    catalogdomain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.db.Create(&n).Error)
	return n.ID
}

func (f *fixture) purchase(t *testing.T, userID, noteID snowflake.ID, status orderdomain.Status) {
	t.Helper()
	now := time.Now().UTC()
	order := orderdomain.Order{
		ID:                f.node.Generate(),
		OrderID:           "ORD-" + f.node.Generate().String(),
		UserID:            &userID,
		CustomerEmail:     "buyer@example.com",
		CustomerFirstName: "Buyer",
		CustomerLastName:  "One",
		Subtotal:          decimal.RequireFromString("9.99"),
		TotalAmount:       decimal.RequireFromString("9.99"),
		Currency:          "INR",
		Status:            status,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, f.db.Create(&order).Error)
	require.NoError(t, f.db.Create(&orderdomain.OrderItem{
		ID:        f.node.Generate(),
		OrderID:   order.ID,
		NoteID:    noteID,
		Title:     "Organic Chemistry",
		Price:     decimal.RequireFromString("9.99"),
		CreatedAt: now,
	}).Error)
}

func TestCreateRequiresPaidPurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	noteID := f.note(t)
	userID := f.node.Generate()

	req := domain.CreateRequest{UserID: userID, UserName: "Asha", NoteID: noteID.String(), Rating: 5, Comment: "great"}

	_, err := f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrNotPurchased)

	f.purchase(t, userID, noteID, orderdomain.StatusPending)
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrNotPurchased)

	f.purchase(t, userID, noteID, orderdomain.StatusPaid)
	resp, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 5, resp.Rating)
	assert.Equal(t, "Asha", resp.UserName)

	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	noteID := f.note(t)
	userID := f.node.Generate()

	_, err := f.svc.Create(ctx, domain.CreateRequest{UserID: userID, NoteID: noteID.String(), Rating: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidRating)

	_, err = f.svc.Create(ctx, domain.CreateRequest{UserID: userID, NoteID: noteID.String(), Rating: 6})
	assert.ErrorIs(t, err, domain.ErrInvalidRating)

	_, err = f.svc.Create(ctx, domain.CreateRequest{UserID: userID, NoteID: "abc", Rating: 3})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = f.svc.Create(ctx, domain.CreateRequest{UserID: userID, NoteID: f.node.Generate().String(), Rating: 3})
	assert.ErrorIs(t, err, domain.ErrNoteNotFound)
}

func TestListForNoteSummarizes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	noteID := f.note(t)

	for _, rating := range []int{5, 4, 4} {
		userID := f.node.Generate()
		f.purchase(t, userID, noteID, orderdomain.StatusPaid)
		_, err := f.svc.Create(ctx, domain.CreateRequest{UserID: userID, UserName: "u", NoteID: noteID.String(), Rating: rating})
		require.NoError(t, err)
	}

	resp, err := f.svc.ListForNote(ctx, noteID.String(), pagination.Pagination{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Reviews, 2)
	assert.Equal(t, int64(3), resp.Count)
	assert.Equal(t, 4.3, resp.AverageRating)
	assert.True(t, resp.PageInfo.HasMore)
}

func TestAdminListAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	noteID := f.note(t)
	userID := f.node.Generate()
	f.purchase(t, userID, noteID, orderdomain.StatusPaid)

	created, err := f.svc.Create(ctx, domain.CreateRequest{UserID: userID, NoteID: noteID.String(), Rating: 2})
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", created.UserName)

	list, err := f.svc.AdminList(ctx, pagination.Pagination{})
	require.NoError(t, err)
	require.Len(t, list.Reviews, 1)

	require.NoError(t, f.svc.Delete(ctx, created.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, created.ID), domain.ErrNotFound)
}

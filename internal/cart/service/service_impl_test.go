package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/notemart/internal/cart/domain"
	"github.com/smallbiznis/notemart/internal/cart/repository"
	catalogdomain "github.com/smallbiznis/notemart/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/notemart/internal/catalog/repository"
	"github.com/smallbiznis/notemart/pkg/db"
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
	require.NoError(t, conn.AutoMigrate(&catalogdomain.Note{}, &domain.CartItem{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	svc := New(Params{
		DB:          conn,
		Log:         zap.NewNop(),
		GenID:       node,
		Repo:        repository.Provide(),
		CatalogRepo: catalogrepo.Provide(),
	}).(*Service)
	return &fixture{svc: svc, db: conn, node: node}
}

func (f *fixture) note(t *testing.T, title, price, status string) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	n := catalogdomain.Note{
		ID:        f.node.Generate(),
		Title:     title,
		Subject:   "Physics",
		Price:     decimal.RequireFromString(price),
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.db.Create(&n).Error)
	return n.ID
}

func TestAddIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.node.Generate()
	noteID := f.note(t, "Optics", "12.50", catalogdomain.StatusActive)

	first, created, err := f.svc.Add(ctx, user, noteID.String())
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := f.svc.Add(ctx, user, noteID.String())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	cart, err := f.svc.List(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Count)
	assert.True(t, decimal.RequireFromString("12.5").Equal(cart.Subtotal))
}

func TestAddRejectsInactiveNote(t *testing.T) {
	f := newFixture(t)
	noteID := f.note(t, "Retired", "1", catalogdomain.StatusInactive)

	_, _, err := f.svc.Add(context.Background(), f.node.Generate(), noteID.String())
	assert.ErrorIs(t, err, domain.ErrNoteNotFound)

	_, _, err = f.svc.Add(context.Background(), f.node.Generate(), "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidNoteID)
}

func TestRemoveIsScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.node.Generate()
	other := f.node.Generate()
	noteID := f.note(t, "Waves", "3", catalogdomain.StatusActive)

	item, _, err := f.svc.Add(ctx, owner, noteID.String())
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Remove(ctx, other, item.ID), domain.ErrNotFound)
	require.NoError(t, f.svc.Remove(ctx, owner, item.ID))
	assert.ErrorIs(t, f.svc.Remove(ctx, owner, item.ID), domain.ErrNotFound)
}

func TestListExcludesUnavailableFromSubtotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.node.Generate()
	a := f.note(t, "A", "10", catalogdomain.StatusActive)
	b := f.note(t, "B", "5", catalogdomain.StatusActive)

	_, _, err := f.svc.Add(ctx, user, a.String())
	require.NoError(t, err)
	_, _, err = f.svc.Add(ctx, user, b.String())
	require.NoError(t, err)
	require.NoError(t, f.db.Exec(`UPDATE notes SET status = ? WHERE id = ?`, catalogdomain.StatusInactive, b).Error)

	cart, err := f.svc.List(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 2, cart.Count)
	assert.True(t, decimal.NewFromInt(10).Equal(cart.Subtotal))
}

func TestRemovePurchasedAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.node.Generate()
	a := f.note(t, "A", "1", catalogdomain.StatusActive)
	b := f.note(t, "B", "1", catalogdomain.StatusActive)
	for _, id := range []snowflake.ID{a, b} {
		_, _, err := f.svc.Add(ctx, user, id.String())
		require.NoError(t, err)
	}

	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		return f.svc.RemovePurchased(ctx, tx, user, []snowflake.ID{a})
	}))
	cart, err := f.svc.List(ctx, user)
	require.NoError(t, err)
	require.Equal(t, 1, cart.Count)
	assert.Equal(t, b.String(), cart.Items[0].NoteID)

	require.NoError(t, f.svc.Clear(ctx, user))
	cart, err = f.svc.List(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, cart.Count)
}

package option

import (
	"testing"

	"github.com/smallbiznis/notemart/pkg/db"
	"github.com/smallbiznis/notemart/pkg/db/pagination"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID    int64 `gorm:"primaryKey"`
	Title string
	Price float64
}

func TestOptionsFilterSortAndPage(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&row{}))
	require.NoError(t, conn.Create(&[]row{
		{ID: 1, Title: "algebra", Price: 10},
		{ID: 2, Title: "biology", Price: 20},
		{ID: 3, Title: "chemistry", Price: 30},
	}).Error)

	var out []row
	stmt := Apply(conn.Model(&row{}),
		ApplyOperator(Condition{Field: "price", Operator: GTE, Value: 15}),
		WithSortBy(WithQuerySortBy("price", "asc", map[string]bool{"price": true})),
		ApplyPagination(pagination.Pagination{Page: 1, Limit: 1}),
	)
	require.NoError(t, stmt.Find(&out).Error)
	require.Len(t, out, 1)
	require.Equal(t, int64(2), out[0].ID)
}

func TestWithSortByRejectsUnknownColumn(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&row{}))
	require.NoError(t, conn.Create(&[]row{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}}).Error)

	var out []row
	stmt := Apply(conn.Model(&row{}), WithSortBy(QuerySortBy{
		SortBy:  "title; DROP TABLE rows",
		Default: "id",
		Allow:   map[string]bool{"title": true},
	}))
	require.NoError(t, stmt.Find(&out).Error)
	require.Equal(t, int64(2), out[0].ID)
}

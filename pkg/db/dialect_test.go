package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectOnlyAcceptsPostgres(t *testing.T) {
	for _, typ := range []string{"", "postgres", "PostgreSQL"} {
		d, err := Dialect(Config{Type: typ, Host: "localhost", Port: "5432", Name: "notemart"})
		require.NoError(t, err, typ)
		assert.Equal(t, "postgres", d.Name())
	}

	for _, typ := range []string{"mysql", "sqlite"} {
		_, err := Dialect(Config{Type: typ})
		assert.Error(t, err, typ)
	}
}

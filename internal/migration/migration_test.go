package migration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := embeddedMigrations.ReadDir(migrationsDir)
	require.NoError(t, err)

	var up, down int
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			up++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			down++
		}
	}
	assert.Positive(t, up)
	assert.Equal(t, up, down)
}

func TestInitMigrationCreatesEveryTable(t *testing.T) {
	up, err := embeddedMigrations.ReadFile(migrationsDir + "/000001_init.up.sql")
	require.NoError(t, err)
	down, err := embeddedMigrations.ReadFile(migrationsDir + "/000001_init.down.sql")
	require.NoError(t, err)

	for _, table := range []string{
		"notes", "users", "admins", "refresh_tokens", "password_resets",
		"cart_items", "coupons", "orders", "order_items", "payment_events",
		"reviews", "contacts", "audit_logs",
	} {
		assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS "+table+" (", table)
		assert.Contains(t, string(down), "DROP TABLE IF EXISTS "+table+";", table)
	}
}

func TestRunMigrationsRequiresHandle(t *testing.T) {
	assert.Error(t, RunMigrations(nil))
}

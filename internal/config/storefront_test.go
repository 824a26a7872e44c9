package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStorefrontDefaultsWithoutFile(t *testing.T) {
	holder, err := NewStorefrontHolder(Config{StorefrontConfigPath: ""}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, DefaultStorefrontConfig(), holder.Get())
}

func TestStorefrontLoadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storefront.yml")
	content := "storefront:\n  catalogDefaultLimit: 9\n  catalogMaxLimit: 30\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	holder, err := NewStorefrontHolder(Config{StorefrontConfigPath: path}, zap.NewNop())
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, 9, got.CatalogDefaultLimit)
	assert.Equal(t, 30, got.CatalogMaxLimit)
	assert.Equal(t, 7, got.RecentOrdersDays)
}

func TestStorefrontRejectsInvalidLimits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storefront.yml")
	content := "storefront:\n  catalogDefaultLimit: 80\n  catalogMaxLimit: 30\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := NewStorefrontHolder(Config{StorefrontConfigPath: path}, zap.NewNop())
	assert.Error(t, err)
}

func TestNilHolderFallsBackToDefaults(t *testing.T) {
	var holder *StorefrontHolder
	assert.Equal(t, DefaultStorefrontConfig(), holder.Get())
}

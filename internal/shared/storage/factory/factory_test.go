package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pearlbox/internal/shared/storage/dbutil"
	"pearlbox/pkg/logging"
)

func TestNewPersistentStore_SQLite(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "shop.db")
	store, err := NewPersistentStore(dbutil.DriverSQLite, dsn, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Ping(context.Background()))
	n, err := store.CountProducts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewPersistentStore_Unsupported(t *testing.T) {
	_, err := NewPersistentStore("mongodb", "mongodb://localhost", nil)
	assert.ErrorContains(t, err, "unsupported database driver")
}

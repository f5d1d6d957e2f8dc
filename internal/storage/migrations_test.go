package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_ReachesExpectedVersion(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))

	var version int
	require.NoError(t, store.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestMigrate_Idempotent(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	// Already migrated by the helper; a second pass must be a no-op.
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx))
}

func TestMigrate_VersionsAreOrderedAndUnique(t *testing.T) {
	seen := make(map[int]bool)
	last := 0
	for _, m := range migrations {
		assert.Greater(t, m.Version, last, "migration versions must increase")
		assert.False(t, seen[m.Version], "duplicate migration version %d", m.Version)
		seen[m.Version] = true
		last = m.Version
	}
	assert.Equal(t, ExpectedSchemaVersion, last)
}

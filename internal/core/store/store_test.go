package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsdecades/newsdecades/internal/config"
)

func TestBuildLibsqlDSN(t *testing.T) {
	t.Run("URLUsesRawValue", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://example.turso.io",
			AuthToken: "token123",
		}

		dsn, local, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.False(t, local)
		require.Equal(t, "libsql://example.turso.io?authToken=token123", dsn)
	})

	t.Run("URLWithExistingQuery", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://example.turso.io?foo=bar",
			AuthToken: "token123",
		}

		dsn, _, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "libsql://example.turso.io?authToken=token123&foo=bar", dsn)
	})

	t.Run("PathWithFilePrefix", func(t *testing.T) {
		cfg := config.StoreConfig{Path: "file:./newsdecades.db"}

		dsn, local, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.True(t, local)
		require.Equal(t, "file:./newsdecades.db", dsn)
	})

	t.Run("PathMissing", func(t *testing.T) {
		_, _, err := buildLibsqlDSN(config.StoreConfig{})
		require.Error(t, err)
	})

	t.Run("MemoryPath", func(t *testing.T) {
		dsn, _, err := buildLibsqlDSN(config.StoreConfig{Path: ":memory:"})
		require.NoError(t, err)
		require.Equal(t, ":memory:", dsn)
	})
}

func TestBuildSQLiteDSN(t *testing.T) {
	_, err := buildSQLiteDSN(config.StoreConfig{URL: "libsql://example.turso.io"})
	require.Error(t, err)

	_, err = buildSQLiteDSN(config.StoreConfig{})
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	dsn, err := buildSQLiteDSN(config.StoreConfig{Path: path})
	require.NoError(t, err)
	assert.Equal(t, path, dsn)
	assert.DirExists(t, filepath.Dir(path))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "postgres", Path: ":memory:"})
	require.Error(t, err)
}

func openSQLite(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), config.StoreConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "newsdecades.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestSQLiteStoreConfiguresLocalSettings(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	require.Equal(t, "sqlite", store.Driver())
	require.Equal(t, 1, store.DB.Stats().MaxOpenConnections)

	var journalMode string
	require.NoError(t, store.DB.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode))
	require.Contains(t, journalMode, "wal")

	require.NoError(t, store.CheckHealth(ctx))
}

func TestTimelineCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	_, ok, err := store.Get(ctx, "foo")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "foo", "1,2,3,4,5,6,7,8,9,10", time.Hour))
	body, ok, err := store.Get(ctx, "foo")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1,2,3,4,5,6,7,8,9,10", body)

	// Overwrite keeps one row per term.
	require.NoError(t, store.Set(ctx, "foo", "0,0,0,0,0,0,0,0,0,0", time.Hour))
	body, _, err = store.Get(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, "0,0,0,0,0,0,0,0,0,0", body)

	// Terms are keyed verbatim.
	_, ok, err = store.Get(ctx, "Foo")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestTimelineCacheExpiry(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "old", "1", time.Minute))
	require.NoError(t, store.Set(ctx, "fresh", "2", 24*time.Hour))
	require.NoError(t, store.Set(ctx, "skipped", "3", 0))

	now = now.Add(time.Hour)

	_, ok, err := store.Get(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok)

	body, ok, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", body)

	purged, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestNilStore(t *testing.T) {
	var store *Store
	ctx := context.Background()

	_, _, err := store.Get(ctx, "foo")
	require.Error(t, err)
	require.Error(t, store.Set(ctx, "foo", "1", time.Hour))
	_, err = store.PurgeExpired(ctx)
	require.Error(t, err)
	require.Error(t, store.Migrate(ctx))
	require.NoError(t, store.Close())
	require.Empty(t, store.Driver())
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, migrations[len(migrations)-1].version, version)

	require.NoError(t, store.Migrate(ctx))

	var applied int
	require.NoError(t, store.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	require.Equal(t, len(migrations), applied)
}

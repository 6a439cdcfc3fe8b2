package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestSQLite(t *testing.T) (*SQLStore, string) {
	path := filepath.Join(t.TempDir(), "cart.db")
	store, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	_, err := b.Get(ctx, "cart:missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Set(ctx, "cart:s1", []byte(`[{"id":"a","quantity":1}]`)))
	require.NoError(t, b.Set(ctx, "cart:s1", []byte(`[{"id":"a","quantity":3}]`)))
	require.NoError(t, b.Set(ctx, "cart:s2", []byte(`[]`)))

	got, err := b.Get(ctx, "cart:s1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a","quantity":3}]`, string(got))

	require.NoError(t, b.Delete(ctx, "cart:s1"))
	require.NoError(t, b.Delete(ctx, "cart:s1"))
	_, err = b.Get(ctx, "cart:s1")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err = b.Get(ctx, "cart:s2")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
}

func TestSQLite_Backend(t *testing.T) {
	store, _ := setupTestSQLite(t)
	exerciseBackend(t, store)
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	store, path := setupTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "cart:s1", []byte(`[{"id":"a"}]`)))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "cart:s1")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, string(got))
}

func TestRunMigrations_UnknownDialect(t *testing.T) {
	err := RunMigrations(nil, Dialect("oracle"))
	assert.ErrorContains(t, err, "unsupported dialect")
}

func TestPostgres_Backend(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("cartdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer store.Close()

	exerciseBackend(t, store)
}

package pgstore

import (
	"context"
	"testing"
	"time"

	"balance_tracker/internal/domain/entity"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL container and creates the schema.
func setupTestDB(t *testing.T) *Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests are skipped in -short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")
	t.Cleanup(pool.Close)

	require.NoError(t, pool.EnsureSchema(ctx))
	require.NoError(t, pool.EnsureSchema(ctx), "schema creation is idempotent")
	return pool
}

func TestHistoryStore_Postgres(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	store := NewHistoryStore(pool)

	_, ok, err := store.Last(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	for i, v := range []string{"10.5", "47.5", "0.000000000000000001"} {
		require.NoError(t, store.Append(ctx, entity.HistoryPoint{
			Timestamp: int64(100 * (i + 1)),
			ValueUSD:  decimal.RequireFromString(v),
		}))
	}

	last, ok, err := store.Last(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(300), last.Timestamp)
	assert.Equal(t, "0.000000000000000001", last.ValueUSD.String())

	recent, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(200), recent[0].Timestamp)
	assert.Equal(t, int64(300), recent[1].Timestamp)

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, store.Append(ctx, entity.HistoryPoint{Timestamp: 300, ValueUSD: decimal.RequireFromString("1")}))
	last, _, err = store.Last(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", last.ValueUSD.String())
}

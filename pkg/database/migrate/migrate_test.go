//go:build integration

package migrate

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres runs a throwaway postgres container and returns a connection to it.
func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("history"),
		postgres.WithUsername("mcp"),
		postgres.WithPassword("mcp"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func relationExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var exists bool
	err := db.QueryRow(`SELECT to_regclass($1) IS NOT NULL`, "public."+name).Scan(&exists)
	require.NoError(t, err)
	return exists
}

func requireVersion(t *testing.T, db *sql.DB, want uint) {
	t.Helper()
	version, dirty, err := Version(db)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, want, version)
}

func TestMigrations(t *testing.T) {
	db := startPostgres(t)

	t.Run("up creates the history schema", func(t *testing.T) {
		require.NoError(t, Run(db))
		requireVersion(t, db, 2)

		for _, rel := range []string{
			"tool_calls",
			"idx_tool_calls_timestamp",
			"idx_tool_calls_tool_name",
			"idx_tool_calls_failures",
		} {
			assert.True(t, relationExists(t, db, rel), "%s should exist", rel)
		}
	})

	t.Run("up twice is a no-op", func(t *testing.T) {
		require.NoError(t, Run(db))
		requireVersion(t, db, 2)
	})

	t.Run("down drops everything", func(t *testing.T) {
		require.NoError(t, Down(db))
		assert.False(t, relationExists(t, db, "tool_calls"))
		assert.False(t, relationExists(t, db, "idx_tool_calls_failures"))
	})

	t.Run("steps apply one migration at a time", func(t *testing.T) {
		require.NoError(t, Steps(db, 1))
		requireVersion(t, db, 1)
		assert.True(t, relationExists(t, db, "tool_calls"))
		assert.False(t, relationExists(t, db, "idx_tool_calls_tool_name"))

		require.NoError(t, Steps(db, 1))
		requireVersion(t, db, 2)
		assert.True(t, relationExists(t, db, "idx_tool_calls_tool_name"))
	})
}

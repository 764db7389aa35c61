// Package testkit provides database fixtures for tests that need real work units.
package testkit

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shopseq/internal/migration"
	"shopseq/internal/store"

	"github.com/stretchr/testify/require"
)

// PostgresURLEnv names the variable that enables PostgreSQL-backed tests
const PostgresURLEnv = "TEST_DATABASE_URL"

// NewSQLiteStore opens a migrated SQLite database in a temp dir.
// The store is closed when the test ends.
func NewSQLiteStore(t testing.TB, lockTimeout time.Duration) *store.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "shopseq.db")
	return open(t, store.Options{
		Driver:       "sqlite",
		URL:          path,
		MaxOpenConns: 32,
		LockTimeout:  lockTimeout,
	})
}

// NewPostgresStore opens the database named by TEST_DATABASE_URL, skipping the
// test when it is unset. Tests share the database, so use UniqueTenant.
func NewPostgresStore(t testing.TB, lockTimeout time.Duration) *store.Store {
	t.Helper()

	url := os.Getenv(PostgresURLEnv)
	if url == "" {
		t.Skipf("%s not set; skipping PostgreSQL test", PostgresURLEnv)
	}
	return open(t, store.Options{
		Driver:       "postgres",
		URL:          url,
		MaxOpenConns: 64,
		LockTimeout:  lockTimeout,
	})
}

func open(t testing.TB, opts store.Options) *store.Store {
	t.Helper()

	ctx := context.Background()
	s, err := store.Open(ctx, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, migration.NewRunner().Run(ctx, s.DB()))
	return s
}

// UniqueTenant returns a tenant id unlikely to collide with other test runs
// against a shared database. Values stay below 2^31 so lock keys never fold.
func UniqueTenant() int64 {
	return 1_000_000 + rand.Int63n(1<<30)
}

// Package testutil provides throwaway SQLite stores for tests.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ad-tracker/video-hunter-go/internal/db"
)

// TestDatabase is a migrated store living in a per-test temp directory.
type TestDatabase struct {
	DB     *sql.DB
	Config *db.Config
}

// SetupTestDatabase opens a fresh migrated store and closes it when the test ends.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	return SetupTestDatabaseWithBusyTimeout(t, 5*time.Second)
}

// SetupTestDatabaseWithBusyTimeout is SetupTestDatabase with an explicit
// SQLite busy timeout, so contention tests can make locks fail fast.
func SetupTestDatabaseWithBusyTimeout(t *testing.T, busy time.Duration) *TestDatabase {
	t.Helper()

	cfg := &db.Config{
		Path:        filepath.Join(t.TempDir(), "hunter_test.db"),
		BusyTimeout: busy,
	}

	conn, err := db.Open(context.Background(), cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close(conn)
	})

	return &TestDatabase{DB: conn, Config: cfg}
}

// OpenSecondConnection opens another handle on the same file, the way a
// concurrent reader or a lingering run would.
func (td *TestDatabase) OpenSecondConnection(t *testing.T) *sql.DB {
	t.Helper()

	cfg := *td.Config
	cfg.SkipMigrations = true
	conn, err := db.Open(context.Background(), &cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close(conn)
	})
	return conn
}

// TruncateTables removes every row from the hunter tables.
func (td *TestDatabase) TruncateTables(t *testing.T) {
	t.Helper()

	for _, table := range []string{"videos", "api_quota_usage"} {
		_, err := td.DB.Exec("DELETE FROM " + table)
		require.NoError(t, err)
	}
}

package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{Path: "/tmp/hunter.db", BusyTimeout: 2 * time.Second}
	dsn := cfg.DSN()

	assert.True(t, strings.HasPrefix(dsn, "file:/tmp/hunter.db?"))
	assert.Contains(t, dsn, "busy_timeout%282000%29")
	assert.Contains(t, dsn, "journal_mode%28WAL%29")
	assert.Contains(t, dsn, "synchronous%28NORMAL%29")

	zero := &Config{Path: "x.db"}
	assert.Contains(t, zero.DSN(), "busy_timeout%2810000%29")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "hunter.db")

	conn, err := Open(ctx, &Config{Path: path})
	require.NoError(t, err)
	defer Close(conn)

	var mode string
	require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", strings.ToLower(mode))

	var tables int
	require.NoError(t, conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('videos', 'api_quota_usage')`,
	).Scan(&tables))
	assert.Equal(t, 2, tables)

	var indexes int
	require.NoError(t, conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name LIKE 'idx_videos_%'`,
	).Scan(&indexes))
	assert.Equal(t, 4, indexes)

	version, dirty, err := SchemaVersion(conn)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hunter.db")

	first, err := Open(ctx, &Config{Path: path})
	require.NoError(t, err)
	Close(first)

	second, err := Open(ctx, &Config{Path: path})
	require.NoError(t, err)
	Close(second)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), &Config{})
	assert.Error(t, err)
}

func TestUpdatedAtTrigger(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, &Config{Path: filepath.Join(t.TempDir(), "hunter.db")})
	require.NoError(t, err)
	defer Close(conn)

	_, err = conn.ExecContext(ctx, `INSERT INTO videos (video_id, title) VALUES ('abc', 'first')`)
	require.NoError(t, err)

	var created, before string
	require.NoError(t, conn.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM videos WHERE video_id = 'abc'`).Scan(&created, &before))

	time.Sleep(15 * time.Millisecond)
	_, err = conn.ExecContext(ctx, `UPDATE videos SET title = 'second' WHERE video_id = 'abc'`)
	require.NoError(t, err)

	var createdAfter, after string
	require.NoError(t, conn.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM videos WHERE video_id = 'abc'`).Scan(&createdAfter, &after))

	assert.Equal(t, created, createdAfter)
	assert.Greater(t, after, before)
}

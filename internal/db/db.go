package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Config holds the local store configuration parameters.
type Config struct {
	Path        string
	BusyTimeout time.Duration
	// SkipMigrations opens the store without applying schema migrations.
	SkipMigrations bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Path:        "data/hunter.db",
		BusyTimeout: 10 * time.Second,
	}
}

// DSN builds a modernc.org/sqlite connection string. Pragmas are carried in
// the DSN so every pooled connection gets them, not only the first one.
func (c *Config) DSN() string {
	busy := c.BusyTimeout
	if busy <= 0 {
		busy = DefaultConfig().BusyTimeout
	}

	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", "foreign_keys(ON)")
	return "file:" + c.Path + "?" + q.Encode()
}

// Open opens (creating if needed) the SQLite store and applies migrations.
func Open(ctx context.Context, cfg *Config) (*sql.DB, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if !cfg.SkipMigrations {
		if err := Migrate(conn); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	return conn, nil
}

// Close closes the database handle gracefully.
func Close(conn *sql.DB) {
	if conn != nil {
		_ = conn.Close()
	}
}

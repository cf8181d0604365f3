package shared

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const (
	memoryDatabase = ":memory:"
	busyTimeoutMS  = "5000"
)

// DatabaseDSN builds the go-sqlite3 connection string for path with a busy
// timeout and foreign keys on. On-disk databases use WAL.
func DatabaseDSN(path string) string {
	params := url.Values{}
	params.Set("_busy_timeout", busyTimeoutMS)
	params.Set("_foreign_keys", "on")
	if path != memoryDatabase {
		params.Set("_journal_mode", "WAL")
	}
	return path + "?" + params.Encode()
}

// OpenDatabase opens the session database described by cfg, applies its pool
// limits and checks the connection. Parent directories of an on-disk path are
// created as needed.
func OpenDatabase(ctx context.Context, cfg DatabaseConfig) (*sql.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: database path is empty", ErrInvalidArgument)
	}
	if cfg.Path != memoryDatabase {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", DatabaseDSN(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	switch {
	case cfg.Path == memoryDatabase:
		// every connection to :memory: is its own empty database
		db.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// OpenMemoryDatabase opens a private in-memory database.
func OpenMemoryDatabase(ctx context.Context) (*sql.DB, error) {
	return OpenDatabase(ctx, DatabaseConfig{Path: memoryDatabase})
}

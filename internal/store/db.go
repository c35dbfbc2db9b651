// Package store is the core's durable KV/rowset: users, sessions,
// alerts, positions, snapshots, cron jobs, market index + embeddings,
// stop-loss triggers, trading credentials (spec §3, §4.A, §6).
//
// Grounded on aristath-sentinel/internal/database/db.go's profile-based
// PRAGMA tuning and file: URI passthrough for in-memory test databases.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps a sqlite connection with the core's repositories.
type DB struct {
	conn *sql.DB
}

// Config controls how the backing sqlite file is opened.
type Config struct {
	// Path is a filesystem path, or a sqlite "file:" URI (e.g.
	// "file::memory:?cache=shared" for in-memory test databases, the
	// same convention the teacher uses).
	Path string
}

// Open opens (creating if absent) the sqlite database at cfg.Path,
// applies production-grade PRAGMAs, and runs the embedded schema.
func Open(cfg Config) (*DB, error) {
	path := cfg.Path
	if !strings.HasPrefix(path, "file:") {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		path = abs
	}

	connStr := buildConnectionString(path)
	conn, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(24 * time.Hour)
	conn.SetConnMaxIdleTime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, err
	}
	return db, nil
}

func buildConnectionString(path string) string {
	connStr := path
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	connStr += sep + "_pragma=journal_mode(WAL)"
	connStr += "&_pragma=synchronous(NORMAL)"
	connStr += "&_pragma=foreign_keys(1)"
	connStr += "&_pragma=busy_timeout(5000)"
	connStr += "&_pragma=cache_size(-64000)"
	return connStr
}

func (db *DB) migrate() error {
	if _, err := db.conn.Exec(schemaSQL); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Conn returns the underlying *sql.DB for repositories/tests that need
// raw access.
func (db *DB) Conn() *sql.DB { return db.conn }

// Close closes the underlying connection.
func (db *DB) Close() error { return db.conn.Close() }

// HealthCheck runs a cheap integrity probe, adapted from the teacher's
// daily-maintenance health-check idiom (SPEC_FULL §4 supplement).
func (db *DB) HealthCheck(ctx context.Context) error {
	var result string
	if err := db.conn.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("health check: sqlite reported %q", result)
	}
	return nil
}

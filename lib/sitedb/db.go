// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sitedb

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS extensions (
	name    TEXT PRIMARY KEY,
	path    TEXT NOT NULL,
	enabled INTEGER NOT NULL DEFAULT 1,
	weight  INTEGER NOT NULL DEFAULT 0
);
`

// Config holds the parameters for opening a site database.
type Config struct {
	// Path is the filesystem path to the database file.
	Path string

	// Create allows Open to create a missing database file. When
	// false, a missing file is an error.
	Create bool

	// PoolSize is the number of connections. Defaults to 2; command
	// resolution is single-threaded apart from `serve`.
	PoolSize int

	// Logger receives open/close messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// DB is a pool of connections to one site database.
type DB struct {
	inner  *sqlitex.Pool
	logger *slog.Logger
	path   string
}

// Open opens the database at cfg.Path. Connections are created lazily
// and the schema is applied to each on first use.
func Open(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sitedb: Path is required")
	}
	if !cfg.Create {
		if _, err := os.Stat(cfg.Path); err != nil {
			return nil, fmt.Errorf("sitedb: %w", err)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 2
	}

	inner, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("sitedb: opening %s: %w", cfg.Path, err)
	}

	logger.Debug("site database opened", "path", cfg.Path, "pool_size", poolSize)
	return &DB{inner: inner, logger: logger, path: cfg.Path}, nil
}

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

// Take borrows a connection. The caller must Put it back:
//
//	conn, err := db.Take(ctx)
//	if err != nil {
//	    return err
//	}
//	defer db.Put(conn)
func (db *DB) Take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := db.inner.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sitedb: take: %w", err)
	}
	return conn, nil
}

// Put returns a connection to the pool. Safe to call with nil.
func (db *DB) Put(conn *sqlite.Conn) {
	db.inner.Put(conn)
}

// Ping verifies the database answers a query.
func (db *DB) Ping(ctx context.Context) error {
	conn, err := db.Take(ctx)
	if err != nil {
		return err
	}
	defer db.Put(conn)

	var one int
	err = sqlitex.Execute(conn, "SELECT 1", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			one = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("sitedb: ping %s: %w", db.path, err)
	}
	if one != 1 {
		return fmt.Errorf("sitedb: ping %s: unexpected result %d", db.path, one)
	}
	return nil
}

// Close closes every connection. Blocks until borrowed connections are
// returned.
func (db *DB) Close() error {
	if err := db.inner.Close(); err != nil {
		db.logger.Error("site database close error", "path", db.path, "error", err)
		return fmt.Errorf("sitedb: closing %s: %w", db.path, err)
	}
	db.logger.Debug("site database closed", "path", db.path)
	return nil
}

// prepareConnection applies pragmas and the schema once per
// connection.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sitedb: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("sitedb: applying schema: %w", err)
	}
	return nil
}

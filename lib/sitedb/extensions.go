// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sitedb

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Extension is one row of the extensions table.
type Extension struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Enabled bool   `json:"enabled"`
	Weight  int    `json:"weight"`
}

// Extensions returns every extension in weight then name order.
func (db *DB) Extensions(ctx context.Context) ([]Extension, error) {
	return db.queryExtensions(ctx, "SELECT name, path, enabled, weight FROM extensions ORDER BY weight, name")
}

// EnabledExtensions returns the enabled extensions in weight then name
// order.
func (db *DB) EnabledExtensions(ctx context.Context) ([]Extension, error) {
	return db.queryExtensions(ctx, "SELECT name, path, enabled, weight FROM extensions WHERE enabled != 0 ORDER BY weight, name")
}

// SetExtension inserts or replaces an extension row.
func (db *DB) SetExtension(ctx context.Context, extension Extension) error {
	if extension.Name == "" {
		return fmt.Errorf("sitedb: extension name is required")
	}
	enabled := 0
	if extension.Enabled {
		enabled = 1
	}
	conn, err := db.Take(ctx)
	if err != nil {
		return err
	}
	defer db.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO extensions (name, path, enabled, weight) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			path = excluded.path,
			enabled = excluded.enabled,
			weight = excluded.weight`,
		&sqlitex.ExecOptions{
			Args: []any{extension.Name, extension.Path, enabled, extension.Weight},
		})
	if err != nil {
		return fmt.Errorf("sitedb: saving extension %s: %w", extension.Name, err)
	}
	return nil
}

func (db *DB) queryExtensions(ctx context.Context, query string) ([]Extension, error) {
	conn, err := db.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Put(conn)

	var extensions []Extension
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			extensions = append(extensions, Extension{
				Name:    stmt.ColumnText(0),
				Path:    stmt.ColumnText(1),
				Enabled: stmt.ColumnInt(2) != 0,
				Weight:  stmt.ColumnInt(3),
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sitedb: reading extensions: %w", err)
	}
	return extensions, nil
}

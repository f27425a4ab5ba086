// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sitedb opens a site's SQLite database and reads the state
// the FULL bootstrap phase needs from it.
//
// The database is a zombiezen.com/go/sqlite connection pool with WAL
// journaling and a busy timeout. The schema holds one table that
// matters to command resolution:
//
//	extensions(name, path, enabled, weight)
//
// Every enabled extension contributes its path to command discovery
// once the site is fully bootstrapped, in weight then name order.
//
// Callers [DB.Take] a connection and [DB.Put] it back. Connections are
// not safe for concurrent use; the DB itself is.
package sitedb

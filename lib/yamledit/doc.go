// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package yamledit edits YAML files by dotted key path.
//
// Edits operate on yaml.v3 node trees, so comments, key order and
// scalar styles outside the edited key survive a round trip. A key
// path like "database.replicas.0.host" walks mappings by key and
// sequences by index.
//
// [Commands] exposes the operations as bundled sitectl commands
// (get:value, lint, update:key, unset:key, update:value).
package yamledit

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for sitectl packages.
//
// [WriteTree] materializes a directory tree from a path→content map,
// which is how discovery, alias, and site-phase tests build their
// fixtures. [SocketDir] returns a short directory for Unix sockets
// (sun_path is limited to 108 bytes, and t.TempDir() paths can exceed
// that). [RequireReceive] wraps the select-with-timeout pattern used by
// the redispatch server tests.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// WriteTree creates every file in files under root, creating parent
// directories as needed. Keys are slash-separated paths relative to
// root. A key ending in "/" creates an empty directory. Files are
// written in sorted order so failures are reproducible.
//
//	testutil.WriteTree(t, root, map[string]string{
//	    "Commands/core/CacheCommands.yml": "commands: []",
//	    "sites/default/": "",
//	})
func WriteTree(t testing.TB, root string, files map[string]string) {
	t.Helper()

	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		full := filepath.Join(root, filepath.FromSlash(path))
		if path[len(path)-1] == '/' {
			if err := os.MkdirAll(full, 0o755); err != nil {
				t.Fatalf("creating directory %s: %v", full, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("creating directory for %s: %v", full, err)
		}
		if err := os.WriteFile(full, []byte(files[path]), 0o644); err != nil {
			t.Fatalf("writing %s: %v", full, err)
		}
	}
}

// SocketDir creates a temporary directory suitable for Unix domain
// sockets, removed when the test completes.
func SocketDir(t testing.TB) string {
	t.Helper()
	directory, err := os.MkdirTemp("/tmp", "sitectl-test-*")
	if err != nil {
		t.Fatalf("creating socket directory: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(directory)
	})
	return directory
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"path"
	"strings"
)

// Identity is the source-qualified key of a unit of commands, such as
// "sitectl/Commands/core/CacheCommands". Names may collide across
// units; identities do not.
type Identity string

// Namespace returns everything before the last path segment.
func (id Identity) Namespace() string {
	return path.Dir(string(id))
}

// Base returns the last path segment.
func (id Identity) Base() string {
	return path.Base(string(id))
}

// NormalizeIdentity trims surrounding whitespace and leading or
// trailing separators and turns backslash separators into slashes, so
// that "\Vendor\Commands\Audit" and "Vendor/Commands/Audit/" name the
// same unit.
func NormalizeIdentity(raw string) Identity {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), `\`, "/")
	return Identity(strings.Trim(normalized, "/"))
}

// Merge concatenates identity sets, dropping duplicates and empty
// identities while preserving first-seen order.
func Merge(sets ...[]Identity) []Identity {
	seen := make(map[Identity]bool)
	var merged []Identity
	for _, set := range sets {
		for _, id := range set {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			merged = append(merged, id)
		}
	}
	return merged
}

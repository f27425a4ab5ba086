// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"sort"
	"strings"
)

// maxSuggestions bounds the "Did you mean" list.
const maxSuggestions = 5

// Suggest returns the candidates closest to unknown. A candidate
// matches when it is within an edit distance of 3 (transpositions,
// dropped characters) and shares at least one character position, or
// when it contains unknown as a substring, which catches a namespace
// typed without its command ("cache" finds "cache:rebuild"). Results
// are ordered by distance, then name.
func Suggest(unknown string, candidates []string) []string {
	if unknown == "" {
		return nil
	}
	type scored struct {
		name     string
		distance int
	}
	var matches []scored
	seen := make(map[string]bool)
	for _, candidate := range candidates {
		if seen[candidate] || candidate == unknown {
			continue
		}
		seen[candidate] = true
		distance := levenshtein(unknown, candidate)
		if (distance <= 3 && distance < len(candidate)) || strings.Contains(candidate, unknown) {
			matches = append(matches, scored{candidate, distance})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].name < matches[j].name
	})
	if len(matches) == 0 {
		return nil
	}
	if len(matches) > maxSuggestions {
		matches = matches[:maxSuggestions]
	}
	names := make([]string, len(matches))
	for i, match := range matches {
		names[i] = match.name
	}
	return names
}

// Closest returns the single best suggestion, or "".
func Closest(unknown string, candidates []string) string {
	bestName := ""
	bestDistance := 4 // threshold: only suggest if distance <= 3
	for _, candidate := range candidates {
		distance := levenshtein(unknown, candidate)
		if distance < bestDistance {
			bestDistance = distance
			bestName = candidate
		}
	}
	return bestName
}

// levenshtein computes the Levenshtein edit distance between two strings.
// This is the minimum number of single-character edits (insertions, deletions,
// or substitutions) required to change one string into the other.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Use a single row of the distance matrix, updated in place.
	if len(a) > len(b) {
		a, b = b, a
	}

	previous := make([]int, len(a)+1)
	for i := range previous {
		previous[i] = i
	}

	for j := 1; j <= len(b); j++ {
		current := make([]int, len(a)+1)
		current[0] = j

		for i := 1; i <= len(a); i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}

			deletion := previous[i] + 1
			insertion := current[i-1] + 1
			substitution := previous[i-1] + cost

			current[i] = min(deletion, min(insertion, substitution))
		}

		previous = current
	}

	return previous[len(a)]
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/sitectl/lib/resolve"
)

// suggestFlag looks at args for the first unrecognized flag and returns
// the closest defined flag name, formatted with the appropriate prefix
// (-- or -). Returns "" if no good suggestion is found.
func suggestFlag(args []string, flagSet *pflag.FlagSet) string {
	var defined []string
	flagSet.VisitAll(func(f *pflag.Flag) {
		defined = append(defined, f.Name)
	})

	for _, arg := range args {
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "-") {
			// Global options end at the first positional argument.
			break
		}

		long := strings.HasPrefix(arg, "--")
		name := strings.TrimLeft(arg, "-")
		if index := strings.IndexByte(name, '='); index >= 0 {
			name = name[:index]
		}

		if long && flagSet.Lookup(name) != nil {
			continue
		}
		if !long {
			// Shorthands are too short to match by edit distance.
			if len(name) > 0 && flagSet.ShorthandLookup(name[:1]) != nil {
				continue
			}
			break
		}

		if best := resolve.Closest(name, defined); best != "" {
			return "--" + best
		}
		// Only check the first unrecognized flag.
		break
	}
	return ""
}

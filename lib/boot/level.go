// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package boot

import (
	"fmt"
	"strings"
)

// Level is a bootstrap stage. Levels are totally ordered; a higher
// level implies every lower level succeeded.
type Level int

const (
	// None is the level every invocation starts at.
	None Level = iota

	// Root means the host root directory has been located.
	Root

	// Site means a site directory has been selected by URI.
	Site

	// Configuration means the site's settings file has been loaded.
	Configuration

	// Database means the site database answered a query.
	Database

	// Full means the site's enabled extensions have been loaded and
	// their commands registered.
	Full

	// Max is a sentinel meaning "as far as the registered phases go".
	// No phase is ever registered at Max.
	Max
)

var levelNames = [...]string{
	None:          "none",
	Root:          "root",
	Site:          "site",
	Configuration: "configuration",
	Database:      "database",
	Full:          "full",
	Max:           "max",
}

// String returns the lowercase level name.
func (l Level) String() string {
	if l < None || l > Max {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l >= None && l <= Max
}

// ParseLevel parses a level name, case-insensitively. The empty string
// parses as None.
func ParseLevel(name string) (Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return None, nil
	}
	for level, levelName := range levelNames {
		if levelName == name {
			return Level(level), nil
		}
	}
	return None, fmt.Errorf("unknown bootstrap level %q (want one of %s)",
		name, strings.Join(levelNames[:], ", "))
}

// MarshalText encodes the level by name.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid bootstrap level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

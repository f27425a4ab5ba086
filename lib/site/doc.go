// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package site implements the bootstrap phases of a site host.
//
// A host root is a directory containing the marker file
// sitectl.site.yml. Sites live under <root>/sites/<uri>, each with a
// settings.yml naming its SQLite database:
//
//	<root>/sitectl.site.yml
//	<root>/sites/default/settings.yml
//	<root>/sites/default/site.db
//
// [Host] provides one [boot.Phase] per level from ROOT to FULL and
// implements [boot.Locator]. The FULL phase reads the enabled
// extensions from the database and adds a path-scan provider for each
// to the command registry, so extension commands only become visible
// once the site fully boots.
package site

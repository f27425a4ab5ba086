// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry assembles the set of commands sitectl can run.
//
// Commands come from independent [Provider] sources:
//
//   - [DeclaredProvider]: the `commands:` list in sitectl.yml. Each
//     entry names an identity and optionally a manifest file that
//     defines it.
//   - [PathProvider]: manifest files found under command search paths
//     (Commands/, Hooks/ and Generators/ subdirectories, depth 3).
//   - [ModuleProvider]: command modules compiled into the binary and
//     registered in a [ModuleIndex].
//
// plus a fixed set of bundled helpers registered directly with
// [Registry.Register] under a private prefix (see [Namespaced]).
//
// Every source first reports the [Identity] values it can supply
// (cheap), and only materializes the commands behind an identity when
// the registry is first consulted. Identities are deduplicated across
// sources in first-seen order, so two sources that describe the same
// unit contribute it once.
//
// # Name collisions
//
// Distinct identities may declare the same names. The policy is fixed:
//
//   - canonical name against canonical name: the last registered
//     descriptor wins, and the loser's aliases are released;
//   - alias against alias: the first registered descriptor keeps it;
//   - a canonical name always shadows an alias of the same spelling.
//
// Every collision is logged at debug level.
//
// # Failures
//
// A source that cannot be read, or a candidate that fails to load, is
// logged and skipped. Building the registry never fails as a whole.
package registry

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package boot tracks how far the site host has been initialized.
//
// Initialization happens in ordered, irreversible stages ([Level]):
// locating the host root, selecting a site, loading its settings,
// reaching its database, and fully loading its extensions. Each stage
// is a [Phase] registered with a [Manager]. The manager records the
// highest level reached and only ever moves it forward.
//
// [Manager.EscalateToMaximum] tries every phase above the current
// level in order and stops at the first failure. It never returns the
// failure: callers ask [Manager.Reached] afterwards and produce their
// own diagnosis. The failure is kept in [Manager.LastFailure] and
// logged at debug level. [Manager.EscalateTo] is the strict variant
// used before running a command that declares a minimum level; it
// returns a [*PhaseError].
//
// A Manager is owned by one invocation and is not safe for concurrent
// escalation.
package boot

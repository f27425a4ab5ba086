// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the sitectl driver shell.
//
// [ParseGlobalOptions] reads the options that precede the command name
// (and an optional @alias). [NewApplication] wires configuration, the
// target manager, the bootstrap manager with the site phases, the
// command registry and the resolver. [Application.Run] resolves the
// command name, escalates the bootstrap to the command's declared
// level, runs pre-run hooks, the command, and post-run hooks.
// Commands on remote targets are redispatched instead.
//
// Errors returned to main are either [*ToolError] values carrying a
// category, or values implementing ExitCode() int when the command
// already reported its own failure.
package cli

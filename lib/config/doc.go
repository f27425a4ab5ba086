// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads sitectl's YAML configuration and environment.
//
// The configuration file is located by the --config flag or the
// SITECTL_CONFIG environment variable. Unlike a long-running service,
// a command-line driver must work in a bare directory, so when neither
// is given [Default] is used unchanged.
//
// The file declares:
//
//   - options: the default host root and site URI
//   - commands: command sets to register, each either a bare identity
//     or a one-key map from a manifest path (load hint) to an identity
//   - paths: command search paths and alias search paths
//   - redispatch: how invocations against remote targets travel
//
// ${HOME}, ${SITECTL_ROOT} and ${VAR:-default} patterns are expanded in
// path fields after loading. [Config.Define] applies --define overrides.
//
// [Environment] collects the SITECTL_* variables through caarlos0/env.
package config

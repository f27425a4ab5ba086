// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands is the built-in "core" command module: status,
// list, help, version, site:alias, core:serve and the retired
// pm:refresh. [Install] adds the module to an application's module
// index, where the registry discovers it like any other module.
package commands

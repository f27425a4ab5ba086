// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the sitectl
// binary.
//
// Values are injected at build time via -ldflags:
//
//	go build -ldflags "-X github.com/bureau-foundation/sitectl/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// When no ldflags were supplied (go install, go run), [Info] falls back
// to the VCS stamp recorded by the Go toolchain in the binary's build
// info.
package version

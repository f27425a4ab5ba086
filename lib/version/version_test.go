// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestInfo_PrefersLdflags(t *testing.T) {
	original := GitCommit
	GitCommit = "abc1234"
	t.Cleanup(func() { GitCommit = original })

	if got := Info(); !strings.Contains(got, "abc1234") {
		t.Errorf("Info() = %q, want commit abc1234", got)
	}
}

func TestInfo_FallsBackToBuildInfo(t *testing.T) {
	originalCommit := GitCommit
	originalRead := readBuildInfo
	GitCommit = "unknown"
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.modified", Value: "true"},
			{Key: "vcs.time", Value: "2026-10-01T00:00:00Z"},
		}}, true
	}
	t.Cleanup(func() {
		GitCommit = originalCommit
		readBuildInfo = originalRead
	})

	want := Version + " (0123456789ab-dirty, 2026-10-01T00:00:00Z)"
	if got := Info(); got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}
}

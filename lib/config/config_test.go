// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sitectl.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Redispatch.Compression != "zstd" {
		t.Errorf("expected compression=zstd, got %s", cfg.Redispatch.Compression)
	}
	if cfg.Redispatch.RemoteBinary != "sitectl" {
		t.Errorf("expected remote_binary=sitectl, got %s", cfg.Redispatch.RemoteBinary)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() does not validate: %v", err)
	}
}

func TestLoad_WithoutConfigUsesDefaults(t *testing.T) {
	cfg, err := Load(Environment{})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Source() != "" {
		t.Errorf("Source() = %q, want empty for defaults", cfg.Source())
	}
	if timeout, _ := cfg.RedispatchTimeout(); timeout != 5*time.Minute {
		t.Errorf("RedispatchTimeout() = %v, want 5m", timeout)
	}
}

func TestLoadFile_CommandEntries(t *testing.T) {
	path := writeConfig(t, `
options:
  root: /srv/host
  uri: blog
commands:
  - sitectl/Commands/core/DeployCommands
  - ${SITECTL_ROOT}/tools/AuditCommands.yml: \vendor/Commands/AuditCommands
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	want := []CommandEntry{
		{Identity: "sitectl/Commands/core/DeployCommands"},
		{Identity: "vendor/Commands/AuditCommands", Hint: "/srv/host/tools/AuditCommands.yml"},
	}
	if diff := cmp.Diff(want, cfg.Commands); diff != "" {
		t.Errorf("Commands mismatch (-want +got):\n%s", diff)
	}
	if cfg.Options.URI != "blog" {
		t.Errorf("expected uri=blog, got %s", cfg.Options.URI)
	}
	if cfg.Source() != path {
		t.Errorf("Source() = %q, want %q", cfg.Source(), path)
	}
}

func TestLoadFile_RejectsMalformedCommandEntry(t *testing.T) {
	path := writeConfig(t, `
commands:
  - {a: b, c: d}
`)
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for a two-key command entry")
	}
}

func TestCommandEntry_MarshalPreservesForm(t *testing.T) {
	entries := []CommandEntry{
		{Identity: "a/Commands/One"},
		{Identity: "b/Commands/Two", Hint: "/tmp/TwoCommands.yml"},
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded []CommandEntry
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(entries, decoded); diff != "" {
		t.Errorf("roundtrip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvironmentPathsTakePrecedence(t *testing.T) {
	path := writeConfig(t, `
paths:
  include: [/etc/sitectl/commands]
  aliases: [/etc/sitectl/sites]
`)
	cfg, err := Load(Environment{
		ConfigPath: path,
		Include:    []string{"/opt/commands"},
		AliasPath:  []string{"/opt/sites"},
	})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if diff := cmp.Diff([]string{"/opt/commands", "/etc/sitectl/commands"}, cfg.Paths.Include); diff != "" {
		t.Errorf("Include mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"/opt/sites", "/etc/sitectl/sites"}, cfg.Paths.Aliases); diff != "" {
		t.Errorf("Aliases mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yml"))
	if err == nil || !strings.Contains(err.Error(), "reading config") {
		t.Fatalf("LoadFile(absent) error = %v, want a read error", err)
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("SITECTL_TEST_DIR", "/from/env")
	vars := map[string]string{"SITECTL_ROOT": "/srv/host"}

	tests := []struct {
		input string
		want  string
	}{
		{"${SITECTL_ROOT}/commands", "/srv/host/commands"},
		{"${SITECTL_TEST_DIR}/x", "/from/env/x"},
		{"${SITECTL_UNSET_VAR:-/fallback}", "/fallback"},
		{"plain", "plain"},
	}
	for _, test := range tests {
		if got := expandVars(test.input, vars); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestDefine(t *testing.T) {
	cfg := Default()
	if err := cfg.Define("options.uri=shop"); err != nil {
		t.Fatalf("Define() error: %v", err)
	}
	if err := cfg.Define("redispatch.compression=lz4"); err != nil {
		t.Fatalf("Define() error: %v", err)
	}
	if cfg.Options.URI != "shop" || cfg.Redispatch.Compression != "lz4" {
		t.Errorf("Define() did not apply: uri=%q compression=%q", cfg.Options.URI, cfg.Redispatch.Compression)
	}

	if err := cfg.Define("options.uri"); err == nil {
		t.Error("Define without '=' should fail")
	}
	if err := cfg.Define("nope.key=1"); err == nil {
		t.Error("Define of an unknown key should fail")
	}
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Commands = []CommandEntry{{Identity: ""}}
	cfg.Redispatch.Timeout = "soon"
	cfg.Redispatch.Compression = "gzip"
	cfg.Redispatch.RemoteBinary = " "

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() should fail")
	}
	for _, want := range []string{"commands[0]", "redispatch.timeout", "redispatch.compression", "redispatch.remote_binary"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error missing %q: %v", want, err)
		}
	}
}

func TestParseDuration_BareSeconds(t *testing.T) {
	duration, err := parseDuration("x", "30")
	if err != nil || duration != 30*time.Second {
		t.Errorf("parseDuration(\"30\") = %v, %v; want 30s", duration, err)
	}
}

func TestParseEnvironmentFrom(t *testing.T) {
	environment, err := ParseEnvironmentFrom(map[string]string{
		"SITECTL_CONFIG":     "/etc/sitectl.yml",
		"SITECTL_LOG_LEVEL":  "debug",
		"SITECTL_INCLUDE":    "/a:/b",
		"SITECTL_ALIAS_PATH": "/sites",
	})
	if err != nil {
		t.Fatalf("ParseEnvironmentFrom() error: %v", err)
	}
	want := Environment{
		ConfigPath: "/etc/sitectl.yml",
		LogLevel:   "debug",
		Include:    []string{"/a", "/b"},
		AliasPath:  []string{"/sites"},
	}
	if diff := cmp.Diff(want, environment); diff != "" {
		t.Errorf("Environment mismatch (-want +got):\n%s", diff)
	}
}

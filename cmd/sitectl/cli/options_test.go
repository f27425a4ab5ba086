// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseGlobalOptions(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantOptions GlobalOptions
		wantArgs    []string
	}{
		{
			name:     "no options",
			args:     []string{"status"},
			wantArgs: []string{"status"},
		},
		{
			name:        "command flags stay with the command",
			args:        []string{"-r", "/srv/shop", "cache:rebuild", "--root", "ignored", "-y"},
			wantOptions: GlobalOptions{Root: "/srv/shop"},
			wantArgs:    []string{"cache:rebuild", "--root", "ignored", "-y"},
		},
		{
			name:        "alias with options on both sides",
			args:        []string{"--uri=shop", "@prod", "-y", "--define", "redispatch.timeout=1m", "status"},
			wantOptions: GlobalOptions{URI: "shop", Alias: "prod", Yes: true, Defines: []string{"redispatch.timeout=1m"}},
			wantArgs:    []string{"status"},
		},
		{
			name:        "verbosity and defines accumulate across the alias",
			args:        []string{"-v", "-D", "a=1", "@prod", "-vv", "-D", "b=2", "list"},
			wantOptions: GlobalOptions{Alias: "prod", Verbose: 3, Defines: []string{"a=1", "b=2"}},
			wantArgs:    []string{"list"},
		},
		{
			name:        "prompt and simulation flags",
			args:        []string{"-n", "--simulate", "-d", "--config", "/etc/sitectl.yml"},
			wantOptions: GlobalOptions{No: true, Simulate: true, Debug: true, ConfigPath: "/etc/sitectl.yml"},
			wantArgs:    []string{},
		},
		{
			name:     "double dash ends options",
			args:     []string{"--", "--weird-name"},
			wantArgs: []string{"--weird-name"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			options, args, err := ParseGlobalOptions(test.args)
			if err != nil {
				t.Fatalf("ParseGlobalOptions() error: %v", err)
			}
			if diff := cmp.Diff(test.wantOptions, options); diff != "" {
				t.Errorf("options mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(test.wantArgs, args); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseGlobalOptions_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"typo suggests the closest flag", []string{"--rot=/srv", "status"}, "did you mean --root?"},
		{"unknown shorthand", []string{"-x", "status"}, "unknown shorthand flag"},
		{"missing value", []string{"--uri"}, "flag needs an argument"},
		{"empty alias", []string{"@", "status"}, "empty site alias"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, _, err := ParseGlobalOptions(test.args)
			if err == nil {
				t.Fatal("ParseGlobalOptions() should fail")
			}
			if Categorize(err) != CategoryValidation {
				t.Errorf("Categorize() = %s, want validation", Categorize(err))
			}
			if !strings.Contains(err.Error(), test.wantMsg) {
				t.Errorf("error %q should contain %q", err.Error(), test.wantMsg)
			}
		})
	}
}

func TestGlobalOptions_Replay(t *testing.T) {
	options := GlobalOptions{Root: "/srv", Yes: true, Simulate: true, Verbose: 3}
	want := map[string]string{"yes": "", "simulate": "", "debug": ""}
	if diff := cmp.Diff(want, options.Replay()); diff != "" {
		t.Errorf("Replay() mismatch (-want +got):\n%s", diff)
	}
	if len((GlobalOptions{}).Replay()) != 0 {
		t.Error("Replay() of default options should be empty")
	}
}

func TestUsage(t *testing.T) {
	var buffer bytes.Buffer
	Usage(&buffer)
	for _, want := range []string{"[@alias] <command>", "--root", "--define", "sitectl list"} {
		if !strings.Contains(buffer.String(), want) {
			t.Errorf("usage missing %q:\n%s", want, buffer.String())
		}
	}
}

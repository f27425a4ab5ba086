// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/sitectl/lib/boot"
)

// A manifest file defines commands and hooks backed by external
// programs:
//
//	commands:
//	  - name: cache:rebuild
//	    aliases: [cr, rebuild]
//	    description: Rebuild every cache.
//	    bootstrap: site
//	    exec: [./bin/rebuild, --all]
//	  - name: pm:refresh
//	    obsolete: The pm:refresh command is obsolete. Run pm:list instead.
//	hooks:
//	  - command: cache:rebuild
//	    stage: post
//	    exec: [./bin/warm]
//
// Manifests are YAML (.yml, .yaml) or JSON with comments (.jsonc). An
// exec program starting with "./" or "../" is relative to the manifest.
type manifest struct {
	Commands []manifestCommand `yaml:"commands"`
	Hooks    []manifestHook    `yaml:"hooks"`
}

type manifestCommand struct {
	Name        string         `yaml:"name"`
	Aliases     []string       `yaml:"aliases"`
	Description string         `yaml:"description"`
	Help        string         `yaml:"help"`
	Usage       string         `yaml:"usage"`
	Bootstrap   string         `yaml:"bootstrap"`
	Obsolete    obsoleteMarker `yaml:"obsolete"`
	Hidden      bool           `yaml:"hidden"`
	Exec        []string       `yaml:"exec"`
}

type manifestHook struct {
	Command string   `yaml:"command"`
	Stage   string   `yaml:"stage"`
	Exec    []string `yaml:"exec"`
}

// obsoleteMarker accepts either a boolean or the retirement message.
type obsoleteMarker struct {
	set     bool
	message string
}

func (m *obsoleteMarker) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: obsolete must be a boolean or a message", node.Line)
	}
	if node.Tag == "!!bool" {
		var flag bool
		if err := node.Decode(&flag); err != nil {
			return err
		}
		m.set = flag
		return nil
	}
	m.set = true
	m.message = node.Value
	return nil
}

// ParseManifest parses manifest content. path names the file for error
// messages, selects the format by extension, and anchors relative exec
// programs.
func ParseManifest(path string, data []byte) (*Unit, error) {
	if strings.EqualFold(filepath.Ext(path), ".jsonc") {
		// JSON is valid YAML, so one decoder covers both once comments
		// and trailing commas are stripped.
		data = jsonc.ToJSON(data)
	}

	var parsed manifest
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	directory := filepath.Dir(path)
	unit := &Unit{}
	var problems []error

	for i, command := range parsed.Commands {
		descriptor, err := command.descriptor(directory)
		if err != nil {
			problems = append(problems, fmt.Errorf("commands[%d]: %w", i, err))
			continue
		}
		descriptor.Source = path
		unit.Commands = append(unit.Commands, descriptor)
	}
	for i, hook := range parsed.Hooks {
		converted, err := hook.hook(directory)
		if err != nil {
			problems = append(problems, fmt.Errorf("hooks[%d]: %w", i, err))
			continue
		}
		unit.Hooks = append(unit.Hooks, converted)
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("manifest %s: %w", path, errors.Join(problems...))
	}
	if len(unit.Commands) == 0 && len(unit.Hooks) == 0 {
		return nil, fmt.Errorf("manifest %s defines no commands or hooks", path)
	}
	return unit, nil
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return ParseManifest(path, data)
}

func (c manifestCommand) descriptor(directory string) (*Descriptor, error) {
	if c.Name == "" {
		return nil, errors.New("name is required")
	}
	level, err := boot.ParseLevel(c.Bootstrap)
	if err != nil {
		return nil, fmt.Errorf("command %s: %w", c.Name, err)
	}

	descriptor := &Descriptor{
		Name:        c.Name,
		Aliases:     c.Aliases,
		Description: c.Description,
		Help:        c.Help,
		Usage:       c.Usage,
		Bootstrap:   level,
		Hidden:      c.Hidden,
	}
	if c.Obsolete.set {
		descriptor.Obsolete = true
		descriptor.ObsoleteMessage = c.Obsolete.message
		if descriptor.ObsoleteMessage == "" {
			descriptor.ObsoleteMessage = fmt.Sprintf("The %s command is obsolete.", c.Name)
		}
		return descriptor, nil
	}
	if len(c.Exec) == 0 {
		return nil, fmt.Errorf("command %s: exec is required", c.Name)
	}
	descriptor.Handler = ExecHandler{Argv: anchorArgv(directory, c.Exec)}
	return descriptor, nil
}

func (h manifestHook) hook(directory string) (*Hook, error) {
	if h.Command == "" {
		return nil, errors.New("command is required")
	}
	if len(h.Exec) == 0 {
		return nil, fmt.Errorf("hook on %s: exec is required", h.Command)
	}
	var stage Stage
	switch strings.ToLower(h.Stage) {
	case "", "pre":
		stage = PreRun
	case "post":
		stage = PostRun
	default:
		return nil, fmt.Errorf("hook on %s: unknown stage %q (want pre or post)", h.Command, h.Stage)
	}
	return &Hook{
		Command: h.Command,
		Stage:   stage,
		Handler: ExecHandler{Argv: anchorArgv(directory, h.Exec)},
	}, nil
}

func anchorArgv(directory string, argv []string) []string {
	anchored := append([]string{}, argv...)
	if strings.HasPrefix(anchored[0], "./") || strings.HasPrefix(anchored[0], "../") {
		anchored[0] = filepath.Join(directory, anchored[0])
	}
	return anchored
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package target

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// aliasSuffix is the file name suffix of alias files.
const aliasSuffix = ".site.yml"

// targetKeys are the keys that mark a YAML mapping as a single target
// rather than a group of named environments.
var targetKeys = map[string]bool{
	"root": true, "uri": true, "host": true, "user": true, "port": true, "socket": true,
}

// Manager loads alias files and holds the self target.
type Manager struct {
	searchPaths []string
	logger      *slog.Logger

	aliases map[string]Target
	loaded  bool

	self Target
}

// NewManager returns a Manager that searches searchPaths for alias
// files. The self target starts as local with no root.
func NewManager(searchPaths []string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		searchPaths: searchPaths,
		logger:      logger,
	}
}

// Self returns the target the current invocation runs against.
func (m *Manager) Self() Target { return m.self }

// SetSelf replaces the self target.
func (m *Manager) SetSelf(self Target) { m.self = self }

// Get returns the named alias. A leading "@" is optional. "self"
// returns the self target and "none" a local target with no root.
func (m *Manager) Get(name string) (Target, error) {
	name = strings.TrimPrefix(name, "@")
	switch name {
	case "self":
		return m.self, nil
	case "none":
		return Target{Name: "none"}, nil
	}

	m.load()
	target, ok := m.aliases[name]
	if !ok {
		return Target{}, fmt.Errorf("site alias @%s not found in %s", name, strings.Join(m.searchPaths, ", "))
	}
	return target, nil
}

// List returns every alias sorted by name.
func (m *Manager) List() []Target {
	m.load()
	targets := make([]Target, 0, len(m.aliases))
	for _, target := range m.aliases {
		targets = append(targets, target)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Name < targets[j].Name })
	return targets
}

// SelectFromArgs consumes a leading "@alias" argument, makes it the
// self target and returns the remaining arguments. Arguments without
// an alias are returned unchanged.
func (m *Manager) SelectFromArgs(args []string) ([]string, error) {
	if len(args) == 0 || !strings.HasPrefix(args[0], "@") {
		return args, nil
	}
	selected, err := m.Get(args[0])
	if err != nil {
		return nil, err
	}
	m.self = selected
	return args[1:], nil
}

// load reads alias files once. Unreadable or malformed files are
// logged and skipped.
func (m *Manager) load() {
	if m.loaded {
		return
	}
	m.loaded = true
	m.aliases = make(map[string]Target)

	for _, directory := range m.searchPaths {
		entries, err := os.ReadDir(directory)
		if err != nil {
			if !os.IsNotExist(err) {
				m.logger.Warn("alias path unreadable", "path", directory, "error", err)
			}
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), aliasSuffix) {
				continue
			}
			path := filepath.Join(directory, entry.Name())
			targets, err := parseAliasFile(path)
			if err != nil {
				m.logger.Warn("skipping alias file", "path", path, "error", err)
				continue
			}
			for _, target := range targets {
				if _, exists := m.aliases[target.Name]; exists {
					// Earlier search paths win.
					continue
				}
				m.aliases[target.Name] = target
			}
		}
	}
	m.logger.Debug("site aliases loaded", "count", len(m.aliases))
}

// parseAliasFile reads one alias file.
func parseAliasFile(path string) ([]Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	group := strings.TrimSuffix(filepath.Base(path), aliasSuffix)
	return ParseAliases(group, data)
}

// ParseAliases parses alias file content. group is the file's base name
// without the .site.yml suffix.
func ParseAliases(group string, data []byte) ([]Target, error) {
	var document yaml.Node
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, err
	}
	if len(document.Content) == 0 {
		return nil, nil
	}
	root := document.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: alias file must be a mapping", root.Line)
	}

	if isSingleTarget(root) {
		var target Target
		if err := root.Decode(&target); err != nil {
			return nil, err
		}
		target.Name = group
		if err := target.Validate(); err != nil {
			return nil, err
		}
		return []Target{target}, nil
	}

	var targets []Target
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		var target Target
		if err := value.Decode(&target); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", group, key.Value, err)
		}
		target.Name = group + "." + key.Value
		if err := target.Validate(); err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}

func isSingleTarget(mapping *yaml.Node) bool {
	for i := 0; i < len(mapping.Content); i += 2 {
		if targetKeys[mapping.Content[i].Value] {
			return true
		}
	}
	return false
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
)

// CommandBase is the base every command module must declare to be
// picked up by [ModuleProvider].
const CommandBase = "sitectl.Commands"

// ModuleKind classifies an indexed module.
type ModuleKind int

const (
	// Concrete modules can be loaded into commands.
	Concrete ModuleKind = iota

	// Abstract modules provide shared behavior to other modules.
	Abstract

	// Interface modules describe a contract only.
	Interface
)

// Module is a compiled-in unit of commands.
type Module struct {
	// Identity is the unit's identity, e.g.
	// "sitectl/Commands/core/CoreCommands".
	Identity Identity

	// File is the source file that defines the module, matched
	// against the module file pattern.
	File string

	Kind ModuleKind

	// Base is the base behavior the module extends.
	Base string

	// Load builds the module's commands. A Load that fails or panics
	// excludes the module.
	Load func() (*Unit, error)
}

// load calls Load, converting a panic into an error.
func (m Module) load() (unit *Unit, err error) {
	if m.Load == nil {
		return nil, fmt.Errorf("module %s has no loader", m.Identity)
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("module %s: loader panicked: %v", m.Identity, recovered)
		}
	}()
	unit, err = m.Load()
	if err == nil && unit == nil {
		err = fmt.Errorf("module %s: loader returned no unit", m.Identity)
	}
	return unit, err
}

// ModuleIndex is an explicit registry of compiled-in modules. It is
// populated at startup by the packages that define command modules.
type ModuleIndex struct {
	mu      sync.Mutex
	modules []Module
	byID    map[Identity]int
}

// NewModuleIndex returns an empty index.
func NewModuleIndex() *ModuleIndex {
	return &ModuleIndex{byID: make(map[Identity]int)}
}

// Add indexes a module. A later module with the same identity replaces
// the earlier one.
func (ix *ModuleIndex) Add(module Module) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	module.Identity = NormalizeIdentity(string(module.Identity))
	if position, ok := ix.byID[module.Identity]; ok {
		ix.modules[position] = module
		return
	}
	ix.byID[module.Identity] = len(ix.modules)
	ix.modules = append(ix.modules, module)
}

// Lookup returns the module with the given identity.
func (ix *ModuleIndex) Lookup(id Identity) (Module, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	position, ok := ix.byID[id]
	if !ok {
		return Module{}, false
	}
	return ix.modules[position], true
}

// Modules returns the indexed modules in insertion order.
func (ix *ModuleIndex) Modules() []Module {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return append([]Module{}, ix.modules...)
}

// moduleFilePattern selects module files by name.
var moduleFilePattern = regexp.MustCompile(`Commands\.go$`)

// ModuleProvider supplies command modules from a [ModuleIndex]. A
// module is kept when its file matches the module file pattern, it is
// concrete, its base is [CommandBase], and its loader succeeds. Modules
// that fail to load are logged and excluded.
type ModuleProvider struct {
	index  *ModuleIndex
	logger *slog.Logger

	units map[Identity]*Unit
}

// NewModuleProvider returns a provider over index.
func NewModuleProvider(index *ModuleIndex, logger *slog.Logger) *ModuleProvider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ModuleProvider{
		index:  index,
		logger: logger,
		units:  make(map[Identity]*Unit),
	}
}

// Name implements [Provider].
func (p *ModuleProvider) Name() string { return "modules" }

// Discover implements [Provider]. Loaders run here, since a module is
// only a candidate if it loads.
func (p *ModuleProvider) Discover(ctx context.Context) ([]Identity, error) {
	var identities []Identity
	for _, module := range p.index.Modules() {
		if !moduleFilePattern.MatchString(module.File) || module.Kind != Concrete || module.Base != CommandBase {
			continue
		}
		unit, err := module.load()
		if err != nil {
			p.logger.Warn("skipping command module", "identity", module.Identity, "error", err)
			continue
		}
		p.units[module.Identity] = unit
		identities = append(identities, module.Identity)
	}
	return identities, nil
}

// Materialize implements [Provider].
func (p *ModuleProvider) Materialize(ctx context.Context, id Identity) (*Unit, error) {
	unit, ok := p.units[id]
	if !ok {
		return nil, fmt.Errorf("identity %s was not discovered by this provider", id)
	}
	return unit, nil
}

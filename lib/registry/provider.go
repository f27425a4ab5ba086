// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"fmt"
	"log/slog"
)

// Provider is one discovery source.
type Provider interface {
	// Name labels the source in logs.
	Name() string

	// Discover returns the identities the source can supply. It must
	// be cheap: no command is built here.
	Discover(ctx context.Context) ([]Identity, error)

	// Materialize builds the commands and hooks behind one identity
	// previously returned by Discover.
	Materialize(ctx context.Context, id Identity) (*Unit, error)
}

// Declaration is one entry of the configured command list: an identity
// and, optionally, the manifest file that defines it.
type Declaration struct {
	Identity Identity
	Hint     string
}

// DeclaredProvider supplies the identities listed in configuration.
// An identity already registered in the module index is used as is.
// Otherwise the hint file is loaded, the equivalent of including a
// file that defines a unit the loader cannot find on its own.
// Declarations that resolve neither way are logged and skipped.
type DeclaredProvider struct {
	declarations []Declaration
	index        *ModuleIndex
	logger       *slog.Logger

	loaded map[Identity]*Unit
}

// NewDeclaredProvider returns a provider over declarations. index may
// be nil.
func NewDeclaredProvider(declarations []Declaration, index *ModuleIndex, logger *slog.Logger) *DeclaredProvider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DeclaredProvider{
		declarations: declarations,
		index:        index,
		logger:       logger,
		loaded:       make(map[Identity]*Unit),
	}
}

// Name implements [Provider].
func (p *DeclaredProvider) Name() string { return "configuration" }

// Discover implements [Provider]. Each returned identity is loadable.
func (p *DeclaredProvider) Discover(ctx context.Context) ([]Identity, error) {
	var identities []Identity
	for _, declaration := range p.declarations {
		id := NormalizeIdentity(string(declaration.Identity))
		if id == "" {
			continue
		}
		if p.index != nil {
			if _, ok := p.index.Lookup(id); ok {
				identities = append(identities, id)
				continue
			}
		}
		if declaration.Hint == "" {
			p.logger.Warn("declared command unit not found",
				"identity", id,
			)
			continue
		}
		unit, err := LoadManifest(declaration.Hint)
		if err != nil {
			p.logger.Warn("declared command unit could not be loaded",
				"identity", id,
				"hint", declaration.Hint,
				"error", err,
			)
			continue
		}
		p.loaded[id] = unit
		identities = append(identities, id)
	}
	return identities, nil
}

// Materialize implements [Provider].
func (p *DeclaredProvider) Materialize(ctx context.Context, id Identity) (*Unit, error) {
	if unit, ok := p.loaded[id]; ok {
		return unit, nil
	}
	if p.index != nil {
		if module, ok := p.index.Lookup(id); ok {
			return module.load()
		}
	}
	return nil, fmt.Errorf("identity %s was not discovered by this provider", id)
}

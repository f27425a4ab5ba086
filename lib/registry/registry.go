// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"encoding/hex"
	"log/slog"
	"sort"
	"sync"

	"github.com/zeebo/blake3"
)

// Registry maps command names and aliases to descriptors. Providers
// are consulted lazily: nothing is discovered or materialized until
// the first Lookup, List, Names, Hooks or Fingerprint after a provider
// was added.
//
// Registry is safe for concurrent use.
type Registry struct {
	logger *slog.Logger

	mu         sync.Mutex
	pending    []Provider
	identities []Identity
	seen       map[Identity]bool
	canonical  map[string]*Descriptor
	aliases    map[string]*Descriptor
	installed  []*Descriptor
	hooks      []*Hook
}

// New returns a registry over providers. Pass nil for a discard
// logger.
func New(logger *slog.Logger, providers ...Provider) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		logger:    logger,
		pending:   append([]Provider{}, providers...),
		seen:      make(map[Identity]bool),
		canonical: make(map[string]*Descriptor),
		aliases:   make(map[string]*Descriptor),
	}
}

// Add queues a provider. Its commands become visible at the next
// lookup.
func (r *Registry) Add(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, provider)
}

// Pending reports whether providers are waiting to be consulted.
func (r *Registry) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending) > 0
}

// Register adds descriptors immediately under id, bypassing discovery.
// Used for bundled commands. Registering an identity twice is a no-op.
func (r *Registry) Register(id Identity, descriptors ...*Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen[id] {
		return
	}
	r.seen[id] = true
	r.identities = append(r.identities, id)
	r.install(id, &Unit{Commands: descriptors})
}

// Lookup returns the descriptor registered under name, canonical or
// alias.
func (r *Registry) Lookup(ctx context.Context, name string) (*Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.build(ctx)
	if descriptor, ok := r.canonical[name]; ok {
		return descriptor, true
	}
	descriptor, ok := r.aliases[name]
	return descriptor, ok
}

// List returns every registered descriptor, hidden ones included,
// ordered by canonical name.
func (r *Registry) List(ctx context.Context) []*Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.build(ctx)
	return r.sorted()
}

// Names returns every name and alias that resolves, sorted.
func (r *Registry) Names(ctx context.Context) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.build(ctx)
	names := make([]string, 0, len(r.canonical)+len(r.aliases))
	for name := range r.canonical {
		names = append(names, name)
	}
	for alias := range r.aliases {
		if _, shadowed := r.canonical[alias]; !shadowed {
			names = append(names, alias)
		}
	}
	sort.Strings(names)
	return names
}

// Hooks returns the hooks for a command at a stage, in registration
// order. Hooks registered for [AnyCommand] are included.
func (r *Registry) Hooks(ctx context.Context, name string, stage Stage) []*Hook {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.build(ctx)
	var matched []*Hook
	for _, hook := range r.hooks {
		if hook.Stage == stage && (hook.Command == name || hook.Command == AnyCommand) {
			matched = append(matched, hook)
		}
	}
	return matched
}

// Identities returns the registered identities in first-seen order.
func (r *Registry) Identities(ctx context.Context) []Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.build(ctx)
	return append([]Identity{}, r.identities...)
}

// Fingerprint summarizes the registry's content: a BLAKE3 digest over
// the identities in order and each command's names. Two invocations
// that see the same commands report the same fingerprint.
func (r *Registry) Fingerprint(ctx context.Context) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.build(ctx)

	hasher := blake3.New()
	for _, id := range r.identities {
		hasher.Write([]byte(id))
		hasher.Write([]byte{0})
	}
	for _, descriptor := range r.sorted() {
		for _, name := range descriptor.Names() {
			hasher.Write([]byte(name))
			hasher.Write([]byte{0})
		}
		hasher.Write([]byte{'\n'})
	}
	return hex.EncodeToString(hasher.Sum(nil)[:16])
}

// build consults pending providers. Called with mu held.
func (r *Registry) build(ctx context.Context) {
	if len(r.pending) == 0 {
		return
	}
	providers := r.pending
	r.pending = nil

	// An identity may be offered by several providers. The first
	// provider that materializes it wins; one that fails hands the
	// identity to the next.
	var order []Identity
	offers := make(map[Identity][]Provider)
	for _, provider := range providers {
		identities, err := provider.Discover(ctx)
		if err != nil {
			r.logger.Warn("command source unreadable",
				"source", provider.Name(),
				"error", err,
			)
		}
		for _, id := range Merge(identities) {
			if r.seen[id] {
				continue
			}
			if _, offered := offers[id]; !offered {
				order = append(order, id)
			}
			offers[id] = append(offers[id], provider)
		}
	}

	for _, id := range order {
		for _, provider := range offers[id] {
			unit, err := provider.Materialize(ctx, id)
			if err != nil {
				r.logger.Warn("skipping command unit",
					"source", provider.Name(),
					"identity", id,
					"error", err,
				)
				continue
			}
			r.seen[id] = true
			r.identities = append(r.identities, id)
			r.install(id, unit)
			break
		}
	}
	r.logger.Debug("command registry built",
		"identities", len(r.identities),
		"commands", len(r.canonical),
	)
}

// install registers a unit's commands and hooks. Called with mu held.
func (r *Registry) install(id Identity, unit *Unit) {
	for _, descriptor := range unit.Commands {
		if descriptor == nil || descriptor.Name == "" {
			r.logger.Warn("skipping unnamed command", "identity", id)
			continue
		}
		descriptor.Identity = id
		r.installDescriptor(descriptor)
	}
	for _, hook := range unit.Hooks {
		if hook == nil {
			continue
		}
		hook.Identity = id
		r.hooks = append(r.hooks, hook)
	}
}

func (r *Registry) installDescriptor(descriptor *Descriptor) {
	previous, replaced := r.canonical[descriptor.Name]
	r.canonical[descriptor.Name] = descriptor
	r.installed = append(r.installed, descriptor)
	if !replaced {
		r.claimAliases(descriptor, true)
		return
	}

	r.logger.Debug("command name collision, last registered wins",
		"name", descriptor.Name,
		"replaced", previous.Identity,
		"winner", descriptor.Identity,
	)
	// Aliases released by the replaced descriptor go to the next
	// descriptor that declared them, in registration order.
	r.aliases = make(map[string]*Descriptor)
	for _, candidate := range r.installed {
		if r.canonical[candidate.Name] == candidate {
			r.claimAliases(candidate, candidate == descriptor)
		}
	}
}

// claimAliases gives descriptor each of its aliases that is still free.
// Collisions are logged when verbose is set.
func (r *Registry) claimAliases(descriptor *Descriptor, verbose bool) {
	for _, alias := range descriptor.Aliases {
		if alias == "" || alias == descriptor.Name {
			continue
		}
		if owner, taken := r.aliases[alias]; taken {
			if verbose {
				r.logger.Debug("command alias collision, first registered wins",
					"alias", alias,
					"kept", owner.Identity,
					"ignored", descriptor.Identity,
				)
			}
			continue
		}
		if _, shadowed := r.canonical[alias]; shadowed {
			if verbose {
				r.logger.Debug("command alias shadowed by a command name",
					"alias", alias,
					"identity", descriptor.Identity,
				)
			}
			continue
		}
		r.aliases[alias] = descriptor
	}
}

func (r *Registry) sorted() []*Descriptor {
	descriptors := make([]*Descriptor, 0, len(r.canonical))
	for _, descriptor := range r.canonical {
		descriptors = append(descriptors, descriptor)
	}
	sort.Slice(descriptors, func(i, j int) bool { return descriptors[i].Name < descriptors[j].Name })
	return descriptors
}

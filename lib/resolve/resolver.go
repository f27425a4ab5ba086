// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/sitectl/lib/boot"
	"github.com/bureau-foundation/sitectl/lib/registry"
	"github.com/bureau-foundation/sitectl/lib/target"
)

// Registry is the command lookup the resolver consults.
// *registry.Registry implements it.
type Registry interface {
	Lookup(ctx context.Context, name string) (*registry.Descriptor, bool)
	List(ctx context.Context) []*registry.Descriptor
	Names(ctx context.Context) []string
}

// Bootstrapper is the bootstrap state the resolver escalates.
// *boot.Manager implements it.
type Bootstrapper interface {
	Reached(level boot.Level) bool
	Current() boot.Level
	EscalateToMaximum(ctx context.Context) boot.Level
}

// Locality answers which target the invocation runs against.
// *target.Manager implements it.
type Locality interface {
	Self() target.Target
}

// Config holds the resolver's collaborators.
type Config struct {
	// Registry is required.
	Registry Registry

	// Boot may be nil when the host has no bootstrap. A miss is then
	// final.
	Boot Bootstrapper

	// Targets may be nil; the target is then always local.
	Targets Locality

	// Redispatcher runs proxied commands on remote targets. When nil,
	// running a proxy fails.
	Redispatcher Redispatcher

	Logger *slog.Logger
}

// Resolver resolves command names.
type Resolver struct {
	registry     Registry
	boot         Bootstrapper
	targets      Locality
	redispatcher Redispatcher
	logger       *slog.Logger
}

// New returns a resolver. It panics if config.Registry is nil.
func New(config Config) *Resolver {
	if config.Registry == nil {
		panic("resolve.New: Registry is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		registry:     config.Registry,
		boot:         config.Boot,
		targets:      config.Targets,
		redispatcher: config.Redispatcher,
		logger:       logger,
	}
}

// Lookup resolves name and applies the obsolescence guard.
func (r *Resolver) Lookup(ctx context.Context, name string) Outcome {
	return r.lookup(ctx, name, true)
}

// Resolve resolves name. An empty name returns (nil, nil) without
// bootstrapping. Failures are *Error values.
func (r *Resolver) Resolve(ctx context.Context, name string) (*registry.Descriptor, error) {
	outcome := r.lookup(ctx, name, true)
	if err := outcome.Err(); err != nil {
		return nil, err
	}
	return outcome.Descriptor, nil
}

// ResolveForHelp resolves name without the obsolescence guard, for
// help and listing.
func (r *Resolver) ResolveForHelp(ctx context.Context, name string) (*registry.Descriptor, error) {
	outcome := r.lookup(ctx, name, false)
	if err := outcome.Err(); err != nil {
		return nil, err
	}
	return outcome.Descriptor, nil
}

// List returns every registered command, retired ones included.
func (r *Resolver) List(ctx context.Context) []*registry.Descriptor {
	return r.registry.List(ctx)
}

func (r *Resolver) lookup(ctx context.Context, name string, guard bool) Outcome {
	outcome := Outcome{Kind: KindNotFound, Name: name, Reached: r.current()}
	if name == "" {
		return outcome
	}

	if descriptor, ok := r.registry.Lookup(ctx, name); ok {
		return r.found(outcome, descriptor, guard)
	}

	self := r.self()
	if !self.IsLocal() {
		r.logger.Debug("command not found locally, redispatching",
			"command", name,
			"target", self.String(),
		)
		outcome.Kind = KindRemote
		outcome.Descriptor = RemoteProxy(name, self, r.redispatcher)
		return outcome
	}

	if r.boot == nil {
		return r.notFound(ctx, outcome, KindNotFound)
	}

	r.logger.Debug("bootstrap further to find command", "command", name)
	outcome.Escalated = true
	outcome.Reached = r.boot.EscalateToMaximum(ctx)
	r.logger.Debug("done with bootstrap max; trying to find command again",
		"command", name,
		"reached", outcome.Reached,
	)

	if descriptor, ok := r.registry.Lookup(ctx, name); ok {
		return r.found(outcome, descriptor, guard)
	}

	switch {
	case !r.boot.Reached(boot.Root):
		return r.notFound(ctx, outcome, KindNotFoundNeedsRoot)
	case !r.boot.Reached(boot.Database):
		return r.notFound(ctx, outcome, KindNotFoundNeedsDatabase)
	case !r.boot.Reached(boot.Full):
		return r.notFound(ctx, outcome, KindNotFoundNeedsFullBoot)
	default:
		return r.notFound(ctx, outcome, KindNotFound)
	}
}

func (r *Resolver) found(outcome Outcome, descriptor *registry.Descriptor, guard bool) Outcome {
	outcome.Descriptor = descriptor
	if guard {
		if err := CheckObsolete(descriptor); err != nil {
			outcome.Kind = KindObsolete
			outcome.Message = descriptor.ObsoleteMessage
			return outcome
		}
	}
	outcome.Kind = KindFound
	return outcome
}

func (r *Resolver) notFound(ctx context.Context, outcome Outcome, kind Kind) Outcome {
	outcome.Kind = kind
	outcome.Message = notFoundMessage(kind, outcome.Name)
	outcome.Suggestions = Suggest(outcome.Name, r.registry.Names(ctx))
	return outcome
}

func (r *Resolver) self() target.Target {
	if r.targets == nil {
		return target.Target{}
	}
	return r.targets.Self()
}

func (r *Resolver) current() boot.Level {
	if r.boot == nil {
		return boot.None
	}
	return r.boot.Current()
}

func notFoundMessage(kind Kind, name string) string {
	switch kind {
	case KindNotFoundNeedsRoot:
		return fmt.Sprintf("Command %s was not found. Pass --root or a @siteAlias in order to run site-specific commands.", name)
	case KindNotFoundNeedsDatabase:
		return fmt.Sprintf("Command %s was not found. sitectl was not able to query the database. As a result, many commands are unavailable. Re-run with --debug to see relevant log messages.", name)
	case KindNotFoundNeedsFullBoot:
		return fmt.Sprintf("Command %s was not found. sitectl successfully connected to the database but was unable to fully bootstrap your site. As a result, many commands are unavailable. Re-run with --debug to see relevant log messages.", name)
	default:
		return fmt.Sprintf("Command %q is not defined.", name)
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bureau-foundation/sitectl/lib/boot"
)

// Handler runs a command.
type Handler interface {
	Run(ctx context.Context, invocation *Invocation) error
}

// HandlerFunc adapts a function to [Handler].
type HandlerFunc func(ctx context.Context, invocation *Invocation) error

// Run calls f.
func (f HandlerFunc) Run(ctx context.Context, invocation *Invocation) error {
	return f(ctx, invocation)
}

// Invocation is one run of a command.
type Invocation struct {
	// Name is the command name as typed, which may be an alias.
	Name string

	// Args are the arguments after the command name.
	Args []string

	// Dir is the working directory.
	Dir string

	// Env holds KEY=VALUE pairs added to the environment of external
	// processes the command starts.
	Env []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Descriptor is the registry's record of one command.
type Descriptor struct {
	// Name is the canonical name, e.g. "cache:rebuild".
	Name string

	// Aliases are alternative names, e.g. "cr".
	Aliases []string

	// Description is a one-line summary shown by list.
	Description string

	// Help is the long help text.
	Help string

	// Usage is an example invocation, e.g. "cache:get <cid> [bin]".
	Usage string

	// Bootstrap is the minimum level at which the command is
	// meaningful. The registry does not enforce it; the CLI escalates
	// to it before running the command.
	Bootstrap boot.Level

	// Obsolete marks a retired command. ObsoleteMessage is shown
	// verbatim instead of running it.
	Obsolete        bool
	ObsoleteMessage string

	// Hidden commands resolve normally but are left out of list.
	Hidden bool

	// Identity is the unit that supplied the command. Set by the
	// registry when the command is registered.
	Identity Identity

	// Source is a human-readable origin (manifest path or module
	// file) for diagnostics.
	Source string

	Handler Handler
}

// Names returns the canonical name followed by the aliases.
func (d *Descriptor) Names() []string {
	return append([]string{d.Name}, d.Aliases...)
}

// Namespace returns the part of the name before the first colon, or
// "_global" for names without one.
func (d *Descriptor) Namespace() string {
	if namespace, _, found := strings.Cut(d.Name, ":"); found {
		return namespace
	}
	return "_global"
}

// Run executes the command. Obsolete commands and commands without a
// handler return an error without doing anything.
func (d *Descriptor) Run(ctx context.Context, invocation *Invocation) error {
	if d.Obsolete {
		return errors.New(d.ObsoleteMessage)
	}
	if d.Handler == nil {
		return fmt.Errorf("command %s has no handler", d.Name)
	}
	return d.Handler.Run(ctx, invocation)
}

// Stage says when a hook runs relative to its command.
type Stage int

const (
	// PreRun hooks run after the command is resolved and bootstrapped,
	// before the command itself.
	PreRun Stage = iota

	// PostRun hooks run after the command succeeds.
	PostRun
)

func (s Stage) String() string {
	if s == PostRun {
		return "post"
	}
	return "pre"
}

// AnyCommand is the hook target that matches every command.
const AnyCommand = "*"

// Hook attaches behavior to another command.
type Hook struct {
	// Command is the canonical name of the hooked command, or
	// [AnyCommand].
	Command string

	Stage Stage

	// Identity is the unit that supplied the hook.
	Identity Identity

	Handler Handler
}

// Unit is what a provider materializes for one identity.
type Unit struct {
	Commands []*Descriptor
	Hooks    []*Hook
}

// Namespaced prefixes the names of descriptors for registration as
// bundled helpers: "lint" becomes "<prefix>:lint" with the alias
// "<aliasPrefix>:lint", and help is replaced when non-empty.
// Descriptors are modified in place and returned.
func Namespaced(prefix, aliasPrefix, help string, descriptors ...*Descriptor) []*Descriptor {
	for _, descriptor := range descriptors {
		base := descriptor.Name
		descriptor.Name = prefix + ":" + base
		descriptor.Aliases = []string{aliasPrefix + ":" + base}
		if help != "" {
			descriptor.Help = help
		}
	}
	return descriptors
}

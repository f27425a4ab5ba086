// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package yamledit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/sitectl/lib/boot"
	"github.com/bureau-foundation/sitectl/lib/registry"
)

// Identity is the registry identity the helpers are registered under.
const Identity registry.Identity = "yaml-cli/Commands/YamlCommands"

// Help replaces the help text of every helper.
const Help = "See https://github.com/grasmash/yaml-cli for a README and bug reports."

// Commands returns the helper descriptors with their bare names
// (get:value, lint, ...). Callers prefix them with
// [registry.Namespaced].
func Commands() []*registry.Descriptor {
	return []*registry.Descriptor{
		{
			Name:        "get:value",
			Description: "Get a value for a specific key in a YAML file.",
			Usage:       "get:value <file> <key>",
			Handler:     registry.HandlerFunc(getValue),
		},
		{
			Name:        "lint",
			Description: "Validates that a given YAML file has valid syntax.",
			Usage:       "lint <file>",
			Handler:     registry.HandlerFunc(lint),
		},
		{
			Name:        "update:key",
			Description: "Change a specific key in a YAML file.",
			Usage:       "update:key <file> <key> <new-key>",
			Handler:     registry.HandlerFunc(updateKey),
		},
		{
			Name:        "unset:key",
			Description: "Unset a specific key in a YAML file.",
			Usage:       "unset:key <file> <key>",
			Handler:     registry.HandlerFunc(unsetKey),
		},
		{
			Name:        "update:value",
			Description: "Update the value for a specific key in a YAML file.",
			Usage:       "update:value [--type=string|int|float|bool|null] <file> <key> <value>",
			Handler:     registry.HandlerFunc(updateValue),
		},
	}
}

// Bundled returns the helpers named yaml:<name> with the alias
// y:<name>. They need no bootstrap.
func Bundled() []*registry.Descriptor {
	descriptors := registry.Namespaced("yaml", "y", Help, Commands()...)
	for _, descriptor := range descriptors {
		descriptor.Bootstrap = boot.None
		descriptor.Source = "bundled"
	}
	return descriptors
}

// positional parses args with flags and checks the positional count.
func positional(invocation *registry.Invocation, flags *pflag.FlagSet, names ...string) ([]string, error) {
	flags.SetOutput(io.Discard)
	if err := flags.Parse(invocation.Args); err != nil {
		return nil, err
	}
	args := flags.Args()
	if len(args) != len(names) {
		return nil, fmt.Errorf("%s: expected arguments %v, got %d", invocation.Name, names, len(args))
	}
	return args, nil
}

func load(invocation *registry.Invocation, file string) (*Document, error) {
	if !filepath.IsAbs(file) && invocation.Dir != "" {
		file = filepath.Join(invocation.Dir, file)
	}
	return Load(file)
}

func getValue(_ context.Context, invocation *registry.Invocation) error {
	args, err := positional(invocation, pflag.NewFlagSet("get:value", pflag.ContinueOnError), "file", "key")
	if err != nil {
		return err
	}
	document, err := load(invocation, args[0])
	if err != nil {
		return err
	}
	node, err := document.Get(args[1])
	if errors.Is(err, ErrKeyNotFound) {
		return fmt.Errorf("the key %s does not exist", args[1])
	}
	if err != nil {
		return err
	}
	if node.Kind == yaml.ScalarNode {
		_, err = fmt.Fprintln(invocation.Stdout, node.Value)
		return err
	}
	encoder := yaml.NewEncoder(invocation.Stdout)
	encoder.SetIndent(2)
	if err := encoder.Encode(node); err != nil {
		return err
	}
	return encoder.Close()
}

func lint(_ context.Context, invocation *registry.Invocation) error {
	args, err := positional(invocation, pflag.NewFlagSet("lint", pflag.ContinueOnError), "file")
	if err != nil {
		return err
	}
	document, err := load(invocation, args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(invocation.Stdout, "The file %s contains valid YAML.\n", document.Path())
	return err
}

func updateKey(_ context.Context, invocation *registry.Invocation) error {
	args, err := positional(invocation, pflag.NewFlagSet("update:key", pflag.ContinueOnError), "file", "key", "new-key")
	if err != nil {
		return err
	}
	document, err := load(invocation, args[0])
	if err != nil {
		return err
	}
	if err := document.Rename(args[1], args[2]); err != nil {
		return err
	}
	if err := document.Save(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(invocation.Stdout, "The key '%s' was changed to '%s' in %s.\n", args[1], args[2], document.Path())
	return err
}

func unsetKey(_ context.Context, invocation *registry.Invocation) error {
	args, err := positional(invocation, pflag.NewFlagSet("unset:key", pflag.ContinueOnError), "file", "key")
	if err != nil {
		return err
	}
	document, err := load(invocation, args[0])
	if err != nil {
		return err
	}
	if err := document.Unset(args[1]); err != nil {
		return err
	}
	if err := document.Save(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(invocation.Stdout, "The key '%s' was removed from %s.\n", args[1], document.Path())
	return err
}

func updateValue(_ context.Context, invocation *registry.Invocation) error {
	flags := pflag.NewFlagSet("update:value", pflag.ContinueOnError)
	typ := flags.String("type", "", "force the value type (string, int, float, bool, null)")
	args, err := positional(invocation, flags, "file", "key", "value")
	if err != nil {
		return err
	}
	value, err := ScalarNode(args[2], *typ)
	if err != nil {
		return err
	}
	document, err := load(invocation, args[0])
	if err != nil {
		return err
	}
	if err := document.Set(args[1], value); err != nil {
		return err
	}
	if err := document.Save(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(invocation.Stdout, "The value for key '%s' was set to '%s' in %s.\n", args[1], args[2], document.Path())
	return err
}

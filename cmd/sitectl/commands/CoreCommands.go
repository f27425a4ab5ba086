// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/sitectl/cmd/sitectl/cli"
	"github.com/bureau-foundation/sitectl/lib/boot"
	"github.com/bureau-foundation/sitectl/lib/registry"
	"github.com/bureau-foundation/sitectl/lib/version"
)

// CoreIdentity is the identity of the core module.
const CoreIdentity registry.Identity = "sitectl/Commands/core/CoreCommands"

// Install adds the core module to app's module index.
func Install(app *cli.Application) {
	app.Modules.Add(CoreModule(app))
}

// CoreModule returns the core module bound to app.
func CoreModule(app *cli.Application) registry.Module {
	return registry.Module{
		Identity: CoreIdentity,
		File:     "CoreCommands.go",
		Kind:     registry.Concrete,
		Base:     registry.CommandBase,
		Load: func() (*registry.Unit, error) {
			return &registry.Unit{Commands: coreCommands(app)}, nil
		},
	}
}

func coreCommands(app *cli.Application) []*registry.Descriptor {
	return []*registry.Descriptor{
		{
			Name:        "core:status",
			Aliases:     []string{"status", "st"},
			Description: "An overview of the environment.",
			Usage:       "core:status [--json]",
			Handler:     registry.HandlerFunc(func(ctx context.Context, inv *registry.Invocation) error { return status(ctx, app, inv) }),
		},
		{
			Name:        "list",
			Description: "List available commands.",
			Usage:       "list [--json] [--filter=<namespace>]",
			Handler:     registry.HandlerFunc(func(ctx context.Context, inv *registry.Invocation) error { return list(ctx, app, inv) }),
		},
		{
			Name:        "help",
			Description: "Display usage details for a command.",
			Usage:       "help [command]",
			Handler:     registry.HandlerFunc(func(ctx context.Context, inv *registry.Invocation) error { return help(ctx, app, inv) }),
		},
		{
			Name:        "version",
			Description: "Show the sitectl version.",
			Usage:       "version [--full]",
			Handler:     registry.HandlerFunc(versionCommand),
		},
		{
			Name:        "site:alias",
			Aliases:     []string{"sa"},
			Description: "Show site alias details, or a list of available site aliases.",
			Usage:       "site:alias [@alias] [--json]",
			Handler:     registry.HandlerFunc(func(ctx context.Context, inv *registry.Invocation) error { return siteAlias(ctx, app, inv) }),
		},
		{
			Name:        "core:serve",
			Aliases:     []string{"serve"},
			Description: "Run commands redispatched from other sitectl processes.",
			Usage:       "core:serve --listen=<address>",
			Bootstrap:   boot.Root,
			Handler:     registry.HandlerFunc(func(ctx context.Context, inv *registry.Invocation) error { return serve(ctx, app, inv) }),
		},
		{
			Name:            "pm:refresh",
			Aliases:         []string{"rf"},
			Description:     "Refresh extension commands.",
			Obsolete:        true,
			ObsoleteMessage: "The pm:refresh command is obsolete. Extension commands are registered automatically when the site fully boots.",
			Hidden:          true,
		},
	}
}

// parseFlags parses a command's arguments, rejecting unexpected
// positional ones beyond max.
func parseFlags(flags *pflag.FlagSet, invocation *registry.Invocation, max int) ([]string, error) {
	flags.SetOutput(io.Discard)
	if err := flags.Parse(invocation.Args); err != nil {
		return nil, cli.Validation("%s: %w", invocation.Name, err)
	}
	args := flags.Args()
	if len(args) > max {
		return nil, cli.Validation("%s: unexpected argument %q", invocation.Name, args[max])
	}
	return args, nil
}

func versionCommand(_ context.Context, invocation *registry.Invocation) error {
	flags := pflag.NewFlagSet("version", pflag.ContinueOnError)
	full := flags.Bool("full", false, "include Go version and platform")
	if _, err := parseFlags(flags, invocation, 0); err != nil {
		return err
	}
	if *full {
		_, err := fmt.Fprintf(invocation.Stdout, "sitectl %s\n", version.Full())
		return err
	}
	_, err := fmt.Fprintf(invocation.Stdout, "sitectl %s\n", version.Info())
	return err
}

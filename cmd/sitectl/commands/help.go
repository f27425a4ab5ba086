// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/sitectl/cmd/sitectl/cli"
	"github.com/bureau-foundation/sitectl/lib/boot"
	"github.com/bureau-foundation/sitectl/lib/registry"
)

func help(ctx context.Context, app *cli.Application, invocation *registry.Invocation) error {
	args, err := parseFlags(pflag.NewFlagSet("help", pflag.ContinueOnError), invocation, 1)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		cli.Usage(invocation.Stdout)
		return nil
	}

	// Retired commands still have help.
	descriptor, err := app.Resolver.ResolveForHelp(ctx, args[0])
	if err != nil {
		return &cli.ToolError{Category: cli.Categorize(err), Err: err}
	}
	if descriptor == nil {
		return cli.Validation("a command name is required")
	}
	writeHelp(invocation, descriptor)
	return nil
}

func writeHelp(invocation *registry.Invocation, descriptor *registry.Descriptor) {
	w := invocation.Stdout
	if descriptor.Description != "" {
		fmt.Fprintf(w, "%s\n\n", descriptor.Description)
	}
	if descriptor.Obsolete {
		fmt.Fprintf(w, "%s\n\n", descriptor.ObsoleteMessage)
	}
	usage := descriptor.Usage
	if usage == "" {
		usage = descriptor.Name
	}
	fmt.Fprintf(w, "Usage:\n  sitectl %s\n", usage)
	if len(descriptor.Aliases) > 0 {
		fmt.Fprintf(w, "\nAliases: %s\n", strings.Join(descriptor.Aliases, ", "))
	}
	if descriptor.Bootstrap > boot.None {
		fmt.Fprintf(w, "Bootstrap: %s\n", descriptor.Bootstrap)
	}
	if descriptor.Help != "" {
		fmt.Fprintf(w, "\n%s\n", strings.TrimRight(descriptor.Help, "\n"))
	}
}

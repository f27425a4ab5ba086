// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/sitectl/cmd/sitectl/cli"
	"github.com/bureau-foundation/sitectl/lib/registry"
	"github.com/bureau-foundation/sitectl/lib/target"
)

func siteAlias(_ context.Context, app *cli.Application, invocation *registry.Invocation) error {
	var output cli.JSONOutput
	flags := pflag.NewFlagSet("site:alias", pflag.ContinueOnError)
	output.Bind(flags)
	args, err := parseFlags(flags, invocation, 1)
	if err != nil {
		return err
	}

	var targets []target.Target
	if len(args) == 1 {
		selected, err := app.Targets.Get(args[0])
		if err != nil {
			return cli.NotFound("%w", err)
		}
		targets = []target.Target{selected}
	} else {
		targets = app.Targets.List()
	}

	if done, err := output.EmitJSON(invocation.Stdout, targets); done {
		return err
	}

	// YAML keyed by @name, the shape of an alias file.
	document := make(map[string]target.Target, len(targets))
	for _, entry := range targets {
		document["@"+entry.Name] = entry
	}
	if len(document) == 0 {
		_, err := fmt.Fprintln(invocation.Stderr, "No site aliases found.")
		return err
	}
	encoder := yaml.NewEncoder(invocation.Stdout)
	encoder.SetIndent(2)
	if err := encoder.Encode(document); err != nil {
		return err
	}
	return encoder.Close()
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/sitectl/cmd/sitectl/cli"
	"github.com/bureau-foundation/sitectl/lib/registry"
)

// globalNamespace holds commands without a colon in their name.
const globalNamespace = "_global"

// listEntry is one command in list --json output.
type listEntry struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases"`
	Namespace   string   `json:"namespace"`
	Description string   `json:"description"`
	Usage       string   `json:"usage,omitempty"`
	Bootstrap   string   `json:"bootstrap"`
	Obsolete    bool     `json:"obsolete,omitempty"`
	Identity    string   `json:"identity"`
}

func list(ctx context.Context, app *cli.Application, invocation *registry.Invocation) error {
	var output cli.JSONOutput
	flags := pflag.NewFlagSet("list", pflag.ContinueOnError)
	output.Bind(flags)
	filter := flags.String("filter", "", "only show commands in this namespace")
	args, err := parseFlags(flags, invocation, 1)
	if err != nil {
		return err
	}
	if len(args) == 1 && *filter == "" {
		*filter = args[0]
	}

	// Extension commands only appear once the site fully boots.
	app.Boot.EscalateToMaximum(ctx)

	var entries []listEntry
	for _, descriptor := range app.Resolver.List(ctx) {
		if descriptor.Hidden {
			continue
		}
		if *filter != "" && descriptor.Namespace() != *filter {
			continue
		}
		entries = append(entries, listEntry{
			Name:        descriptor.Name,
			Aliases:     descriptor.Aliases,
			Namespace:   descriptor.Namespace(),
			Description: descriptor.Description,
			Usage:       descriptor.Usage,
			Bootstrap:   descriptor.Bootstrap.String(),
			Obsolete:    descriptor.Obsolete,
			Identity:    string(descriptor.Identity),
		})
	}

	if done, err := output.EmitJSON(invocation.Stdout, entries); done {
		return err
	}
	if len(entries) == 0 && *filter != "" {
		return cli.NotFound("there are no commands in the %q namespace", *filter)
	}
	return writeListing(invocation.Stdout, entries, isTerminal(invocation.Stdout))
}

// writeListing prints entries grouped by namespace, global commands
// first. Namespace headings are bold on a terminal.
func writeListing(w io.Writer, entries []listEntry, terminal bool) error {
	groups := make(map[string][]listEntry)
	var namespaces []string
	for _, entry := range entries {
		if _, seen := groups[entry.Namespace]; !seen {
			namespaces = append(namespaces, entry.Namespace)
		}
		groups[entry.Namespace] = append(groups[entry.Namespace], entry)
	}
	sort.Slice(namespaces, func(i, j int) bool {
		if namespaces[i] == globalNamespace || namespaces[j] == globalNamespace {
			return namespaces[i] == globalNamespace
		}
		return namespaces[i] < namespaces[j]
	})

	heading := lipgloss.NewStyle().Bold(true)
	writer := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintln(writer, "Available commands:")
	for _, namespace := range namespaces {
		title := namespace + ":"
		if terminal {
			title = heading.Render(title)
		}
		fmt.Fprintln(writer, title)
		for _, entry := range groups[namespace] {
			name := entry.Name
			if len(entry.Aliases) > 0 {
				name += " (" + strings.Join(entry.Aliases, ", ") + ")"
			}
			description := entry.Description
			if entry.Obsolete {
				description = "(obsolete) " + description
			}
			fmt.Fprintf(writer, "  %s\t%s\n", name, description)
		}
	}
	return writer.Flush()
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

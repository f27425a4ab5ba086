// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/sitectl/cmd/sitectl/cli"
	"github.com/bureau-foundation/sitectl/lib/registry"
	"github.com/bureau-foundation/sitectl/lib/version"
)

// statusReport is the output of core:status.
type statusReport struct {
	Version      string   `json:"version"`
	Target       string   `json:"target"`
	Root         string   `json:"root,omitempty"`
	URI          string   `json:"uri,omitempty"`
	SiteName     string   `json:"site_name,omitempty"`
	Database     string   `json:"database,omitempty"`
	Bootstrap    string   `json:"bootstrap"`
	Extensions   []string `json:"extensions"`
	Config       string   `json:"config,omitempty"`
	IncludePaths []string `json:"include_paths"`
	AliasPaths   []string `json:"alias_paths"`
	Commands     int      `json:"commands"`
	Fingerprint  string   `json:"fingerprint"`
}

func status(ctx context.Context, app *cli.Application, invocation *registry.Invocation) error {
	var output cli.JSONOutput
	flags := pflag.NewFlagSet("core:status", pflag.ContinueOnError)
	output.Bind(flags)
	if _, err := parseFlags(flags, invocation, 0); err != nil {
		return err
	}

	// Report as much as the site allows.
	app.Boot.EscalateToMaximum(ctx)

	report := statusReport{
		Version:      version.Short(),
		Target:       app.Targets.Self().String(),
		Root:         app.Host.Root(),
		URI:          app.Host.URI(),
		SiteName:     app.Host.Settings().Name,
		Database:     app.Host.Settings().Database.Path,
		Bootstrap:    app.Boot.Current().String(),
		Config:       app.Config.Source(),
		IncludePaths: app.Config.Paths.Include,
		AliasPaths:   app.Config.Paths.Aliases,
		Commands:     len(app.Registry.List(ctx)),
		Fingerprint:  app.Registry.Fingerprint(ctx),
	}
	for _, extension := range app.Host.Extensions() {
		report.Extensions = append(report.Extensions, extension.Name)
	}
	if failure := app.Boot.LastFailure(); failure != nil {
		app.Logger.Debug("bootstrap stopped", "level", failure.Level.String(), "error", failure.Err)
	}

	if done, err := output.EmitJSON(invocation.Stdout, report); done {
		return err
	}

	writer := tabwriter.NewWriter(invocation.Stdout, 2, 0, 1, ' ', 0)
	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(writer, "%s\t: %s\n", label, value)
		}
	}
	row("sitectl version", report.Version)
	row("Target", report.Target)
	row("Site root", report.Root)
	row("Site URI", report.URI)
	row("Site name", report.SiteName)
	row("Database", report.Database)
	row("Bootstrap", report.Bootstrap)
	row("Extensions", strings.Join(report.Extensions, ", "))
	row("Config", report.Config)
	row("Include paths", strings.Join(report.IncludePaths, ", "))
	row("Alias paths", strings.Join(report.AliasPaths, ", "))
	row("Commands", fmt.Sprint(report.Commands))
	row("Fingerprint", report.Fingerprint)
	return writer.Flush()
}

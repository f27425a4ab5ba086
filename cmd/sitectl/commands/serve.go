// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/sitectl/cmd/sitectl/cli"
	"github.com/bureau-foundation/sitectl/lib/redispatch"
	"github.com/bureau-foundation/sitectl/lib/registry"
)

// socketName is the default listen socket inside the host root.
const socketName = ".sitectl.sock"

func serve(ctx context.Context, app *cli.Application, invocation *registry.Invocation) error {
	flags := pflag.NewFlagSet("core:serve", pflag.ContinueOnError)
	listen := flags.String("listen", "", "address to listen on: a socket path, unix://path or tcp://host:port (default <root>/"+socketName+")")
	if _, err := parseFlags(flags, invocation, 0); err != nil {
		return err
	}
	address := *listen
	if address == "" {
		address = filepath.Join(app.Host.Root(), socketName)
	}

	listener, err := redispatch.Listen(address)
	if err != nil {
		return cli.Conflict("listening on %s: %w", address, err)
	}
	app.Logger.Info("serving redispatched commands", "address", listener.Addr().String(), "root", app.Host.Root())
	fmt.Fprintf(invocation.Stderr, "Listening on %s\n", listener.Addr())

	server := redispatch.NewServer(RequestHandler(app), app.Logger)
	return server.Serve(ctx, listener)
}

// RequestHandler runs each redispatched request in a fresh application
// that shares parent's configuration file, logger and alias paths. The
// request's target root and uri select the site.
func RequestHandler(parent *cli.Application) redispatch.HandlerFunc {
	return func(ctx context.Context, request redispatch.Request, stdout, stderr io.Writer) (int, error) {
		name := request.Argv[0]
		if name == "core:serve" || name == "serve" {
			return 0, errors.New("core:serve cannot be redispatched")
		}

		options := replayedOptions(request.Options)
		options.ConfigPath = parent.Config.Source()
		options.Root = request.Target.Root
		if options.Root == "" {
			options.Root = parent.Host.Root()
		}
		if options.Root == "" {
			options.Root = parent.Targets.Self().Root
		}
		options.URI = request.Target.URI

		cwd := request.Cwd
		if info, err := os.Stat(cwd); cwd == "" || err != nil || !info.IsDir() {
			cwd = options.Root
		}

		app, err := cli.NewApplication(cli.Settings{
			Options:     options,
			Cwd:         cwd,
			Environment: parent.Environment,
			Stdin:       strings.NewReader(""),
			Stdout:      stdout,
			Stderr:      stderr,
			Logger:      parent.Logger.With("redispatched", name),
		})
		if err != nil {
			return 0, err
		}
		defer app.Close()
		Install(app)

		parent.Logger.Debug("running redispatched command", "command", name, "target", request.Target.String())
		err = app.Run(ctx, request.Argv)
		if err == nil {
			return 0, nil
		}
		var coder cli.ExitCoder
		if !errors.As(err, &coder) {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		return cli.ExitCodeOf(err), nil
	}
}

// replayedOptions is the inverse of [cli.GlobalOptions.Replay].
func replayedOptions(replay map[string]string) cli.GlobalOptions {
	var options cli.GlobalOptions
	_, options.Yes = replay["yes"]
	_, options.No = replay["no"]
	_, options.Simulate = replay["simulate"]
	_, options.Debug = replay["debug"]
	return options
}

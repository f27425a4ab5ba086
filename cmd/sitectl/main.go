// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// sitectl runs site administration commands against a local site host
// or redispatches them to a remote one.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/sitectl/cmd/sitectl/cli"
	"github.com/bureau-foundation/sitectl/cmd/sitectl/commands"
	"github.com/bureau-foundation/sitectl/lib/config"
	"github.com/bureau-foundation/sitectl/lib/version"
)

func main() {
	if err := run(); err != nil {
		// Commands that report their own failure return an error
		// carrying the exit code. Don't print a redundant "error:"
		// line for those.
		var coder cli.ExitCoder
		if errors.As(err, &coder) {
			os.Exit(cli.ExitCodeOf(err))
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	options, args, err := cli.ParseGlobalOptions(os.Args[1:])
	if err != nil {
		return err
	}
	if options.Version {
		fmt.Printf("sitectl %s\n", version.Info())
		return nil
	}
	if options.Help && len(args) == 0 {
		cli.Usage(os.Stdout)
		return nil
	}
	if options.Help {
		args = append([]string{"help"}, args[0])
	}

	environment, err := config.ParseEnvironment()
	if err != nil {
		return cli.Validation("%w", err)
	}
	logger := cli.NewCommandLogger(cli.LogLevel(options, environment.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApplication(cli.Settings{
		Options:     options,
		Environment: environment,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer app.Close()
	commands.Install(app)

	return app.Run(ctx, args)
}

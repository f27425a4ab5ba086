// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/pflag"
)

// GlobalOptions are the options that precede the command name.
type GlobalOptions struct {
	// Root is the host root (--root, -r).
	Root string

	// URI selects the site (--uri, -l).
	URI string

	// Alias is the @alias argument without the "@", or "".
	Alias string

	// Yes answers yes to every prompt (--yes, -y).
	Yes bool

	// No answers no to every prompt (--no, -n).
	No bool

	// Simulate asks commands to report instead of acting (--simulate).
	Simulate bool

	// Defines are key=value configuration overrides (--define, -D).
	Defines []string

	// Debug enables debug logging (--debug, -d).
	Debug bool

	// Verbose counts -v flags. Three or more enable debug logging.
	Verbose int

	// ConfigPath is the configuration file (--config).
	ConfigPath string

	// Help asks for usage (--help, -h).
	Help bool

	// Version asks for the version (--version).
	Version bool
}

func (o *GlobalOptions) flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("sitectl", pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	// Everything after the command name belongs to the command.
	flags.SetInterspersed(false)

	flags.StringVarP(&o.Root, "root", "r", o.Root, "host root directory")
	flags.StringVarP(&o.URI, "uri", "l", o.URI, "site URI within the host")
	flags.BoolVarP(&o.Yes, "yes", "y", o.Yes, "assume yes to all prompts")
	flags.BoolVarP(&o.No, "no", "n", o.No, "assume no to all prompts")
	flags.BoolVar(&o.Simulate, "simulate", o.Simulate, "report what would happen without changing anything")
	flags.StringArrayVarP(&o.Defines, "define", "D", o.Defines, "override a configuration key (key=value)")
	flags.BoolVarP(&o.Debug, "debug", "d", o.Debug, "enable debug logging")
	flags.CountVarP(&o.Verbose, "verbose", "v", "increase verbosity (-vvv for debug)")
	flags.StringVar(&o.ConfigPath, "config", o.ConfigPath, "configuration file")
	flags.BoolVarP(&o.Help, "help", "h", o.Help, "show usage")
	flags.BoolVar(&o.Version, "version", o.Version, "show the sitectl version")
	return flags
}

// ParseGlobalOptions parses the global options and an optional @alias
// from args and returns the command name and its arguments. Global
// options may appear both before and after the alias:
//
//	sitectl --root=/srv/shop @prod -y cache:rebuild --all
func ParseGlobalOptions(args []string) (GlobalOptions, []string, error) {
	var options GlobalOptions
	rest, err := options.parse(args)
	if err != nil {
		return GlobalOptions{}, nil, err
	}
	if len(rest) > 0 && strings.HasPrefix(rest[0], "@") {
		options.Alias = strings.TrimPrefix(rest[0], "@")
		if options.Alias == "" {
			return GlobalOptions{}, nil, Validation("empty site alias %q", rest[0])
		}
		if rest, err = options.parse(rest[1:]); err != nil {
			return GlobalOptions{}, nil, err
		}
	}
	return options, rest, nil
}

// parse applies args on top of o. Counts and repeated flags
// accumulate across calls.
func (o *GlobalOptions) parse(args []string) ([]string, error) {
	parsed := *o
	parsed.Defines = nil
	flags := parsed.flagSet()
	if err := flags.Parse(args); err != nil {
		message := err.Error()
		if strings.Contains(message, "unknown flag") || strings.Contains(message, "unknown shorthand") {
			if suggestion := suggestFlag(args, o.flagSet()); suggestion != "" {
				return nil, Validation("%s (did you mean %s?)\n\nRun 'sitectl --help' for usage.", message, suggestion)
			}
		}
		return nil, Validation("%s\n\nRun 'sitectl --help' for usage.", message)
	}
	parsed.Verbose += o.Verbose
	parsed.Defines = append(slices.Clone(o.Defines), parsed.Defines...)
	*o = parsed
	return flags.Args(), nil
}

// Replay returns the options a peer needs to reproduce this
// invocation, as --name[=value] pairs keyed by name. Root, URI and the
// alias are carried by the target instead.
func (o GlobalOptions) Replay() map[string]string {
	replay := make(map[string]string)
	if o.Yes {
		replay["yes"] = ""
	}
	if o.No {
		replay["no"] = ""
	}
	if o.Simulate {
		replay["simulate"] = ""
	}
	if o.Debug || o.Verbose >= 3 {
		replay["debug"] = ""
	}
	return replay
}

// Usage writes the global usage text to w.
func Usage(w io.Writer) {
	var options GlobalOptions
	fmt.Fprintf(w, "Usage:\n  sitectl [global options] [@alias] <command> [arguments]\n\nGlobal options:\n")
	flags := options.flagSet()
	flags.SetOutput(w)
	flags.PrintDefaults()
	fmt.Fprintf(w, "\nRun 'sitectl list' to see the available commands.\n")
}

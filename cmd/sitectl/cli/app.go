// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bureau-foundation/sitectl/lib/boot"
	"github.com/bureau-foundation/sitectl/lib/config"
	"github.com/bureau-foundation/sitectl/lib/redispatch"
	"github.com/bureau-foundation/sitectl/lib/registry"
	"github.com/bureau-foundation/sitectl/lib/resolve"
	"github.com/bureau-foundation/sitectl/lib/site"
	"github.com/bureau-foundation/sitectl/lib/target"
	"github.com/bureau-foundation/sitectl/lib/yamledit"
)

// IncludeNamespace roots the identities of manifests found on the
// include paths.
const IncludeNamespace = "sitectl"

// Settings are the inputs of one application instance.
type Settings struct {
	Options     GlobalOptions
	Environment config.Environment

	// Cwd is the working directory. Empty uses the process's.
	Cwd string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Logger receives diagnostics. Nil discards.
	Logger *slog.Logger
}

// Application is one sitectl invocation: its configuration, bootstrap
// state, command registry and resolver.
type Application struct {
	Options     GlobalOptions
	Environment config.Environment
	Config      *config.Config
	Logger      *slog.Logger
	Cwd         string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Targets    *target.Manager
	Host       *site.Host
	Boot       *boot.Manager
	Registry   *registry.Registry
	Modules    *registry.ModuleIndex
	Dispatcher *redispatch.Dispatcher
	Resolver   *resolve.Resolver
}

// NewApplication loads configuration and wires the application. Built-in
// command modules are added to the returned application's Modules
// before the first command is resolved.
func NewApplication(settings Settings) (*Application, error) {
	logger := settings.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	options := settings.Options

	cwd := settings.Cwd
	if cwd == "" {
		var err error
		if cwd, err = os.Getwd(); err != nil {
			return nil, Internal("determining working directory: %w", err)
		}
	}

	environment := settings.Environment
	if options.ConfigPath != "" {
		environment.ConfigPath = options.ConfigPath
	}
	cfg, err := config.Load(environment)
	if err != nil {
		return nil, Validation("%w", err)
	}
	for _, assignment := range options.Defines {
		if err := cfg.Define(assignment); err != nil {
			return nil, Validation("%w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, Validation("invalid configuration: %w", err)
	}
	if cfg.Source() != "" {
		logger.Debug("configuration loaded", "path", cfg.Source())
	}

	app := &Application{
		Options:     options,
		Environment: settings.Environment,
		Config:      cfg,
		Logger:      logger,
		Cwd:         cwd,
		Stdin:       orReader(settings.Stdin),
		Stdout:      orWriter(settings.Stdout),
		Stderr:      orWriter(settings.Stderr),
		Modules:     registry.NewModuleIndex(),
	}

	app.Targets = target.NewManager(cfg.Paths.Aliases, logger)
	if err := app.selectTarget(); err != nil {
		return nil, err
	}
	self := app.Targets.Self()

	app.Registry = registry.New(logger,
		registry.NewDeclaredProvider(declarations(cfg), app.Modules, logger),
		registry.NewPathProvider(IncludeNamespace, cfg.Paths.Include, logger),
		registry.NewModuleProvider(app.Modules, logger),
	)
	app.Registry.Register(yamledit.Identity, yamledit.Bundled()...)

	app.Host = site.New(site.Options{
		Root:     self.Root,
		URI:      self.URI,
		Cwd:      cwd,
		Registry: app.Registry,
		Logger:   logger,
	})
	app.Boot = boot.NewManager(boot.Config{Logger: logger, Locator: app.Host})
	if err := app.Host.Register(app.Boot); err != nil {
		return nil, Internal("registering bootstrap phases: %w", err)
	}
	if self.IsLocal() {
		app.refineURI()
	}

	app.Dispatcher, err = newDispatcher(cfg, options, logger)
	if err != nil {
		return nil, err
	}
	app.Resolver = resolve.New(resolve.Config{
		Registry:     app.Registry,
		Boot:         app.Boot,
		Targets:      app.Targets,
		Redispatcher: app.Dispatcher,
		Logger:       logger,
	})
	return app, nil
}

// selectTarget makes the @alias, or a local target built from the
// root and uri options, the self target.
func (a *Application) selectTarget() error {
	if a.Options.Alias != "" {
		selected, err := a.Targets.Get(a.Options.Alias)
		if err != nil {
			return NotFound("%w", err).WithHint("Run 'sitectl site:alias' to see the available aliases.")
		}
		if err := selected.Validate(); err != nil {
			return Validation("%w", err)
		}
		// Command-line root and uri refine an alias.
		if a.Options.Root != "" {
			selected.Root = a.Options.Root
		}
		if a.Options.URI != "" {
			selected.URI = a.Options.URI
		}
		a.Targets.SetSelf(selected)
		return nil
	}

	self := target.Target{Root: a.Options.Root, URI: a.Options.URI}
	if self.Root == "" {
		self.Root = a.Config.Options.Root
	}
	if self.URI == "" {
		self.URI = a.Config.Options.URI
	}
	a.Targets.SetSelf(self)
	return nil
}

// refineURI picks a site from the working directory when none was
// selected explicitly. Nothing happens outside a host root.
func (a *Application) refineURI() {
	self := a.Targets.Self()
	if self.URI != "" {
		return
	}
	if !self.HasRoot() {
		if _, err := site.FindRoot(a.Cwd); err != nil {
			return
		}
	}
	uri := a.Boot.SelectURI(a.Cwd)
	self.URI = uri
	a.Targets.SetSelf(self)
	a.Host.SetURI(uri)
}

func declarations(cfg *config.Config) []registry.Declaration {
	declarations := make([]registry.Declaration, 0, len(cfg.Commands))
	for _, entry := range cfg.Commands {
		declarations = append(declarations, registry.Declaration{
			Identity: registry.NormalizeIdentity(entry.Identity),
			Hint:     entry.Hint,
		})
	}
	return declarations
}

func newDispatcher(cfg *config.Config, options GlobalOptions, logger *slog.Logger) (*redispatch.Dispatcher, error) {
	timeout, err := cfg.RedispatchTimeout()
	if err != nil {
		return nil, Validation("%w", err)
	}
	connectTimeout, err := cfg.SSHConnectTimeout()
	if err != nil {
		return nil, Validation("%w", err)
	}
	accept, err := redispatch.ParseEncoding(cfg.Redispatch.Compression)
	if err != nil {
		return nil, Validation("%w", err)
	}
	return &redispatch.Dispatcher{
		Socket: &redispatch.SocketTransport{Accept: accept},
		SSH: &redispatch.SSHTransport{
			RemoteBinary:   cfg.Redispatch.RemoteBinary,
			KeyPath:        cfg.Redispatch.SSH.KeyPath,
			KnownHostsPath: cfg.Redispatch.SSH.KnownHosts,
			ConnectTimeout: connectTimeout,
		},
		Timeout: timeout,
		Options: options.Replay(),
		Logger:  logger,
	}, nil
}

// Run resolves args[0] and runs it with the remaining arguments. With
// no arguments it runs "list".
func (a *Application) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}
	name, commandArgs := args[0], args[1:]

	descriptor, err := a.Resolver.Resolve(ctx, name)
	if err != nil {
		return resolutionError(err)
	}
	if descriptor == nil {
		return Validation("a command name is required")
	}
	invocation := a.invocation(name, commandArgs)

	if resolve.IsRemoteProxy(descriptor) {
		return a.runRemote(ctx, descriptor, invocation)
	}

	if descriptor.Bootstrap > a.Boot.Current() {
		if err := a.Boot.EscalateTo(ctx, descriptor.Bootstrap); err != nil {
			return Transient("command %s requires bootstrap level %s: %w", descriptor.Name, descriptor.Bootstrap, err).
				WithHint("Re-run with --debug to see the bootstrap log.")
		}
	}

	for _, hook := range a.Registry.Hooks(ctx, descriptor.Name, registry.PreRun) {
		if err := hook.Handler.Run(ctx, invocation); err != nil {
			return fmt.Errorf("pre-run hook from %s for %s: %w", hook.Identity, descriptor.Name, err)
		}
	}

	a.Logger.Debug("running command", "command", descriptor.Name, "identity", descriptor.Identity, "source", descriptor.Source)
	if err := descriptor.Run(ctx, invocation); err != nil {
		return err
	}

	for _, hook := range a.Registry.Hooks(ctx, descriptor.Name, registry.PostRun) {
		if err := hook.Handler.Run(ctx, invocation); err != nil {
			return fmt.Errorf("post-run hook from %s for %s: %w", hook.Identity, descriptor.Name, err)
		}
	}
	return nil
}

func (a *Application) runRemote(ctx context.Context, descriptor *registry.Descriptor, invocation *registry.Invocation) error {
	err := descriptor.Run(ctx, invocation)
	var exitErr *redispatch.ExitError
	if err == nil || errors.As(err, &exitErr) {
		return err
	}
	var peerErr *redispatch.PeerError
	if errors.As(err, &peerErr) {
		return &ToolError{Category: CategoryInternal, Err: err}
	}
	return &ToolError{Category: CategoryTransient, Err: err}
}

// invocation builds the invocation for name. Commands that start
// processes see the selected site and the prompt options in their
// environment.
func (a *Application) invocation(name string, args []string) *registry.Invocation {
	self := a.Targets.Self()
	env := []string{
		"SITECTL_TARGET=" + self.String(),
		"SITECTL_URI=" + self.URI,
	}
	root := a.Host.Root()
	if root == "" {
		root = self.Root
	}
	env = append(env, "SITECTL_ROOT="+root)
	if a.Options.Yes {
		env = append(env, "SITECTL_YES=1")
	}
	if a.Options.No {
		env = append(env, "SITECTL_NO=1")
	}
	if a.Options.Simulate {
		env = append(env, "SITECTL_SIMULATE=1")
	}
	return &registry.Invocation{
		Name:   name,
		Args:   args,
		Dir:    a.Cwd,
		Env:    env,
		Stdin:  a.Stdin,
		Stdout: a.Stdout,
		Stderr: a.Stderr,
	}
}

// Close releases the site database.
func (a *Application) Close() error {
	return a.Host.Close()
}

func orReader(reader io.Reader) io.Reader {
	if reader == nil {
		return os.Stdin
	}
	return reader
}

func orWriter(writer io.Writer) io.Writer {
	if writer == nil {
		return io.Discard
	}
	return writer
}

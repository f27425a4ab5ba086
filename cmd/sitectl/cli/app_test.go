// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/sitectl/lib/boot"
	"github.com/bureau-foundation/sitectl/lib/config"
	"github.com/bureau-foundation/sitectl/lib/redispatch"
	"github.com/bureau-foundation/sitectl/lib/resolve"
	"github.com/bureau-foundation/sitectl/lib/sitedb"
	"github.com/bureau-foundation/sitectl/lib/testutil"
)

// fixture is a workspace with a config file, an include path, an alias
// path and a site host root.
type fixture struct {
	dir     string
	root    string
	include string
	aliases string
	config  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:     dir,
		root:    filepath.Join(dir, "host"),
		include: filepath.Join(dir, "commands"),
		aliases: filepath.Join(dir, "aliases"),
		config:  filepath.Join(dir, "sitectl.yml"),
	}
	testutil.WriteTree(t, dir, map[string]string{
		"sitectl.yml":                     fmt.Sprintf("paths:\n  include: [%q]\n  aliases: [%q]\n", f.include, f.aliases),
		"commands/":                       "",
		"aliases/":                        "",
		"host/sitectl.site.yml":           "",
		"host/sites/default/settings.yml": "name: Default\ndatabase:\n  path: site.db\n",
		"host/sites/shop/settings.yml":    "name: Shop\n",
		"host/extensions/audit/Commands/AuditCommands.yml": "commands:\n  - name: audit:run\n    exec: [sh, -c, 'echo audited']\n",
	})

	db, err := sitedb.Open(sitedb.Config{Path: filepath.Join(f.root, "sites/default/site.db"), Create: true})
	if err != nil {
		t.Fatalf("creating site database: %v", err)
	}
	defer db.Close()
	if err := db.SetExtension(context.Background(), sitedb.Extension{Name: "audit", Path: "extensions/audit", Enabled: true}); err != nil {
		t.Fatal(err)
	}
	return f
}

// manifest writes a manifest into the include path.
func (f *fixture) manifest(t *testing.T, name, content string) {
	t.Helper()
	testutil.WriteTree(t, f.include, map[string]string{"Commands/" + name: content})
}

// app builds an application over the fixture with output captured.
func (f *fixture) app(t *testing.T, options GlobalOptions, cwd string) (*Application, *bytes.Buffer) {
	t.Helper()
	if cwd == "" {
		cwd = f.dir
	}
	var stdout bytes.Buffer
	app, err := NewApplication(Settings{
		Options:     options,
		Environment: config.Environment{ConfigPath: f.config},
		Cwd:         cwd,
		Stdin:       strings.NewReader(""),
		Stdout:      &stdout,
		Stderr:      &stdout,
	})
	if err != nil {
		t.Fatalf("NewApplication() error: %v", err)
	}
	t.Cleanup(func() { app.Close() })
	return app, &stdout
}

func TestRun_ManifestCommandWithoutBootstrap(t *testing.T) {
	f := newFixture(t)
	f.manifest(t, "GreetCommands.yml", `
commands:
  - name: greet:hello
    aliases: [hi]
    exec: [sh, -c, 'echo "hello $1 $SITECTL_YES"', greet]
`)
	app, stdout := f.app(t, GlobalOptions{Yes: true}, "")

	if err := app.Run(context.Background(), []string{"hi", "world"}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := stdout.String(); got != "hello world 1\n" {
		t.Errorf("stdout = %q, want %q", got, "hello world 1\n")
	}
	if app.Boot.Attempts() != 0 {
		t.Errorf("a registered command should not bootstrap, got %d attempts", app.Boot.Attempts())
	}
}

func TestRun_HooksWrapCommand(t *testing.T) {
	f := newFixture(t)
	f.manifest(t, "GreetCommands.yml", `
commands:
  - name: greet:hello
    exec: [sh, -c, 'echo command']
  - name: greet:fail
    exec: [sh, -c, 'exit 4']
hooks:
  - command: greet:hello
    stage: pre
    exec: [sh, -c, 'echo pre']
  - command: greet:hello
    stage: post
    exec: [sh, -c, 'echo post']
  - command: greet:fail
    stage: post
    exec: [sh, -c, 'echo post-fail']
`)
	app, stdout := f.app(t, GlobalOptions{}, "")

	if err := app.Run(context.Background(), []string{"greet:hello"}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := stdout.String(); got != "pre\ncommand\npost\n" {
		t.Errorf("stdout = %q, want pre, command, post", got)
	}

	stdout.Reset()
	err := app.Run(context.Background(), []string{"greet:fail"})
	if ExitCodeOf(err) != 4 {
		t.Errorf("exit code = %d (error %v), want 4", ExitCodeOf(err), err)
	}
	if strings.Contains(stdout.String(), "post-fail") {
		t.Error("post-run hooks should not run after a failed command")
	}
}

func TestRun_ObsoleteStopsBeforeHooks(t *testing.T) {
	f := newFixture(t)
	marker := filepath.Join(f.dir, "hook-ran")
	f.manifest(t, "LegacyCommands.yml", fmt.Sprintf(`
commands:
  - name: legacy:sync
    obsolete: The legacy:sync command is obsolete. Use sync instead.
hooks:
  - command: legacy:sync
    stage: pre
    exec: [touch, %q]
`, marker))
	app, _ := f.app(t, GlobalOptions{}, "")

	err := app.Run(context.Background(), []string{"legacy:sync"})
	if Categorize(err) != CategoryObsolete {
		t.Fatalf("Categorize(%v) = %s, want obsolete", err, Categorize(err))
	}
	if err.Error() != "The legacy:sync command is obsolete. Use sync instead." {
		t.Errorf("error = %q, want the obsolete message verbatim", err.Error())
	}
	if _, statErr := os.Stat(marker); statErr == nil {
		t.Error("pre-run hook ran for an obsolete command")
	}
}

func TestRun_NotFoundWithoutRoot(t *testing.T) {
	f := newFixture(t)
	app, _ := f.app(t, GlobalOptions{}, "")

	err := app.Run(context.Background(), []string{"audit:run"})
	if Categorize(err) != CategoryNotFound {
		t.Fatalf("Categorize(%v) = %s, want not_found", err, Categorize(err))
	}
	var resolveErr *resolve.Error
	if !errors.As(err, &resolveErr) || resolveErr.Kind != resolve.KindNotFoundNeedsRoot {
		t.Errorf("error = %v, want a needs-root resolution error", err)
	}
	if !strings.Contains(err.Error(), "Pass --root or a @siteAlias") {
		t.Errorf("error %q should suggest --root", err.Error())
	}
}

func TestRun_ExtensionCommandAfterFullBoot(t *testing.T) {
	f := newFixture(t)
	app, stdout := f.app(t, GlobalOptions{}, filepath.Join(f.root, "sites", "default"))

	if err := app.Run(context.Background(), []string{"audit:run"}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if stdout.String() != "audited\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
	if app.Boot.Current() != boot.Full {
		t.Errorf("Current() = %s, want full", app.Boot.Current())
	}
}

func TestRun_EscalatesToDeclaredLevel(t *testing.T) {
	f := newFixture(t)
	f.manifest(t, "DbCommands.yml", `
commands:
  - name: db:check
    bootstrap: database
    exec: [sh, -c, 'echo "$SITECTL_URI"']
`)

	app, stdout := f.app(t, GlobalOptions{Root: f.root}, "")
	if err := app.Run(context.Background(), []string{"db:check"}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !app.Boot.Reached(boot.Database) {
		t.Errorf("Current() = %s, want at least database", app.Boot.Current())
	}
	if stdout.String() != "default\n" {
		t.Errorf("stdout = %q, want the selected uri", stdout.String())
	}

	// The shop site has no database.
	app, _ = f.app(t, GlobalOptions{Root: f.root, URI: "shop"}, "")
	err := app.Run(context.Background(), []string{"db:check"})
	if Categorize(err) != CategoryTransient {
		t.Errorf("Categorize(%v) = %s, want transient", err, Categorize(err))
	}
	var phaseErr *boot.PhaseError
	if !errors.As(err, &phaseErr) || phaseErr.Level != boot.Database {
		t.Errorf("error = %v, want a database phase error", err)
	}
}

func TestRun_BundledYAMLHelpers(t *testing.T) {
	f := newFixture(t)
	testutil.WriteTree(t, f.dir, map[string]string{"data.yml": "a:\n  b: 7\n"})
	app, stdout := f.app(t, GlobalOptions{}, "")

	if err := app.Run(context.Background(), []string{"y:get:value", "data.yml", "a.b"}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if stdout.String() != "7\n" {
		t.Errorf("stdout = %q, want 7", stdout.String())
	}
}

func TestRun_EmptyName(t *testing.T) {
	f := newFixture(t)
	app, _ := f.app(t, GlobalOptions{}, "")
	if err := app.Run(context.Background(), []string{""}); Categorize(err) != CategoryValidation {
		t.Errorf("Run(\"\") error = %v, want a validation error", err)
	}
}

func TestRun_RedispatchesToSocketPeer(t *testing.T) {
	f := newFixture(t)
	socket := filepath.Join(testutil.SocketDir(t), "peer.sock")
	testutil.WriteTree(t, f.aliases, map[string]string{
		"peer.site.yml": fmt.Sprintf("socket: %q\nroot: /srv/peer\n", socket),
	})

	received := make(chan redispatch.Request, 1)
	server := redispatch.NewServer(func(ctx context.Context, request redispatch.Request, stdout, stderr io.Writer) (int, error) {
		received <- request
		fmt.Fprintf(stdout, "ran %s on peer\n", strings.Join(request.Argv, " "))
		return 3, nil
	}, nil)
	listener, err := redispatch.Listen(socket)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, listener) }()
	t.Cleanup(func() {
		cancel()
		testutil.RequireReceive(t, done, 5*time.Second, "server shutdown")
	})

	app, stdout := f.app(t, GlobalOptions{Alias: "peer", Yes: true}, "")
	err = app.Run(context.Background(), []string{"cache:rebuild", "--all"})
	if ExitCodeOf(err) != 3 {
		t.Fatalf("exit code = %d (error %v), want 3", ExitCodeOf(err), err)
	}
	if stdout.String() != "ran cache:rebuild --all on peer\n" {
		t.Errorf("stdout = %q", stdout.String())
	}

	request := testutil.RequireReceive(t, received, 5*time.Second, "redispatched request")
	if request.Target.Root != "/srv/peer" || request.Target.Name != "peer" {
		t.Errorf("request target = %+v", request.Target)
	}
	if _, ok := request.Options["yes"]; !ok {
		t.Errorf("request options = %v, want yes replayed", request.Options)
	}
	if app.Boot.Attempts() != 0 {
		t.Error("redispatch should not bootstrap the local site")
	}
}

func TestNewApplication_Errors(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name     string
		options  GlobalOptions
		category ErrorCategory
	}{
		{"unknown alias", GlobalOptions{Alias: "nowhere"}, CategoryNotFound},
		{"malformed define", GlobalOptions{Defines: []string{"novalue"}}, CategoryValidation},
		{"unknown define key", GlobalOptions{Defines: []string{"options.color=red"}}, CategoryValidation},
		{"invalid define value", GlobalOptions{Defines: []string{"redispatch.compression=gzip"}}, CategoryValidation},
		{"missing config file", GlobalOptions{ConfigPath: filepath.Join(f.dir, "absent.yml")}, CategoryValidation},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewApplication(Settings{
				Options:     test.options,
				Environment: config.Environment{ConfigPath: f.config},
				Cwd:         f.dir,
			})
			if err == nil {
				t.Fatal("NewApplication() should fail")
			}
			if Categorize(err) != test.category {
				t.Errorf("Categorize(%v) = %s, want %s", err, Categorize(err), test.category)
			}
		})
	}
}

func TestNewApplication_SelfTarget(t *testing.T) {
	f := newFixture(t)
	testutil.WriteTree(t, f.aliases, map[string]string{
		"shop.site.yml": fmt.Sprintf("prod:\n  root: %q\n  uri: shop\n", f.root),
	})

	app, _ := f.app(t, GlobalOptions{Alias: "shop.prod"}, "")
	if self := app.Targets.Self(); self.Root != f.root || self.URI != "shop" || self.Name != "shop.prod" {
		t.Errorf("Self() = %+v, want the shop.prod alias", self)
	}

	app, _ = f.app(t, GlobalOptions{Defines: []string{"options.root=" + f.root}}, "")
	if self := app.Targets.Self(); self.Root != f.root {
		t.Errorf("Self().Root = %q, want the defined root", self.Root)
	}

	// Inside a site directory the uri follows the working directory.
	app, _ = f.app(t, GlobalOptions{}, filepath.Join(f.root, "sites", "shop"))
	if self := app.Targets.Self(); self.URI != "shop" {
		t.Errorf("Self().URI = %q, want shop from the working directory", self.URI)
	}

	// Outside any host the uri stays unselected.
	app, _ = f.app(t, GlobalOptions{}, "")
	if self := app.Targets.Self(); self.URI != "" || !self.IsLocal() {
		t.Errorf("Self() = %+v, want a local target without uri", self)
	}
}

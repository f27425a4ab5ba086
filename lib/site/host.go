// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/sitectl/lib/boot"
	"github.com/bureau-foundation/sitectl/lib/registry"
	"github.com/bureau-foundation/sitectl/lib/sitedb"
)

const (
	// MarkerFile identifies a host root directory.
	MarkerFile = "sitectl.site.yml"

	// SitesDirectory holds one directory per site URI.
	SitesDirectory = "sites"

	// SettingsFile is a site's settings, relative to its directory.
	SettingsFile = "settings.yml"

	// DefaultURI is the site selected when nothing else applies.
	DefaultURI = "default"
)

// Settings is a site's settings.yml.
type Settings struct {
	// Name is the human-readable site name.
	Name string `yaml:"name"`

	Database DatabaseSettings `yaml:"database"`
}

// DatabaseSettings locates the site database.
type DatabaseSettings struct {
	// Path is the SQLite file, relative to the site directory unless
	// absolute.
	Path string `yaml:"path"`
}

// Options configures a Host.
type Options struct {
	// Root is the host root given by --root or a site alias. When
	// empty, ROOT walks up from Cwd looking for MarkerFile.
	Root string

	// URI is the selected site. When empty, SITE derives it from Cwd
	// or uses DefaultURI.
	URI string

	// Cwd is the working directory of the invocation.
	Cwd string

	// Registry receives extension providers in the FULL phase. Nil
	// skips registration.
	Registry *registry.Registry

	// Logger receives phase diagnostics. Nil discards.
	Logger *slog.Logger
}

// Host is the bootstrap state of one site host. It is owned by one
// invocation.
type Host struct {
	options Options
	logger  *slog.Logger

	root       string
	uri        string
	siteDir    string
	settings   Settings
	db         *sitedb.DB
	extensions []sitedb.Extension
}

// New returns a Host that has not booted any phase.
func New(options Options) *Host {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Host{options: options, logger: logger, uri: options.URI}
}

// Register adds the host's phases to manager.
func (h *Host) Register(manager *boot.Manager) error {
	phases := []boot.Phase{
		boot.PhaseFunc{At: boot.Root, Run: h.bootRoot},
		boot.PhaseFunc{At: boot.Site, Run: h.bootSite},
		boot.PhaseFunc{At: boot.Configuration, Run: h.bootConfiguration},
		boot.PhaseFunc{At: boot.Database, Run: h.bootDatabase},
		boot.PhaseFunc{At: boot.Full, Run: h.bootFull},
	}
	for _, phase := range phases {
		if err := manager.Register(phase); err != nil {
			return err
		}
	}
	return nil
}

// Root returns the located host root, or "" before ROOT.
func (h *Host) Root() string { return h.root }

// URI returns the selected site URI, or "" before SITE unless one was
// given.
func (h *Host) URI() string { return h.uri }

// SetURI selects the site before SITE runs.
func (h *Host) SetURI(uri string) { h.uri = uri }

// SiteDir returns the selected site directory, or "" before SITE.
func (h *Host) SiteDir() string { return h.siteDir }

// Settings returns the loaded settings, zero before CONFIGURATION.
func (h *Host) Settings() Settings { return h.settings }

// DB returns the site database, or nil before DATABASE.
func (h *Host) DB() *sitedb.DB { return h.db }

// Extensions returns the extensions enabled by FULL.
func (h *Host) Extensions() []sitedb.Extension { return h.extensions }

// SelectURI returns the site implied by cwd: the directory name when
// cwd is inside <root>/sites/<uri>, otherwise DefaultURI. Before ROOT
// the root is the configured one or the one found above cwd.
func (h *Host) SelectURI(cwd string) string {
	if cwd == "" {
		return DefaultURI
	}
	root := h.root
	if root == "" {
		root = h.options.Root
	}
	if root == "" {
		found, err := FindRoot(cwd)
		if err != nil {
			return DefaultURI
		}
		root = found
	}
	relative, err := filepath.Rel(filepath.Join(root, SitesDirectory), cwd)
	if err != nil || relative == "." || strings.HasPrefix(relative, "..") {
		return DefaultURI
	}
	first, _, _ := strings.Cut(filepath.ToSlash(relative), "/")
	return first
}

// Close releases the site database.
func (h *Host) Close() error {
	if h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	return err
}

func (h *Host) bootRoot(ctx context.Context) error {
	if h.options.Root != "" {
		root, err := filepath.Abs(h.options.Root)
		if err != nil {
			return err
		}
		if _, err := os.Stat(filepath.Join(root, MarkerFile)); err != nil {
			return fmt.Errorf("%s is not a site host root: %w", root, err)
		}
		h.root = root
		return nil
	}

	root, err := FindRoot(h.options.Cwd)
	if err != nil {
		return err
	}
	h.root = root
	h.logger.Debug("found host root", "root", root)
	return nil
}

func (h *Host) bootSite(ctx context.Context) error {
	if h.uri == "" {
		h.uri = h.SelectURI(h.options.Cwd)
	}
	siteDir := filepath.Join(h.root, SitesDirectory, h.uri)
	info, err := os.Stat(siteDir)
	if err != nil {
		return fmt.Errorf("site %s: %w", h.uri, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("site %s: %s is not a directory", h.uri, siteDir)
	}
	h.siteDir = siteDir
	return nil
}

func (h *Host) bootConfiguration(ctx context.Context) error {
	path := filepath.Join(h.siteDir, SettingsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if settings.Database.Path != "" && !filepath.IsAbs(settings.Database.Path) {
		settings.Database.Path = filepath.Join(h.siteDir, settings.Database.Path)
	}
	h.settings = settings
	return nil
}

func (h *Host) bootDatabase(ctx context.Context) error {
	if h.settings.Database.Path == "" {
		return errors.New("no database configured in " + SettingsFile)
	}
	db, err := sitedb.Open(sitedb.Config{Path: h.settings.Database.Path, Logger: h.logger})
	if err != nil {
		return err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return err
	}
	h.db = db
	return nil
}

func (h *Host) bootFull(ctx context.Context) error {
	extensions, err := h.db.EnabledExtensions(ctx)
	if err != nil {
		return err
	}
	h.extensions = extensions
	if h.options.Registry == nil {
		return nil
	}
	for _, extension := range extensions {
		path := extension.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(h.root, path)
		}
		h.options.Registry.Add(registry.NewPathProvider(extension.Name, []string{path}, h.logger))
		h.logger.Debug("registered extension commands", "extension", extension.Name, "path", path)
	}
	return nil
}

// FindRoot walks up from dir looking for MarkerFile.
func FindRoot(dir string) (string, error) {
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			return "", err
		}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for current := dir; ; {
		if _, err := os.Stat(filepath.Join(current, MarkerFile)); err == nil {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no %s found in %s or any parent directory", MarkerFile, dir)
		}
		current = parent
	}
}

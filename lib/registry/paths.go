// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// manifestPattern matches file names that define commands, hooks or
// generators.
var manifestPattern = regexp.MustCompile(`(Command|Hook|Generator)s?\.(yml|yaml|jsonc)$`)

// searchLocations are the subdirectories of a search path that hold
// manifests.
var searchLocations = []string{"Commands", "Hooks", "Generators"}

// searchDepth bounds how many directory levels below a search location
// are scanned.
const searchDepth = 3

// PathProvider discovers manifests under a list of search paths.
//
// For a search path P and namespace N, the file
// P/Commands/contrib/audit/AuditCommands.yml has the identity
// N/Commands/audit/AuditCommands. Namespace segments "contrib" and
// "custom" directly after "Commands" are dropped, as is any "src"
// segment. Manifests directly in P are included as N/<Name>.
type PathProvider struct {
	namespace string
	paths     []string
	logger    *slog.Logger

	files map[Identity]string
}

// NewPathProvider returns a provider over paths. Identities are rooted
// at namespace.
func NewPathProvider(namespace string, paths []string, logger *slog.Logger) *PathProvider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PathProvider{
		namespace: string(NormalizeIdentity(namespace)),
		paths:     paths,
		logger:    logger,
		files:     make(map[Identity]string),
	}
}

// Name implements [Provider].
func (p *PathProvider) Name() string { return "paths:" + p.namespace }

// Discover implements [Provider]. Missing search paths are skipped
// silently; unreadable ones are logged.
func (p *PathProvider) Discover(ctx context.Context) ([]Identity, error) {
	var identities []Identity
	for _, root := range p.paths {
		if err := ctx.Err(); err != nil {
			return identities, err
		}
		found, err := p.scan(root)
		if err != nil {
			p.logger.Warn("command search path unreadable", "path", root, "error", err)
			continue
		}
		identities = append(identities, found...)
	}
	return identities, nil
}

// Materialize implements [Provider].
func (p *PathProvider) Materialize(ctx context.Context, id Identity) (*Unit, error) {
	file, ok := p.files[id]
	if !ok {
		return nil, fmt.Errorf("identity %s was not discovered by this provider", id)
	}
	return LoadManifest(file)
}

// File returns the manifest path behind a discovered identity.
func (p *PathProvider) File(id Identity) (string, bool) {
	file, ok := p.files[id]
	return file, ok
}

func (p *PathProvider) scan(root string) ([]Identity, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var identities []Identity
	for _, entry := range entries {
		if entry.IsDir() || !manifestPattern.MatchString(entry.Name()) {
			continue
		}
		identities = append(identities, p.record(nil, filepath.Join(root, entry.Name())))
	}

	for _, location := range searchLocations {
		base := filepath.Join(root, location)
		info, err := os.Stat(base)
		if err != nil || !info.IsDir() {
			continue
		}
		err = filepath.WalkDir(base, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				p.logger.Warn("skipping unreadable command directory", "path", path, "error", err)
				if entry != nil && entry.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			relative, _ := filepath.Rel(base, path)
			segments := strings.Split(filepath.ToSlash(relative), "/")
			if entry.IsDir() {
				if relative != "." && len(segments) >= searchDepth {
					return fs.SkipDir
				}
				return nil
			}
			if !manifestPattern.MatchString(entry.Name()) {
				return nil
			}
			directories := append([]string{location}, segments[:len(segments)-1]...)
			identities = append(identities, p.record(directories, path))
			return nil
		})
		if err != nil {
			return identities, err
		}
	}
	return identities, nil
}

// record remembers the file behind an identity and returns the
// identity. The first file seen for an identity wins.
func (p *PathProvider) record(directories []string, file string) Identity {
	segments := []string{}
	if p.namespace != "" {
		segments = append(segments, p.namespace)
	}
	segments = append(segments, logicalNamespace(directories)...)
	stem := filepath.Base(file)
	stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	segments = append(segments, stem)

	id := Identity(strings.Join(segments, "/"))
	if existing, ok := p.files[id]; ok {
		p.logger.Debug("duplicate manifest identity ignored",
			"identity", id,
			"kept", existing,
			"ignored", file,
		)
		return id
	}
	p.files[id] = file
	return id
}

// logicalNamespace drops organizational segments from a directory
// path: "contrib" and "custom" directly after "Commands", and "src"
// anywhere.
func logicalNamespace(directories []string) []string {
	var kept []string
	for i, segment := range directories {
		if segment == "src" {
			continue
		}
		if (segment == "contrib" || segment == "custom") && i > 0 && directories[i-1] == "Commands" {
			continue
		}
		kept = append(kept, segment)
	}
	return kept
}

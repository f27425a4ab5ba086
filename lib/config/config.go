// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the sitectl configuration.
type Config struct {
	// Options holds defaults for the global command-line options.
	Options OptionsConfig `yaml:"options"`

	// Commands declares command sets to register in addition to the
	// ones found by scanning search paths.
	Commands []CommandEntry `yaml:"commands"`

	// Paths configures search locations.
	Paths PathsConfig `yaml:"paths"`

	// Redispatch configures how commands reach remote targets.
	Redispatch RedispatchConfig `yaml:"redispatch"`

	// source is the file this config was loaded from, empty for
	// defaults.
	source string
}

// OptionsConfig holds defaults for global options. Command-line flags
// take precedence.
type OptionsConfig struct {
	// Root is the host root directory.
	Root string `yaml:"root"`

	// URI selects the site within the host.
	URI string `yaml:"uri"`
}

// PathsConfig configures search locations.
type PathsConfig struct {
	// Include lists directories scanned for command manifests.
	Include []string `yaml:"include"`

	// Aliases lists directories searched for *.site.yml alias files.
	Aliases []string `yaml:"aliases"`
}

// RedispatchConfig configures remote execution.
type RedispatchConfig struct {
	// Timeout bounds one redispatched invocation. Go duration syntax.
	// Default: 5m
	Timeout string `yaml:"timeout"`

	// Compression is the encoding requested for captured output:
	// "zstd", "lz4" or "none". Default: zstd
	Compression string `yaml:"compression"`

	// RemoteBinary is the sitectl executable on SSH targets.
	// Default: sitectl
	RemoteBinary string `yaml:"remote_binary"`

	// SSH configures the SSH transport.
	SSH SSHConfig `yaml:"ssh"`
}

// SSHConfig configures the SSH transport.
type SSHConfig struct {
	// KeyPath is a private key file. When empty the SSH agent at
	// SSH_AUTH_SOCK is used.
	KeyPath string `yaml:"key_path"`

	// KnownHosts is the known_hosts file used to verify host keys.
	// Default: ${HOME}/.ssh/known_hosts
	KnownHosts string `yaml:"known_hosts"`

	// ConnectTimeout bounds the TCP connect and handshake.
	// Default: 10s
	ConnectTimeout string `yaml:"connect_timeout"`
}

// CommandEntry is one declared command set. In YAML it is either a
// bare string (the identity) or a one-key map whose key is a load hint
// (a manifest path) and whose value is the identity:
//
//	commands:
//	  - sitectl/Commands/core/DeployCommands
//	  - ${SITECTL_ROOT}/tools/AuditCommands.yml: vendor/Commands/AuditCommands
type CommandEntry struct {
	Identity string
	Hint     string
}

// UnmarshalYAML accepts either entry form.
func (e *CommandEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		e.Identity = strings.TrimSpace(node.Value)
		e.Hint = ""
		return nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: command entry map must have exactly one key", node.Line)
		}
		e.Hint = strings.TrimSpace(node.Content[0].Value)
		e.Identity = strings.TrimLeft(strings.TrimSpace(node.Content[1].Value), `\/`)
		return nil
	default:
		return fmt.Errorf("line %d: command entry must be a string or a one-key map", node.Line)
	}
}

// MarshalYAML writes the entry back in the form it was read.
func (e CommandEntry) MarshalYAML() (any, error) {
	if e.Hint == "" {
		return e.Identity, nil
	}
	return map[string]string{e.Hint: e.Identity}, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Paths: PathsConfig{
			Include: []string{filepath.Join(homeDir, ".sitectl", "commands")},
			Aliases: []string{filepath.Join(homeDir, ".sitectl", "sites")},
		},
		Redispatch: RedispatchConfig{
			Timeout:      "5m",
			Compression:  "zstd",
			RemoteBinary: "sitectl",
			SSH: SSHConfig{
				KnownHosts:     filepath.Join(homeDir, ".ssh", "known_hosts"),
				ConnectTimeout: "10s",
			},
		},
	}
}

// Load loads the file named by env.ConfigPath, or returns Default when
// it is empty.
func Load(env Environment) (*Config, error) {
	if env.ConfigPath == "" {
		cfg := Default()
		cfg.applyEnvironment(env)
		cfg.expandVariables()
		return cfg, nil
	}
	cfg, err := LoadFile(env.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.applyEnvironment(env)
	cfg.expandVariables()
	return cfg, nil
}

// LoadFile loads configuration from a specific file path on top of
// Default.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.source = path

	cfg.expandVariables()
	return cfg, nil
}

// Source returns the file the config was loaded from, or "".
func (c *Config) Source() string { return c.source }

// applyEnvironment prepends search paths named in the environment so
// they win over configured ones.
func (c *Config) applyEnvironment(env Environment) {
	if len(env.Include) > 0 {
		c.Paths.Include = append(slices.Clone(env.Include), c.Paths.Include...)
	}
	if len(env.AliasPath) > 0 {
		c.Paths.Aliases = append(slices.Clone(env.AliasPath), c.Paths.Aliases...)
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields and command hints.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"SITECTL_ROOT": c.Options.Root,
		"HOME":         os.Getenv("HOME"),
	}

	c.Options.Root = expandVars(c.Options.Root, vars)
	vars["SITECTL_ROOT"] = c.Options.Root

	for i := range c.Paths.Include {
		c.Paths.Include[i] = expandVars(c.Paths.Include[i], vars)
	}
	for i := range c.Paths.Aliases {
		c.Paths.Aliases[i] = expandVars(c.Paths.Aliases[i], vars)
	}
	for i := range c.Commands {
		c.Commands[i].Hint = expandVars(c.Commands[i].Hint, vars)
	}
	c.Redispatch.SSH.KeyPath = expandVars(c.Redispatch.SSH.KeyPath, vars)
	c.Redispatch.SSH.KnownHosts = expandVars(c.Redispatch.SSH.KnownHosts, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Define applies one --define key=value override. Only scalar keys are
// accepted.
func (c *Config) Define(assignment string) error {
	key, value, found := strings.Cut(assignment, "=")
	if !found {
		return fmt.Errorf("--define %q: expected key=value", assignment)
	}
	key = strings.TrimSpace(key)

	switch key {
	case "options.root":
		c.Options.Root = value
	case "options.uri":
		c.Options.URI = value
	case "redispatch.timeout":
		c.Redispatch.Timeout = value
	case "redispatch.compression":
		c.Redispatch.Compression = value
	case "redispatch.remote_binary":
		c.Redispatch.RemoteBinary = value
	case "redispatch.ssh.key_path":
		c.Redispatch.SSH.KeyPath = value
	case "redispatch.ssh.known_hosts":
		c.Redispatch.SSH.KnownHosts = value
	case "redispatch.ssh.connect_timeout":
		c.Redispatch.SSH.ConnectTimeout = value
	default:
		return fmt.Errorf("--define %q: unknown key %q", assignment, key)
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	for i, entry := range c.Commands {
		if entry.Identity == "" {
			errs = append(errs, fmt.Errorf("commands[%d]: identity is required", i))
		}
	}

	if _, err := c.RedispatchTimeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.SSHConnectTimeout(); err != nil {
		errs = append(errs, err)
	}

	compressions := []string{"zstd", "lz4", "none"}
	if !slices.Contains(compressions, c.Redispatch.Compression) {
		errs = append(errs, fmt.Errorf("redispatch.compression must be one of: %v", compressions))
	}
	if strings.TrimSpace(c.Redispatch.RemoteBinary) == "" {
		errs = append(errs, fmt.Errorf("redispatch.remote_binary is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// RedispatchTimeout parses redispatch.timeout.
func (c *Config) RedispatchTimeout() (time.Duration, error) {
	return parseDuration("redispatch.timeout", c.Redispatch.Timeout)
}

// SSHConnectTimeout parses redispatch.ssh.connect_timeout.
func (c *Config) SSHConnectTimeout() (time.Duration, error) {
	return parseDuration("redispatch.ssh.connect_timeout", c.Redispatch.SSH.ConnectTimeout)
}

func parseDuration(key, value string) (time.Duration, error) {
	duration, err := time.ParseDuration(value)
	if err != nil {
		// Bare integers are seconds.
		if seconds, intErr := strconv.Atoi(value); intErr == nil {
			return time.Duration(seconds) * time.Second, nil
		}
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, value)
	}
	return duration, nil
}

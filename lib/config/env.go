// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Environment holds the SITECTL_* environment variables.
type Environment struct {
	// ConfigPath is the configuration file, overridden by --config.
	ConfigPath string `env:"SITECTL_CONFIG"`

	// LogLevel overrides the verbosity flags: debug, info, warn, error.
	LogLevel string `env:"SITECTL_LOG_LEVEL"`

	// Include lists extra command search paths.
	Include []string `env:"SITECTL_INCLUDE" envSeparator:":"`

	// AliasPath lists extra alias search paths.
	AliasPath []string `env:"SITECTL_ALIAS_PATH" envSeparator:":"`
}

// ParseEnvironment reads the SITECTL_* variables from the process
// environment.
func ParseEnvironment() (Environment, error) {
	var environment Environment
	if err := env.Parse(&environment); err != nil {
		return Environment{}, fmt.Errorf("parse env: %w", err)
	}
	return environment, nil
}

// ParseEnvironmentFrom reads the SITECTL_* variables from values
// instead of the process environment.
func ParseEnvironmentFrom(values map[string]string) (Environment, error) {
	var environment Environment
	if err := env.ParseWithOptions(&environment, env.Options{Environment: values}); err != nil {
		return Environment{}, fmt.Errorf("parse env: %w", err)
	}
	return environment, nil
}

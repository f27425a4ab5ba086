// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package target

import (
	"fmt"
	"strconv"
	"strings"
)

// Target is an execution target.
type Target struct {
	// Name is the alias name without the leading "@". Empty for the
	// implicit local target.
	Name string `yaml:"-" json:"name,omitempty" cbor:"name,omitempty"`

	// Root is the host root directory on the machine that runs the
	// command.
	Root string `yaml:"root,omitempty" json:"root,omitempty" cbor:"root,omitempty"`

	// URI selects the site within the host.
	URI string `yaml:"uri,omitempty" json:"uri,omitempty" cbor:"uri,omitempty"`

	// Host is the SSH host of a remote target.
	Host string `yaml:"host,omitempty" json:"host,omitempty" cbor:"host,omitempty"`

	// User is the SSH user. Empty uses the local user name.
	User string `yaml:"user,omitempty" json:"user,omitempty" cbor:"user,omitempty"`

	// Port is the SSH port. Zero means 22.
	Port int `yaml:"port,omitempty" json:"port,omitempty" cbor:"port,omitempty"`

	// Socket is the address of a `sitectl serve` peer: a filesystem
	// path for a Unix socket or host:port for TCP.
	Socket string `yaml:"socket,omitempty" json:"socket,omitempty" cbor:"socket,omitempty"`
}

// IsLocal reports whether commands for this target run in this
// process.
func (t Target) IsLocal() bool {
	return t.Host == "" && t.Socket == ""
}

// HasRoot reports whether the target names a host root.
func (t Target) HasRoot() bool {
	return t.Root != ""
}

// String returns "@name" for named targets and a description of the
// location otherwise.
func (t Target) String() string {
	if t.Name != "" {
		return "@" + t.Name
	}
	switch {
	case t.Socket != "":
		return "socket:" + t.Socket
	case t.Host != "":
		return t.SSHAddress() + ":" + t.Root
	case t.Root != "":
		return t.Root
	default:
		return "@self"
	}
}

// SSHAddress returns host:port for remote SSH targets.
func (t Target) SSHAddress() string {
	port := t.Port
	if port == 0 {
		port = 22
	}
	host := t.Host
	if t.User != "" {
		host = t.User + "@" + host
	}
	if port == 22 {
		return host
	}
	return host + ":" + strconv.Itoa(port)
}

// Validate rejects targets that cannot be acted on.
func (t Target) Validate() error {
	if t.Host != "" && t.Socket != "" {
		return fmt.Errorf("target %s sets both host and socket", t)
	}
	if t.Port < 0 || t.Port > 65535 {
		return fmt.Errorf("target %s has invalid port %d", t, t.Port)
	}
	if strings.ContainsAny(t.Name, " \t@") {
		return fmt.Errorf("target name %q contains invalid characters", t.Name)
	}
	return nil
}

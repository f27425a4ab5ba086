// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package redispatch

import (
	"fmt"

	"github.com/bureau-foundation/sitectl/lib/target"
)

// Request asks a peer to run one command.
type Request struct {
	// Argv is the command name followed by its arguments.
	Argv []string `cbor:"argv"`

	// Target is the target as the caller sees it. The peer runs
	// against its own root; Root and URI override when set.
	Target target.Target `cbor:"target"`

	// Cwd is the caller's working directory, informational.
	Cwd string `cbor:"cwd,omitempty"`

	// Options carries global options to replay on the peer, such as
	// "yes" or "simulate".
	Options map[string]string `cbor:"options,omitempty"`

	// Accept is the output encoding the caller prefers.
	Accept Encoding `cbor:"accept,omitempty"`
}

// Response is the peer's answer.
type Response struct {
	ExitCode int `cbor:"exit_code"`

	// Stdout and Stderr are the captured output, encoded per Encoding.
	Stdout []byte `cbor:"stdout,omitempty"`
	Stderr []byte `cbor:"stderr,omitempty"`

	// StdoutSize and StderrSize are the decoded lengths.
	StdoutSize int `cbor:"stdout_size,omitempty"`
	StderrSize int `cbor:"stderr_size,omitempty"`

	Encoding Encoding `cbor:"encoding,omitempty"`

	// Error is set when the peer could not run the command at all.
	Error string `cbor:"error,omitempty"`
}

// PeerError is returned when the peer rejected a request.
type PeerError struct {
	Address string
	Message string
}

func (e *PeerError) Error() string {
	return fmt.Sprintf("peer %s: %s", e.Address, e.Message)
}

// ExitError carries a remote command's non-zero exit status.
type ExitError struct {
	Target string
	Code   int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command on %s exited with status %d", e.Target, e.Code)
}

// ExitCode returns the remote exit status.
func (e *ExitError) ExitCode() int {
	return e.Code
}

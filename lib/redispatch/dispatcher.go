// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package redispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bureau-foundation/sitectl/lib/registry"
	"github.com/bureau-foundation/sitectl/lib/target"
)

// Transport delivers one request to a remote target.
type Transport interface {
	Send(ctx context.Context, remote target.Target, request Request, stdout, stderr io.Writer) (int, error)
}

// Dispatcher redispatches invocations to remote targets.
type Dispatcher struct {
	// Socket serves targets with a socket address.
	Socket Transport

	// SSH serves targets with an SSH host.
	SSH Transport

	// Timeout bounds one redispatched invocation. Zero means no
	// limit.
	Timeout time.Duration

	// Options are global options replayed on the peer.
	Options map[string]string

	Logger *slog.Logger
}

// Redispatch runs name on remote with the invocation's arguments and
// streams. A non-zero remote exit status is returned as *ExitError.
func (d *Dispatcher) Redispatch(ctx context.Context, remote target.Target, name string, invocation *registry.Invocation) error {
	transport, kind := d.transportFor(remote)
	if transport == nil {
		return fmt.Errorf("no transport can reach %s", remote)
	}

	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	request := Request{
		Argv:    append([]string{name}, invocation.Args...),
		Target:  remote,
		Cwd:     invocation.Dir,
		Options: d.Options,
	}

	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Debug("redispatching command",
		"command", name,
		"target", remote.String(),
		"transport", kind,
	)

	exitCode, err := transport.Send(ctx, remote, request, invocation.Stdout, invocation.Stderr)
	if err != nil {
		return fmt.Errorf("redispatching %s to %s: %w", name, remote, err)
	}
	if exitCode != 0 {
		return &ExitError{Target: remote.String(), Code: exitCode}
	}
	return nil
}

func (d *Dispatcher) transportFor(remote target.Target) (Transport, string) {
	switch {
	case remote.Socket != "" && d.Socket != nil:
		return d.Socket, "socket"
	case remote.Host != "" && d.SSH != nil:
		return d.SSH, "ssh"
	default:
		return nil, ""
	}
}

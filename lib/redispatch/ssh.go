// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package redispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/user"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/bureau-foundation/sitectl/lib/target"
)

// SSHTransport runs sitectl on a remote host over SSH.
type SSHTransport struct {
	// RemoteBinary is the sitectl executable on the remote host.
	RemoteBinary string

	// KeyPath is a private key file. When empty the agent at
	// SSH_AUTH_SOCK is used.
	KeyPath string

	// KnownHostsPath verifies host keys. Required.
	KnownHostsPath string

	// ConnectTimeout bounds the TCP connect and SSH handshake.
	ConnectTimeout time.Duration

	// agentDial connects to the SSH agent. Tests replace it.
	agentDial func() (net.Conn, error)
}

// Send runs the command on remote.Host, streaming output to stdout
// and stderr, and returns the remote exit code.
func (t *SSHTransport) Send(ctx context.Context, remote target.Target, request Request, stdout, stderr io.Writer) (int, error) {
	if remote.Host == "" {
		return 0, fmt.Errorf("target %s has no SSH host", remote)
	}

	client, err := t.dial(ctx, remote)
	if err != nil {
		return 0, fmt.Errorf("connecting to %s: %w", remote.SSHAddress(), err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return 0, fmt.Errorf("opening session on %s: %w", remote.SSHAddress(), err)
	}
	defer session.Close()

	session.Stdout = stdout
	session.Stderr = stderr

	// Closing the client aborts a running command when ctx ends.
	stop := context.AfterFunc(ctx, func() {
		client.Close()
	})
	defer stop()

	err = session.Run(t.remoteCommand(remote, request))
	if err == nil {
		return 0, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	return 0, fmt.Errorf("running on %s: %w", remote.SSHAddress(), err)
}

// remoteCommand builds the shell command line run on the remote host.
func (t *SSHTransport) remoteCommand(remote target.Target, request Request) string {
	binary := t.RemoteBinary
	if binary == "" {
		binary = "sitectl"
	}
	var args []string
	if remote.Root != "" {
		args = append(args, "--root="+remote.Root)
	}
	if remote.URI != "" {
		args = append(args, "--uri="+remote.URI)
	}
	args = append(args, optionFlags(request.Options)...)
	args = append(args, request.Argv...)

	command := joinCommand(binary, args)
	if remote.Root != "" {
		command = "cd " + shellEscape(remote.Root) + " && " + command
	}
	return command
}

// optionFlags renders replayed options as --name or --name=value, in
// name order.
func optionFlags(options map[string]string) []string {
	names := make([]string, 0, len(options))
	for name := range options {
		names = append(names, name)
	}
	sort.Strings(names)
	flags := make([]string, 0, len(names))
	for _, name := range names {
		if value := options[name]; value != "" {
			flags = append(flags, "--"+name+"="+value)
		} else {
			flags = append(flags, "--"+name)
		}
	}
	return flags
}

func (t *SSHTransport) dial(ctx context.Context, remote target.Target) (*ssh.Client, error) {
	config, agentConn, err := t.clientConfig(remote)
	if err != nil {
		return nil, err
	}
	if agentConn != nil {
		// The agent is only consulted during the handshake.
		defer agentConn.Close()
	}

	port := remote.Port
	if port == 0 {
		port = 22
	}
	address := net.JoinHostPort(remote.Host, strconv.Itoa(port))

	dialer := net.Dialer{Timeout: t.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	if t.ConnectTimeout > 0 {
		conn.SetDeadline(time.Now().Add(t.ConnectTimeout))
	}

	clientConn, channels, requests, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	conn.SetDeadline(time.Time{})
	return ssh.NewClient(clientConn, channels, requests), nil
}

// clientConfig builds the SSH client configuration. When the agent is
// used, its connection is returned for the caller to close.
func (t *SSHTransport) clientConfig(remote target.Target) (*ssh.ClientConfig, net.Conn, error) {
	name := remote.User
	if name == "" {
		current, err := user.Current()
		if err != nil {
			return nil, nil, fmt.Errorf("ssh user is required: %w", err)
		}
		name = current.Username
	}

	if t.KnownHostsPath == "" {
		return nil, nil, fmt.Errorf("known_hosts path is required")
	}
	hostKeyCallback, err := knownhosts.New(t.KnownHostsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading known_hosts %s: %w", t.KnownHostsPath, err)
	}

	auth, agentConn, err := t.authMethod()
	if err != nil {
		return nil, nil, err
	}

	return &ssh.ClientConfig{
		User:            name,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: hostKeyCallback,
		Timeout:         t.ConnectTimeout,
	}, agentConn, nil
}

func (t *SSHTransport) authMethod() (ssh.AuthMethod, net.Conn, error) {
	if t.KeyPath != "" {
		privateKey, err := os.ReadFile(t.KeyPath)
		if err != nil {
			return nil, nil, fmt.Errorf("reading ssh key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(privateKey)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing ssh key %s: %w", t.KeyPath, err)
		}
		return ssh.PublicKeys(signer), nil, nil
	}

	dial := t.agentDial
	if dial == nil {
		dial = dialAgent
	}
	conn, err := dial()
	if err != nil {
		return nil, nil, fmt.Errorf("no ssh key configured and the ssh agent is unavailable: %w", err)
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), conn, nil
}

func dialAgent() (net.Conn, error) {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil, errors.New("SSH_AUTH_SOCK is not set")
	}
	return net.Dial("unix", socket)
}

func joinCommand(cmd string, args []string) string {
	var builder strings.Builder
	builder.WriteString(shellEscape(cmd))
	for _, arg := range args {
		builder.WriteByte(' ')
		builder.WriteString(shellEscape(arg))
	}
	return builder.String()
}

func shellEscape(value string) string {
	if value == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

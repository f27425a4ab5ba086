// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package redispatch

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/bureau-foundation/sitectl/lib/codec"
	"github.com/bureau-foundation/sitectl/lib/target"
)

// dialTimeout is the maximum time to wait for a connection to the
// peer. It covers only the connect phase.
const dialTimeout = 5 * time.Second

// maxRequestSize is the maximum size of a single CBOR request.
const maxRequestSize = 1024 * 1024

// maxResponseSize is the maximum size of a single CBOR response. Output
// is captured whole, so this is generous.
const maxResponseSize = 64 * 1024 * 1024

// splitAddress maps a peer address to a network and address. Paths
// (anything containing a slash, or a unix:// URL) are Unix sockets;
// host:port and tcp:// URLs are TCP.
func splitAddress(address string) (network, addr string) {
	switch {
	case strings.HasPrefix(address, "unix://"):
		return "unix", strings.TrimPrefix(address, "unix://")
	case strings.HasPrefix(address, "tcp://"):
		return "tcp", strings.TrimPrefix(address, "tcp://")
	case strings.Contains(address, "/"):
		return "unix", address
	case strings.Contains(address, ":"):
		return "tcp", address
	default:
		return "unix", address
	}
}

// SocketTransport sends requests to a `sitectl serve` peer. Each
// request opens a new connection, writes the request, reads the
// response, and closes the connection.
type SocketTransport struct {
	// Accept is the output encoding requested from the peer.
	Accept Encoding
}

// Send delivers request to the peer at remote.Socket and writes the
// decoded output to stdout and stderr. It returns the remote exit
// code.
func (t *SocketTransport) Send(ctx context.Context, remote target.Target, request Request, stdout, stderr io.Writer) (int, error) {
	if remote.Socket == "" {
		return 0, fmt.Errorf("target %s has no socket address", remote)
	}
	if request.Accept == "" {
		request.Accept = t.Accept
	}

	response, err := t.roundTrip(ctx, remote.Socket, request)
	if err != nil {
		return 0, fmt.Errorf("calling peer %s: %w", remote.Socket, err)
	}
	if response.Error != "" {
		return 0, &PeerError{Address: remote.Socket, Message: response.Error}
	}

	if err := relay(stdout, response.Stdout, response.Encoding, response.StdoutSize); err != nil {
		return 0, fmt.Errorf("relaying stdout: %w", err)
	}
	if err := relay(stderr, response.Stderr, response.Encoding, response.StderrSize); err != nil {
		return 0, fmt.Errorf("relaying stderr: %w", err)
	}
	return response.ExitCode, nil
}

func (t *SocketTransport) roundTrip(ctx context.Context, address string, request Request) (*Response, error) {
	network, addr := splitAddress(address)
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	// Unblock reads and writes when ctx is cancelled.
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := codec.Write(conn, request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	// Half-close the write side so the peer sees EOF after the
	// request.
	switch c := conn.(type) {
	case *net.UnixConn:
		c.CloseWrite()
	case *net.TCPConn:
		c.CloseWrite()
	}

	var response Response
	if err := codec.Read(conn, maxResponseSize, &response); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &response, nil
}

func relay(writer io.Writer, data []byte, encoding Encoding, size int) error {
	if len(data) == 0 && size == 0 {
		return nil
	}
	decoded, err := decompress(data, encoding, size)
	if err != nil {
		return err
	}
	if writer == nil {
		return nil
	}
	_, err = writer.Write(decoded)
	return err
}

// Listen opens a listener for a peer address. A stale Unix socket file
// at the address is removed first.
func Listen(address string) (net.Listener, error) {
	network, addr := splitAddress(address)
	if network == "unix" {
		if err := os.Remove(addr); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing stale socket %s: %w", addr, err)
		}
	}
	listener, err := net.Listen(network, addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", address, err)
	}
	return listener, nil
}

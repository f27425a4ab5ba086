// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package redispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/sitectl/lib/codec"
	"github.com/bureau-foundation/sitectl/lib/registry"
	"github.com/bureau-foundation/sitectl/lib/target"
	"github.com/bureau-foundation/sitectl/lib/testutil"
)

// startServer serves handler on a fresh Unix socket and returns its
// path. The server is stopped, and its goroutines joined, when the
// test completes.
func startServer(t *testing.T, handler HandlerFunc) string {
	t.Helper()
	address := filepath.Join(testutil.SocketDir(t), "peer.sock")
	listener, err := Listen(address)
	if err != nil {
		t.Fatalf("Listen() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewServer(handler, nil).Serve(ctx, listener)
	}()
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, done, 5*time.Second, "server shutdown"); err != nil {
			t.Errorf("Serve() error: %v", err)
		}
	})
	return address
}

func TestSplitAddress(t *testing.T) {
	tests := []struct {
		address, network, addr string
	}{
		{"/run/sitectl.sock", "unix", "/run/sitectl.sock"},
		{"unix://relative.sock", "unix", "relative.sock"},
		{"peer.example.com:7070", "tcp", "peer.example.com:7070"},
		{"tcp://10.0.0.1:7070", "tcp", "10.0.0.1:7070"},
		{"peer.sock", "unix", "peer.sock"},
	}
	for _, test := range tests {
		network, addr := splitAddress(test.address)
		if network != test.network || addr != test.addr {
			t.Errorf("splitAddress(%q) = %s %s, want %s %s", test.address, network, addr, test.network, test.addr)
		}
	}
}

func TestSocketTransport_RoundTrip(t *testing.T) {
	var received Request
	address := startServer(t, func(_ context.Context, request Request, stdout, stderr io.Writer) (int, error) {
		received = request
		fmt.Fprint(stdout, strings.Repeat("rebuilt\n", 500))
		fmt.Fprint(stderr, "warning: cache bin missing\n")
		return 3, nil
	})

	remote := target.Target{Name: "shop.stage", Socket: address, Root: "/srv/shop"}
	var stdout, stderr bytes.Buffer
	transport := &SocketTransport{Accept: EncodingZstd}
	code, err := transport.Send(context.Background(), remote, Request{
		Argv:    []string{"cache:rebuild", "--all"},
		Target:  remote,
		Cwd:     "/home/dev",
		Options: map[string]string{"yes": ""},
	}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
	if stdout.String() != strings.Repeat("rebuilt\n", 500) {
		t.Errorf("stdout has %d bytes, want the full output", stdout.Len())
	}
	if stderr.String() != "warning: cache bin missing\n" {
		t.Errorf("stderr = %q", stderr.String())
	}

	if diff := cmp.Diff([]string{"cache:rebuild", "--all"}, received.Argv); diff != "" {
		t.Errorf("Argv mismatch (-want +got):\n%s", diff)
	}
	if received.Target.Name != "shop.stage" || received.Target.Root != "/srv/shop" || received.Cwd != "/home/dev" {
		t.Errorf("received request = %+v", received)
	}
	if received.Accept != EncodingZstd {
		t.Errorf("Accept = %s, want zstd", received.Accept)
	}
}

func TestSocketTransport_PeerError(t *testing.T) {
	address := startServer(t, func(context.Context, Request, io.Writer, io.Writer) (int, error) {
		return 0, errors.New("site not bootstrapped")
	})

	_, err := (&SocketTransport{}).Send(context.Background(), target.Target{Socket: address}, Request{Argv: []string{"status"}}, io.Discard, io.Discard)
	var peerErr *PeerError
	if !errors.As(err, &peerErr) || peerErr.Message != "site not bootstrapped" {
		t.Fatalf("Send() error = %v, want a PeerError", err)
	}
}

func TestServer_RejectsEmptyArgv(t *testing.T) {
	address := startServer(t, func(context.Context, Request, io.Writer, io.Writer) (int, error) {
		t.Error("handler must not run without argv")
		return 0, nil
	})

	_, err := (&SocketTransport{}).Send(context.Background(), target.Target{Socket: address}, Request{}, io.Discard, io.Discard)
	var peerErr *PeerError
	if !errors.As(err, &peerErr) || !strings.Contains(peerErr.Message, "argv") {
		t.Fatalf("Send() error = %v, want a PeerError about argv", err)
	}
}

func TestServer_ProbeConnection(t *testing.T) {
	address := startServer(t, func(context.Context, Request, io.Writer, io.Writer) (int, error) {
		return 0, nil
	})

	// A connection closed without a request is ignored.
	conn, err := net.Dial("unix", address)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	conn.Close()

	// The server keeps serving.
	code, err := (&SocketTransport{}).Send(context.Background(), target.Target{Socket: address}, Request{Argv: []string{"status"}}, io.Discard, io.Discard)
	if err != nil || code != 0 {
		t.Errorf("Send() after probe = %d, %v", code, err)
	}
}

func TestServer_InvalidRequest(t *testing.T) {
	address := startServer(t, func(context.Context, Request, io.Writer, io.Writer) (int, error) {
		return 0, nil
	})

	conn, err := net.Dial("unix", address)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.Close()
	// A CBOR text string where a map is expected.
	if err := codec.Write(conn, "not a request"); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	conn.(*net.UnixConn).CloseWrite()

	var response Response
	if err := codec.Read(conn, 1<<20, &response); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if !strings.HasPrefix(response.Error, "invalid request") {
		t.Errorf("response error = %q, want invalid request", response.Error)
	}
}

func TestSocketTransport_NoSocket(t *testing.T) {
	if _, err := (&SocketTransport{}).Send(context.Background(), target.Target{Host: "web1"}, Request{}, nil, nil); err == nil {
		t.Error("Send() to a target without a socket should fail")
	}
}

func TestSocketTransport_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	address := startServer(t, func(ctx context.Context, _ Request, _, _ io.Writer) (int, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return 0, nil
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := (&SocketTransport{}).Send(ctx, target.Target{Socket: address}, Request{Argv: []string{"slow"}}, io.Discard, io.Discard)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Send() error = %v, want deadline exceeded", err)
	}
}

func TestEncodeOutput(t *testing.T) {
	long := []byte(strings.Repeat("line\n", 400))

	response, err := encodeOutput(0, long, nil, EncodingLZ4)
	if err != nil {
		t.Fatalf("encodeOutput() error: %v", err)
	}
	if response.Encoding != EncodingLZ4 || response.StdoutSize != len(long) {
		t.Errorf("response = encoding %s size %d", response.Encoding, response.StdoutSize)
	}

	// A short stderr that cannot be compressed forces both streams
	// to travel uncompressed.
	response, err = encodeOutput(1, long, []byte("boom\n"), EncodingZstd)
	if err != nil {
		t.Fatalf("encodeOutput() error: %v", err)
	}
	if response.Encoding != EncodingNone || !bytes.Equal(response.Stdout, long) || string(response.Stderr) != "boom\n" {
		t.Errorf("mixed response = %+v", response.Encoding)
	}
}

// fakeTransport records what it was asked to send.
type fakeTransport struct {
	request  Request
	exitCode int
	err      error
	calls    int
}

func (f *fakeTransport) Send(_ context.Context, _ target.Target, request Request, stdout, _ io.Writer) (int, error) {
	f.calls++
	f.request = request
	if stdout != nil {
		fmt.Fprint(stdout, "remote output")
	}
	return f.exitCode, f.err
}

func TestDispatcher_ChoosesTransport(t *testing.T) {
	socket := &fakeTransport{}
	ssh := &fakeTransport{}
	dispatcher := &Dispatcher{Socket: socket, SSH: ssh, Options: map[string]string{"yes": ""}}
	var stdout bytes.Buffer
	invocation := &registry.Invocation{Args: []string{"--all"}, Dir: "/home/dev", Stdout: &stdout}

	if err := dispatcher.Redispatch(context.Background(), target.Target{Socket: "/run/peer.sock", Host: ""}, "cache:rebuild", invocation); err != nil {
		t.Fatalf("Redispatch() error: %v", err)
	}
	if socket.calls != 1 || ssh.calls != 0 {
		t.Errorf("socket calls = %d, ssh calls = %d", socket.calls, ssh.calls)
	}
	if diff := cmp.Diff([]string{"cache:rebuild", "--all"}, socket.request.Argv); diff != "" {
		t.Errorf("Argv mismatch (-want +got):\n%s", diff)
	}
	if socket.request.Cwd != "/home/dev" || socket.request.Options["yes"] != "" {
		t.Errorf("request = %+v", socket.request)
	}
	if stdout.String() != "remote output" {
		t.Errorf("stdout = %q", stdout.String())
	}

	if err := dispatcher.Redispatch(context.Background(), target.Target{Host: "web1"}, "status", &registry.Invocation{}); err != nil {
		t.Fatalf("Redispatch() error: %v", err)
	}
	if ssh.calls != 1 {
		t.Errorf("ssh calls = %d, want 1", ssh.calls)
	}
}

func TestDispatcher_ExitStatus(t *testing.T) {
	dispatcher := &Dispatcher{Socket: &fakeTransport{exitCode: 4}}
	err := dispatcher.Redispatch(context.Background(), target.Target{Name: "shop.stage", Socket: "/run/peer.sock"}, "status", &registry.Invocation{})

	var exitErr interface{ ExitCode() int }
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 4 {
		t.Fatalf("Redispatch() error = %v, want exit code 4", err)
	}
}

func TestDispatcher_Errors(t *testing.T) {
	dispatcher := &Dispatcher{Socket: &fakeTransport{err: errors.New("connection refused")}}
	if err := dispatcher.Redispatch(context.Background(), target.Target{Socket: "/run/peer.sock"}, "status", &registry.Invocation{}); err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Redispatch() error = %v, want the transport error", err)
	}
	if err := dispatcher.Redispatch(context.Background(), target.Target{Host: "web1"}, "status", &registry.Invocation{}); err == nil {
		t.Error("Redispatch() without an SSH transport should fail")
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package redispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bureau-foundation/sitectl/lib/codec"
)

// readTimeout bounds reading one request.
const readTimeout = 30 * time.Second

// writeTimeout bounds writing one response.
const writeTimeout = 10 * time.Second

// HandlerFunc runs one redispatched command with output captured into
// stdout and stderr, and returns its exit code. An error means the
// command could not be run at all and is reported to the caller
// instead of an exit code.
type HandlerFunc func(ctx context.Context, request Request, stdout, stderr io.Writer) (int, error)

// Server is the peer side of [SocketTransport]. It serves one request
// per connection; connections are handled concurrently.
type Server struct {
	handler HandlerFunc
	logger  *slog.Logger

	// activeConnections tracks in-flight handlers so Serve can wait
	// for them before returning.
	activeConnections sync.WaitGroup
}

// NewServer returns a server that runs requests with handler.
func NewServer(handler HandlerFunc, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{handler: handler, logger: logger}
}

// Serve accepts connections on listener until ctx is cancelled, then
// closes the listener, waits for in-flight requests, and returns nil.
// Unix socket files are removed on return.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	defer listener.Close()

	stop := context.AfterFunc(ctx, func() {
		listener.Close()
	})
	defer stop()

	s.logger.Info("redispatch server listening",
		"network", listener.Addr().Network(),
		"address", listener.Addr().String(),
	)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	var request Request
	if err := codec.Read(conn, maxRequestSize, &request); err != nil {
		if errors.Is(err, io.EOF) {
			// Connection opened and closed without a request, e.g. a
			// liveness probe.
			return
		}
		s.writeResponse(conn, Response{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if len(request.Argv) == 0 || request.Argv[0] == "" {
		s.writeResponse(conn, Response{Error: "missing required field: argv"})
		return
	}

	s.logger.Debug("redispatched command received",
		"command", request.Argv[0],
		"target", request.Target.String(),
	)

	var stdout, stderr bytes.Buffer
	exitCode, err := s.handler(ctx, request, &stdout, &stderr)
	if err != nil {
		s.logger.Debug("redispatched command failed", "command", request.Argv[0], "error", err)
		s.writeResponse(conn, Response{Error: err.Error()})
		return
	}

	response, err := encodeOutput(exitCode, stdout.Bytes(), stderr.Bytes(), request.Accept)
	if err != nil {
		s.writeResponse(conn, Response{Error: fmt.Sprintf("internal: encoding output: %v", err)})
		return
	}
	s.writeResponse(conn, response)
}

// encodeOutput compresses both streams with one encoding. When either
// stream does not benefit, both are sent uncompressed.
func encodeOutput(exitCode int, stdout, stderr []byte, accept Encoding) (Response, error) {
	response := Response{
		ExitCode:   exitCode,
		StdoutSize: len(stdout),
		StderrSize: len(stderr),
		Encoding:   EncodingNone,
	}
	encoding, err := ParseEncoding(string(accept))
	if err != nil {
		encoding = EncodingNone
	}

	compressedOut, usedOut, err := compress(stdout, encoding)
	if err != nil {
		return Response{}, err
	}
	compressedErr, usedErr, err := compress(stderr, encoding)
	if err != nil {
		return Response{}, err
	}

	switch {
	case len(stderr) == 0 && usedOut != EncodingNone:
		response.Stdout, response.Encoding = compressedOut, usedOut
	case len(stdout) == 0 && usedErr != EncodingNone:
		response.Stderr, response.Encoding = compressedErr, usedErr
	case usedOut != EncodingNone && usedOut == usedErr:
		response.Stdout, response.Stderr, response.Encoding = compressedOut, compressedErr, usedOut
	default:
		response.Stdout, response.Stderr = stdout, stderr
	}
	return response, nil
}

func (s *Server) writeResponse(conn net.Conn, response Response) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.Write(conn, response); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}

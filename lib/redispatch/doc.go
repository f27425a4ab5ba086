// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package redispatch runs a command on a remote target and relays its
// output and exit status.
//
// Two transports are provided. [SocketTransport] talks to a
// `sitectl serve` peer over a Unix or TCP socket: one CBOR [Request]
// per connection, answered by one CBOR [Response] carrying the exit
// code and the captured output, compressed with zstd or lz4 when that
// pays off. [SSHTransport] runs the sitectl binary on the remote host
// over SSH and streams its output.
//
// [Dispatcher] picks the transport from the target (a socket address
// wins over an SSH host) and implements the resolver's redispatch
// interface. [Server] is the peer side of the socket transport.
package redispatch

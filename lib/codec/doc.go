// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding used on the redispatch wire.
//
// A redispatched invocation travels from the local driver to a peer
// `sitectl serve` process as a CBOR request and comes back as a CBOR
// response. Both ends encode through this package so the configuration
// lives in one place. The encoder uses Core Deterministic Encoding
// (RFC 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items.
//
// Types implementing encoding.TextMarshaler (boot.Level, for example)
// are encoded as CBOR text strings and decoded through UnmarshalText.
//
// Socket ends use [Write] and [Read]; Read enforces a byte limit so a
// misbehaving peer cannot make the reader buffer without bound:
//
//	err := codec.Write(conn, request)
//	err = codec.Read(conn, 64<<20, &response)
package codec

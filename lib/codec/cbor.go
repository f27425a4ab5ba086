// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// ErrTooLarge is returned by [Read] when the encoded value does not fit
// within the caller's limit.
var ErrTooLarge = errors.New("codec: message exceeds size limit")

var (
	wireEncoding cbor.EncMode
	wireDecoding cbor.DecMode
)

func init() {
	encoding := cbor.CoreDetEncOptions()
	encoding.TextMarshaler = cbor.TextMarshalerTextString

	var err error
	if wireEncoding, err = encoding.EncMode(); err != nil {
		panic("codec: building encode mode: " + err.Error())
	}

	// Option maps carried in a redispatch request arrive as
	// map[string]any so they can be handed straight to flag replay.
	wireDecoding, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("codec: building decode mode: " + err.Error())
	}
}

// Marshal encodes v with Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return wireEncoding.Marshal(v)
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	return wireDecoding.Unmarshal(data, v)
}

// Write encodes a single value onto w.
func Write(w io.Writer, v any) error {
	return wireEncoding.NewEncoder(w).Encode(v)
}

// Read decodes a single value from r, consuming at most limit bytes.
// A value that would need more than limit bytes fails with
// [ErrTooLarge] rather than a truncation error.
func Read(r io.Reader, limit int64, v any) error {
	limited := &io.LimitedReader{R: r, N: limit + 1}
	if err := wireDecoding.NewDecoder(limited).Decode(v); err != nil {
		if limited.N <= 0 {
			return fmt.Errorf("%w (%d bytes)", ErrTooLarge, limit)
		}
		return err
	}
	return nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package redispatch

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Encoding names the compression applied to captured output.
type Encoding string

const (
	EncodingNone Encoding = "none"
	EncodingLZ4  Encoding = "lz4"
	EncodingZstd Encoding = "zstd"
)

// ParseEncoding parses a configured encoding name. The empty string
// is EncodingNone.
func ParseEncoding(name string) (Encoding, error) {
	switch Encoding(name) {
	case "", EncodingNone:
		return EncodingNone, nil
	case EncodingLZ4:
		return EncodingLZ4, nil
	case EncodingZstd:
		return EncodingZstd, nil
	default:
		return "", fmt.Errorf("unknown output encoding %q", name)
	}
}

// compressThreshold is the output size below which compression is not
// attempted.
const compressThreshold = 512

// errIncompressible is returned when compression does not shrink the
// data.
var errIncompressible = errors.New("data is incompressible")

// compress encodes data with the requested encoding. It falls back to
// EncodingNone for small or incompressible data and reports the
// encoding actually used.
func compress(data []byte, encoding Encoding) ([]byte, Encoding, error) {
	if encoding == EncodingNone || len(data) < compressThreshold {
		return data, EncodingNone, nil
	}

	var compressed []byte
	var err error
	switch encoding {
	case EncodingLZ4:
		compressed, err = compressLZ4(data)
	case EncodingZstd:
		compressed, err = compressZstd(data)
	default:
		return nil, "", fmt.Errorf("unsupported output encoding %q", encoding)
	}
	if errors.Is(err, errIncompressible) {
		return data, EncodingNone, nil
	}
	if err != nil {
		return nil, "", err
	}
	return compressed, encoding, nil
}

// decompress reverses compress. size is the original length.
func decompress(data []byte, encoding Encoding, size int) ([]byte, error) {
	switch encoding {
	case "", EncodingNone:
		if len(data) != size {
			return nil, fmt.Errorf("uncompressed output: size %d does not match expected %d", len(data), size)
		}
		return data, nil
	case EncodingLZ4:
		return decompressLZ4(data, size)
	case EncodingZstd:
		return decompressZstd(data, size)
	default:
		return nil, fmt.Errorf("unsupported output encoding %q", encoding)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for incompressible input.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, size int) ([]byte, error) {
	destination := make([]byte, size)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != size {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
	}
	return destination, nil
}

// zstdEncoder and zstdDecoder are shared; both are safe for concurrent
// use. Concurrency 1 keeps them from starting background goroutines.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		panic("redispatch: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		panic("redispatch: zstd decoder initialization failed: " + err.Error())
	}
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, size int) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(result) != size {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), size)
	}
	return result, nil
}

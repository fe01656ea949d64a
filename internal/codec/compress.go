// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// compressedMagic prefixes every compressed payload, followed by the compressor id.
// Text encodings never start with NUL, so uncompressed payloads are never mistaken for it.
var compressedMagic = []byte{0x00, 'S', 'Z'}

const envelopeSize = 4

// Compressor shrinks a complete raw payload.
type Compressor interface {
	Name() string
	ID() byte
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// Gzip compresses with gzip.
type Gzip struct {
	Level int
}

func (Gzip) Name() string { return "gzip" }
func (Gzip) ID() byte { return 1 }

func (g Gzip) Compress(data []byte) ([]byte, error) {
	level := g.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Gzip) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Zstd compresses with zstandard.
type Zstd struct{}

func (Zstd) Name() string { return "zstd" }
func (Zstd) ID() byte { return 2 }

func (Zstd) Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func (Zstd) Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

// Snappy compresses with snappy block format.
type Snappy struct{}

func (Snappy) Name() string { return "snappy" }
func (Snappy) ID() byte { return 3 }

func (Snappy) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (Snappy) Decompress(data []byte) ([]byte, error) {
	return snappy.Decode(nil, data)
}

var compressors = map[byte]Compressor{
	Gzip{}.ID():   Gzip{},
	Zstd{}.ID():   Zstd{},
	Snappy{}.ID(): Snappy{},
}

// CompressorFor returns the compressor registered under name; "none" yields nil.
func CompressorFor(name string) (Compressor, error) {
	switch name {
	case "", "none":
		return nil, nil
	case "gzip":
		return Gzip{}, nil
	case "zstd":
		return Zstd{}, nil
	case "snappy":
		return Snappy{}, nil
	default:
		return nil, fmt.Errorf("unknown compression %q", name)
	}
}

// IsCompressed reports whether raw carries the compression envelope.
func IsCompressed(raw []byte) bool {
	return len(raw) >= envelopeSize && bytes.Equal(raw[:len(compressedMagic)], compressedMagic)
}

func wrap(c Compressor, raw []byte) ([]byte, error) {
	packed, err := c.Compress(raw)
	if err != nil {
		return nil, fmt.Errorf("%s compress: %w", c.Name(), err)
	}
	out := make([]byte, 0, envelopeSize+len(packed))
	out = append(out, compressedMagic...)
	out = append(out, c.ID())
	return append(out, packed...), nil
}

func unwrap(raw []byte) ([]byte, error) {
	if !IsCompressed(raw) {
		return raw, nil
	}
	id := raw[len(compressedMagic)]
	c, ok := compressors[id]
	if !ok {
		return nil, fmt.Errorf("unknown compressor id %d", id)
	}
	out, err := c.Decompress(raw[envelopeSize:])
	if err != nil {
		return nil, fmt.Errorf("%s decompress: %w", c.Name(), err)
	}
	return out, nil
}

// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package codec converts a save.SaveData to the raw bytes handed to a storage
// backend and back. The header and scene blocks are serialized separately and
// joined by save/wire, so the header can be read without touching scene data.
package codec

import (
	"fmt"

	"github.com/ffutop/savestate/save"
	"github.com/ffutop/savestate/save/wire"
)

// Codec encodes and decodes raw save payloads.
type Codec struct {
	serializer Serializer
	compressor Compressor
}

// New creates a Codec. A nil compressor writes uncompressed payloads.
func New(serializer Serializer, compressor Compressor) *Codec {
	if serializer == nil {
		serializer = JSON{}
	}
	return &Codec{serializer: serializer, compressor: compressor}
}

// FromNames creates a Codec from configuration names.
func FromNames(format, compression string) (*Codec, error) {
	s, err := SerializerFor(format)
	if err != nil {
		return nil, err
	}
	c, err := CompressorFor(compression)
	if err != nil {
		return nil, err
	}
	return New(s, c), nil
}

// Format returns the serializer name.
func (c *Codec) Format() string {
	return c.serializer.Name()
}

// Compression returns the compressor name, or "none".
func (c *Codec) Compression() string {
	if c.compressor == nil {
		return "none"
	}
	return c.compressor.Name()
}

// Encode serializes d into the raw layout, compressed when configured.
func (c *Codec) Encode(d save.SaveData) ([]byte, error) {
	header, err := c.serializer.Marshal(d.Header())
	if err != nil {
		return nil, fmt.Errorf("failed to encode header: %w", err)
	}
	scenes := d.Scenes
	if scenes == nil {
		scenes = []save.ScenePayload{}
	}
	sceneBlock, err := c.serializer.Marshal(scenes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scene data: %w", err)
	}
	return c.Compress(wire.Join(header, sceneBlock))
}

// Decode reads every block of raw. Compressed and uncompressed input are both accepted.
func (c *Codec) Decode(raw []byte) (save.SaveData, error) {
	plain, err := c.Decompress(raw)
	if err != nil {
		return save.SaveData{}, err
	}
	h, err := c.ExtractMainData(plain)
	if err != nil {
		return save.SaveData{}, err
	}
	scenes, err := c.ExtractSceneData(plain)
	if err != nil {
		return save.SaveData{}, err
	}
	return save.SaveData{Main: h.Main, Players: h.Players, Scenes: scenes}, nil
}

// ExtractMainData decodes only the header block. Empty slices come back nil
// whatever the serializer, as do they from ExtractSceneData.
func (c *Codec) ExtractMainData(raw []byte) (save.Header, error) {
	plain, err := c.Decompress(raw)
	if err != nil {
		return save.Header{}, err
	}
	if len(plain) == 0 {
		return save.Header{}, decodeError("header", fmt.Errorf("empty payload"))
	}
	block, err := wire.SplitHeader(plain)
	if err != nil {
		return save.Header{}, decodeError("header", err)
	}
	var h save.Header
	if err := c.serializer.Unmarshal(block, &h); err != nil {
		return save.Header{}, decodeError("header", err)
	}
	if len(h.Main.OpenScenes) == 0 {
		h.Main.OpenScenes = nil
	}
	if len(h.Players) == 0 {
		h.Players = nil
	}
	return h, nil
}

// ExtractSceneData decodes only the scene block.
func (c *Codec) ExtractSceneData(raw []byte) ([]save.ScenePayload, error) {
	plain, err := c.Decompress(raw)
	if err != nil {
		return nil, err
	}
	block, err := wire.SplitScenes(plain)
	if err != nil {
		return nil, decodeError("scene data", err)
	}
	var scenes []save.ScenePayload
	if err := c.serializer.Unmarshal(block, &scenes); err != nil {
		return nil, decodeError("scene data", err)
	}
	if len(scenes) == 0 {
		return nil, nil
	}
	for i := range scenes {
		if len(scenes[i].Units) == 0 {
			scenes[i].Units = nil
		}
	}
	return scenes, nil
}

// Compress wraps raw in the compression envelope when a compressor is configured.
func (c *Codec) Compress(raw []byte) ([]byte, error) {
	if c.compressor == nil || IsCompressed(raw) {
		return raw, nil
	}
	return wrap(c.compressor, raw)
}

// Decompress unwraps raw if it carries the compression envelope, whatever
// compressor produced it; uncompressed input is returned unchanged.
func (c *Codec) Decompress(raw []byte) ([]byte, error) {
	out, err := unwrap(raw)
	if err != nil {
		return nil, decodeError("decompress", err)
	}
	return out, nil
}

func decodeError(stage string, err error) error {
	return fmt.Errorf("%w: %s: %w", save.ErrDecodeFailed, stage, err)
}

// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package codec

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Serializer turns a structured block into bytes and back.
type Serializer interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSON is the text serializer.
type JSON struct{}

func (JSON) Name() string { return "json" }
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// YAML is a human-editable text serializer.
type YAML struct{}

func (YAML) Name() string { return "yaml" }
func (YAML) Marshal(v any) ([]byte, error) { return yaml.Marshal(v) }
func (YAML) Unmarshal(data []byte, v any) error { return yaml.Unmarshal(data, v) }

// Binary is the gob serializer.
type Binary struct{}

func (Binary) Name() string { return "binary" }

func (Binary) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Binary) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// SerializerFor returns the serializer registered under name.
func SerializerFor(name string) (Serializer, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "yaml":
		return YAML{}, nil
	case "binary", "gob":
		return Binary{}, nil
	default:
		return nil, fmt.Errorf("unknown save format %q", name)
	}
}

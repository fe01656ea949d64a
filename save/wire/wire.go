// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package wire implements the raw save layout: an encoded header block, the
// literal divider "||", and an encoded scene block.
//
// Each block is escaped before concatenation so that the first "||" in a raw
// payload is always the divider:
//
//	"*"           -> "**"
//	"||"          -> "*DOUBLEPIPE*"
//	leading "|"   -> "*PIPE*"
//	trailing "|"  -> "*PIPE*"
//
// Unescape reverses the mapping exactly; any other "*" sequence is malformed.
package wire

import (
	"bytes"
	"errors"
	"fmt"
)

const (
	Divider            = "||"
	DividerPlaceholder = "*DOUBLEPIPE*"
	PipePlaceholder    = "*PIPE*"
)

var (
	ErrMissingDivider = errors.New("wire: missing divider")
	ErrMalformed      = errors.New("wire: malformed escape sequence")
)

// Escape rewrites block so it contains no "||" and does not start or end with "|".
func Escape(block []byte) []byte {
	out := make([]byte, 0, len(block)+8)
	for i := 0; i < len(block); i++ {
		c := block[i]
		switch {
		case c == '*':
			out = append(out, '*', '*')
		case c == '|' && i+1 < len(block) && block[i+1] == '|':
			out = append(out, DividerPlaceholder...)
			i++
		case c == '|' && (i == 0 || i == len(block)-1):
			out = append(out, PipePlaceholder...)
		default:
			out = append(out, c)
		}
	}
	return out
}

// Unescape reverses Escape.
func Unescape(block []byte) ([]byte, error) {
	out := make([]byte, 0, len(block))
	for i := 0; i < len(block); {
		c := block[i]
		if c != '*' {
			out = append(out, c)
			i++
			continue
		}
		rest := block[i:]
		switch {
		case len(rest) >= 2 && rest[1] == '*':
			out = append(out, '*')
			i += 2
		case bytes.HasPrefix(rest, []byte(DividerPlaceholder)):
			out = append(out, Divider...)
			i += len(DividerPlaceholder)
		case bytes.HasPrefix(rest, []byte(PipePlaceholder)):
			out = append(out, '|')
			i += len(PipePlaceholder)
		default:
			return nil, fmt.Errorf("%w at offset %d", ErrMalformed, i)
		}
	}
	return out, nil
}

// Join escapes both blocks and concatenates them around the divider.
func Join(header, scenes []byte) []byte {
	h := Escape(header)
	s := Escape(scenes)
	raw := make([]byte, 0, len(h)+len(Divider)+len(s))
	raw = append(raw, h...)
	raw = append(raw, Divider...)
	raw = append(raw, s...)
	return raw
}

// Split separates raw into its unescaped header and scene blocks.
func Split(raw []byte) (header, scenes []byte, err error) {
	h, s, err := cut(raw)
	if err != nil {
		return nil, nil, err
	}
	if header, err = Unescape(h); err != nil {
		return nil, nil, fmt.Errorf("header block: %w", err)
	}
	if scenes, err = Unescape(s); err != nil {
		return nil, nil, fmt.Errorf("scene block: %w", err)
	}
	return header, scenes, nil
}

// SplitHeader returns only the unescaped header block, leaving the scene block untouched.
func SplitHeader(raw []byte) ([]byte, error) {
	h, _, err := cut(raw)
	if err != nil {
		return nil, err
	}
	header, err := Unescape(h)
	if err != nil {
		return nil, fmt.Errorf("header block: %w", err)
	}
	return header, nil
}

// SplitScenes returns only the unescaped scene block.
func SplitScenes(raw []byte) ([]byte, error) {
	_, s, err := cut(raw)
	if err != nil {
		return nil, err
	}
	scenes, err := Unescape(s)
	if err != nil {
		return nil, fmt.Errorf("scene block: %w", err)
	}
	return scenes, nil
}

func cut(raw []byte) (header, scenes []byte, err error) {
	h, s, ok := bytes.Cut(raw, []byte(Divider))
	if !ok {
		return nil, nil, ErrMissingDivider
	}
	return h, s, nil
}

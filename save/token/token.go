// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package token encodes scalar values as "key:value" pairs joined by "|",
// the format used for variables, custom tokens and inventories inside a save.
package token

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	Separator = "|"
	Colon     = ":"
)

var (
	escaper   = strings.NewReplacer("*", "*STAR*", "|", "*PIPE*", ":", "*COLON*")
	unescaper = strings.NewReplacer("*STAR*", "*", "*PIPE*", "|", "*COLON*", ":")
)

// Pair is one keyed value.
type Pair struct {
	Key   int
	Value string
}

// Escape makes s safe to embed as a value.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Unescape reverses Escape.
func Unescape(s string) string {
	return unescaper.Replace(s)
}

// Join encodes pairs in order. Values are escaped.
func Join(pairs []Pair) string {
	var sb strings.Builder
	for i, p := range pairs {
		if i > 0 {
			sb.WriteString(Separator)
		}
		sb.WriteString(strconv.Itoa(p.Key))
		sb.WriteString(Colon)
		sb.WriteString(Escape(p.Value))
	}
	return sb.String()
}

// Split decodes a string produced by Join.
func Split(s string) ([]Pair, error) {
	if s == "" {
		return nil, nil
	}
	chunks := strings.Split(s, Separator)
	pairs := make([]Pair, 0, len(chunks))
	for _, chunk := range chunks {
		k, v, ok := strings.Cut(chunk, Colon)
		if !ok {
			return nil, fmt.Errorf("token: missing separator in %q", chunk)
		}
		key, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("token: invalid key %q: %w", k, err)
		}
		pairs = append(pairs, Pair{Key: key, Value: Unescape(v)})
	}
	return pairs, nil
}

// FromMap converts m to pairs sorted by key.
func FromMap(m map[int]string) []Pair {
	pairs := make([]Pair, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, Pair{Key: k, Value: v})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return pairs
}

// ToMap converts pairs to a map; later duplicates win.
func ToMap(pairs []Pair) map[int]string {
	m := make(map[int]string, len(pairs))
	for _, p := range pairs {
		m[p.Key] = p.Value
	}
	return m
}

// Filter keeps the pairs whose key is in keys.
func Filter(pairs []Pair, keys []int) []Pair {
	want := make(map[int]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	var out []Pair
	for _, p := range pairs {
		if _, ok := want[p.Key]; ok {
			out = append(out, p)
		}
	}
	return out
}

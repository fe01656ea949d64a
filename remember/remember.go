// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package remember provides ready-made save.Unit implementations for common
// scene objects.
package remember

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
)

// Load orders used by the stock units. Containers go first so that objects
// placed into them during their own restore find them ready.
const (
	OrderContainer = -100
	OrderDefault   = 0
	OrderLate      = 100
)

// KeyFor derives a stable unit key from an object's scene path, e.g.
// "Harbor/Dock/Crate".
func KeyFor(path string) int {
	return int(xxhash.Sum64String(path) & 0x7fffffff)
}

// Option customises a stock unit.
type Option func(*base)

// WithLoadOrder overrides the default load order.
func WithLoadOrder(order int) Option {
	return func(b *base) { b.order = order }
}

// Suppressed starts the unit with restoration suppressed.
func Suppressed() Option {
	return func(b *base) { b.suppressed.Store(true) }
}

type base struct {
	key        int
	order      int
	suppressed atomic.Bool
}

func (b *base) init(key, order int, opts []Option) {
	b.key = key
	b.order = order
	for _, opt := range opts {
		opt(b)
	}
}

func (b *base) Key() int { return b.key }

func (b *base) LoadOrder() int { return b.order }

func (b *base) RestorationSuppressed() bool { return b.suppressed.Load() }

// SetSuppressed toggles whether loads skip this unit.
func (b *base) SetSuppressed(v bool) { b.suppressed.Store(v) }

// Remember persists any JSON-encodable value read through get and applied
// through set.
type Remember[T any] struct {
	base
	get func() T
	set func(ctx context.Context, v T) error
}

func New[T any](key int, get func() T, set func(ctx context.Context, v T) error, opts ...Option) *Remember[T] {
	r := &Remember[T]{get: get, set: set}
	r.init(key, OrderDefault, opts)
	return r
}

func (r *Remember[T]) Capture() (string, error) {
	b, err := json.Marshal(r.get())
	if err != nil {
		return "", fmt.Errorf("remember %d: %w", r.key, err)
	}
	return string(b), nil
}

// Restore decodes data and applies it. Empty data leaves the object as it is.
func (r *Remember[T]) Restore(ctx context.Context, data string) error {
	if data == "" {
		return nil
	}
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return fmt.Errorf("remember %d: %w", r.key, err)
	}
	return r.set(ctx, v)
}

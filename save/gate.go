// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package save

import "context"

// Gate serializes save and load operations. At most one holder at a time.
type Gate struct {
	ch chan struct{}
}

// NewGate creates an open gate.
func NewGate() *Gate {
	return &Gate{ch: make(chan struct{}, 1)}
}

// Acquire blocks until the gate is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes the gate only if it is free.
func (g *Gate) TryAcquire() bool {
	select {
	case g.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees the gate. Releasing a free gate is a no-op.
func (g *Gate) Release() {
	select {
	case <-g.ch:
	default:
	}
}

// Busy reports whether an operation holds the gate.
func (g *Gate) Busy() bool {
	return len(g.ch) > 0
}

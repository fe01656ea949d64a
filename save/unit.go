// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package save

import (
	"cmp"
	"context"
	"slices"
)

// Unit is implemented by every scene object whose state survives a save.
//
// Key must be stable across capture and restore. Units with a lower LoadOrder
// are restored first; Restore may block while the unit waits on its own
// assets, and must honour ctx.
type Unit interface {
	Key() int
	LoadOrder() int
	RestorationSuppressed() bool
	Capture() (string, error)
	Restore(ctx context.Context, data string) error
}

// SortByLoadOrder returns units ordered by ascending LoadOrder. Units with
// equal LoadOrder keep their discovery order.
func SortByLoadOrder(units []Unit) []Unit {
	out := make([]Unit, len(units))
	copy(out, units)
	slices.SortStableFunc(out, CompareLoadOrder)
	return out
}

// CompareLoadOrder orders two units by LoadOrder only.
func CompareLoadOrder(a, b Unit) int {
	return cmp.Compare(a.LoadOrder(), b.LoadOrder())
}

// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package remember

import (
	"context"

	"github.com/ffutop/savestate/save"
)

// Transform is the placement of a scene object.
type Transform struct {
	Position save.Vector3 `json:"position"`
	Rotation float64      `json:"rotation"`
	Scale    save.Vector3 `json:"scale"`
}

// Transformable is an object that can be moved.
type Transformable interface {
	Transform() Transform
	SetTransform(Transform)
}

// NewTransform remembers where obj was placed.
func NewTransform(key int, obj Transformable, opts ...Option) *Remember[Transform] {
	return New(key, obj.Transform, func(_ context.Context, t Transform) error {
		obj.SetTransform(t)
		return nil
	}, opts...)
}

// Visibility is whether an object is shown and can be interacted with.
type Visibility struct {
	Visible     bool `json:"visible"`
	Interactive bool `json:"interactive"`
}

type Showable interface {
	Visibility() Visibility
	SetVisibility(Visibility)
}

// NewVisibility remembers whether obj was shown.
func NewVisibility(key int, obj Showable, opts ...Option) *Remember[Visibility] {
	return New(key, obj.Visibility, func(_ context.Context, v Visibility) error {
		obj.SetVisibility(v)
		return nil
	}, opts...)
}

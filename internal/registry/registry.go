// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package registry tracks the persistent units each open scene contributes.
// Scenes register their units when they load and clear them when they close;
// enumeration always returns units in registration (discovery) order.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ffutop/savestate/save"
)

var ErrDuplicateKey = errors.New("registry: duplicate unit key")

type Registry struct {
	mu     sync.RWMutex
	scenes map[string][]save.Unit
}

func New() *Registry {
	return &Registry{scenes: make(map[string][]save.Unit)}
}

// Register appends units to a scene. A key already registered in the same
// scene is rejected and nothing from the call is added.
func (r *Registry) Register(scene string, units ...save.Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[int]struct{}, len(r.scenes[scene])+len(units))
	for _, u := range r.scenes[scene] {
		seen[u.Key()] = struct{}{}
	}
	for _, u := range units {
		if _, dup := seen[u.Key()]; dup {
			return fmt.Errorf("%w: scene %q key %d", ErrDuplicateKey, scene, u.Key())
		}
		seen[u.Key()] = struct{}{}
	}
	r.scenes[scene] = append(r.scenes[scene], units...)
	return nil
}

// Unregister removes one unit, keeping the order of the rest.
func (r *Registry) Unregister(scene string, key int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	units := r.scenes[scene]
	for i, u := range units {
		if u.Key() == key {
			r.scenes[scene] = append(units[:i:i], units[i+1:]...)
			return true
		}
	}
	return false
}

// ClearScene forgets every unit of a scene.
func (r *Registry) ClearScene(scene string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.scenes, scene)
}

// Units returns a copy of the scene's units in discovery order.
func (r *Registry) Units(scene string) []save.Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]save.Unit(nil), r.scenes[scene]...)
}

func (r *Registry) Find(scene string, key int) (save.Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.scenes[scene] {
		if u.Key() == key {
			return u, true
		}
	}
	return nil, false
}

// Scenes lists scenes with at least one registered unit, sorted by name.
func (r *Registry) Scenes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.scenes))
	for s, units := range r.scenes {
		if len(units) > 0 {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

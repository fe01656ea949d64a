// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package remember

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ffutop/savestate/save/token"
)

// Storage is a scene object holding inventory items, like a chest or a shelf.
type Storage interface {
	// Items returns item id -> count.
	Items() map[int]int
	// ReplaceItems discards the current contents.
	ReplaceItems(map[int]int)
}

// Container remembers the contents of a Storage as tokenized item:count pairs.
type Container struct {
	base
	store Storage
}

// NewContainer restores before default units.
func NewContainer(key int, store Storage, opts ...Option) *Container {
	c := &Container{store: store}
	c.init(key, OrderContainer, opts)
	return c
}

func (c *Container) Capture() (string, error) {
	items := c.store.Items()
	m := make(map[int]string, len(items))
	for id, n := range items {
		if n > 0 {
			m[id] = strconv.Itoa(n)
		}
	}
	return token.Join(token.FromMap(m)), nil
}

func (c *Container) Restore(_ context.Context, data string) error {
	pairs, err := token.Split(data)
	if err != nil {
		return fmt.Errorf("container %d: %w", c.key, err)
	}
	items := make(map[int]int, len(pairs))
	for _, p := range pairs {
		n, err := strconv.Atoi(p.Value)
		if err != nil {
			return fmt.Errorf("container %d: item %d: invalid count %q", c.key, p.Key, p.Value)
		}
		items[p.Key] = n
	}
	c.store.ReplaceItems(items)
	return nil
}

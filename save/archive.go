// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package save

import (
	"sort"
	"sync"
)

// SceneArchive keeps the last captured payload of every scene seen so far.
// Scenes that are not open when a save is taken keep their previous payload.
type SceneArchive struct {
	mu     sync.RWMutex
	scenes map[string]ScenePayload
}

// NewSceneArchive creates an empty archive.
func NewSceneArchive() *SceneArchive {
	return &SceneArchive{scenes: make(map[string]ScenePayload)}
}

// Put stores the payload for its scene, replacing any previous one.
func (a *SceneArchive) Put(p ScenePayload) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scenes[p.Scene] = p.Clone()
}

// Get returns the archived payload for scene.
func (a *SceneArchive) Get(scene string) (ScenePayload, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.scenes[scene]
	if !ok {
		return ScenePayload{}, false
	}
	return p.Clone(), true
}

// ReplaceAll discards the archive and stores payloads instead.
func (a *SceneArchive) ReplaceAll(payloads []ScenePayload) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scenes = make(map[string]ScenePayload, len(payloads))
	for _, p := range payloads {
		a.scenes[p.Scene] = p.Clone()
	}
}

// All returns a copy of every archived payload, sorted by scene name.
func (a *SceneArchive) All() []ScenePayload {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]ScenePayload, 0, len(a.scenes))
	for _, p := range a.scenes {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Scene < out[j].Scene })
	return out
}

// Len returns the number of archived scenes.
func (a *SceneArchive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.scenes)
}

// PlayerBook keeps the last known PlayerData of every player identity.
type PlayerBook struct {
	mu      sync.RWMutex
	players map[int]PlayerData
}

// NewPlayerBook creates an empty book.
func NewPlayerBook() *PlayerBook {
	return &PlayerBook{players: make(map[int]PlayerData)}
}

// Get returns the data for id, creating an empty record on first use.
func (b *PlayerBook) Get(id int) PlayerData {
	b.mu.Lock()
	defer b.mu.Unlock()
	pd, ok := b.players[id]
	if !ok {
		pd = PlayerData{PlayerID: id}
		b.players[id] = pd
	}
	return pd
}

// Put records pd under its player id.
func (b *PlayerBook) Put(pd PlayerData) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.players[pd.PlayerID] = pd
}

// ReplaceAll discards the book and stores players instead.
func (b *PlayerBook) ReplaceAll(players []PlayerData) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.players = make(map[int]PlayerData, len(players))
	for _, pd := range players {
		b.players[pd.PlayerID] = pd
	}
}

// All returns every record sorted by player id.
func (b *PlayerBook) All() []PlayerData {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]PlayerData, 0, len(b.players))
	for _, pd := range b.players {
		out = append(out, pd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

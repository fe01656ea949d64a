// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ffutop/savestate/save"
)

type memoryRecord struct {
	data       []byte
	screenshot []byte
	updatedAt  time.Time
}

// MemoryBackend keeps slots in memory (non-persistent).
type MemoryBackend struct {
	mu    sync.RWMutex
	slots map[save.SlotKey]memoryRecord

	// Now stamps writes; defaults to time.Now.
	Now func() time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		slots: make(map[save.SlotKey]memoryRecord),
		Now:   time.Now,
	}
}

func (m *MemoryBackend) Enumerate(ctx context.Context, profileID int) ([]SlotMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []SlotMetadata
	for key, rec := range m.slots {
		if key.ProfileID != profileID {
			continue
		}
		out = append(out, SlotMetadata{
			Key:           key,
			UpdatedAt:     rec.updatedAt,
			Size:          int64(len(rec.data)),
			HasScreenshot: rec.screenshot != nil,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.SlotID < out[j].Key.SlotID })
	return out, nil
}

func (m *MemoryBackend) Read(ctx context.Context, key save.SlotKey) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.slots[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), rec.data...), true, nil
}

func (m *MemoryBackend) Write(ctx context.Context, key save.SlotKey, data []byte, screenshot []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec := memoryRecord{
		data:      append([]byte(nil), data...),
		updatedAt: m.Now(),
	}
	if screenshot != nil {
		rec.screenshot = append([]byte(nil), screenshot...)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[key] = rec
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, key save.SlotKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, key)
	return nil
}

func (m *MemoryBackend) ReadScreenshot(ctx context.Context, key save.SlotKey) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.slots[key]
	if !ok || rec.screenshot == nil {
		return nil, false, nil
	}
	return append([]byte(nil), rec.screenshot...), true, nil
}

func (m *MemoryBackend) Close() error {
	return nil
}

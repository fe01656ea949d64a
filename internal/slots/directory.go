// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package slots lists, labels and deletes save slots. The listing is a
// per-profile cache that is only ever replaced wholesale from the backend.
package slots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ffutop/savestate/internal/persistence"
	"github.com/ffutop/savestate/save"
)

// NoSlot is returned by LastUsed when no slot is remembered.
const NoSlot = -1

var ErrSlotNotFound = errors.New("slots: slot not found")

type Option func(*Directory)

// WithLabelDate appends the save date to default labels.
func WithLabelDate(enabled bool) Option {
	return func(d *Directory) { d.labelWithDate = enabled }
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Directory) { d.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(d *Directory) { d.now = now }
}

type Directory struct {
	backend       persistence.Backend
	prefs         Preferences
	labelWithDate bool
	logger        *slog.Logger
	now           func() time.Time

	mu    sync.RWMutex
	cache map[int][]save.SlotRef
	group singleflight.Group
}

func NewDirectory(backend persistence.Backend, prefs Preferences, opts ...Option) *Directory {
	if prefs == nil {
		prefs = NewMemoryPreferences()
	}
	d := &Directory{
		backend: backend,
		prefs:   prefs,
		logger:  slog.Default(),
		now:     time.Now,
		cache:   make(map[int][]save.SlotRef),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// List returns the profile's slots sorted by slot id, refreshing on first use.
func (d *Directory) List(ctx context.Context, profileID int) ([]save.SlotRef, error) {
	d.mu.RLock()
	refs, ok := d.cache[profileID]
	d.mu.RUnlock()
	if ok {
		return append([]save.SlotRef(nil), refs...), nil
	}
	return d.Refresh(ctx, profileID)
}

// Refresh re-enumerates the backend and replaces the profile's cached listing.
// Concurrent refreshes of one profile share a single enumeration.
func (d *Directory) Refresh(ctx context.Context, profileID int) ([]save.SlotRef, error) {
	v, err, _ := d.group.Do(strconv.Itoa(profileID), func() (any, error) {
		metas, err := d.backend.Enumerate(ctx, profileID)
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate profile %d: %w", profileID, err)
		}
		refs := make([]save.SlotRef, 0, len(metas))
		for _, md := range metas {
			refs = append(refs, d.refFor(md))
		}
		d.mu.Lock()
		d.cache[profileID] = refs
		d.mu.Unlock()
		return refs, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]save.SlotRef(nil), v.([]save.SlotRef)...), nil
}

func (d *Directory) refFor(md persistence.SlotMetadata) save.SlotRef {
	label, ok := d.prefs.Label(md.Key)
	if !ok || label == "" {
		label = d.defaultLabel(md.Key.SlotID, md.UpdatedAt)
	}
	return save.SlotRef{
		SlotID:        md.Key.SlotID,
		ProfileID:     md.Key.ProfileID,
		Label:         label,
		UpdatedAt:     md.UpdatedAt,
		Size:          md.Size,
		HasScreenshot: md.HasScreenshot,
	}
}

// Invalidate drops every cached listing.
func (d *Directory) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache = make(map[int][]save.SlotRef)
}

func (d *Directory) Lookup(ctx context.Context, key save.SlotKey) (save.SlotRef, bool, error) {
	refs, err := d.List(ctx, key.ProfileID)
	if err != nil {
		return save.SlotRef{}, false, err
	}
	for _, r := range refs {
		if r.SlotID == key.SlotID {
			return r, true, nil
		}
	}
	return save.SlotRef{}, false, nil
}

func (d *Directory) Exists(ctx context.Context, key save.SlotKey) (bool, error) {
	_, ok, err := d.Lookup(ctx, key)
	return ok, err
}

// Count returns the number of non-autosave slots.
func (d *Directory) Count(ctx context.Context, profileID int) (int, error) {
	refs, err := d.List(ctx, profileID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range refs {
		if r.SlotID != save.AutosaveSlot {
			n++
		}
	}
	return n, nil
}

// NextFreeSlot returns the lowest unused non-autosave slot id.
func (d *Directory) NextFreeSlot(ctx context.Context, profileID int) (int, error) {
	refs, err := d.List(ctx, profileID)
	if err != nil {
		return 0, err
	}
	next := save.AutosaveSlot + 1
	for _, r := range refs {
		if r.SlotID == next {
			next++
		} else if r.SlotID > next {
			break
		}
	}
	return next, nil
}

// LastUsed returns the most recently used slot, or NoSlot.
func (d *Directory) LastUsed(profileID int) int {
	recent := d.prefs.Recent(profileID)
	if len(recent) == 0 {
		return NoSlot
	}
	return recent[0]
}

// Commit records a completed save: an optional label and the slot becoming
// the most recently used. The caller refreshes afterwards.
func (d *Directory) Commit(key save.SlotKey, label string) error {
	if label != "" {
		if err := d.prefs.SetLabel(key, label); err != nil {
			return fmt.Errorf("failed to store label: %w", err)
		}
	}
	if err := d.prefs.Touch(key); err != nil {
		return fmt.Errorf("failed to record recent slot: %w", err)
	}
	return nil
}

// Rename sets the label of an existing slot.
func (d *Directory) Rename(ctx context.Context, key save.SlotKey, label string) error {
	ok, err := d.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, key)
	}
	if err := d.prefs.SetLabel(key, label); err != nil {
		return fmt.Errorf("failed to store label: %w", err)
	}
	d.logger.Info("Slot renamed", "slot", key.SlotID, "profile", key.ProfileID, "label", label)
	_, err = d.Refresh(ctx, key.ProfileID)
	return err
}

// Delete removes a slot from the backend and from preferences. If it was the
// most recently used slot, the next remembered slot (or none) takes its place.
func (d *Directory) Delete(ctx context.Context, key save.SlotKey) error {
	if err := d.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("%w: %w", save.ErrBackend, err)
	}
	if err := d.prefs.Forget(key); err != nil {
		return fmt.Errorf("failed to update preferences: %w", err)
	}
	d.logger.Info("Slot deleted", "slot", key.SlotID, "profile", key.ProfileID, "last_used", d.LastUsed(key.ProfileID))
	_, err := d.Refresh(ctx, key.ProfileID)
	return err
}

func (d *Directory) Screenshot(ctx context.Context, key save.SlotKey) ([]byte, bool, error) {
	return d.backend.ReadScreenshot(ctx, key)
}

// DefaultLabelFor returns the label a slot gets when none was given.
func (d *Directory) DefaultLabelFor(slotID int) string {
	return d.defaultLabel(slotID, d.now())
}

func (d *Directory) defaultLabel(slotID int, at time.Time) string {
	label := "Save " + strconv.Itoa(slotID)
	if slotID == save.AutosaveSlot {
		label = "Autosave"
	}
	if d.labelWithDate && !at.IsZero() {
		label += " (" + at.Format("2006-01-02 15:04") + ")"
	}
	return label
}

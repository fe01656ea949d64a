// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package savesystem wires the capture pipeline, restore orchestrator, slot
// directory and unit registry around one shared operation gate. It is the
// single entry point a game runtime talks to.
package savesystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ffutop/savestate/internal/capture"
	"github.com/ffutop/savestate/internal/codec"
	"github.com/ffutop/savestate/internal/config"
	"github.com/ffutop/savestate/internal/metrics"
	"github.com/ffutop/savestate/internal/notify"
	"github.com/ffutop/savestate/internal/persistence"
	"github.com/ffutop/savestate/internal/registry"
	"github.com/ffutop/savestate/internal/restore"
	"github.com/ffutop/savestate/internal/slots"
	"github.com/ffutop/savestate/internal/world"
	"github.com/ffutop/savestate/save"
)

// ErrNoSaves is returned by LoadLast when nothing has been saved in a profile.
var ErrNoSaves = errors.New("savesystem: no saves in profile")

// Config collects the save behaviour switches.
type Config struct {
	MaxSaves            int
	Format              string
	Compression         string
	Threading           bool
	WriteRetries        int
	RetryInterval       time.Duration
	AlwaysReloadScene   bool
	LabelWithDate       bool
	Screenshots         bool
	AutosaveScreenshots bool
}

// ConfigFrom converts the file configuration.
func ConfigFrom(c config.SaveConfig) Config {
	return Config{
		MaxSaves:            c.MaxSaves,
		Format:              c.Format,
		Compression:         c.Compression,
		Threading:           c.Threading,
		WriteRetries:        c.WriteRetries,
		RetryInterval:       c.RetryInterval,
		AlwaysReloadScene:   c.AlwaysReloadScene,
		LabelWithDate:       c.LabelWithDate,
		Screenshots:         c.Screenshots.Enabled,
		AutosaveScreenshots: c.Screenshots.Autosave,
	}
}

// Deps are the collaborators owned by the caller. Backend is not closed by
// System.Close.
type Deps struct {
	World       world.World
	Backend     persistence.Backend
	Preferences slots.Preferences
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

type System struct {
	registry  *registry.Registry
	archive   *save.SceneArchive
	players   *save.PlayerBook
	gate      *save.Gate
	bus       *notify.Bus
	codec     *codec.Codec
	directory *slots.Directory
	capture   *capture.Pipeline
	restore   *restore.Orchestrator
	logger    *slog.Logger
}

func New(cfg Config, deps Deps) (*System, error) {
	if deps.Backend == nil {
		return nil, errors.New("savesystem: backend is required")
	}
	if deps.Preferences == nil {
		deps.Preferences = slots.NewMemoryPreferences()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	c, err := codec.FromNames(cfg.Format, cfg.Compression)
	if err != nil {
		return nil, fmt.Errorf("savesystem: %w", err)
	}

	s := &System{
		registry: registry.New(),
		archive:  save.NewSceneArchive(),
		players:  save.NewPlayerBook(),
		gate:     save.NewGate(),
		bus:      notify.NewBus(deps.Logger),
		codec:    c,
		logger:   deps.Logger,
	}
	s.directory = slots.NewDirectory(deps.Backend, deps.Preferences,
		slots.WithLabelDate(cfg.LabelWithDate),
		slots.WithLogger(deps.Logger),
	)

	s.capture, err = capture.New(capture.Config{
		MaxSaves:            cfg.MaxSaves,
		Threading:           cfg.Threading,
		WriteRetries:        cfg.WriteRetries,
		RetryInterval:       cfg.RetryInterval,
		Screenshots:         cfg.Screenshots,
		AutosaveScreenshots: cfg.AutosaveScreenshots,
	}, capture.Deps{
		World:     deps.World,
		Registry:  s.registry,
		Archive:   s.archive,
		Players:   s.players,
		Codec:     c,
		Backend:   deps.Backend,
		Directory: s.directory,
		Bus:       s.bus,
		Gate:      s.gate,
		Metrics:   deps.Metrics,
		Logger:    deps.Logger,
	})
	if err != nil {
		return nil, err
	}

	s.restore, err = restore.New(restore.Config{
		AlwaysReloadScene: cfg.AlwaysReloadScene,
	}, restore.Deps{
		World:     deps.World,
		Registry:  s.registry,
		Archive:   s.archive,
		Players:   s.players,
		Codec:     c,
		Backend:   deps.Backend,
		Directory: s.directory,
		Bus:       s.bus,
		Gate:      s.gate,
		Metrics:   deps.Metrics,
		Logger:    deps.Logger,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes the game state to a slot and waits for the write.
func (s *System) Save(ctx context.Context, slotID, profileID int, label string) (save.SlotRef, error) {
	return s.capture.Save(ctx, capture.Request{SlotID: slotID, ProfileID: profileID, Label: label})
}

// SaveAsync returns once the state is captured; the write outcome arrives on
// the channel.
func (s *System) SaveAsync(ctx context.Context, slotID, profileID int, label string) <-chan capture.Result {
	return s.capture.SaveAsync(ctx, capture.Request{SlotID: slotID, ProfileID: profileID, Label: label})
}

// SaveNew saves to the lowest unused slot id.
func (s *System) SaveNew(ctx context.Context, profileID int, label string) (save.SlotRef, error) {
	id, err := s.directory.NextFreeSlot(ctx, profileID)
	if err != nil {
		return save.SlotRef{}, save.NewError("save", save.ReasonBackendFailed, save.SlotKey{ProfileID: profileID}, err)
	}
	return s.Save(ctx, id, profileID, label)
}

// Autosave overwrites the reserved autosave slot.
func (s *System) Autosave(ctx context.Context, profileID int) (save.SlotRef, error) {
	return s.Save(ctx, save.AutosaveSlot, profileID, "")
}

// Load restores every part of a slot.
func (s *System) Load(ctx context.Context, slotID, profileID int) (restore.Outcome, error) {
	return s.restore.Load(ctx, restore.NewRequest(slotID, profileID))
}

// LoadSelective restores only the parts named by policy.
func (s *System) LoadSelective(ctx context.Context, slotID, profileID int, policy save.SelectiveLoad) (restore.Outcome, error) {
	return s.restore.Load(ctx, restore.Request{SlotID: slotID, ProfileID: profileID, Policy: policy})
}

// LoadLast restores the most recently used slot of a profile.
func (s *System) LoadLast(ctx context.Context, profileID int) (restore.Outcome, error) {
	id := s.directory.LastUsed(profileID)
	if id == slots.NoSlot {
		return restore.Failed, ErrNoSaves
	}
	return s.Load(ctx, id, profileID)
}

// Import copies global variables from a slot into the live game. A nil ids
// imports every variable.
func (s *System) Import(ctx context.Context, slotID, profileID int, ids []int) error {
	return s.restore.Import(ctx, nil, save.SlotKey{SlotID: slotID, ProfileID: profileID}, ids)
}

// OnSceneOpened registers the units of a scene that finished loading. Outside
// a load the scene's archived payload is applied to them straight away; a
// load in progress restores them itself.
func (s *System) OnSceneOpened(ctx context.Context, scene string, units ...save.Unit) error {
	if err := s.registry.Register(scene, units...); err != nil {
		return err
	}
	if s.restore.Loading() {
		return nil
	}
	return s.restore.RestoreScene(ctx, scene)
}

// OnSceneClosing archives a scene's unit state and drops its units. A scene
// closed by a load is not archived.
func (s *System) OnSceneClosing(scene string) error {
	defer s.registry.ClearScene(scene)
	if s.restore.Loading() {
		return nil
	}
	return s.capture.PreserveScene(scene)
}

// Subscribe registers fn for the given notification kinds, or all kinds.
func (s *System) Subscribe(fn notify.Handler, kinds ...notify.Kind) (unsubscribe func()) {
	return s.bus.Subscribe(fn, kinds...)
}

// Slots lists the saves of a profile.
func (s *System) Slots(ctx context.Context, profileID int) ([]save.SlotRef, error) {
	return s.directory.List(ctx, profileID)
}

func (s *System) Directory() *slots.Directory {
	return s.directory
}

func (s *System) Loading() bool {
	return s.restore.Loading()
}

// Close waits for a pending background write and refuses further threaded saves.
func (s *System) Close() {
	s.capture.Close()
}

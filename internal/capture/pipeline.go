// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package capture takes a snapshot of the running game and writes it to a
// save slot.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/ffutop/savestate/internal/codec"
	"github.com/ffutop/savestate/internal/metrics"
	"github.com/ffutop/savestate/internal/notify"
	"github.com/ffutop/savestate/internal/persistence"
	"github.com/ffutop/savestate/internal/registry"
	"github.com/ffutop/savestate/internal/slots"
	"github.com/ffutop/savestate/internal/world"
	"github.com/ffutop/savestate/save"
	"github.com/ffutop/savestate/save/token"
)

var ErrClosed = errors.New("capture: pipeline closed")

type Config struct {
	// MaxSaves caps the number of non-autosave slots; 0 means no limit.
	MaxSaves int
	// Threading moves encode and write onto the background writer.
	Threading           bool
	WriteRetries        int
	RetryInterval       time.Duration
	Screenshots         bool
	AutosaveScreenshots bool
}

type Deps struct {
	World     world.World
	Registry  *registry.Registry
	Archive   *save.SceneArchive
	Players   *save.PlayerBook
	Codec     *codec.Codec
	Backend   persistence.Backend
	Directory *slots.Directory
	Bus       *notify.Bus
	Gate      *save.Gate
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

type Request struct {
	SlotID    int
	ProfileID int
	// Label is stored with the slot; empty keeps the existing or default label.
	Label string
}

func (r Request) Key() save.SlotKey {
	return save.SlotKey{SlotID: r.SlotID, ProfileID: r.ProfileID}
}

type Result struct {
	Slot save.SlotRef
	Err  error
}

type Pipeline struct {
	cfg       Config
	world     world.World
	registry  *registry.Registry
	archive   *save.SceneArchive
	players   *save.PlayerBook
	codec     *codec.Codec
	backend   persistence.Backend
	directory *slots.Directory
	bus       *notify.Bus
	gate      *save.Gate
	metrics   *metrics.Metrics
	logger    *slog.Logger

	now   func() time.Time
	newID func() string

	mu     sync.Mutex
	writer *pool.Pool
	closed bool
}

func New(cfg Config, deps Deps) (*Pipeline, error) {
	if err := deps.World.Validate(); err != nil {
		return nil, err
	}
	if deps.Codec == nil || deps.Backend == nil || deps.Directory == nil {
		return nil, errors.New("capture: codec, backend and directory are required")
	}
	if deps.Registry == nil {
		deps.Registry = registry.New()
	}
	if deps.Archive == nil {
		deps.Archive = save.NewSceneArchive()
	}
	if deps.Players == nil {
		deps.Players = save.NewPlayerBook()
	}
	if deps.Gate == nil {
		deps.Gate = save.NewGate()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 50 * time.Millisecond
	}
	return &Pipeline{
		cfg:       cfg,
		world:     deps.World,
		registry:  deps.Registry,
		archive:   deps.Archive,
		players:   deps.Players,
		codec:     deps.Codec,
		backend:   deps.Backend,
		directory: deps.Directory,
		bus:       deps.Bus,
		gate:      deps.Gate,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		now:       time.Now,
		newID:     uuid.NewString,
		writer:    pool.New().WithMaxGoroutines(1),
	}, nil
}

// Save captures and writes a slot, returning once the write has finished.
func (p *Pipeline) Save(ctx context.Context, req Request) (save.SlotRef, error) {
	res := <-p.SaveAsync(ctx, req)
	return res.Slot, res.Err
}

// SaveAsync captures the game state on the calling goroutine. With threading
// enabled the encode and write continue on the background writer and the
// returned channel delivers the outcome later; otherwise the channel is ready
// on return. The operation gate stays held until the write finishes.
func (p *Pipeline) SaveAsync(ctx context.Context, req Request) <-chan Result {
	out := make(chan Result, 1)
	key := req.Key()

	if p.cfg.Threading && p.isClosed() {
		out <- Result{Err: ErrClosed}
		return out
	}
	if err := p.gate.Acquire(ctx); err != nil {
		out <- Result{Err: err}
		return out
	}
	start := time.Now()

	data, screenshot, err := p.snapshot(ctx, req)
	if err != nil {
		p.gate.Release()
		p.fail(key, err)
		out <- Result{Err: err}
		return out
	}

	write := func() {
		defer p.gate.Release()
		ref, err := p.commit(context.WithoutCancel(ctx), req, data, screenshot)
		if err != nil {
			p.fail(key, err)
		} else {
			p.metrics.ObserveSave("success")
			p.metrics.ObserveDuration("save", time.Since(start))
		}
		out <- Result{Slot: ref, Err: err}
	}

	if !p.cfg.Threading {
		write()
		return out
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.gate.Release()
		p.fail(key, ErrClosed)
		out <- Result{Err: ErrClosed}
		return out
	}
	p.writer.Go(write)
	p.mu.Unlock()
	return out
}

// snapshot runs every step that reads live game state.
func (p *Pipeline) snapshot(ctx context.Context, req Request) (save.SaveData, []byte, error) {
	key := req.Key()
	p.bus.Publish(notify.Event{Kind: notify.BeforeSave, Key: key})

	if err := p.checkSlotLimit(ctx, key); err != nil {
		return save.SaveData{}, nil, err
	}

	for _, scene := range p.world.Scenes.Open() {
		if err := p.PreserveScene(scene); err != nil {
			return save.SaveData{}, nil, save.NewError("save", save.ReasonCaptureFailed, key, err)
		}
	}

	main := p.captureMain()
	p.capturePlayers(main.ActivePlayerID)

	var screenshot []byte
	if p.wantsScreenshot(key) {
		shot, err := p.world.Screenshots.Capture(ctx)
		if err != nil {
			p.logger.Warn("Screenshot failed, saving without it", "slot", key.SlotID, "profile", key.ProfileID, "err", err)
		} else {
			screenshot = shot
		}
	}

	data := save.SaveData{
		Main:    main,
		Players: p.players.All(),
		Scenes:  p.archive.All(),
	}
	return data.Clone(), screenshot, nil
}

func (p *Pipeline) checkSlotLimit(ctx context.Context, key save.SlotKey) error {
	if p.cfg.MaxSaves <= 0 || key.IsAutosave() {
		return nil
	}
	exists, err := p.directory.Exists(ctx, key)
	if err != nil {
		return save.NewError("save", save.ReasonBackendFailed, key, err)
	}
	if exists {
		return nil
	}
	n, err := p.directory.Count(ctx, key.ProfileID)
	if err != nil {
		return save.NewError("save", save.ReasonBackendFailed, key, err)
	}
	if n >= p.cfg.MaxSaves {
		return save.NewError("save", save.ReasonSlotLimitReached, key, fmt.Errorf("%d of %d slots used", n, p.cfg.MaxSaves))
	}
	return nil
}

// PreserveScene captures the units of one scene into the archive, replacing
// its previous payload.
func (p *Pipeline) PreserveScene(scene string) error {
	units := p.registry.Units(scene)
	payload := save.ScenePayload{Scene: scene}
	for _, u := range units {
		data, err := u.Capture()
		if err != nil {
			return fmt.Errorf("capture unit %d in scene %q: %w", u.Key(), scene, err)
		}
		payload.Units = append(payload.Units, save.UnitRecord{Key: u.Key(), Data: data})
	}
	p.archive.Put(payload)
	return nil
}

func (p *Pipeline) captureMain() save.MainData {
	w := p.world
	m := save.MainData{
		SaveID:         p.newID(),
		SavedAt:        p.now().Unix(),
		ActivePlayerID: w.Players.ActiveID(),
		CurrentScene:   w.Scenes.Current(),
		OpenScenes:     w.Scenes.Open(),
	}
	if w.Variables != nil {
		m.Variables = token.Join(w.Variables.Snapshot())
	}
	if w.CustomTokens != nil {
		m.CustomTokens = token.Join(w.CustomTokens.Snapshot())
	}
	if w.Menus != nil {
		m.Menus = w.Menus.Snapshot()
	}
	if w.Tasks != nil {
		m.ActiveTasks = w.Tasks.Snapshot()
	}
	if w.Timers != nil {
		m.Timers = w.Timers.Snapshot()
	}
	if w.Movement != nil {
		m.MovementMethod = w.Movement.Method()
	}
	return m
}

// capturePlayers refreshes the player book. The active player and inactive
// players standing in an open scene are read live; everyone else keeps their
// last known record.
func (p *Pipeline) capturePlayers(activeID int) {
	w := p.world
	ids := make(map[int]struct{})
	for _, pd := range p.players.All() {
		ids[pd.PlayerID] = struct{}{}
	}
	for _, id := range w.Players.IDs() {
		ids[id] = struct{}{}
	}
	ids[activeID] = struct{}{}

	for id := range ids {
		switch {
		case id == activeID:
			pd := p.capturePlayer(id)
			if w.Camera != nil {
				pd.Camera = w.Camera.Snapshot()
			}
			p.players.Put(pd)
		case w.Players.InScene(id):
			w.Players.StopAutonomous(id)
			pd := p.capturePlayer(id)
			pd.Camera = p.players.Get(id).Camera
			p.players.Put(pd)
		default:
			p.players.Get(id)
		}
	}
}

func (p *Pipeline) capturePlayer(id int) save.PlayerData {
	pd := p.world.Players.Capture(id)
	pd.PlayerID = id
	if p.world.Inventory != nil {
		pd.Inventory = p.world.Inventory.Capture(id)
	} else {
		pd.Inventory = p.players.Get(id).Inventory
	}
	return pd
}

func (p *Pipeline) wantsScreenshot(key save.SlotKey) bool {
	if !p.cfg.Screenshots || p.world.Screenshots == nil {
		return false
	}
	return !key.IsAutosave() || p.cfg.AutosaveScreenshots
}

// commit encodes and writes a snapshot, then records it in the directory.
func (p *Pipeline) commit(ctx context.Context, req Request, data save.SaveData, screenshot []byte) (save.SlotRef, error) {
	key := req.Key()
	raw, err := p.codec.Encode(data)
	if err != nil {
		return save.SlotRef{}, save.NewError("save", save.ReasonCaptureFailed, key, err)
	}
	p.metrics.ObservePayload(len(raw))

	if err := p.write(ctx, key, raw, screenshot); err != nil {
		return save.SlotRef{}, save.NewError("save", save.ReasonBackendFailed, key, err)
	}

	if err := p.directory.Commit(key, req.Label); err != nil {
		p.logger.Warn("Failed to record slot preferences", "slot", key.SlotID, "profile", key.ProfileID, "err", err)
	}
	ref := save.SlotRef{
		SlotID:        key.SlotID,
		ProfileID:     key.ProfileID,
		Label:         req.Label,
		UpdatedAt:     time.Unix(data.Main.SavedAt, 0),
		Size:          int64(len(raw)),
		HasScreenshot: screenshot != nil,
	}
	if _, err := p.directory.Refresh(ctx, key.ProfileID); err != nil {
		p.logger.Warn("Failed to refresh slot directory", "profile", key.ProfileID, "err", err)
	} else if listed, ok, _ := p.directory.Lookup(ctx, key); ok {
		ref = listed
	}

	p.logger.Info("Save complete", "slot", key.SlotID, "profile", key.ProfileID, "scene", data.Main.CurrentScene, "bytes", len(raw))
	p.bus.Publish(notify.Event{Kind: notify.AfterSave, Key: key, Slot: &ref})
	return ref, nil
}

func (p *Pipeline) write(ctx context.Context, key save.SlotKey, raw, screenshot []byte) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.RetryInterval
	tries := p.cfg.WriteRetries + 1
	if tries < 1 {
		tries = 1
	}
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := p.backend.Write(ctx, key, raw, screenshot)
		if err != nil {
			p.logger.Warn("Slot write failed", "slot", key.SlotID, "profile", key.ProfileID, "attempt", attempt, "err", err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(tries)))
	return err
}

func (p *Pipeline) fail(key save.SlotKey, err error) {
	reason := save.ReasonOf(err)
	if reason == save.ReasonSlotLimitReached {
		p.metrics.ObserveSave("slot_limit")
	} else {
		p.metrics.ObserveSave("failed")
	}
	p.logger.Error("Save failed", "slot", key.SlotID, "profile", key.ProfileID, "reason", reason, "err", err)
	p.bus.Publish(notify.Event{Kind: notify.SaveFailed, Key: key, Reason: reason, Err: err})
}

func (p *Pipeline) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close waits for a pending background write and refuses new threaded saves.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.writer.Wait()
}

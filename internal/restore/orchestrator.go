// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package restore applies a stored save to the running game.
//
// Every Load takes a new request token and cancels the request it replaces.
// The token is compared after each point where the request may have waited
// (backend read, operation gate, scene change). A request that is no longer
// the latest returns Superseded; if it had already published before-load it
// closes with a load-failed whose Reason is ReasonStaleResponse and whose Err
// is nil. Once the scene change is done a load is committed: it applies every
// step and a newer request waits on the gate behind it.
package restore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

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

type Config struct {
	// AlwaysReloadScene changes scene even when the save was made in the current one.
	AlwaysReloadScene bool
}

type Deps struct {
	World    world.World
	Registry *registry.Registry
	Archive  *save.SceneArchive
	Players  *save.PlayerBook
	Codec    *codec.Codec
	Backend  persistence.Backend
	// Directory resolves the SlotRef attached to after-load and after-import.
	// Optional.
	Directory *slots.Directory
	Bus       *notify.Bus
	Gate      *save.Gate
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

type Request struct {
	SlotID    int
	ProfileID int
	Policy    save.SelectiveLoad
}

// NewRequest builds a request that restores everything.
func NewRequest(slotID, profileID int) Request {
	return Request{SlotID: slotID, ProfileID: profileID, Policy: save.RestoreAll()}
}

func (r Request) Key() save.SlotKey {
	return save.SlotKey{SlotID: r.SlotID, ProfileID: r.ProfileID}
}

type Orchestrator struct {
	cfg      Config
	world    world.World
	registry *registry.Registry
	archive  *save.SceneArchive
	players  *save.PlayerBook
	codec    *codec.Codec
	backend  persistence.Backend
	dir      *slots.Directory
	bus      *notify.Bus
	gate     *save.Gate
	metrics  *metrics.Metrics
	logger   *slog.Logger

	latest atomic.Uint64
	state  atomic.Int32
	// holding is set while a load owns the gate, superseded or not.
	holding atomic.Bool

	mu         sync.Mutex
	cancelPrev context.CancelFunc
}

func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if err := deps.World.Validate(); err != nil {
		return nil, err
	}
	if deps.Codec == nil || deps.Backend == nil {
		return nil, errors.New("restore: codec and backend are required")
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
	return &Orchestrator{
		cfg:      cfg,
		world:    deps.World,
		registry: deps.Registry,
		archive:  deps.Archive,
		players:  deps.Players,
		codec:    deps.Codec,
		backend:  deps.Backend,
		dir:      deps.Directory,
		bus:      deps.Bus,
		gate:     deps.Gate,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}, nil
}

// State reports the phase of the latest request.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Loading reports whether a load is between request and completion.
func (o *Orchestrator) Loading() bool {
	return o.State() != Idle || o.holding.Load()
}

// load is the per-request context threaded through the restore steps.
type load struct {
	req    Request
	token  uint64
	header save.Header
	target save.PlayerData
	vars   []token.Pair
	tokens []token.Pair
	scenes []save.ScenePayload

	// announced is set once before-load went out; the request then owes a
	// terminal event.
	announced bool
	// committed is set once live state starts changing; from then on the
	// load runs to completion even if superseded.
	committed bool
}

func (o *Orchestrator) stale(l *load) bool {
	return !l.committed && o.latest.Load() != l.token
}

func (o *Orchestrator) setState(l *load, s State) {
	if o.latest.Load() == l.token {
		o.state.Store(int32(s))
	}
}

// begin makes a new request the latest one and cancels its predecessor.
func (o *Orchestrator) begin(ctx context.Context, req Request) (context.Context, *load, func()) {
	ctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	if o.cancelPrev != nil {
		o.cancelPrev()
	}
	o.cancelPrev = cancel
	l := &load{req: req, token: o.latest.Add(1)}
	o.mu.Unlock()
	o.setState(l, RequestIssued)
	return ctx, l, cancel
}

// Load reads a slot and applies it according to req.Policy. A superseded
// request returns (Superseded, nil).
func (o *Orchestrator) Load(ctx context.Context, req Request) (Outcome, error) {
	ctx, l, cancel := o.begin(ctx, req)
	defer cancel()
	start := time.Now()
	key := req.Key()

	raw, ok, err := o.backend.Read(ctx, key)
	if o.stale(l) {
		return o.superseded(l, "read")
	}
	if err != nil {
		return o.fail(l, save.NewError("load", save.ReasonBackendFailed, key, err))
	}
	if !ok || len(raw) == 0 {
		return o.fail(l, save.NewError("load", save.ReasonDecodeFailed, key, errors.New("slot is empty")))
	}

	if err := o.gate.Acquire(ctx); err != nil {
		if o.stale(l) {
			return o.superseded(l, "gate")
		}
		return o.fail(l, save.NewError("load", save.ReasonBackendFailed, key, err))
	}
	defer o.gate.Release()
	o.holding.Store(true)
	defer o.holding.Store(false)
	if o.stale(l) {
		return o.superseded(l, "gate")
	}

	plain, err := o.codec.Decompress(raw)
	if err != nil {
		return o.fail(l, save.NewError("load", save.ReasonDecodeFailed, key, err))
	}
	o.bus.Publish(notify.Event{Kind: notify.BeforeLoad, Key: key})
	l.announced = true

	if err := o.extract(l, plain); err != nil {
		return o.fail(l, save.NewError("load", save.ReasonDecodeFailed, key, err))
	}
	o.setState(l, MainDataExtracted)

	if err := o.transition(ctx, l); err != nil {
		if o.stale(l) {
			return o.superseded(l, "scene change")
		}
		return o.fail(l, save.NewError("load", save.ReasonSceneTransitionFailed, key, err))
	}
	if o.stale(l) {
		return o.superseded(l, "scene change")
	}

	// Superseding stops here. A newer request waits on the gate until this
	// one has applied everything.
	l.committed = true
	applyCtx := context.WithoutCancel(ctx)
	if err := o.apply(applyCtx, l); err != nil {
		return o.fail(l, save.NewError("load", save.ReasonRestoreFailed, key, err))
	}

	o.setState(l, Idle)
	o.metrics.ObserveLoad(Applied.String())
	o.metrics.ObserveDuration("load", time.Since(start))
	o.logger.Info("Load complete", "slot", key.SlotID, "profile", key.ProfileID, "scene", o.world.Scenes.Current(), "policy", req.Policy.String())
	o.bus.Publish(notify.Event{Kind: notify.AfterLoad, Key: key, Slot: o.slotRef(applyCtx, key, len(raw))})
	return Applied, nil
}

// extract decodes everything the policy needs before any live state changes,
// so a corrupt block fails the load with the game untouched.
func (o *Orchestrator) extract(l *load, plain []byte) error {
	h, err := o.codec.ExtractMainData(plain)
	if err != nil {
		return err
	}
	l.header = h

	p := l.req.Policy
	if p.NeedsSceneData() {
		if l.scenes, err = o.codec.ExtractSceneData(plain); err != nil {
			return err
		}
	}
	if p.Variables {
		if l.vars, err = token.Split(h.Main.Variables); err != nil {
			return fmt.Errorf("variables: %w", err)
		}
		if l.tokens, err = token.Split(h.Main.CustomTokens); err != nil {
			return fmt.Errorf("custom tokens: %w", err)
		}
	}

	target, ok := h.Player(h.Main.ActivePlayerID)
	if !ok {
		target = save.PlayerData{PlayerID: h.Main.ActivePlayerID}
	}
	if p.Inventory {
		if _, err := token.Split(target.Inventory); err != nil {
			return fmt.Errorf("inventory of player %d: %w", target.PlayerID, err)
		}
	}
	l.target = target
	return nil
}

func (o *Orchestrator) targetScene(l *load) string {
	if l.target.Scene != "" {
		return l.target.Scene
	}
	return l.header.Main.CurrentScene
}

func (o *Orchestrator) transition(ctx context.Context, l *load) error {
	w := o.world
	scene := o.targetScene(l)
	change := l.req.Policy.Scene && scene != "" &&
		(scene != w.Scenes.Current() || o.cfg.AlwaysReloadScene)

	if !change {
		o.setState(l, InPlaceRestore)
		if w.Audio != nil {
			w.Audio.StopOneShots()
		}
		return nil
	}

	o.setState(l, SceneTransitionPending)
	if w.Tasks != nil {
		w.Tasks.StopAll()
	}
	for _, id := range w.Players.IDs() {
		w.Players.StopAutonomous(id)
	}
	o.logger.Info("Changing scene for load", "slot", l.req.SlotID, "profile", l.req.ProfileID, "scene", scene)
	return w.Scenes.Change(ctx, scene)
}

// apply runs the common restore sequence, each step gated by the policy.
func (o *Orchestrator) apply(ctx context.Context, l *load) error {
	w := o.world
	p := l.req.Policy
	m := l.header.Main
	target := l.target

	if p.Menus && w.Menus != nil {
		if err := w.Menus.Apply(m.Menus); err != nil {
			return fmt.Errorf("menus: %w", err)
		}
	}

	if p.Inventory && w.Inventory != nil {
		if err := w.Inventory.Restore(target.PlayerID, target.Inventory); err != nil {
			return fmt.Errorf("inventory: %w", err)
		}
	}

	if p.Player {
		o.players.ReplaceAll(l.header.Players)
		if err := o.spawnPlayers(ctx, l); err != nil {
			return err
		}
	}
	o.setState(l, PlayerSpawned)

	if p.Player {
		if err := w.Players.Restore(ctx, target); err != nil {
			return fmt.Errorf("player %d: %w", target.PlayerID, err)
		}
		if w.Camera != nil {
			if err := w.Camera.Apply(target.Camera); err != nil {
				return fmt.Errorf("camera: %w", err)
			}
		}
	}

	if p.Variables {
		if err := o.applyGlobals(l); err != nil {
			return err
		}
	}

	if p.SubScenes {
		for _, scene := range m.OpenScenes {
			if scene == m.CurrentScene || slices.Contains(w.Scenes.Open(), scene) {
				continue
			}
			if err := w.Scenes.OpenSub(ctx, scene); err != nil {
				return fmt.Errorf("sub-scene %q: %w", scene, err)
			}
		}
	}

	if p.SceneObjects {
		o.archive.ReplaceAll(l.scenes)
		if err := o.restoreUnits(ctx, w.Scenes.Open(), payloadIndex(l.scenes)); err != nil {
			return err
		}
	}

	if p.Variables && w.Tasks != nil {
		if err := w.Tasks.Apply(m.ActiveTasks); err != nil {
			return fmt.Errorf("tasks: %w", err)
		}
	}
	o.setState(l, StateApplied)
	return nil
}

// spawnPlayers places the primary player and every saved player that is
// following someone or was saved in the now-current scene.
func (o *Orchestrator) spawnPlayers(ctx context.Context, l *load) error {
	w := o.world
	if err := w.Players.Spawn(ctx, l.target, true); err != nil {
		return fmt.Errorf("spawn player %d: %w", l.target.PlayerID, err)
	}
	current := w.Scenes.Current()
	for _, pd := range l.header.Players {
		if pd.PlayerID == l.target.PlayerID {
			continue
		}
		if !pd.Following && pd.Scene != current {
			continue
		}
		if l.req.Policy.Inventory && w.Inventory != nil {
			if err := w.Inventory.Restore(pd.PlayerID, pd.Inventory); err != nil {
				return fmt.Errorf("inventory of player %d: %w", pd.PlayerID, err)
			}
		}
		if err := w.Players.Spawn(ctx, pd, false); err != nil {
			return fmt.Errorf("spawn player %d: %w", pd.PlayerID, err)
		}
		if err := w.Players.Restore(ctx, pd); err != nil {
			return fmt.Errorf("player %d: %w", pd.PlayerID, err)
		}
	}
	return nil
}

// applyGlobals restores variables, custom tokens, movement method and timers.
func (o *Orchestrator) applyGlobals(l *load) error {
	w := o.world
	m := l.header.Main
	if w.Variables != nil {
		if err := w.Variables.Apply(l.vars); err != nil {
			return fmt.Errorf("variables: %w", err)
		}
	}
	if w.CustomTokens != nil {
		if err := w.CustomTokens.Apply(l.tokens); err != nil {
			return fmt.Errorf("custom tokens: %w", err)
		}
	}
	if w.Movement != nil {
		w.Movement.SetMethod(m.MovementMethod)
	}
	if w.Timers != nil {
		if err := w.Timers.Apply(m.Timers); err != nil {
			return fmt.Errorf("timers: %w", err)
		}
	}
	return nil
}

func payloadIndex(scenes []save.ScenePayload) map[string]save.ScenePayload {
	idx := make(map[string]save.ScenePayload, len(scenes))
	for _, sp := range scenes {
		idx[sp.Scene] = sp
	}
	return idx
}

type pendingUnit struct {
	unit save.Unit
	data string
}

// restoreUnits applies the records of every listed scene in ascending
// LoadOrder across all of them; ties keep discovery order.
func (o *Orchestrator) restoreUnits(ctx context.Context, scenes []string, payloads map[string]save.ScenePayload) error {
	var pending []pendingUnit
	for _, scene := range scenes {
		sp, ok := payloads[scene]
		if !ok {
			continue
		}
		for _, u := range o.registry.Units(scene) {
			if data, ok := sp.Lookup(u.Key()); ok {
				pending = append(pending, pendingUnit{unit: u, data: data})
			}
		}
	}
	slices.SortStableFunc(pending, func(a, b pendingUnit) int {
		return save.CompareLoadOrder(a.unit, b.unit)
	})

	skipped := 0
	for _, pu := range pending {
		if pu.unit.RestorationSuppressed() {
			skipped++
			o.metrics.ObserveUnitRestore("skipped")
			continue
		}
		if err := pu.unit.Restore(ctx, pu.data); err != nil {
			return fmt.Errorf("unit %d: %w", pu.unit.Key(), err)
		}
		o.metrics.ObserveUnitRestore("applied")
	}
	if skipped > 0 {
		o.logger.Debug("Units kept their live state", "reason", save.ReasonUnitRestoreSkipped, "count", skipped)
	}
	return nil
}

// RestoreScene applies the archived payload of a scene that has just opened
// during normal play.
func (o *Orchestrator) RestoreScene(ctx context.Context, scene string) error {
	sp, ok := o.archive.Get(scene)
	if !ok {
		return nil
	}
	return o.restoreUnits(ctx, []string{scene}, map[string]save.ScenePayload{scene: sp})
}

// Import merges global variables from another save's header. A nil src reads
// from the orchestrator's own backend; a nil ids imports every variable.
// Once before-import is out, a failure publishes load-failed.
func (o *Orchestrator) Import(ctx context.Context, src persistence.Backend, key save.SlotKey, ids []int) error {
	if o.world.Variables == nil {
		return errors.New("restore: no variables collaborator to import into")
	}
	own := src == nil
	if own {
		src = o.backend
	}
	start := time.Now()

	if err := o.gate.Acquire(ctx); err != nil {
		return err
	}
	defer o.gate.Release()
	o.bus.Publish(notify.Event{Kind: notify.BeforeImport, Key: key})

	raw, ok, err := src.Read(ctx, key)
	if err != nil {
		return o.failImport(save.NewError("import", save.ReasonBackendFailed, key, err))
	}
	if !ok {
		return o.failImport(save.NewError("import", save.ReasonDecodeFailed, key, errors.New("slot is empty")))
	}
	h, err := o.codec.ExtractMainData(raw)
	if err != nil {
		return o.failImport(save.NewError("import", save.ReasonDecodeFailed, key, err))
	}
	vars, err := token.Split(h.Main.Variables)
	if err != nil {
		return o.failImport(save.NewError("import", save.ReasonDecodeFailed, key, err))
	}
	if ids != nil {
		vars = token.Filter(vars, ids)
	}
	if err := o.world.Variables.Apply(vars); err != nil {
		return o.failImport(save.NewError("import", save.ReasonRestoreFailed, key, err))
	}

	ref := &save.SlotRef{SlotID: key.SlotID, ProfileID: key.ProfileID, Size: int64(len(raw))}
	if own {
		ref = o.slotRef(ctx, key, len(raw))
	}
	o.metrics.ObserveDuration("import", time.Since(start))
	o.logger.Info("Variables imported", "slot", key.SlotID, "profile", key.ProfileID, "count", len(vars))
	o.bus.Publish(notify.Event{Kind: notify.AfterImport, Key: key, Slot: ref})
	return nil
}

func (o *Orchestrator) failImport(err *save.Error) error {
	o.logger.Error("Import failed", "slot", err.Key.SlotID, "profile", err.Key.ProfileID, "reason", err.Reason, "err", err)
	o.bus.Publish(notify.Event{Kind: notify.LoadFailed, Key: err.Key, Reason: err.Reason, Err: err})
	return err
}

// slotRef describes the slot for success events, from the directory when
// one is wired.
func (o *Orchestrator) slotRef(ctx context.Context, key save.SlotKey, size int) *save.SlotRef {
	if o.dir != nil {
		ref, ok, err := o.dir.Lookup(ctx, key)
		if err == nil && ok {
			return &ref
		}
	}
	return &save.SlotRef{SlotID: key.SlotID, ProfileID: key.ProfileID, Size: int64(size)}
}

// superseded drops a request. One that already announced itself closes with
// a load-failed carrying ReasonStaleResponse and no error.
func (o *Orchestrator) superseded(l *load, at string) (Outcome, error) {
	o.metrics.ObserveStale()
	o.metrics.ObserveLoad(Superseded.String())
	o.logger.Debug("Discarding superseded load", "slot", l.req.SlotID, "profile", l.req.ProfileID, "at", at, "reason", save.ReasonStaleResponse)
	if l.announced {
		o.bus.Publish(notify.Event{Kind: notify.LoadFailed, Key: l.req.Key(), Reason: save.ReasonStaleResponse})
	}
	return Superseded, nil
}

func (o *Orchestrator) fail(l *load, err error) (Outcome, error) {
	if o.stale(l) {
		return o.superseded(l, "failure")
	}
	o.setState(l, Idle)
	key := l.req.Key()
	reason := save.ReasonOf(err)
	o.metrics.ObserveLoad(Failed.String())
	o.logger.Error("Load failed", "slot", key.SlotID, "profile", key.ProfileID, "reason", reason, "err", err)
	o.bus.Publish(notify.Event{Kind: notify.LoadFailed, Key: key, Reason: reason, Err: err})
	return Failed, err
}

// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package worldtest provides an in-memory game world for tests.
package worldtest

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/ffutop/savestate/internal/world"
	"github.com/ffutop/savestate/save"
	"github.com/ffutop/savestate/save/token"
)

// Game is a fake runtime. Every collaborator call is appended to a call log
// so tests can assert ordering.
type Game struct {
	mu      sync.Mutex
	current string
	open    []string
	active  int
	players map[int]save.PlayerData
	items   map[int]map[int]string
	vars    map[int]string
	tokens  map[int]string
	menus   string
	camera  string
	timers  string
	tasks   string
	method  save.MovementMethod
	calls   []string

	// ChangeHook runs inside Scenes.Change before the scene becomes current.
	// It may block on ctx to simulate a multi-frame load.
	ChangeHook func(ctx context.Context, scene string) error
	// OnSceneLoaded runs after a scene (or sub-scene) finishes loading,
	// typically to register that scene's units.
	OnSceneLoaded func(scene string)
	// OnSceneClosing runs for every open scene before Change replaces it.
	OnSceneClosing func(scene string)

	Screenshot    []byte
	ScreenshotErr error
}

// NewGame starts in scene with a single active player standing in it.
func NewGame(scene string, activeID int) *Game {
	g := &Game{
		current: scene,
		open:    []string{scene},
		active:  activeID,
		players: make(map[int]save.PlayerData),
		items:   make(map[int]map[int]string),
		vars:    make(map[int]string),
		tokens:  make(map[int]string),
	}
	g.players[activeID] = save.PlayerData{PlayerID: activeID, Scene: scene}
	return g
}

// World returns collaborators backed by g.
func (g *Game) World() world.World {
	return world.World{
		Scenes:       scenes{g},
		Players:      players{g},
		Inventory:    inventory{g},
		Variables:    variables{g, "variables", &g.vars},
		CustomTokens: variables{g, "tokens", &g.tokens},
		Menus:        snapshot{g, "menus", &g.menus},
		Camera:       snapshot{g, "camera", &g.camera},
		Timers:       snapshot{g, "timers", &g.timers},
		Tasks:        tasks{snapshot{g, "tasks", &g.tasks}},
		Movement:     movement{g},
		Audio:        audio{g},
		Screenshots:  screenshots{g},
	}
}

func (g *Game) record(call string) {
	g.calls = append(g.calls, call)
}

// Calls returns the collaborator call log.
func (g *Game) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *Game) ResetCalls() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = nil
}

func (g *Game) CurrentScene() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

func (g *Game) OpenScenes() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.open...)
}

// AddPlayer places a non-active player.
func (g *Game) AddPlayer(pd save.PlayerData) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.players[pd.PlayerID] = pd
}

// RemovePlayer takes a player out of the world entirely.
func (g *Game) RemovePlayer(id int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.players, id)
}

func (g *Game) Player(id int) (save.PlayerData, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	pd, ok := g.players[id]
	return pd, ok
}

func (g *Game) ActivePlayer() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

func (g *Game) MovePlayer(id int, pos save.Vector3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	pd := g.players[id]
	pd.PlayerID = id
	pd.Position = pos
	g.players[id] = pd
}

// Give sets the count of an item held by a player. A zero count removes it.
func (g *Game) Give(playerID, item, count int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.items[playerID] == nil {
		g.items[playerID] = make(map[int]string)
	}
	if count == 0 {
		delete(g.items[playerID], item)
		return
	}
	g.items[playerID][item] = strconv.Itoa(count)
}

// Items returns item -> count for a player.
func (g *Game) Items(playerID int) map[int]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[int]int)
	for item, n := range g.items[playerID] {
		c, _ := strconv.Atoi(n)
		out[item] = c
	}
	return out
}

func (g *Game) SetVar(key int, value string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.vars[key] = value
}

func (g *Game) Var(key int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.vars[key]
}

func (g *Game) SetToken(key int, value string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens[key] = value
}

func (g *Game) Token(key int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tokens[key]
}

// SetState sets one of the opaque subsystem strings: menus, camera, timers or tasks.
func (g *Game) SetState(name, value string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	*g.field(name) = value
}

func (g *Game) State(name string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return *g.field(name)
}

func (g *Game) field(name string) *string {
	switch name {
	case "menus":
		return &g.menus
	case "camera":
		return &g.camera
	case "timers":
		return &g.timers
	case "tasks":
		return &g.tasks
	}
	panic("worldtest: unknown state " + name)
}

func (g *Game) SetMovement(m save.MovementMethod) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.method = m
}

func (g *Game) Movement() save.MovementMethod {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.method
}

type scenes struct{ g *Game }

func (s scenes) Current() string {
	return s.g.CurrentScene()
}

func (s scenes) Open() []string {
	return s.g.OpenScenes()
}

func (s scenes) Change(ctx context.Context, scene string) error {
	g := s.g
	g.mu.Lock()
	g.record("change:" + scene)
	hook := g.ChangeHook
	closing := g.OnSceneClosing
	open := slices.Clone(g.open)
	g.mu.Unlock()

	if closing != nil {
		for _, old := range open {
			closing(old)
		}
	}
	if hook != nil {
		if err := hook(ctx, scene); err != nil {
			return err
		}
	}

	g.mu.Lock()
	g.current = scene
	g.open = []string{scene}
	loaded := g.OnSceneLoaded
	g.mu.Unlock()

	if loaded != nil {
		loaded(scene)
	}
	return nil
}

func (s scenes) OpenSub(ctx context.Context, scene string) error {
	g := s.g
	g.mu.Lock()
	g.record("opensub:" + scene)
	if slices.Contains(g.open, scene) {
		g.mu.Unlock()
		return nil
	}
	g.open = append(g.open, scene)
	loaded := g.OnSceneLoaded
	g.mu.Unlock()

	if loaded != nil {
		loaded(scene)
	}
	return nil
}

type players struct{ g *Game }

func (p players) ActiveID() int {
	return p.g.ActivePlayer()
}

func (p players) IDs() []int {
	g := p.g
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]int, 0, len(g.players))
	for id := range g.players {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (p players) InScene(id int) bool {
	g := p.g
	g.mu.Lock()
	defer g.mu.Unlock()
	pd, ok := g.players[id]
	return ok && slices.Contains(g.open, pd.Scene)
}

func (p players) StopAutonomous(id int) {
	g := p.g
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record(fmt.Sprintf("stop:%d", id))
}

func (p players) Capture(id int) save.PlayerData {
	g := p.g
	g.mu.Lock()
	defer g.mu.Unlock()
	pd := g.players[id]
	pd.PlayerID = id
	return pd
}

func (p players) Spawn(ctx context.Context, pd save.PlayerData, primary bool) error {
	g := p.g
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record(fmt.Sprintf("spawn:%d", pd.PlayerID))
	live := g.players[pd.PlayerID]
	live.PlayerID = pd.PlayerID
	live.Scene = g.current
	g.players[pd.PlayerID] = live
	if primary {
		g.active = pd.PlayerID
	}
	return nil
}

func (p players) Restore(ctx context.Context, pd save.PlayerData) error {
	g := p.g
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record(fmt.Sprintf("player:%d", pd.PlayerID))
	live := g.players[pd.PlayerID]
	live.Position = pd.Position
	live.Rotation = pd.Rotation
	live.Objectives = pd.Objectives
	live.Documents = pd.Documents
	live.Following = pd.Following
	live.FollowTarget = pd.FollowTarget
	g.players[pd.PlayerID] = live
	return nil
}

type inventory struct{ g *Game }

func (i inventory) Capture(playerID int) string {
	g := i.g
	g.mu.Lock()
	defer g.mu.Unlock()
	return token.Join(token.FromMap(g.items[playerID]))
}

func (i inventory) Restore(playerID int, data string) error {
	pairs, err := token.Split(data)
	if err != nil {
		return err
	}
	g := i.g
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record(fmt.Sprintf("inventory:%d", playerID))
	g.items[playerID] = token.ToMap(pairs)
	return nil
}

type variables struct {
	g    *Game
	name string
	m    *map[int]string
}

func (v variables) Snapshot() []token.Pair {
	v.g.mu.Lock()
	defer v.g.mu.Unlock()
	return token.FromMap(*v.m)
}

// Apply merges pairs over the current values.
func (v variables) Apply(pairs []token.Pair) error {
	v.g.mu.Lock()
	defer v.g.mu.Unlock()
	v.g.record(v.name)
	for _, p := range pairs {
		(*v.m)[p.Key] = p.Value
	}
	return nil
}

type snapshot struct {
	g    *Game
	name string
	s    *string
}

func (s snapshot) Snapshot() string {
	s.g.mu.Lock()
	defer s.g.mu.Unlock()
	return *s.s
}

func (s snapshot) Apply(data string) error {
	s.g.mu.Lock()
	defer s.g.mu.Unlock()
	s.g.record(s.name)
	*s.s = data
	return nil
}

type tasks struct{ snapshot }

func (t tasks) StopAll() {
	t.g.mu.Lock()
	defer t.g.mu.Unlock()
	t.g.record("tasks:stop")
}

type movement struct{ g *Game }

func (m movement) Method() save.MovementMethod {
	return m.g.Movement()
}

func (m movement) SetMethod(method save.MovementMethod) {
	m.g.mu.Lock()
	defer m.g.mu.Unlock()
	m.g.record("movement")
	m.g.method = method
}

type audio struct{ g *Game }

func (a audio) StopOneShots() {
	a.g.mu.Lock()
	defer a.g.mu.Unlock()
	a.g.record("audio:stop")
}

type screenshots struct{ g *Game }

func (s screenshots) Capture(ctx context.Context) ([]byte, error) {
	g := s.g
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("screenshot")
	if g.ScreenshotErr != nil {
		return nil, g.ScreenshotErr
	}
	return append([]byte(nil), g.Screenshot...), nil
}

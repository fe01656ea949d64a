// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package world declares the game-runtime collaborators that the capture
// and restore paths read from and write to. Only their save/restore contract
// lives here; their behaviour belongs to the game.
package world

import (
	"context"
	"errors"

	"github.com/ffutop/savestate/save"
	"github.com/ffutop/savestate/save/token"
)

// Scenes owns scene loading. Change and OpenSub block until the scene
// reports ready, which may take many frames.
type Scenes interface {
	Current() string
	Open() []string
	Change(ctx context.Context, scene string) error
	OpenSub(ctx context.Context, scene string) error
}

type Players interface {
	ActiveID() int
	// IDs lists every player the runtime knows about.
	IDs() []int
	// InScene reports whether a player is present in one of the open scenes.
	InScene(id int) bool
	StopAutonomous(id int)
	Capture(id int) save.PlayerData
	// Spawn places (or moves) a player into the current scene. primary
	// makes it the controlled player.
	Spawn(ctx context.Context, pd save.PlayerData, primary bool) error
	// Restore applies position, rotation, objectives and documents.
	Restore(ctx context.Context, pd save.PlayerData) error
}

type Inventory interface {
	Capture(playerID int) string
	Restore(playerID int, data string) error
}

// Variables covers both global variables and custom tokens.
type Variables interface {
	Snapshot() []token.Pair
	Apply(pairs []token.Pair) error
}

// Snapshotter is the contract of subsystems whose state is one opaque string
// (menus, camera, timers).
type Snapshotter interface {
	Snapshot() string
	Apply(data string) error
}

type Tasks interface {
	Snapshotter
	StopAll()
}

type Movement interface {
	Method() save.MovementMethod
	SetMethod(m save.MovementMethod)
}

type Audio interface {
	StopOneShots()
}

// Screenshotter waits for the end of the current frame before capturing.
type Screenshotter interface {
	Capture(ctx context.Context) ([]byte, error)
}

// World bundles the collaborators. Scenes and Players are required; a nil
// optional collaborator is skipped on both capture and restore.
type World struct {
	Scenes       Scenes
	Players      Players
	Inventory    Inventory
	Variables    Variables
	CustomTokens Variables
	Menus        Snapshotter
	Camera       Snapshotter
	Timers       Snapshotter
	Tasks        Tasks
	Movement     Movement
	Audio        Audio
	Screenshots  Screenshotter
}

func (w World) Validate() error {
	if w.Scenes == nil {
		return errors.New("world: scenes collaborator is required")
	}
	if w.Players == nil {
		return errors.New("world: players collaborator is required")
	}
	return nil
}

// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package save

import (
	"fmt"
	"time"
)

// AutosaveSlot is the slot id reserved for the autosave.
const AutosaveSlot = 0

// NoProfile is the profile id used when profiles are not in use.
const NoProfile = 0

// SlotKey identifies a save slot within a profile.
type SlotKey struct {
	SlotID    int
	ProfileID int
}

func (k SlotKey) String() string {
	return fmt.Sprintf("slot %d (profile %d)", k.SlotID, k.ProfileID)
}

// IsAutosave reports whether the key addresses the autosave slot.
func (k SlotKey) IsAutosave() bool {
	return k.SlotID == AutosaveSlot
}

// SlotRef describes a completed save as listed by the slot directory.
type SlotRef struct {
	SlotID        int       `json:"slot_id" yaml:"slot_id"`
	ProfileID     int       `json:"profile_id" yaml:"profile_id"`
	Label         string    `json:"label" yaml:"label"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"updated_at"`
	Size          int64     `json:"size" yaml:"size"`
	HasScreenshot bool      `json:"has_screenshot" yaml:"has_screenshot"`
}

// Key returns the slot identity.
func (r SlotRef) Key() SlotKey {
	return SlotKey{SlotID: r.SlotID, ProfileID: r.ProfileID}
}

// MovementMethod is the player movement scheme in effect when the game was saved.
type MovementMethod int

const (
	MovementPointAndClick MovementMethod = iota
	MovementDirect
	MovementFirstPerson
	MovementDrag
	MovementNone
	MovementStraightToCursor
)

// Vector3 is a world-space position.
type Vector3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// MainData holds the global state of a save.
type MainData struct {
	SaveID         string         `json:"save_id" yaml:"save_id"`
	SavedAt        int64          `json:"saved_at" yaml:"saved_at"`
	ActivePlayerID int            `json:"active_player_id" yaml:"active_player_id"`
	CurrentScene   string         `json:"current_scene" yaml:"current_scene"`
	OpenScenes     []string       `json:"open_scenes" yaml:"open_scenes"`
	Variables      string         `json:"variables" yaml:"variables"`
	CustomTokens   string         `json:"custom_tokens" yaml:"custom_tokens"`
	Menus          string         `json:"menus" yaml:"menus"`
	ActiveTasks    string         `json:"active_tasks" yaml:"active_tasks"`
	Timers         string         `json:"timers" yaml:"timers"`
	MovementMethod MovementMethod `json:"movement_method" yaml:"movement_method"`
}

// PlayerData holds the state of one player identity.
type PlayerData struct {
	PlayerID     int     `json:"player_id" yaml:"player_id"`
	Scene        string  `json:"scene" yaml:"scene"`
	Position     Vector3 `json:"position" yaml:"position"`
	Rotation     float64 `json:"rotation" yaml:"rotation"`
	Inventory    string  `json:"inventory" yaml:"inventory"`
	Camera       string  `json:"camera" yaml:"camera"`
	Objectives   string  `json:"objectives" yaml:"objectives"`
	Documents    string  `json:"documents" yaml:"documents"`
	Following    bool    `json:"following" yaml:"following"`
	FollowTarget int     `json:"follow_target" yaml:"follow_target"`
}

// UnitRecord is the captured state of one persistent unit.
type UnitRecord struct {
	Key  int    `json:"key" yaml:"key"`
	Data string `json:"data" yaml:"data"`
}

// ScenePayload holds every unit record captured for one scene.
type ScenePayload struct {
	Scene string       `json:"scene" yaml:"scene"`
	Units []UnitRecord `json:"units" yaml:"units"`
}

// Lookup returns the record captured for key.
func (p ScenePayload) Lookup(key int) (string, bool) {
	for _, rec := range p.Units {
		if rec.Key == key {
			return rec.Data, true
		}
	}
	return "", false
}

// Clone returns a deep copy of the payload.
func (p ScenePayload) Clone() ScenePayload {
	out := ScenePayload{Scene: p.Scene}
	if p.Units != nil {
		out.Units = make([]UnitRecord, len(p.Units))
		copy(out.Units, p.Units)
	}
	return out
}

// Header is the first block of a save file: everything except per-scene data.
type Header struct {
	Main    MainData     `json:"main" yaml:"main"`
	Players []PlayerData `json:"players" yaml:"players"`
}

// Player returns the player data for id from the header.
func (h Header) Player(id int) (PlayerData, bool) {
	for _, pd := range h.Players {
		if pd.PlayerID == id {
			return pd, true
		}
	}
	return PlayerData{}, false
}

// SaveData is the complete in-memory model of a save.
type SaveData struct {
	Main    MainData
	Players []PlayerData
	Scenes  []ScenePayload
}

// Header returns the global block of the save.
func (d SaveData) Header() Header {
	return Header{Main: d.Main, Players: d.Players}
}

// Clone returns a deep copy so the result can be handed to another goroutine.
func (d SaveData) Clone() SaveData {
	out := SaveData{Main: d.Main}
	if d.Main.OpenScenes != nil {
		out.Main.OpenScenes = append([]string(nil), d.Main.OpenScenes...)
	}
	if d.Players != nil {
		out.Players = append([]PlayerData(nil), d.Players...)
	}
	if d.Scenes != nil {
		out.Scenes = make([]ScenePayload, len(d.Scenes))
		for i, sp := range d.Scenes {
			out.Scenes[i] = sp.Clone()
		}
	}
	return out
}

// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package restore

// State is the phase of the request currently being restored.
type State int32

const (
	Idle State = iota
	RequestIssued
	MainDataExtracted
	SceneTransitionPending
	InPlaceRestore
	PlayerSpawned
	StateApplied
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case RequestIssued:
		return "request_issued"
	case MainDataExtracted:
		return "main_data_extracted"
	case SceneTransitionPending:
		return "scene_transition_pending"
	case InPlaceRestore:
		return "in_place_restore"
	case PlayerSpawned:
		return "player_spawned"
	case StateApplied:
		return "state_applied"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of a load request.
type Outcome int

const (
	Applied Outcome = iota
	Superseded
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Superseded:
		return "superseded"
	default:
		return "failed"
	}
}

// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package save

import "strings"

// SelectiveLoad narrows what a single load restores. It is passed by value
// with each load request and never outlives it.
type SelectiveLoad struct {
	Scene        bool `json:"scene" yaml:"scene" mapstructure:"scene"`
	SceneObjects bool `json:"scene_objects" yaml:"scene_objects" mapstructure:"scene_objects"`
	Inventory    bool `json:"inventory" yaml:"inventory" mapstructure:"inventory"`
	Player       bool `json:"player" yaml:"player" mapstructure:"player"`
	Variables    bool `json:"variables" yaml:"variables" mapstructure:"variables"`
	Menus        bool `json:"menus" yaml:"menus" mapstructure:"menus"`
	SubScenes    bool `json:"sub_scenes" yaml:"sub_scenes" mapstructure:"sub_scenes"`
}

// RestoreAll is the default policy: everything is restored.
func RestoreAll() SelectiveLoad {
	return SelectiveLoad{
		Scene:        true,
		SceneObjects: true,
		Inventory:    true,
		Player:       true,
		Variables:    true,
		Menus:        true,
		SubScenes:    true,
	}
}

// IsAll reports whether nothing is excluded.
func (p SelectiveLoad) IsAll() bool {
	return p == RestoreAll()
}

// NeedsSceneData reports whether per-scene data must be decoded.
func (p SelectiveLoad) NeedsSceneData() bool {
	return p.SceneObjects || p.SubScenes
}

func (p SelectiveLoad) String() string {
	if p.IsAll() {
		return "all"
	}
	var parts []string
	add := func(on bool, name string) {
		if on {
			parts = append(parts, name)
		}
	}
	add(p.Scene, "scene")
	add(p.SceneObjects, "scene_objects")
	add(p.Inventory, "inventory")
	add(p.Player, "player")
	add(p.Variables, "variables")
	add(p.Menus, "menus")
	add(p.SubScenes, "sub_scenes")
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ffutop/savestate/save"
)

const (
	DefaultPrefix = "SaveFile"

	saveExt       = ".save"
	screenshotExt = ".png"
)

// On-disk layout:
// - profile 0:  <root>/<prefix>_<slot>.save
// - profile N:  <root>/profile_<N>/<prefix>_<slot>.save
// Screenshots sit next to their save with the .png extension.

func profileDir(root string, profileID int) string {
	if profileID == save.NoProfile {
		return root
	}
	return filepath.Join(root, fmt.Sprintf("profile_%d", profileID))
}

func savePath(root, prefix string, key save.SlotKey) string {
	return filepath.Join(profileDir(root, key.ProfileID), fmt.Sprintf("%s_%d%s", prefix, key.SlotID, saveExt))
}

func screenshotPath(root, prefix string, key save.SlotKey) string {
	return filepath.Join(profileDir(root, key.ProfileID), fmt.Sprintf("%s_%d%s", prefix, key.SlotID, screenshotExt))
}

// parseSaveName extracts the slot id from a save file name, e.g. "SaveFile_3.save" -> 3.
func parseSaveName(prefix, name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, prefix+"_")
	if !ok {
		return 0, false
	}
	rest, ok = strings.CutSuffix(rest, saveExt)
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(rest)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

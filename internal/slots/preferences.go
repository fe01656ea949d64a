// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package slots

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ffutop/savestate/save"
)

// Preferences remembers slot labels and the most-recently-used slot order
// for each profile.
type Preferences interface {
	Label(key save.SlotKey) (string, bool)
	SetLabel(key save.SlotKey, label string) error
	// Recent returns slot ids, most recently used first.
	Recent(profileID int) []int
	// Touch moves a slot to the front of the recent list.
	Touch(key save.SlotKey) error
	// Forget drops a slot's label and recent entry.
	Forget(key save.SlotKey) error
}

type profilePrefs struct {
	Labels map[int]string `yaml:"labels,omitempty"`
	Recent []int          `yaml:"recent,omitempty"`
}

type prefsDocument struct {
	Profiles map[int]*profilePrefs `yaml:"profiles"`
}

// MemoryPreferences keeps preferences for the lifetime of the process.
type MemoryPreferences struct {
	mu  sync.RWMutex
	doc prefsDocument
}

func NewMemoryPreferences() *MemoryPreferences {
	return &MemoryPreferences{doc: prefsDocument{Profiles: make(map[int]*profilePrefs)}}
}

func (p *MemoryPreferences) profile(id int) *profilePrefs {
	pp, ok := p.doc.Profiles[id]
	if !ok {
		pp = &profilePrefs{Labels: make(map[int]string)}
		p.doc.Profiles[id] = pp
	}
	if pp.Labels == nil {
		pp.Labels = make(map[int]string)
	}
	return pp
}

func (p *MemoryPreferences) Label(key save.SlotKey) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pp, ok := p.doc.Profiles[key.ProfileID]
	if !ok {
		return "", false
	}
	l, ok := pp.Labels[key.SlotID]
	return l, ok
}

func (p *MemoryPreferences) SetLabel(key save.SlotKey, label string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profile(key.ProfileID).Labels[key.SlotID] = label
	return nil
}

func (p *MemoryPreferences) Recent(profileID int) []int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pp, ok := p.doc.Profiles[profileID]
	if !ok {
		return nil
	}
	return append([]int(nil), pp.Recent...)
}

func (p *MemoryPreferences) Touch(key save.SlotKey) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	pp := p.profile(key.ProfileID)
	recent := slices.DeleteFunc(pp.Recent, func(id int) bool { return id == key.SlotID })
	pp.Recent = append([]int{key.SlotID}, recent...)
	return nil
}

func (p *MemoryPreferences) Forget(key save.SlotKey) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	pp, ok := p.doc.Profiles[key.ProfileID]
	if !ok {
		return nil
	}
	delete(pp.Labels, key.SlotID)
	pp.Recent = slices.DeleteFunc(pp.Recent, func(id int) bool { return id == key.SlotID })
	return nil
}

// YAMLPreferences persists preferences to a YAML file after every change.
type YAMLPreferences struct {
	*MemoryPreferences
	path string
}

// OpenYAMLPreferences loads path, starting empty when the file does not exist.
func OpenYAMLPreferences(path string) (*YAMLPreferences, error) {
	p := &YAMLPreferences{MemoryPreferences: NewMemoryPreferences(), path: path}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}
	var doc prefsDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse preferences %s: %w", path, err)
	}
	if doc.Profiles != nil {
		p.doc = doc
	}
	return p, nil
}

func (p *YAMLPreferences) SetLabel(key save.SlotKey, label string) error {
	if err := p.MemoryPreferences.SetLabel(key, label); err != nil {
		return err
	}
	return p.flush()
}

func (p *YAMLPreferences) Touch(key save.SlotKey) error {
	if err := p.MemoryPreferences.Touch(key); err != nil {
		return err
	}
	return p.flush()
}

func (p *YAMLPreferences) Forget(key save.SlotKey) error {
	if err := p.MemoryPreferences.Forget(key); err != nil {
		return err
	}
	return p.flush()
}

func (p *YAMLPreferences) flush() error {
	p.mu.RLock()
	raw, err := yaml.Marshal(&p.doc)
	p.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("failed to create preferences dir: %w", err)
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return os.Rename(tmp, p.path)
}

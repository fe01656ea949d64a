// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package worldtest

import (
	"context"
	"fmt"
	"sync"
)

// Unit is a persistent unit whose state is a plain string.
type Unit struct {
	ID         int
	Order      int
	Suppressed bool

	// CaptureErr fails Capture when set.
	CaptureErr error
	// OnRestore runs before the state is applied and may block or fail.
	OnRestore func(ctx context.Context, data string) error
	// Log, when set, receives "restore:<ID>" on every applied restore.
	Log *CallLog

	mu       sync.Mutex
	state    string
	restores int
}

func NewUnit(id, order int, state string) *Unit {
	return &Unit{ID: id, Order: order, state: state}
}

func (u *Unit) Key() int { return u.ID }

func (u *Unit) LoadOrder() int { return u.Order }

func (u *Unit) RestorationSuppressed() bool { return u.Suppressed }

func (u *Unit) Capture() (string, error) {
	if u.CaptureErr != nil {
		return "", u.CaptureErr
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state, nil
}

func (u *Unit) Restore(ctx context.Context, data string) error {
	if u.OnRestore != nil {
		if err := u.OnRestore(ctx, data); err != nil {
			return err
		}
	}
	u.mu.Lock()
	u.state = data
	u.restores++
	u.mu.Unlock()
	if u.Log != nil {
		u.Log.Add(fmt.Sprintf("restore:%d", u.ID))
	}
	return nil
}

func (u *Unit) State() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

func (u *Unit) Set(state string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.state = state
}

// Restores counts applied restores.
func (u *Unit) Restores() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.restores
}

// CallLog is a goroutine-safe ordered list of strings.
type CallLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *CallLog) Add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *CallLog) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

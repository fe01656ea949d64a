// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package notify is a small synchronous bus for save/load lifecycle events.
package notify

import (
	"log/slog"
	"sync"

	"github.com/ffutop/savestate/save"
)

type Kind int

const (
	BeforeSave Kind = iota
	AfterSave
	SaveFailed
	BeforeLoad
	AfterLoad
	LoadFailed
	BeforeImport
	AfterImport
)

var kindNames = [...]string{
	BeforeSave:   "before-save",
	AfterSave:    "after-save",
	SaveFailed:   "save-failed",
	BeforeLoad:   "before-load",
	AfterLoad:    "after-load",
	LoadFailed:   "load-failed",
	BeforeImport: "before-import",
	AfterImport:  "after-import",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Event is delivered to subscribers. Slot is set on after-save; Err and
// Reason are set on the failure kinds.
type Event struct {
	Kind   Kind
	Key    save.SlotKey
	Slot   *save.SlotRef
	Reason save.Reason
	Err    error
}

type Handler func(Event)

type subscription struct {
	id    uint64
	kinds map[Kind]struct{}
	fn    Handler
}

// Bus delivers events synchronously, in subscription order, on the
// publishing goroutine.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
	logger *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers fn for the given kinds, or for every kind when none
// are given. The returned func removes the subscription.
func (b *Bus) Subscribe(fn Handler, kinds ...Kind) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := subscription{id: b.nextID, fn: fn}
	if len(kinds) > 0 {
		sub.kinds = make(map[Kind]struct{}, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = struct{}{}
		}
	}
	b.subs = append(b.subs, sub)

	id := sub.id
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers ev. A panicking handler is logged and does not stop delivery.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.RUnlock()

	for _, s := range subs {
		if s.kinds != nil {
			if _, ok := s.kinds[ev.Kind]; !ok {
				continue
			}
		}
		b.deliver(s.fn, ev)
	}
}

func (b *Bus) deliver(fn Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Notification handler panicked", "event", ev.Kind.String(), "slot", ev.Key.SlotID, "panic", r)
		}
	}()
	fn(ev)
}

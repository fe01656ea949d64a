// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/ffutop/savestate/save"
)

// SlotMetadata describes a stored slot without its payload.
type SlotMetadata struct {
	Key           save.SlotKey
	UpdatedAt     time.Time
	Size          int64
	HasScreenshot bool
}

// Backend stores raw save payloads keyed strictly by (slot, profile).
// Profile 0 means profiles are not in use.
type Backend interface {
	// Enumerate lists the slots stored for a profile, ordered by slot id.
	Enumerate(ctx context.Context, profileID int) ([]SlotMetadata, error)

	// Read returns the raw payload of a slot. ok is false when the slot does not exist.
	Read(ctx context.Context, key save.SlotKey) (data []byte, ok bool, err error)

	// Write stores the raw payload and an optional screenshot, replacing any previous slot content.
	Write(ctx context.Context, key save.SlotKey, data []byte, screenshot []byte) error

	// Delete removes a slot. Deleting a missing slot is not an error.
	Delete(ctx context.Context, key save.SlotKey) error

	// ReadScreenshot returns the screenshot stored with a slot, if any.
	ReadScreenshot(ctx context.Context, key save.SlotKey) ([]byte, bool, error)

	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Type      string // "memory", "file", "mmap", "sql"
	Path      string // directory for "file" and "mmap"
	Prefix    string // file name prefix for "file" and "mmap"
	SQLDriver string
	SQLDSN    string
}

// Open creates the backend described by opts.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Type {
	case "", "memory":
		return NewMemoryBackend(), nil
	case "file":
		return NewFileBackend(opts.Path, opts.Prefix), nil
	case "mmap":
		return NewMmapBackend(opts.Path, opts.Prefix), nil
	case "sql":
		return OpenSQLBackend(ctx, opts.SQLDriver, opts.SQLDSN)
	default:
		return nil, fmt.Errorf("unknown storage type %q", opts.Type)
	}
}

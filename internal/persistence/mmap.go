// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/ffutop/savestate/save"
)

// MmapBackend shares the FileBackend layout but reads payloads through a
// read-only memory mapping instead of buffered reads.
type MmapBackend struct {
	*FileBackend
}

// NewMmapBackend creates a new MmapBackend.
func NewMmapBackend(root, prefix string) *MmapBackend {
	return &MmapBackend{FileBackend: NewFileBackend(root, prefix)}
}

func (mb *MmapBackend) Read(ctx context.Context, key save.SlotKey) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return mapFile(savePath(mb.root, mb.prefix, key))
}

func (mb *MmapBackend) ReadScreenshot(ctx context.Context, key save.SlotKey) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return mapFile(screenshotPath(mb.root, mb.prefix, key))
}

// mapFile copies the mapped region out before unmapping so callers never
// hold a slice into an unmapped page.
func mapFile(path string) ([]byte, bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to open mmap file: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, false, err
	}
	if fi.Size() == 0 {
		// Zero-length files cannot be mapped.
		return []byte{}, true, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, false, fmt.Errorf("mmap failed: %w", err)
	}
	data := make([]byte, len(m))
	copy(data, m)
	if err := m.Unmap(); err != nil {
		return nil, false, fmt.Errorf("munmap failed: %w", err)
	}
	return data, true, nil
}

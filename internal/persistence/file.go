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
	"path/filepath"
	"sort"

	"github.com/ffutop/savestate/save"
)

// FileBackend stores one file per slot under a root directory.
// Writes go to a temp file which is synced and renamed over the target,
// so a crash never leaves a half-written save behind.
type FileBackend struct {
	root   string
	prefix string
}

// NewFileBackend creates a new FileBackend. An empty prefix uses DefaultPrefix.
func NewFileBackend(root, prefix string) *FileBackend {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &FileBackend{root: root, prefix: prefix}
}

func (fb *FileBackend) Enumerate(ctx context.Context, profileID int) ([]SlotMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := profileDir(fb.root, profileID)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var out []SlotMetadata
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		slotID, ok := parseSaveName(fb.prefix, e.Name())
		if !ok {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		key := save.SlotKey{SlotID: slotID, ProfileID: profileID}
		_, statErr := os.Stat(screenshotPath(fb.root, fb.prefix, key))
		out = append(out, SlotMetadata{
			Key:           key,
			UpdatedAt:     fi.ModTime(),
			Size:          fi.Size(),
			HasScreenshot: statErr == nil,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.SlotID < out[j].Key.SlotID })
	return out, nil
}

func (fb *FileBackend) Read(ctx context.Context, key save.SlotKey) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return readOptional(savePath(fb.root, fb.prefix, key))
}

func (fb *FileBackend) Write(ctx context.Context, key save.SlotKey, data []byte, screenshot []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := profileDir(fb.root, key.ProfileID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	shot := screenshotPath(fb.root, fb.prefix, key)
	if screenshot != nil {
		if err := writeAtomic(shot, screenshot); err != nil {
			return err
		}
	} else if err := os.Remove(shot); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove stale screenshot: %w", err)
	}
	return writeAtomic(savePath(fb.root, fb.prefix, key), data)
}

func (fb *FileBackend) Delete(ctx context.Context, key save.SlotKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, p := range []string{savePath(fb.root, fb.prefix, key), screenshotPath(fb.root, fb.prefix, key)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete %s: %w", p, err)
		}
	}
	return nil
}

func (fb *FileBackend) ReadScreenshot(ctx context.Context, key save.SlotKey) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return readOptional(screenshotPath(fb.root, fb.prefix, key))
}

func (fb *FileBackend) Close() error {
	return nil
}

func readOptional(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, true, nil
}

func writeAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp := f.Name()
	cleanup := func() {
		f.Close()
		os.Remove(tmp)
	}

	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync file to disk: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package save

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubUnit struct {
	key, order int
}

func (u stubUnit) Key() int { return u.key }
func (u stubUnit) LoadOrder() int { return u.order }
func (u stubUnit) RestorationSuppressed() bool { return false }
func (u stubUnit) Capture() (string, error) { return "", nil }
func (u stubUnit) Restore(context.Context, string) error { return nil }

func TestSortByLoadOrder(t *testing.T) {
	units := []Unit{
		stubUnit{key: 1, order: 10},
		stubUnit{key: 2, order: 0},
		stubUnit{key: 3, order: 10},
		stubUnit{key: 4, order: -5},
		stubUnit{key: 5, order: 0},
	}

	sorted := SortByLoadOrder(units)

	var keys []int
	for _, u := range sorted {
		keys = append(keys, u.Key())
	}
	require.Equal(t, []int{4, 2, 5, 1, 3}, keys)
	require.Equal(t, 1, units[0].Key(), "input must not be reordered")
}

func TestErrorMatchesSentinel(t *testing.T) {
	tests := []struct {
		reason Reason
		want   error
	}{
		{ReasonSlotLimitReached, ErrSlotLimitReached},
		{ReasonDecodeFailed, ErrDecodeFailed},
		{ReasonSceneTransitionFailed, ErrSceneTransitionFailed},
		{ReasonBackendFailed, ErrBackend},
		{ReasonCaptureFailed, ErrCaptureFailed},
		{ReasonRestoreFailed, ErrRestoreFailed},
	}
	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", NewError("load", tt.reason, SlotKey{SlotID: 2}, nil))
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, tt.reason, ReasonOf(err))
		})
	}

	cause := errors.New("disk full")
	err := NewError("save", ReasonBackendFailed, SlotKey{SlotID: 1}, cause)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, ErrDecodeFailed)
	require.Equal(t, Reason(""), ReasonOf(cause))
}

func TestPlayerBookCreatesLazily(t *testing.T) {
	book := NewPlayerBook()
	pd := book.Get(7)
	require.Equal(t, 7, pd.PlayerID)
	require.Len(t, book.All(), 1)

	book.Put(PlayerData{PlayerID: 7, Scene: "Harbor"})
	require.Equal(t, "Harbor", book.Get(7).Scene)
	require.Len(t, book.All(), 1)
}

func TestSceneArchiveCopiesPayloads(t *testing.T) {
	archive := NewSceneArchive()
	p := ScenePayload{Scene: "Harbor", Units: []UnitRecord{{Key: 1, Data: "a"}}}
	archive.Put(p)
	p.Units[0].Data = "mutated"

	got, ok := archive.Get("Harbor")
	require.True(t, ok)
	data, ok := got.Lookup(1)
	require.True(t, ok)
	require.Equal(t, "a", data)

	archive.ReplaceAll([]ScenePayload{{Scene: "Lighthouse"}, {Scene: "Attic"}})
	_, ok = archive.Get("Harbor")
	require.False(t, ok)
	all := archive.All()
	require.Equal(t, "Attic", all[0].Scene)
	require.Equal(t, "Lighthouse", all[1].Scene)
}

func TestSelectiveLoadString(t *testing.T) {
	require.Equal(t, "all", RestoreAll().String())
	p := RestoreAll()
	p.Inventory = false
	require.False(t, p.IsAll())
	require.Equal(t, "scene,scene_objects,player,variables,menus,sub_scenes", p.String())
	require.Equal(t, "none", SelectiveLoad{}.String())
	require.False(t, SelectiveLoad{Scene: true}.NeedsSceneData())
}

func TestGate(t *testing.T) {
	g := NewGate()
	require.NoError(t, g.Acquire(context.Background()))
	require.True(t, g.Busy())
	require.False(t, g.TryAcquire())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, g.Acquire(ctx), context.DeadlineExceeded)

	g.Release()
	require.False(t, g.Busy())
	g.Release()
	require.True(t, g.TryAcquire())
}

package restore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ffutop/savestate/internal/codec"
	"github.com/ffutop/savestate/internal/metrics"
	"github.com/ffutop/savestate/internal/notify"
	"github.com/ffutop/savestate/internal/persistence"
	"github.com/ffutop/savestate/internal/registry"
	"github.com/ffutop/savestate/internal/world/worldtest"
	"github.com/ffutop/savestate/save"
)

type harness struct {
	game     *worldtest.Game
	registry *registry.Registry
	archive  *save.SceneArchive
	players  *save.PlayerBook
	backend  persistence.Backend
	codec    *codec.Codec
	gate     *save.Gate
	metrics  *metrics.Metrics
	orch     *Orchestrator

	mu     sync.Mutex
	events []notify.Event
	// units registered when a scene finishes loading
	sceneUnits map[string][]save.Unit
}

func newHarness(t *testing.T, scene string, cfg Config, backend persistence.Backend) *harness {
	t.Helper()
	if backend == nil {
		backend = persistence.NewMemoryBackend()
	}
	h := &harness{
		game:       worldtest.NewGame(scene, 1),
		registry:   registry.New(),
		archive:    save.NewSceneArchive(),
		players:    save.NewPlayerBook(),
		backend:    backend,
		codec:      codec.New(codec.JSON{}, codec.Zstd{}),
		gate:       save.NewGate(),
		metrics:    metrics.NewMetrics(prometheus.NewRegistry()),
		sceneUnits: make(map[string][]save.Unit),
	}
	h.game.OnSceneLoaded = func(scene string) {
		require.NoError(t, h.registry.Register(scene, h.sceneUnits[scene]...))
	}
	bus := notify.NewBus(nil)
	bus.Subscribe(func(ev notify.Event) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.events = append(h.events, ev)
	})

	o, err := New(cfg, Deps{
		World:    h.game.World(),
		Registry: h.registry,
		Archive:  h.archive,
		Players:  h.players,
		Codec:    h.codec,
		Backend:  backend,
		Bus:      bus,
		Gate:     h.gate,
		Metrics:  h.metrics,
	})
	require.NoError(t, err)
	h.orch = o
	return h
}

func (h *harness) kinds() []notify.Kind {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []notify.Kind
	for _, ev := range h.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (h *harness) eventLog() []notify.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]notify.Event(nil), h.events...)
}

func (h *harness) store(t *testing.T, slot int, d save.SaveData) {
	t.Helper()
	raw, err := h.codec.Encode(d)
	require.NoError(t, err)
	require.NoError(t, h.backend.Write(context.Background(), save.SlotKey{SlotID: slot}, raw, nil))
}

func fixture() save.SaveData {
	return save.SaveData{
		Main: save.MainData{
			SaveID:         "fixture",
			ActivePlayerID: 1,
			CurrentScene:   "Harbor",
			OpenScenes:     []string{"Harbor"},
			Variables:      "1:chapter 2|2:true",
			CustomTokens:   "5:gold",
			Menus:          "journal:open",
			ActiveTasks:    "intro",
			Timers:         "tide:30",
			MovementMethod: save.MovementDirect,
		},
		Players: []save.PlayerData{{
			PlayerID:   1,
			Scene:      "Harbor",
			Position:   save.Vector3{X: 3, Z: 7},
			Rotation:   90,
			Inventory:  "42:1",
			Camera:     "cam_dock",
			Objectives: "find_key",
		}},
		Scenes: []save.ScenePayload{
			{Scene: "Harbor", Units: []save.UnitRecord{{Key: 10, Data: "open"}, {Key: 11, Data: "full"}}},
		},
	}
}

func TestInPlaceRestoreOrder(t *testing.T) {
	h := newHarness(t, "Harbor", Config{}, nil)
	door := worldtest.NewUnit(10, 0, "closed")
	crate := worldtest.NewUnit(11, 0, "empty")
	require.NoError(t, h.registry.Register("Harbor", door, crate))
	h.store(t, 1, fixture())

	out, err := h.orch.Load(context.Background(), NewRequest(1, 0))
	require.NoError(t, err)
	assert.Equal(t, Applied, out)
	assert.Equal(t, Idle, h.orch.State())

	assert.Equal(t, []string{
		"audio:stop", "menus", "inventory:1", "spawn:1", "player:1", "camera",
		"variables", "tokens", "movement", "timers", "tasks",
	}, h.game.Calls())
	assert.Equal(t, "open", door.State())
	assert.Equal(t, "full", crate.State())

	pd, _ := h.game.Player(1)
	assert.Equal(t, save.Vector3{X: 3, Z: 7}, pd.Position)
	assert.Equal(t, "find_key", pd.Objectives)
	assert.Equal(t, map[int]int{42: 1}, h.game.Items(1))
	assert.Equal(t, "chapter 2", h.game.Var(1))
	assert.Equal(t, "gold", h.game.Token(5))
	assert.Equal(t, "cam_dock", h.game.State("camera"))
	assert.Equal(t, "tide:30", h.game.State("timers"))
	assert.Equal(t, save.MovementDirect, h.game.Movement())
	assert.Equal(t, []notify.Kind{notify.BeforeLoad, notify.AfterLoad}, h.kinds())

	archived, ok := h.archive.Get("Harbor")
	require.True(t, ok)
	assert.Equal(t, fixture().Scenes[0], archived)
}

func TestSceneTransition(t *testing.T) {
	h := newHarness(t, "Docks", Config{}, nil)
	h.game.AddPlayer(save.PlayerData{PlayerID: 2, Scene: "Docks"})
	door := worldtest.NewUnit(10, 0, "closed")
	h.sceneUnits["Harbor"] = []save.Unit{door}
	h.store(t, 1, fixture())

	out, err := h.orch.Load(context.Background(), NewRequest(1, 0))
	require.NoError(t, err)
	assert.Equal(t, Applied, out)

	calls := h.game.Calls()
	require.GreaterOrEqual(t, len(calls), 4)
	assert.Equal(t, []string{"tasks:stop", "stop:1", "stop:2", "change:Harbor"}, calls[:4])
	assert.NotContains(t, calls, "audio:stop")
	assert.Equal(t, "Harbor", h.game.CurrentScene())
	assert.Equal(t, "open", door.State())
}

func TestAlwaysReloadScene(t *testing.T) {
	h := newHarness(t, "Harbor", Config{AlwaysReloadScene: true}, nil)
	h.store(t, 1, fixture())

	_, err := h.orch.Load(context.Background(), NewRequest(1, 0))
	require.NoError(t, err)
	assert.Contains(t, h.game.Calls(), "change:Harbor")
}

func TestLoadOrder(t *testing.T) {
	log := &worldtest.CallLog{}
	source := worldtest.NewUnit(1, 0, "")
	source.Log = log
	// The item must find its container already restored.
	item := worldtest.NewUnit(2, 10, "")
	item.Log = log
	item.OnRestore = func(ctx context.Context, data string) error {
		if source.State() != "container ready" {
			return errors.New("container not restored yet")
		}
		return nil
	}
	tieA := worldtest.NewUnit(3, 5, "")
	tieA.Log = log
	tieB := worldtest.NewUnit(4, 5, "")
	tieB.Log = log

	h := newHarness(t, "Harbor", Config{}, nil)
	require.NoError(t, h.registry.Register("Harbor", item, tieB, tieA, source))

	d := fixture()
	d.Scenes = []save.ScenePayload{{Scene: "Harbor", Units: []save.UnitRecord{
		{Key: 2, Data: "in container"},
		{Key: 1, Data: "container ready"},
		{Key: 3, Data: "a"},
		{Key: 4, Data: "b"},
	}}}
	h.store(t, 1, d)

	_, err := h.orch.Load(context.Background(), NewRequest(1, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"restore:1", "restore:4", "restore:3", "restore:2"}, log.Calls())
}

func TestSuppressedUnitIsSkipped(t *testing.T) {
	h := newHarness(t, "Harbor", Config{}, nil)
	door := worldtest.NewUnit(10, 0, "closed")
	door.Suppressed = true
	crate := worldtest.NewUnit(11, 0, "empty")
	require.NoError(t, h.registry.Register("Harbor", door, crate))
	h.store(t, 1, fixture())

	out, err := h.orch.Load(context.Background(), NewRequest(1, 0))
	require.NoError(t, err)
	assert.Equal(t, Applied, out)
	assert.Equal(t, "closed", door.State())
	assert.Equal(t, "full", crate.State())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.UnitRestoresCounter("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.UnitRestoresCounter("applied")))
}

// blockingBackend holds reads of one slot until release is closed,
// ignoring cancellation like a slow disk would.
type blockingBackend struct {
	persistence.Backend
	slot    int
	entered chan struct{}
	release chan struct{}
}

func (b *blockingBackend) Read(ctx context.Context, key save.SlotKey) ([]byte, bool, error) {
	if key.SlotID == b.slot {
		close(b.entered)
		<-b.release
	}
	return b.Backend.Read(context.Background(), key)
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	bb := &blockingBackend{
		Backend: persistence.NewMemoryBackend(),
		slot:    1,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	h := newHarness(t, "Harbor", Config{}, bb)
	one := fixture()
	one.Main.Variables = "1:slot one"
	two := fixture()
	two.Main.Variables = "1:slot two"
	h.store(t, 1, one)
	h.store(t, 2, two)

	type result struct {
		out Outcome
		err error
	}
	first := make(chan result, 1)
	go func() {
		out, err := h.orch.Load(context.Background(), NewRequest(1, 0))
		first <- result{out, err}
	}()
	<-bb.entered

	out, err := h.orch.Load(context.Background(), NewRequest(2, 0))
	require.NoError(t, err)
	assert.Equal(t, Applied, out)

	close(bb.release)
	r := <-first
	require.NoError(t, r.err)
	assert.Equal(t, Superseded, r.out)

	assert.Equal(t, "slot two", h.game.Var(1))
	assert.Equal(t, []notify.Kind{notify.BeforeLoad, notify.AfterLoad}, h.kinds())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.StaleCounter()))
	assert.Equal(t, Idle, h.orch.State())
}

func TestSupersededDuringSceneChange(t *testing.T) {
	h := newHarness(t, "Docks", Config{}, nil)
	h.game.ChangeHook = func(ctx context.Context, scene string) error {
		<-ctx.Done()
		return ctx.Err()
	}
	h.store(t, 1, fixture())
	docks := fixture()
	docks.Main.CurrentScene = "Docks"
	docks.Main.OpenScenes = []string{"Docks"}
	docks.Players[0].Scene = "Docks"
	docks.Main.Variables = "1:docks"
	h.store(t, 2, docks)

	first := make(chan Outcome, 1)
	go func() {
		out, err := h.orch.Load(context.Background(), NewRequest(1, 0))
		assert.NoError(t, err)
		first <- out
	}()
	require.Eventually(t, func() bool {
		return h.orch.State() == SceneTransitionPending
	}, time.Second, time.Millisecond)

	out, err := h.orch.Load(context.Background(), NewRequest(2, 0))
	require.NoError(t, err)
	assert.Equal(t, Applied, out)
	assert.Equal(t, Superseded, <-first)
	assert.Equal(t, "Docks", h.game.CurrentScene())
	assert.Equal(t, "docks", h.game.Var(1))

	events := h.eventLog()
	require.Equal(t, []notify.Kind{notify.BeforeLoad, notify.LoadFailed, notify.BeforeLoad, notify.AfterLoad}, h.kinds())
	assert.Equal(t, 1, events[1].Key.SlotID)
	assert.Equal(t, save.ReasonStaleResponse, events[1].Reason)
	assert.NoError(t, events[1].Err)
	assert.Equal(t, 2, events[3].Key.SlotID)
}

func TestCommittedLoadOutlivesNewerRequest(t *testing.T) {
	h := newHarness(t, "Harbor", Config{}, nil)
	entered := make(chan struct{})
	release := make(chan struct{})
	door := worldtest.NewUnit(10, 0, "closed")
	door.OnRestore = func(ctx context.Context, data string) error {
		close(entered)
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	crate := worldtest.NewUnit(11, 5, "empty")
	require.NoError(t, h.registry.Register("Harbor", door, crate))
	one := fixture()
	one.Main.Variables = "1:slot one"
	h.store(t, 1, one)

	type result struct {
		out Outcome
		err error
	}
	first := make(chan result, 1)
	go func() {
		out, err := h.orch.Load(context.Background(), NewRequest(1, 0))
		first <- result{out, err}
	}()
	<-entered

	out, err := h.orch.Load(context.Background(), NewRequest(3, 0))
	require.ErrorIs(t, err, save.ErrDecodeFailed)
	assert.Equal(t, Failed, out)
	assert.True(t, h.orch.Loading(), "slot 1 still holds the gate")

	close(release)
	r := <-first
	require.NoError(t, r.err)
	assert.Equal(t, Applied, r.out)

	assert.Equal(t, "open", door.State())
	assert.Equal(t, "full", crate.State())
	assert.Equal(t, "slot one", h.game.Var(1))
	assert.Equal(t, "tide:30", h.game.State("timers"))
	assert.Contains(t, h.game.Calls(), "tasks")
	assert.False(t, h.orch.Loading())
	assert.False(t, h.gate.Busy())
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.StaleCounter()))

	events := h.eventLog()
	require.Equal(t, []notify.Kind{notify.BeforeLoad, notify.LoadFailed, notify.AfterLoad}, h.kinds())
	assert.Equal(t, 3, events[1].Key.SlotID)
	assert.Equal(t, save.ReasonDecodeFailed, events[1].Reason)
	require.NotNil(t, events[2].Slot)
	assert.Equal(t, 1, events[2].Slot.SlotID)
}

func TestSelectiveLoadKeepsInventory(t *testing.T) {
	h := newHarness(t, "Harbor", Config{}, nil)
	h.game.Give(1, 7, 3)
	h.store(t, 1, fixture())

	policy := save.RestoreAll()
	policy.Inventory = false
	out, err := h.orch.Load(context.Background(), Request{SlotID: 1, Policy: policy})
	require.NoError(t, err)
	assert.Equal(t, Applied, out)

	assert.Equal(t, map[int]int{7: 3}, h.game.Items(1))
	pd, _ := h.game.Player(1)
	assert.Equal(t, save.Vector3{X: 3, Z: 7}, pd.Position)
	assert.Equal(t, "chapter 2", h.game.Var(1))
	assert.NotContains(t, h.game.Calls(), "inventory:1")
}

func TestSelectiveLoadSkipsSceneData(t *testing.T) {
	h := newHarness(t, "Harbor", Config{}, nil)
	door := worldtest.NewUnit(10, 0, "closed")
	require.NoError(t, h.registry.Register("Harbor", door))

	raw, err := h.codec.Encode(fixture())
	require.NoError(t, err)
	plain, err := h.codec.Decompress(raw)
	require.NoError(t, err)
	// Keep the header, corrupt the scene block.
	corrupt := append(plain[:len(plain)-4:len(plain)-4], []byte("}}}}")...)
	require.NoError(t, h.backend.Write(context.Background(), save.SlotKey{SlotID: 1}, corrupt, nil))

	policy := save.RestoreAll()
	policy.SceneObjects = false
	policy.SubScenes = false
	out, err := h.orch.Load(context.Background(), Request{SlotID: 1, Policy: policy})
	require.NoError(t, err)
	assert.Equal(t, Applied, out)
	assert.Equal(t, "closed", door.State())

	out, err = h.orch.Load(context.Background(), NewRequest(1, 0))
	require.ErrorIs(t, err, save.ErrDecodeFailed)
	assert.Equal(t, Failed, out)
}

func TestIdempotentLoad(t *testing.T) {
	h := newHarness(t, "Harbor", Config{}, nil)
	door := worldtest.NewUnit(10, 0, "closed")
	crate := worldtest.NewUnit(11, 0, "empty")
	require.NoError(t, h.registry.Register("Harbor", door, crate))
	h.store(t, 1, fixture())

	snapshot := func() (save.PlayerData, []string, []save.PlayerData, []save.ScenePayload) {
		pd, _ := h.game.Player(1)
		return pd, []string{door.State(), crate.State()}, h.players.All(), h.archive.All()
	}

	_, err := h.orch.Load(context.Background(), NewRequest(1, 0))
	require.NoError(t, err)
	pd1, units1, book1, archive1 := snapshot()

	_, err = h.orch.Load(context.Background(), NewRequest(1, 0))
	require.NoError(t, err)
	pd2, units2, book2, archive2 := snapshot()

	assert.Equal(t, pd1, pd2)
	assert.Equal(t, units1, units2)
	assert.Equal(t, book1, book2)
	assert.Equal(t, archive1, archive2)
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name       string
		raw        []byte
		write      bool
		wantReason save.Reason
	}{
		{"MissingSlot", nil, false, save.ReasonDecodeFailed},
		{"EmptyPayload", []byte{}, true, save.ReasonDecodeFailed},
		{"NoDivider", []byte(`{"main":{}}`), true, save.ReasonDecodeFailed},
		{"CorruptScenes", []byte(`{"main":{"current_scene":"Harbor"},"players":[]}||not json`), true, save.ReasonDecodeFailed},
		{"CorruptVariables", []byte(`{"main":{"variables":"nokey"},"players":[]}||[]`), true, save.ReasonDecodeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "Harbor", Config{}, nil)
			door := worldtest.NewUnit(10, 0, "closed")
			require.NoError(t, h.registry.Register("Harbor", door))
			h.game.SetVar(1, "live")
			if tt.write {
				require.NoError(t, h.backend.Write(context.Background(), save.SlotKey{SlotID: 4}, tt.raw, nil))
			}

			out, err := h.orch.Load(context.Background(), NewRequest(4, 0))
			assert.Equal(t, Failed, out)
			require.ErrorIs(t, err, save.ErrDecodeFailed)
			assert.Equal(t, tt.wantReason, save.ReasonOf(err))

			assert.Empty(t, h.game.Calls(), "live state untouched")
			assert.Equal(t, "closed", door.State())
			assert.Equal(t, "live", h.game.Var(1))
			kinds := h.kinds()
			require.NotEmpty(t, kinds)
			assert.Equal(t, notify.LoadFailed, kinds[len(kinds)-1])
			assert.False(t, h.gate.Busy())
			assert.Equal(t, Idle, h.orch.State())
		})
	}
}

func TestSceneTransitionFailure(t *testing.T) {
	h := newHarness(t, "Docks", Config{}, nil)
	fail := true
	h.game.ChangeHook = func(ctx context.Context, scene string) error {
		if fail {
			return errors.New("asset bundle missing")
		}
		return nil
	}
	h.store(t, 1, fixture())

	out, err := h.orch.Load(context.Background(), NewRequest(1, 0))
	assert.Equal(t, Failed, out)
	require.ErrorIs(t, err, save.ErrSceneTransitionFailed)
	assert.False(t, h.gate.Busy(), "a failed transition does not block later requests")
	assert.Equal(t, Idle, h.orch.State())

	fail = false
	out, err = h.orch.Load(context.Background(), NewRequest(1, 0))
	require.NoError(t, err)
	assert.Equal(t, Applied, out)
}

func TestUnitRestoreError(t *testing.T) {
	h := newHarness(t, "Harbor", Config{}, nil)
	door := worldtest.NewUnit(10, 0, "closed")
	door.OnRestore = func(ctx context.Context, data string) error { return errors.New("material missing") }
	require.NoError(t, h.registry.Register("Harbor", door))
	h.store(t, 1, fixture())

	_, err := h.orch.Load(context.Background(), NewRequest(1, 0))
	require.ErrorIs(t, err, save.ErrRestoreFailed)
}

func TestSubScenesAndFollowers(t *testing.T) {
	h := newHarness(t, "Harbor", Config{}, nil)
	lamp := worldtest.NewUnit(30, 0, "off")
	h.sceneUnits["Harbor_Interior"] = []save.Unit{lamp}

	d := fixture()
	d.Main.OpenScenes = []string{"Harbor", "Harbor_Interior"}
	d.Players = append(d.Players,
		save.PlayerData{PlayerID: 2, Scene: "Lighthouse", Following: true, FollowTarget: 1, Inventory: "9:1"},
		save.PlayerData{PlayerID: 3, Scene: "Lighthouse", Inventory: "8:1"},
	)
	d.Scenes = append(d.Scenes, save.ScenePayload{Scene: "Harbor_Interior", Units: []save.UnitRecord{{Key: 30, Data: "on"}}})
	h.store(t, 1, d)

	_, err := h.orch.Load(context.Background(), NewRequest(1, 0))
	require.NoError(t, err)

	calls := h.game.Calls()
	assert.Contains(t, calls, "opensub:Harbor_Interior")
	assert.Contains(t, calls, "spawn:2")
	assert.NotContains(t, calls, "spawn:3")
	assert.Equal(t, map[int]int{9: 1}, h.game.Items(2))
	assert.Equal(t, "on", lamp.State())
	assert.Equal(t, []string{"Harbor", "Harbor_Interior"}, h.game.OpenScenes())

	p3 := h.players.Get(3)
	assert.Equal(t, "8:1", p3.Inventory, "unspawned players stay in the book")
}

func TestRestoreScene(t *testing.T) {
	h := newHarness(t, "Harbor", Config{}, nil)
	h.archive.Put(save.ScenePayload{Scene: "Cellar", Units: []save.UnitRecord{{Key: 1, Data: "lit"}}})
	torch := worldtest.NewUnit(1, 0, "unlit")
	require.NoError(t, h.registry.Register("Cellar", torch))

	require.NoError(t, h.orch.RestoreScene(context.Background(), "Cellar"))
	assert.Equal(t, "lit", torch.State())
	require.NoError(t, h.orch.RestoreScene(context.Background(), "Attic"))
}

func TestImportVariables(t *testing.T) {
	h := newHarness(t, "Harbor", Config{}, nil)
	other := persistence.NewMemoryBackend()
	d := fixture()
	d.Main.Variables = "1:episode one ending|2:false|3:met the keeper"
	raw, err := h.codec.Encode(d)
	require.NoError(t, err)
	require.NoError(t, other.Write(context.Background(), save.SlotKey{SlotID: 2}, raw, nil))
	h.game.SetVar(2, "true")

	require.NoError(t, h.orch.Import(context.Background(), other, save.SlotKey{SlotID: 2}, []int{1, 3}))
	assert.Equal(t, "episode one ending", h.game.Var(1))
	assert.Equal(t, "true", h.game.Var(2))
	assert.Equal(t, "met the keeper", h.game.Var(3))
	require.Equal(t, []notify.Kind{notify.BeforeImport, notify.AfterImport}, h.kinds())
	done := h.eventLog()[1]
	require.NotNil(t, done.Slot)
	assert.Equal(t, 2, done.Slot.SlotID)
	assert.Equal(t, int64(len(raw)), done.Slot.Size)

	err = h.orch.Import(context.Background(), other, save.SlotKey{SlotID: 9}, nil)
	require.ErrorIs(t, err, save.ErrDecodeFailed)
	events := h.eventLog()
	require.Len(t, events, 4)
	assert.Equal(t, notify.BeforeImport, events[2].Kind)
	assert.Equal(t, notify.LoadFailed, events[3].Kind)
	assert.Equal(t, 9, events[3].Key.SlotID)
	assert.Equal(t, save.ReasonDecodeFailed, events[3].Reason)
	assert.False(t, h.gate.Busy())
}

func TestImportFromOwnBackend(t *testing.T) {
	h := newHarness(t, "Harbor", Config{}, nil)
	h.store(t, 4, fixture())

	require.NoError(t, h.orch.Import(context.Background(), nil, save.SlotKey{SlotID: 4}, nil))
	assert.Equal(t, "chapter 2", h.game.Var(1))
	events := h.eventLog()
	require.Len(t, events, 2)
	require.NotNil(t, events[1].Slot)
	assert.Equal(t, 4, events[1].Slot.SlotID)
}

func TestStateAndOutcomeStrings(t *testing.T) {
	assert.Equal(t, "scene_transition_pending", SceneTransitionPending.String())
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "superseded", Superseded.String())
	assert.Equal(t, "failed", Failed.String())
}

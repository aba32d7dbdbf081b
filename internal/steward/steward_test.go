package steward

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/idle-engine/internal/api"
	"github.com/talgya/idle-engine/internal/config"
	"github.com/talgya/idle-engine/internal/engine"
	"github.com/talgya/idle-engine/internal/world"
)

var epoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func newAPI(t *testing.T, autosave int) (*httptest.Server, *engine.Engine, *atomic.Int32) {
	t.Helper()
	settings := config.NewSettings(autosave)
	eng := engine.New(engine.NewState(epoch, nil), world.New(), engine.Options{
		Policy:   config.DefaultPolicy(),
		Settings: settings,
		Clock:    engine.NewFakeClock(epoch),
	})
	eng.Reconcile()

	saves := &atomic.Int32{}
	srv := &api.Server{
		Eng:      eng,
		Settings: settings,
		AdminKey: "secret",
		Save:     func() error { saves.Add(1); return nil },
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, eng, saves
}

func newSteward(url string) *Steward {
	return &Steward{
		Observer: NewObserver(url),
		Actor:    NewActor(url, "secret"),
		Memory:   &CycleMemory{},
		Policy:   DefaultPolicy(),
	}
}

func TestObserve_ReadsStatusSettingsEvents(t *testing.T) {
	ts, _, _ := newAPI(t, 60)
	obs := NewObserver(ts.URL)

	require.True(t, obs.Ready(context.Background()))
	snap, err := obs.Observe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 60, snap.Settings.AutosaveSeconds)
	assert.Equal(t, 1.0, snap.Status.Speed)
	assert.Equal(t, "no time offline", snap.Offline)
	assert.Empty(t, snap.Events)
}

func TestObserve_ErrorOnDeadAPI(t *testing.T) {
	ts, _, _ := newAPI(t, 60)
	url := ts.URL
	ts.Close()

	obs := NewObserver(url)
	assert.False(t, obs.Ready(context.Background()))
	_, err := obs.Observe(context.Background())
	assert.ErrorContains(t, err, "fetch status")
}

func TestRunCycle_SavesWhenAutosaveDisabled(t *testing.T) {
	ts, _, saves := newAPI(t, 0)
	s := newSteward(ts.URL)

	d, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionSave, d.Action)
	assert.Equal(t, int32(1), saves.Load())

	// A fresh save suppresses the next one.
	d, err = s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionNone, d.Action)
	assert.Equal(t, int32(1), saves.Load())
	assert.Len(t, s.Memory.Records, 2)
}

func TestRunCycle_HealthyDoesNothing(t *testing.T) {
	ts, _, saves := newAPI(t, 60)
	s := newSteward(ts.URL)

	d, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionNone, d.Action)
	assert.Equal(t, "health HEALTHY", d.Rationale)
	assert.Zero(t, saves.Load())
}

func TestActor_SlowAndSettings(t *testing.T) {
	ts, eng, _ := newAPI(t, 60)
	eng.SetSpeed(20)
	a := NewActor(ts.URL, "secret")

	require.NoError(t, a.Act(context.Background(), Decision{Action: ActionSlow, Speed: 1}))
	assert.Equal(t, 1.0, eng.Speed())
	require.NoError(t, a.SetAutosave(context.Background(), 120))
	assert.Error(t, a.Act(context.Background(), Decision{Action: "explode"}))

	bad := NewActor(ts.URL, "wrong")
	assert.ErrorContains(t, bad.Act(context.Background(), Decision{Action: ActionSave}), "401")
}

func TestTriage_DetectsStall(t *testing.T) {
	snap := &Snapshot{
		Status:   engine.Status{Cycles: 100, Running: true, Speed: 1},
		Settings: Settings{AutosaveSeconds: 60},
		At:       epoch.Add(time.Minute),
	}
	prev := &CycleRecord{At: epoch, Cycles: 100}

	h := Triage(snap, prev, time.Time{})
	assert.True(t, h.Stalled)
	assert.Equal(t, LevelCritical, h.Level)
	assert.Equal(t, ActionAlert, Decide(snap, h, &CycleMemory{}, DefaultPolicy()).Action)

	// Paused engines are not stalled.
	snap.Status.Speed = 0
	assert.False(t, Triage(snap, prev, time.Time{}).Stalled)

	snap.Status.Speed = 1
	snap.Status.Cycles = 400
	h = Triage(snap, prev, time.Time{})
	assert.InDelta(t, 5, h.CyclesPerSecond, 1e-9)
	assert.Equal(t, LevelHealthy, h.Level)
}

func TestTriage_UsesAutosaveEvents(t *testing.T) {
	snap := &Snapshot{
		At: epoch.Add(5 * time.Minute),
		Events: []engine.Event{
			{Category: engine.CategoryAutosave, At: epoch.Add(3 * time.Minute)},
			{Category: engine.CategoryDiagnostic, At: epoch},
		},
	}
	h := Triage(snap, nil, epoch)
	assert.Equal(t, 2*time.Minute, h.SinceLastSave)
	assert.Equal(t, 1, h.Diagnostics)
	assert.Equal(t, LevelWarning, h.Level)
}

func TestDecide_SlowsAfterErrorStreak(t *testing.T) {
	mem := &CycleMemory{}
	mem.Record(CycleRecord{TickErrors: 2})
	mem.Record(CycleRecord{TickErrors: 1})
	snap := &Snapshot{Status: engine.Status{Speed: 50, Errors: 3}, Settings: Settings{AutosaveSeconds: 60}}
	h := &Health{TickErrors: 3, Level: LevelWarning}

	d := Decide(snap, h, mem, DefaultPolicy())
	assert.Equal(t, ActionSlow, d.Action)
	assert.Equal(t, 1.0, d.Speed)

	mem.Record(CycleRecord{})
	assert.Equal(t, ActionNone, Decide(snap, h, mem, DefaultPolicy()).Action)
}

func TestMemory_TrimsAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steward.json")
	mem := LoadMemory(path)
	assert.Nil(t, mem.Last())

	for i := 0; i < 15; i++ {
		action := ActionNone
		if i == 4 {
			action = ActionSave
		}
		mem.Record(CycleRecord{Cycles: uint64(i), At: epoch.Add(time.Duration(i) * time.Minute), Action: action})
	}
	require.Len(t, mem.Records, maxRecords)
	assert.Equal(t, uint64(5), mem.Records[0].Cycles)
	assert.True(t, mem.LastSave().IsZero())

	require.NoError(t, mem.Save(path))
	loaded := LoadMemory(path)
	assert.Equal(t, uint64(14), loaded.Last().Cycles)
}

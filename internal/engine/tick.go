// Package engine provides the cycle clock, the periodic counter table, the
// live tick loop, and offline reconciliation.
package engine

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/talgya/idle-engine/internal/config"
	"github.com/talgya/idle-engine/internal/entropy"
	"github.com/talgya/idle-engine/internal/world"
)

// Cycle unit: one simulation cycle covers 200ms of wall time.
const (
	CycleMs       = 200
	CycleDuration = CycleMs * time.Millisecond
	CyclesPerSec  = int64(time.Second / CycleDuration)
)

// Options configure an Engine.
type Options struct {
	Policy   config.Policy
	Settings *config.Settings
	Saver    Saver
	Random   entropy.Source
	Clock    Clock
	Speed    float64 // zero means 1; pause with SetSpeed(0)

	// Counters restores persisted counter state after the table is installed.
	Counters []CounterState
}

// Engine drives the simulation forward. It reconciles offline progress once,
// then runs the live loop until its context is cancelled or Stop is called.
type Engine struct {
	mu    sync.Mutex
	state *State
	world *world.State

	clock      Clock
	cycles     *CycleClock
	driver     *Driver
	reconciler *Reconciler

	reconciled  bool
	lastSummary *OfflineSummary
	lastReport  TickReport

	// speedBits mirrors the driver speed so savers running inside a tick can read it.
	speedBits atomic.Uint64

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc

	subsMu sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// New wires an engine around the given state and world.
func New(state *State, w *world.State, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if state.Counters == nil {
		state.Counters = NewCounterTable(opts.Policy.DisabledRecheckCycles)
	}
	w.DropNilHandles()
	if w.Factions != nil && opts.Policy.PassiveRepRate > 0 {
		w.Factions.BaseRate = opts.Policy.PassiveRepRate
	}

	periodic := &Periodic{
		Policy:   opts.Policy,
		Settings: opts.Settings,
		World:    w,
		State:    state,
		Saver:    opts.Saver,
		Random:   opts.Random,
	}
	periodic.Install()
	state.Counters.Restore(opts.Counters)

	e := &Engine{
		state:      state,
		world:      w,
		clock:      opts.Clock,
		cycles:     NewCycleClock(state),
		driver:     NewDriver(state, w),
		reconciler: NewReconciler(state, w, opts.Policy, opts.Random),
		subs:       make(map[int]chan Event),
	}
	if opts.Speed != 0 {
		e.driver.SetSpeed(opts.Speed)
	}
	e.reconciler.SetSpeed(e.driver.Speed())
	e.speedBits.Store(math.Float64bits(e.driver.Speed()))
	state.Notify = e.publish
	return e
}

// Reconcile applies offline progress up to the current clock time. Only the
// first call does any work.
func (e *Engine) Reconcile() OfflineSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.reconciled && e.lastSummary != nil {
		return *e.lastSummary
	}
	summary := e.reconciler.Reconcile(e.clock.Now())
	e.lastSummary = &summary
	e.reconciled = true
	return summary
}

// Start reconciles offline progress and then runs the live loop. It blocks
// until ctx is cancelled or Stop is called.
func (e *Engine) Start(ctx context.Context) error {
	e.Reconcile()
	return e.Run(ctx)
}

// Run starts the live loop. Each iteration processes the whole cycles that
// elapsed and then waits for the next cycle boundary.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	reconciled := e.reconciled
	e.mu.Unlock()
	if !reconciled {
		return ErrNotReconciled
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.runMu.Lock()
	e.running = true
	e.cancel = cancel
	e.runMu.Unlock()
	defer func() {
		e.runMu.Lock()
		e.running = false
		e.cancel = nil
		e.runMu.Unlock()
	}()

	slog.Info("simulation engine started", "cycles", e.Cycles(), "speed", e.Speed())
	for {
		if ctx.Err() != nil {
			break
		}
		_, rearm := e.Step()
		select {
		case <-ctx.Done():
		case <-e.clock.After(rearm):
		}
	}
	slog.Info("simulation engine stopped", "cycles", e.Cycles())
	return nil
}

// Stop halts the live loop.
func (e *Engine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Running reports whether the live loop is active.
func (e *Engine) Running() bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.running
}

// Step polls the cycle clock once and runs a tick if any whole cycles elapsed.
// It returns the tick report and how long to wait for the next boundary.
func (e *Engine) Step() (TickReport, time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, rearm := e.cycles.Poll(e.clock.Now())
	if n == 0 {
		return TickReport{}, rearm
	}
	report := e.driver.RunTick(n)
	e.lastReport = report
	return report, rearm
}

// SetSpeed changes the speed multiplier.
func (e *Engine) SetSpeed(speed float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.driver.SetSpeed(speed)
	e.reconciler.SetSpeed(e.driver.Speed())
	e.speedBits.Store(math.Float64bits(e.driver.Speed()))
	slog.Info("speed changed", "speed", e.driver.Speed())
}

// Speed returns the speed multiplier. It does not take the engine lock.
func (e *Engine) Speed() float64 {
	return math.Float64frombits(e.speedBits.Load())
}

// Cycles returns the number of simulation cycles processed.
func (e *Engine) Cycles() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Cycles
}

// LastSummary returns the offline summary from reconciliation, if any.
func (e *Engine) LastSummary() (OfflineSummary, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastSummary == nil {
		return OfflineSummary{}, false
	}
	return *e.lastSummary, true
}

// WithLock runs fn while no tick is in progress. Use it for saves and reads
// from other goroutines.
func (e *Engine) WithLock(fn func(*State, *world.State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.state, e.world)
}

// RecentEvents returns up to limit of the most recent unsaved events, oldest first.
func (e *Engine) RecentEvents(limit int) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	events := e.state.Events
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// Status is a read-only view of the engine for the API.
type Status struct {
	Cycles     uint64         `json:"cycles"`
	LastUpdate time.Time      `json:"last_update"`
	Playtime   Playtime       `json:"playtime"`
	Speed      float64        `json:"speed"`
	Running    bool           `json:"running"`
	Money      float64        `json:"money"`
	Counters   []CounterState `json:"counters"`
	Errors     int            `json:"last_tick_errors"`
}

// Snapshot returns the current status.
func (e *Engine) Snapshot() Status {
	running := e.Running()
	e.mu.Lock()
	defer e.mu.Unlock()
	st := Status{
		Cycles:     e.state.Cycles,
		LastUpdate: e.state.LastUpdate,
		Playtime:   e.state.Playtime,
		Speed:      e.driver.Speed(),
		Running:    running,
		Counters:   e.state.Counters.Snapshot(),
		Errors:     len(e.lastReport.Errors),
	}
	if e.world.Ledger != nil {
		st.Money = e.world.Ledger.Money
	}
	return st
}

// Subscribe returns a channel receiving every recorded event, and a function
// that cancels the subscription. Slow subscribers miss events rather than
// blocking the tick.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	id := e.nextID
	e.nextID++
	ch := make(chan Event, 64)
	e.subs[id] = ch
	return ch, func() {
		e.subsMu.Lock()
		defer e.subsMu.Unlock()
		if c, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(c)
		}
	}
}

func (e *Engine) publish(ev Event) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

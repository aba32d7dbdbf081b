package engine

import (
	"log/slog"
	"sort"
)

// Counter names, listed in firing order.
const (
	CounterAutosave     = "autosave"
	CounterInvitations  = "faction_invitations"
	CounterPassiveRep   = "passive_faction_growth"
	CounterMessages     = "messages"
	CounterMechanics    = "mechanics"
	CounterContracts    = "contract_generation"
	CounterAchievements = "achievements"
)

var counterOrder = []string{
	CounterAutosave,
	CounterInvitations,
	CounterPassiveRep,
	CounterMessages,
	CounterMechanics,
	CounterContracts,
	CounterAchievements,
}

// ReloadFunc returns the interval in cycles to arm a counter with after it
// fires. It runs at fire time so it can read live settings. A value <= 0
// means the counter's feature is disabled.
type ReloadFunc func() int64

// ActionFunc runs when a counter fires. elapsed is the number of cycles since
// the counter was last armed.
type ActionFunc func(elapsed int64) error

// Fixed returns a ReloadFunc with a constant interval.
func Fixed(n int64) ReloadFunc {
	return func() int64 { return n }
}

// Counter is one named countdown.
type Counter struct {
	Name      string
	Remaining int64
	Armed     int64 // the value Remaining was last reset to

	wall   bool // counts wall-clock cycles instead of game cycles
	reload ReloadFunc
	action ActionFunc
}

// CounterState is the persisted form of a counter.
type CounterState struct {
	Name      string `json:"name" db:"name"`
	Remaining int64  `json:"remaining" db:"remaining"`
	Armed     int64  `json:"armed" db:"armed"`
}

// Firing reports the outcome of one counter that came due.
type Firing struct {
	Name    string
	Elapsed int64
	Skipped bool // disabled; re-armed for a later re-check
	Err     error
}

// CounterTable schedules the periodic actions. Counters always fire in the
// order of counterOrder, with unknown names after it sorted by name.
type CounterTable struct {
	counters []*Counter
	recheck  int64
}

// NewCounterTable creates an empty table. recheck is the interval used when a
// counter reloads as disabled; values <= 0 fall back to DefaultRecheckCycles.
func NewCounterTable(recheck int64) *CounterTable {
	if recheck <= 0 {
		recheck = DefaultRecheckCycles
	}
	return &CounterTable{recheck: recheck}
}

// Register adds a counter armed with initial cycles. Registering an existing
// name replaces its reload and action but keeps its remaining count.
func (t *CounterTable) Register(name string, initial int64, reload ReloadFunc, action ActionFunc) {
	if initial <= 0 {
		initial = t.recheck
	}
	if c, ok := t.Get(name); ok {
		c.reload = reload
		c.action = action
		return
	}
	t.counters = append(t.counters, &Counter{
		Name:      name,
		Remaining: initial,
		Armed:     initial,
		reload:    reload,
		action:    action,
	})
	sort.SliceStable(t.counters, func(i, j int) bool {
		return lessCounter(t.counters[i].Name, t.counters[j].Name)
	})
}

func lessCounter(a, b string) bool {
	ia, ib := orderIndex(a), orderIndex(b)
	if ia != ib {
		return ia < ib
	}
	return a < b
}

func orderIndex(name string) int {
	for i, n := range counterOrder {
		if n == name {
			return i
		}
	}
	return len(counterOrder)
}

// Get returns the named counter.
func (t *CounterTable) Get(name string) (*Counter, bool) {
	for _, c := range t.counters {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Names returns counter names in firing order.
func (t *CounterTable) Names() []string {
	out := make([]string, len(t.counters))
	for i, c := range t.counters {
		out[i] = c.Name
	}
	return out
}

// UseWallClock makes the named counter count wall-clock cycles, so that its
// interval holds regardless of the speed multiplier. Autosave runs this way.
func (t *CounterTable) UseWallClock(name string) bool {
	c, ok := t.Get(name)
	if ok {
		c.wall = true
	}
	return ok
}

// DecrementAll subtracts numCycles of game time from every game-time counter.
func (t *CounterTable) DecrementAll(numCycles int64) {
	t.decrement(numCycles, false)
}

// DecrementWall subtracts numCycles of wall time from the wall-clock counters.
func (t *CounterTable) DecrementWall(numCycles int64) {
	t.decrement(numCycles, true)
}

func (t *CounterTable) decrement(numCycles int64, wall bool) {
	if numCycles <= 0 {
		return
	}
	for _, c := range t.counters {
		if c.wall == wall {
			c.Remaining -= numCycles
		}
	}
}

// CheckAndFire runs each due counter's action once, however overdue it is, and
// re-arms it from its reload. A failing action is reported in its Firing and
// never stops later counters.
func (t *CounterTable) CheckAndFire() []Firing {
	var fired []Firing
	for _, c := range t.counters {
		if c.Remaining > 0 {
			continue
		}
		elapsed := c.Armed - c.Remaining

		next := int64(0)
		if c.reload != nil {
			next = c.reload()
		}
		if next <= 0 {
			c.Remaining, c.Armed = t.recheck, t.recheck
			fired = append(fired, Firing{Name: c.Name, Elapsed: elapsed, Skipped: true})
			slog.Debug("counter disabled, re-check scheduled", "counter", c.Name, "recheck", t.recheck)
			continue
		}

		var err error
		if c.action != nil {
			err = guard(c.Name, func() error { return c.action(elapsed) })
		}
		c.Remaining, c.Armed = next, next

		if err != nil {
			slog.Error("counter action failed", "counter", c.Name, "error", err)
		} else {
			slog.Debug("counter fired", "counter", c.Name, "elapsed", elapsed, "next", next)
		}
		fired = append(fired, Firing{Name: c.Name, Elapsed: elapsed, Err: err})
	}
	return fired
}

// Snapshot returns the counters' persisted form in firing order.
func (t *CounterTable) Snapshot() []CounterState {
	out := make([]CounterState, len(t.counters))
	for i, c := range t.counters {
		out[i] = CounterState{Name: c.Name, Remaining: c.Remaining, Armed: c.Armed}
	}
	return out
}

// Restore loads remaining counts for registered counters. Unknown names are
// ignored so older saves with retired counters still load.
func (t *CounterTable) Restore(states []CounterState) {
	for _, st := range states {
		c, ok := t.Get(st.Name)
		if !ok {
			continue
		}
		c.Remaining = st.Remaining
		c.Armed = st.Armed
		if c.Armed < c.Remaining || c.Armed <= 0 {
			c.Armed = c.Remaining
		}
	}
}

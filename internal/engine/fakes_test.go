package engine

import (
	"errors"
	"time"

	"github.com/talgya/idle-engine/internal/config"
	"github.com/talgya/idle-engine/internal/entropy"
	"github.com/talgya/idle-engine/internal/world"
)

var epoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

// callLog records the order in which subsystems were invoked.
type callLog struct {
	calls []string
}

func (l *callLog) add(name string) {
	if l != nil {
		l.calls = append(l.calls, name)
	}
}

// recorder is a linear subsystem that only counts the cycles it receives.
type recorder struct {
	name  string
	log   *callLog
	total int64
	calls int
	err   error
	panic bool
	hook  func(total int64)
}

func (r *recorder) Process(n int64) error {
	r.log.add(r.name)
	if r.panic {
		panic(r.name + " exploded")
	}
	r.total += n
	r.calls++
	if r.hook != nil {
		r.hook(r.total)
	}
	return r.err
}

type workRecorder struct {
	recorder
	faction string
}

func (w *workRecorder) FactionName() string { return w.faction }

// bank is an accumulate/apply subsystem.
type bank struct {
	name    string
	log     *callLog
	stored  int64
	applied int
	err     error
	panic   bool
}

func (b *bank) Accumulate(n int64) {
	b.log.add(b.name)
	b.stored += n
}

func (b *bank) Apply() error {
	b.log.add(b.name + ".apply")
	if b.panic {
		panic(b.name + " apply exploded")
	}
	b.applied++
	return b.err
}

type scriptClock struct {
	log    *callLog
	online int64
}

func (s *scriptClock) UpdateOnlineTime(n int64) {
	s.log.add("scripts")
	s.online += n
}

type hacknet struct {
	log      *callLog
	perCycle float64
	total    float64
	err      error
}

func (h *hacknet) Produce(n int64) (float64, error) {
	h.log.add("hacknet")
	if h.err != nil {
		return 0, h.err
	}
	out := h.perCycle * float64(n)
	h.total += out
	return out, nil
}

func (h *hacknet) Unit() string { return "money" }

type contractGen struct {
	count int
	err   error
}

func (c *contractGen) GenerateContract() error {
	if c.err != nil {
		return c.err
	}
	c.count++
	return nil
}

type counting struct {
	calls int
	err   error
}

func (c *counting) CheckAchievements() error { c.calls++; return c.err }
func (c *counting) Save() error              { c.calls++; return c.err }

type messages struct {
	checks int
	late   bool
}

func (m *messages) CheckMessages() error { m.checks++; return nil }
func (m *messages) LateGame() bool       { return m.late }

type invitations struct {
	names []string
}

func (i *invitations) PendingInvitations() []string { return i.names }

var errBoom = errors.New("boom")

// newTestEngine builds an engine on a fake clock with a deterministic random
// source that never triggers a contract.
func newTestEngine(w *world.State, saver Saver, autosaveSeconds int) (*Engine, *State, *FakeClock) {
	clock := NewFakeClock(epoch)
	st := NewState(epoch, NewCounterTable(config.DefaultPolicy().DisabledRecheckCycles))
	e := New(st, w, Options{
		Policy:   config.DefaultPolicy(),
		Settings: config.NewSettings(autosaveSeconds),
		Saver:    saver,
		Random:   entropy.Fixed(0.99),
		Clock:    clock,
	})
	return e, st, clock
}

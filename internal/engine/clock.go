package engine

import (
	"sync"
	"time"
)

// Clock abstracts wall-clock time so the live loop can run against a fake clock.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// RealClock is the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time                         { return time.Now() }
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// FakeClock is deterministic and test-friendly. After advances the fake time
// by d and fires immediately.
type FakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{t: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.Advance(d)
	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}

// CycleClock turns elapsed wall time into whole cycles. The fractional
// remainder stays behind in LastUpdate so it is counted on a later poll.
type CycleClock struct {
	state *State
}

// NewCycleClock creates a cycle clock that advances state.LastUpdate.
func NewCycleClock(state *State) *CycleClock {
	return &CycleClock{state: state}
}

// Poll returns the number of whole cycles elapsed since the last consumed
// boundary and how long to wait for the next boundary. When no whole cycle has
// elapsed nothing is consumed. A clock that moved backwards yields zero cycles.
func (c *CycleClock) Poll(now time.Time) (cycles int64, rearm time.Duration) {
	elapsed := now.Sub(c.state.LastUpdate)
	if elapsed < 0 {
		elapsed = 0
	}
	offset := elapsed % CycleDuration
	cycles = int64(elapsed / CycleDuration)
	if cycles > 0 {
		c.state.LastUpdate = now.Add(-offset)
	}
	return cycles, CycleDuration - offset
}

package engine

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycleClock_NeverLosesTime(t *testing.T) {
	st := NewState(epoch, nil)
	cc := NewCycleClock(st)
	rng := rand.New(rand.NewSource(7))

	now := epoch
	var total time.Duration
	var cycles int64
	for i := 0; i < 500; i++ {
		step := time.Duration(rng.Intn(700)) * time.Millisecond
		now = now.Add(step)
		total += step
		n, _ := cc.Poll(now)
		require.GreaterOrEqual(t, n, int64(0))
		cycles += n
	}

	retained := now.Sub(st.LastUpdate)
	assert.Less(t, retained, CycleDuration)
	assert.Equal(t, total, time.Duration(cycles)*CycleDuration+retained)
}

func TestCycleClock_PartialCycleIsNoOp(t *testing.T) {
	st := NewState(epoch, nil)
	cc := NewCycleClock(st)

	n, rearm := cc.Poll(epoch.Add(150 * time.Millisecond))
	assert.Equal(t, int64(0), n)
	assert.Equal(t, 50*time.Millisecond, rearm)
	assert.Equal(t, epoch, st.LastUpdate)
}

func TestCycleClock_RearmTargetsNextBoundary(t *testing.T) {
	st := NewState(epoch, nil)
	cc := NewCycleClock(st)

	n, rearm := cc.Poll(epoch.Add(450 * time.Millisecond))
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 150*time.Millisecond, rearm)
	assert.Equal(t, epoch.Add(400*time.Millisecond), st.LastUpdate)
}

func TestCycleClock_BackwardsClockYieldsNothing(t *testing.T) {
	st := NewState(epoch, nil)
	cc := NewCycleClock(st)

	n, rearm := cc.Poll(epoch.Add(-5 * time.Second))
	assert.Equal(t, int64(0), n)
	assert.Equal(t, CycleDuration, rearm)
	assert.Equal(t, epoch, st.LastUpdate)
}

func TestFakeClock_AfterAdvances(t *testing.T) {
	c := NewFakeClock(epoch)
	got := <-c.After(3 * time.Second)
	assert.Equal(t, epoch.Add(3*time.Second), got)
	assert.Equal(t, epoch.Add(3*time.Second), c.Now())
}

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterTable_FiresOncePerInterval(t *testing.T) {
	table := NewCounterTable(0)
	var fired []int64
	table.Register("x", 10, Fixed(10), func(elapsed int64) error {
		fired = append(fired, elapsed)
		return nil
	})

	table.DecrementAll(10)
	table.CheckAndFire()
	require.Equal(t, []int64{10}, fired)

	c, _ := table.Get("x")
	assert.Equal(t, int64(10), c.Remaining)

	// Far overdue still fires a single time.
	table.DecrementAll(95)
	table.CheckAndFire()
	assert.Equal(t, []int64{10, 95}, fired)
	assert.Equal(t, int64(10), c.Remaining)
}

func TestCounterTable_NotDueDoesNotFire(t *testing.T) {
	table := NewCounterTable(0)
	calls := 0
	table.Register("x", 10, Fixed(10), func(int64) error { calls++; return nil })

	table.DecrementAll(9)
	assert.Empty(t, table.CheckAndFire())
	assert.Zero(t, calls)
}

func TestCounterTable_FixedOrderIgnoresRegistration(t *testing.T) {
	table := NewCounterTable(0)
	var order []string
	record := func(name string) ActionFunc {
		return func(int64) error { order = append(order, name); return nil }
	}
	for _, name := range []string{CounterAchievements, "zz_custom", CounterMechanics, CounterAutosave, "aa_custom", CounterPassiveRep} {
		table.Register(name, 1, Fixed(1), record(name))
	}

	table.DecrementAll(1)
	table.CheckAndFire()
	assert.Equal(t, []string{CounterAutosave, CounterPassiveRep, CounterMechanics, CounterAchievements, "aa_custom", "zz_custom"}, order)
	assert.Equal(t, order, table.Names())
}

func TestCounterTable_DisabledReloadSchedulesRecheck(t *testing.T) {
	table := NewCounterTable(42)
	interval := int64(0)
	calls := 0
	table.Register("save", 5, func() int64 { return interval }, func(int64) error { calls++; return nil })

	table.DecrementAll(5)
	fired := table.CheckAndFire()
	require.Len(t, fired, 1)
	assert.True(t, fired[0].Skipped)
	assert.Zero(t, calls)
	c, _ := table.Get("save")
	assert.Equal(t, int64(42), c.Remaining)

	// Re-enabled setting is picked up at the next re-check.
	interval = 300
	table.DecrementAll(42)
	table.CheckAndFire()
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(300), c.Remaining)
}

func TestCounterTable_NegativeReloadIsDisabled(t *testing.T) {
	table := NewCounterTable(0)
	table.Register("x", 1, Fixed(-7), func(int64) error { return nil })
	table.DecrementAll(1)
	fired := table.CheckAndFire()
	require.Len(t, fired, 1)
	assert.True(t, fired[0].Skipped)
	c, _ := table.Get("x")
	assert.Equal(t, int64(DefaultRecheckCycles), c.Remaining)
}

func TestCounterTable_FailureDoesNotStopLaterCounters(t *testing.T) {
	table := NewCounterTable(0)
	later := 0
	table.Register(CounterMessages, 1, Fixed(1), func(int64) error { return errBoom })
	table.Register(CounterMechanics, 1, Fixed(1), func(int64) error { panic("bladeburner") })
	table.Register(CounterAchievements, 1, Fixed(1), func(int64) error { later++; return nil })

	table.DecrementAll(1)
	fired := table.CheckAndFire()
	require.Len(t, fired, 3)
	assert.ErrorIs(t, fired[0].Err, errBoom)
	assert.ErrorContains(t, fired[1].Err, "panic")
	assert.NoError(t, fired[2].Err)
	assert.Equal(t, 1, later)

	// Failed counters are re-armed like successful ones.
	for _, name := range table.Names() {
		c, _ := table.Get(name)
		assert.Equal(t, int64(1), c.Remaining, name)
	}
}

func TestCounterTable_ReloadReadAtFireTime(t *testing.T) {
	table := NewCounterTable(0)
	interval := int64(150)
	table.Register(CounterMessages, 150, func() int64 { return interval }, func(int64) error { return nil })

	interval = 4500
	table.DecrementAll(150)
	table.CheckAndFire()
	c, _ := table.Get(CounterMessages)
	assert.Equal(t, int64(4500), c.Remaining)
}

func TestCounterTable_SnapshotRestore(t *testing.T) {
	table := NewCounterTable(0)
	table.Register("a", 100, Fixed(100), nil)
	table.Register("b", 5, Fixed(5), nil)
	table.DecrementAll(3)
	snap := table.Snapshot()

	fresh := NewCounterTable(0)
	fresh.Register("a", 100, Fixed(100), nil)
	fresh.Register("b", 5, Fixed(5), nil)
	fresh.Restore(append(snap, CounterState{Name: "retired", Remaining: 1}))

	assert.Equal(t, snap, fresh.Snapshot())
	_, ok := fresh.Get("retired")
	assert.False(t, ok)
}

func TestCounterTable_WallClockCounters(t *testing.T) {
	table := NewCounterTable(0)
	var fired []string
	record := func(name string) ActionFunc {
		return func(int64) error { fired = append(fired, name); return nil }
	}
	table.Register(CounterAutosave, 10, Fixed(10), record(CounterAutosave))
	table.Register(CounterMechanics, 10, Fixed(10), record(CounterMechanics))
	require.True(t, table.UseWallClock(CounterAutosave))
	assert.False(t, table.UseWallClock("missing"))

	table.DecrementAll(10)
	table.CheckAndFire()
	assert.Equal(t, []string{CounterMechanics}, fired)

	table.DecrementWall(10)
	table.CheckAndFire()
	assert.Equal(t, []string{CounterMechanics, CounterAutosave}, fired)
}

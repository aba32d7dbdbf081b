package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/idle-engine/internal/config"
	"github.com/talgya/idle-engine/internal/economy"
	"github.com/talgya/idle-engine/internal/entropy"
	"github.com/talgya/idle-engine/internal/social"
	"github.com/talgya/idle-engine/internal/world"
)

func newReconciler(w *world.State, rng entropy.Source) (*Reconciler, *State) {
	st := NewState(epoch, NewCounterTable(0))
	return NewReconciler(st, w, config.DefaultPolicy(), rng), st
}

func TestReconcile_ZeroCyclesIsNoOp(t *testing.T) {
	log := &callLog{}
	w := fullWorld(log)
	w.Contracts = &contractGen{}
	r, st := newReconciler(w, entropy.Fixed(0))

	now := epoch.Add(150 * time.Millisecond)
	summary := r.Reconcile(now)

	assert.Zero(t, summary.Cycles)
	assert.Empty(t, log.calls)
	assert.Equal(t, now, st.LastUpdate)
	assert.Equal(t, "no time offline", summary.String())
}

func TestReconcile_BatchedSingleCalls(t *testing.T) {
	log := &callLog{}
	w := fullWorld(log)
	w.Work = nil
	r, st := newReconciler(w, nil)

	offline := 3 * time.Hour
	summary := r.Reconcile(epoch.Add(offline))
	cycles := int64(offline / CycleDuration)

	require.Equal(t, cycles, summary.Cycles)
	assert.Equal(t, []string{
		"hacknet", "stocks", "gang", "corporation", "bladeburner", "gift", "sleeve0", "sleeve1",
	}, log.calls)

	gang := w.Gang.(*recorder)
	assert.Equal(t, 1, gang.calls)
	assert.Equal(t, cycles, gang.total)
	assert.Equal(t, cycles, w.Corporation.(*bank).stored)
	assert.Zero(t, w.Corporation.(*bank).applied)
	assert.Zero(t, w.Terminal.(*recorder).calls)
	assert.Zero(t, w.Worm.(*recorder).calls)

	assert.Equal(t, 2*float64(cycles), summary.HacknetProduction)
	assert.Equal(t, "money", summary.HacknetUnit)
	assert.Equal(t, offline, st.Playtime.Total)
	assert.Equal(t, epoch.Add(offline), st.LastUpdate)
}

func TestReconcile_ScriptIncomeIsDiscountedAverage(t *testing.T) {
	w := world.New()
	w.Ledger.Gain(economy.SourceHacking, 1000)
	r, st := newReconciler(w, nil)
	st.Playtime.Add(100 * time.Second)

	summary := r.Reconcile(epoch.Add(1000 * time.Second))

	// 1000 over 100s of playtime = 0.01/ms; 1e6 ms offline at 0.75.
	assert.InDelta(t, 7500, summary.IncomeFromScripts, 1e-6)
	assert.InDelta(t, 8500, w.Ledger.Money, 1e-6)
}

func TestReconcile_NoPlaytimeMeansNoScriptIncome(t *testing.T) {
	w := world.New()
	w.Ledger.Gain(economy.SourceHacking, 1000)
	r, _ := newReconciler(w, nil)

	summary := r.Reconcile(epoch.Add(time.Hour))
	assert.Zero(t, summary.IncomeFromScripts)
}

func TestReconcile_PassiveReputationSplitAcrossEligible(t *testing.T) {
	w := world.New()
	w.Factions = social.NewRegistry(
		&social.Faction{Name: "Alpha", Member: true, OffersWork: true},
		&social.Faction{Name: "Beta", Member: true, OffersWork: true, Favor: 100},
		&social.Faction{Name: "Gang", Member: true, OffersWork: false},
	)
	r, _ := newReconciler(w, nil)

	summary := r.Reconcile(epoch.Add(time.Hour))
	cycles := float64(time.Hour / CycleDuration)
	rate := w.Factions.BaseRate

	assert.InDelta(t, rate*cycles/2, w.Factions.Get("Alpha").Reputation, 1e-6)
	assert.InDelta(t, 2*rate*cycles/2, w.Factions.Get("Beta").Reputation, 1e-6)
	assert.Zero(t, w.Factions.Get("Gang").Reputation)
	assert.InDelta(t, 1.5*rate*cycles, summary.ReputationGained, 1e-6)
	assert.False(t, summary.WorkProcessed)
}

func TestReconcile_ActiveWorkSupersedesPassiveReputation(t *testing.T) {
	w := world.New()
	w.Factions = social.NewRegistry(&social.Faction{Name: "Alpha", Member: true, OffersWork: true})
	work := &workRecorder{faction: "Alpha"}
	w.Work = work
	r, _ := newReconciler(w, nil)

	summary := r.Reconcile(epoch.Add(time.Hour))

	assert.True(t, summary.WorkProcessed)
	assert.Equal(t, 1, work.calls)
	assert.Equal(t, int64(time.Hour/CycleDuration), work.total)
	assert.Zero(t, w.Factions.Get("Alpha").Reputation)
	assert.Zero(t, summary.ReputationGained)
}

func TestReconcile_FailingSubsystemIsSkipped(t *testing.T) {
	log := &callLog{}
	w := fullWorld(log)
	w.Gang = &recorder{name: "gang", log: log, panic: true}
	w.Hacknet = &hacknet{log: log, err: errBoom}
	r, st := newReconciler(w, nil)

	now := epoch.Add(time.Hour)
	summary := r.Reconcile(now)

	assert.Equal(t, []string{"hacknet", "gang"}, summary.Skipped)
	assert.Equal(t, int64(time.Hour/CycleDuration), w.Stocks.(*recorder).total)
	assert.Equal(t, int64(time.Hour/CycleDuration), w.Sleeves[1].(*recorder).total)
	assert.Equal(t, now, st.LastUpdate)
	assert.Contains(t, summary.String(), "skipped: hacknet, gang")
}

func TestReconcile_BackwardsClockKeepsInstant(t *testing.T) {
	w := world.New()
	gang := &recorder{}
	w.Gang = gang
	r, st := newReconciler(w, nil)

	summary := r.Reconcile(epoch.Add(-time.Hour))
	assert.Zero(t, summary.Cycles)
	assert.Zero(t, gang.calls)
	assert.Equal(t, epoch, st.LastUpdate)
}

func TestOfflineContracts_TenDaysUsesEstimate(t *testing.T) {
	pol := config.DefaultPolicy()
	offline := 10 * 24 * time.Hour

	require.Equal(t, int64(1440), ContractOpportunities(offline, pol.ContractIntervalCycles))

	count, estimated := OfflineContracts(offline, pol, entropy.NewSeeded(1))
	assert.True(t, estimated)
	assert.InDelta(t, 1440*pol.ContractProbability, float64(count), 1)
}

func TestOfflineContracts_FractionalEstimate(t *testing.T) {
	pol := config.DefaultPolicy()
	pol.ContractProbability = 0.3
	offline := 10 * 24 * time.Hour // 1440 * 0.3 = 432 exactly

	count, _ := OfflineContracts(offline, pol, entropy.Fixed(0))
	assert.Equal(t, int64(432), count)

	pol.ContractProbability = 0.2501 // 360.144
	low, _ := OfflineContracts(offline, pol, entropy.Fixed(0.99))
	high, _ := OfflineContracts(offline, pol, entropy.Fixed(0))
	assert.Equal(t, int64(360), low)
	assert.Equal(t, int64(361), high)
}

func TestOfflineContracts_ExactSamplingBelowThreshold(t *testing.T) {
	pol := config.DefaultPolicy()
	offline := 50 * 10 * time.Minute // 50 opportunities

	all, estimated := OfflineContracts(offline, pol, entropy.Fixed(0))
	assert.False(t, estimated)
	assert.Equal(t, int64(50), all)

	none, _ := OfflineContracts(offline, pol, entropy.Fixed(0.99))
	assert.Zero(t, none)
}

func TestOfflineContracts_ThresholdBoundary(t *testing.T) {
	pol := config.DefaultPolicy()
	_, estimated := OfflineContracts(100*10*time.Minute, pol, entropy.Fixed(0))
	assert.False(t, estimated)
	_, estimated = OfflineContracts(101*10*time.Minute, pol, entropy.Fixed(0))
	assert.True(t, estimated)
}

func TestReconcile_GeneratesContractsWhenUnlocked(t *testing.T) {
	gen := &contractGen{}
	w := world.New()
	w.Contracts = gen
	r, _ := newReconciler(w, entropy.Fixed(0))

	summary := r.Reconcile(epoch.Add(10 * 24 * time.Hour))
	assert.Equal(t, 360, gen.count)
	assert.Equal(t, int64(360), summary.ContractsGenerated)
	assert.True(t, summary.ContractsEstimated)
}

func TestReconcile_RoundTripMatchesContinuousSpan(t *testing.T) {
	gang := &recorder{}
	w := world.New()
	w.Gang = gang
	e, st, clock := newTestEngine(w, nil, 60)
	e.Reconcile()

	const ticks = 25
	for i := 0; i < ticks; i++ {
		clock.Advance(CycleDuration)
		e.Step()
	}
	saved := st.LastUpdate

	// A fresh process restores the saved instant and reconciles later.
	gap := 90 * time.Minute
	later := clock.Now().Add(gap)
	restored := NewState(saved, NewCounterTable(0))
	restored.Playtime = st.Playtime
	w2 := world.New()
	gang2 := &recorder{}
	w2.Gang = gang2
	summary := NewReconciler(restored, w2, config.DefaultPolicy(), nil).Reconcile(later)

	assert.Equal(t, later, restored.LastUpdate)
	assert.Equal(t, int64(gap/CycleDuration), summary.Cycles)
	assert.Equal(t, int64(ticks)+summary.Cycles, gang.total+gang2.total)
	assert.Equal(t, later.Sub(epoch), restored.Playtime.Total)
}

func TestReconcile_PausedGameReplaysNothing(t *testing.T) {
	log := &callLog{}
	w := fullWorld(log)
	w.Work = nil
	w.Contracts = &contractGen{}
	w.Ledger.Gain(economy.SourceHacking, 1000)
	w.Factions = social.NewRegistry(&social.Faction{Name: "Alpha", Member: true, OffersWork: true})
	r, st := newReconciler(w, entropy.Fixed(0))
	st.Playtime.Add(100 * time.Second)
	r.SetSpeed(0)

	now := epoch.Add(time.Hour)
	summary := r.Reconcile(now)

	assert.Equal(t, int64(time.Hour/CycleDuration), summary.Cycles)
	assert.Zero(t, summary.Scaled)
	assert.Empty(t, log.calls)
	assert.Zero(t, w.Contracts.(*contractGen).count)
	assert.Zero(t, summary.IncomeFromScripts)
	assert.Zero(t, w.Factions.Get("Alpha").Reputation)
	assert.Equal(t, now, st.LastUpdate)
	assert.Equal(t, 100*time.Second+time.Hour, st.Playtime.Total)
	assert.Equal(t, "offline for 1h0m0s while paused", summary.String())
}

func TestReconcile_SpeedScalesBatchedCalls(t *testing.T) {
	log := &callLog{}
	w := fullWorld(log)
	w.Work = nil
	r, st := newReconciler(w, nil)
	r.SetSpeed(2)

	offline := time.Hour
	summary := r.Reconcile(epoch.Add(offline))
	cycles := int64(offline / CycleDuration)

	assert.Equal(t, cycles, summary.Cycles)
	assert.Equal(t, 2*cycles, summary.Scaled)
	assert.Equal(t, 2*offline, summary.GameTime)
	assert.Equal(t, 2*cycles, w.Gang.(*recorder).total)
	assert.Equal(t, 2*cycles, w.Corporation.(*bank).stored)
	assert.Equal(t, 4*float64(cycles), summary.HacknetProduction)
	assert.Equal(t, offline, st.Playtime.Total)
}

func TestReconcile_SpeedScalesContractOpportunities(t *testing.T) {
	gen := &contractGen{}
	w := world.New()
	w.Contracts = gen
	r, _ := newReconciler(w, entropy.Fixed(0))
	r.SetSpeed(2)

	// Five days at speed 2 is the same game time as the ten-day case.
	summary := r.Reconcile(epoch.Add(5 * 24 * time.Hour))
	assert.Equal(t, int64(360), summary.ContractsGenerated)
	assert.True(t, summary.ContractsEstimated)
}

func TestReconcile_SpeedScalesActiveWork(t *testing.T) {
	w := world.New()
	work := &workRecorder{faction: "Alpha"}
	w.Work = work
	r, _ := newReconciler(w, nil)
	r.SetSpeed(0.5)

	summary := r.Reconcile(epoch.Add(time.Hour))
	assert.Equal(t, int64(time.Hour/CycleDuration)/2, work.total)
	assert.True(t, summary.WorkProcessed)
}

func TestEngine_PausedLiveAndOfflineAgree(t *testing.T) {
	gang := &recorder{}
	w := world.New()
	w.Gang = gang
	e, st, clock := newTestEngine(w, nil, 60)
	e.SetSpeed(0)
	e.Reconcile()

	for i := 0; i < 100; i++ {
		clock.Advance(CycleDuration)
		e.Step()
	}
	require.Zero(t, gang.total)

	// Restart while paused, an hour later.
	clock2 := NewFakeClock(clock.Now().Add(time.Hour))
	gang2 := &recorder{}
	w2 := world.New()
	w2.Gang = gang2
	restored := New(NewState(st.LastUpdate, nil), w2, Options{
		Policy:   config.DefaultPolicy(),
		Settings: config.NewSettings(60),
		Clock:    clock2,
	})
	restored.SetSpeed(0)

	summary := restored.Reconcile()
	assert.Equal(t, int64(time.Hour/CycleDuration), summary.Cycles)
	assert.Zero(t, summary.Scaled)
	assert.Zero(t, gang2.total)
}

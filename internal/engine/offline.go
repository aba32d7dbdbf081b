package engine

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/idle-engine/internal/config"
	"github.com/talgya/idle-engine/internal/economy"
	"github.com/talgya/idle-engine/internal/entropy"
	"github.com/talgya/idle-engine/internal/world"
)

// OfflineSummary reports what an offline period produced. It is for display
// only and never feeds back into the simulation.
type OfflineSummary struct {
	TimeOffline        time.Duration `json:"time_offline"`
	Cycles             int64         `json:"cycles"`
	GameTime           time.Duration `json:"game_time"`     // TimeOffline at the speed multiplier
	Scaled             int64         `json:"scaled_cycles"` // cycles handed to subsystems
	IncomeFromScripts  float64       `json:"income_from_scripts"`
	HacknetProduction  float64       `json:"hacknet_production"`
	HacknetUnit        string        `json:"hacknet_unit,omitempty"`
	ReputationGained   float64       `json:"reputation_gained"`
	WorkProcessed      bool          `json:"work_processed"`
	ContractsGenerated int64         `json:"contracts_generated"`
	ContractsEstimated bool          `json:"contracts_estimated"`
	Skipped            []string      `json:"skipped,omitempty"` // subsystems whose offline progress failed
	ReconciledAt       time.Time     `json:"reconciled_at"`
}

// String renders the summary for humans.
func (s OfflineSummary) String() string {
	if s.Cycles == 0 {
		return "no time offline"
	}
	if s.GameTime == 0 {
		return fmt.Sprintf("offline for %s while paused", s.TimeOffline.Round(time.Second))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "offline for %s: $%s from scripts",
		s.TimeOffline.Round(time.Second), humanize.CommafWithDigits(s.IncomeFromScripts, 2))
	if s.HacknetUnit != "" {
		fmt.Fprintf(&b, ", %s %s from hacknet", humanize.CommafWithDigits(s.HacknetProduction, 2), s.HacknetUnit)
	}
	if s.WorkProcessed {
		b.WriteString(", work continued")
	} else {
		fmt.Fprintf(&b, ", %s reputation", humanize.CommafWithDigits(s.ReputationGained, 3))
	}
	if s.ContractsGenerated > 0 {
		fmt.Fprintf(&b, ", %s contracts", humanize.Comma(s.ContractsGenerated))
	}
	if len(s.Skipped) > 0 {
		fmt.Fprintf(&b, " (skipped: %s)", strings.Join(s.Skipped, ", "))
	}
	return b.String()
}

// Reconciler applies batched progress for the time the process was not running.
type Reconciler struct {
	state  *State
	world  *world.State
	policy config.Policy
	random entropy.Source
	speed  float64
}

// NewReconciler creates an offline reconciler running at speed 1.
func NewReconciler(state *State, w *world.State, pol config.Policy, rng entropy.Source) *Reconciler {
	return &Reconciler{state: state, world: w, policy: pol, random: entropy.Or(rng), speed: 1}
}

// SetSpeed sets the multiplier the offline span is replayed at, matching the
// live driver. Zero replays nothing.
func (r *Reconciler) SetSpeed(speed float64) {
	if speed < 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		speed = 0
	}
	r.speed = speed
}

// gameTime scales a wall-clock span by the speed multiplier.
func (r *Reconciler) gameTime(offline time.Duration) time.Duration {
	if r.speed == 1 {
		return offline
	}
	return time.Duration(float64(offline) * r.speed)
}

// Reconcile covers the span from the persisted clock instant to now. Every
// subsystem gets at most one batched call; a failing subsystem is skipped and
// the rest still reconcile. The clock instant always ends at now.
func (r *Reconciler) Reconcile(now time.Time) OfflineSummary {
	offline := now.Sub(r.state.LastUpdate)
	if offline < 0 || r.state.LastUpdate.IsZero() {
		offline = 0
	}
	cycles := int64(offline / CycleDuration)
	game := r.gameTime(offline)
	if cycles == 0 {
		game = 0
	}
	scaled := int64(game / CycleDuration)
	summary := OfflineSummary{
		TimeOffline:  offline,
		Cycles:       cycles,
		GameTime:     game,
		Scaled:       scaled,
		ReconciledAt: now,
	}

	if scaled > 0 {
		r.contracts(&summary)
		r.scriptIncome(&summary)
		r.reputation(&summary)
		r.hacknet(&summary)
		for _, step := range r.world.OfflineSteps() {
			if !step.Present() {
				continue
			}
			if err := guard(step.Name, func() error { return step.Process(scaled) }); err != nil {
				r.skip(&summary, step.Name, err)
			}
		}
	}

	r.state.Playtime.Add(offline)
	if now.After(r.state.LastUpdate) || r.state.LastUpdate.IsZero() {
		r.state.LastUpdate = now
	}

	slog.Info("offline progress reconciled",
		"offline", offline.Round(time.Second),
		"cycles", cycles,
		"scaled", scaled,
		"script_income", summary.IncomeFromScripts,
		"reputation", summary.ReputationGained,
		"contracts", summary.ContractsGenerated,
		"skipped", len(summary.Skipped),
	)
	if cycles > 0 {
		r.state.Record(CategoryOffline, summary.String())
	}
	return summary
}

func (r *Reconciler) contracts(s *OfflineSummary) {
	gen := r.world.Contracts
	if gen == nil {
		return
	}
	n, estimated := OfflineContracts(s.GameTime, r.policy, r.random)
	s.ContractsEstimated = estimated
	err := guard("contracts", func() error {
		for i := int64(0); i < n; i++ {
			if err := gen.GenerateContract(); err != nil {
				return err
			}
			s.ContractsGenerated++
		}
		return nil
	})
	if err != nil {
		r.skip(s, "contracts", err)
	}
}

// scriptIncome uses the wall-clock span: the income rate is measured per unit
// of playtime, which accrues in wall time and so already carries the speed.
func (r *Reconciler) scriptIncome(s *OfflineSummary) {
	l := r.world.Ledger
	if l == nil {
		return
	}
	income := l.OfflineScriptIncome(s.TimeOffline, r.state.Playtime.SinceReset, r.policy.OfflineIncomeDiscount)
	if income > 0 {
		l.Gain(economy.SourceHacking, income)
	}
	s.IncomeFromScripts = income
}

// reputation runs active work for the whole span, or, when there is no active
// work, grants passive faction reputation. Never both.
func (r *Reconciler) reputation(s *OfflineSummary) {
	if w := r.world.Work; w != nil {
		s.WorkProcessed = true
		if err := guard("work", func() error { return w.Process(s.Scaled) }); err != nil {
			r.skip(s, "work", err)
		}
		return
	}
	if r.world.Factions == nil {
		return
	}
	err := guard("factions", func() error {
		s.ReputationGained = r.world.Factions.OfflineGain(s.Scaled)
		return nil
	})
	if err != nil {
		r.skip(s, "factions", err)
	}
}

func (r *Reconciler) hacknet(s *OfflineSummary) {
	h := r.world.Hacknet
	if h == nil {
		return
	}
	err := guard("hacknet", func() error {
		produced, err := h.Produce(s.Scaled)
		s.HacknetProduction = produced
		s.HacknetUnit = h.Unit()
		return err
	})
	if err != nil {
		r.skip(s, "hacknet", err)
	}
}

func (r *Reconciler) skip(s *OfflineSummary, name string, err error) {
	slog.Error("offline progress skipped", "subsystem", name, "error", err)
	s.Skipped = append(s.Skipped, name)
	r.state.Record(CategoryDiagnostic, fmt.Sprintf("offline: %v", err))
}

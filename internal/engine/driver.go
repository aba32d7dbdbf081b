package engine

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/talgya/idle-engine/internal/world"
)

// TickReport describes one live tick.
type TickReport struct {
	Cycles   int64    // wall-clock cycles handed to the tick
	Scaled   int64    // cycles after the speed multiplier
	Fired    []Firing // counters that came due
	Produced float64  // hacknet production
	Errors   []error
}

// Driver runs live ticks: playtime, subsystem fan-out, counters, script
// bookkeeping, and hacknet production, always in that order.
type Driver struct {
	state *State
	world *world.State

	speed float64
	carry float64 // fractional scaled cycles not yet handed out
}

// NewDriver creates a live tick driver running at speed 1.
func NewDriver(state *State, w *world.State) *Driver {
	return &Driver{state: state, world: w, speed: 1}
}

// Speed returns the current speed multiplier.
func (d *Driver) Speed() float64 { return d.speed }

// SetSpeed changes the multiplier applied to cycles before fan-out. Zero pauses
// the simulation; negative and non-finite values are treated as zero.
func (d *Driver) SetSpeed(speed float64) {
	if speed < 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		speed = 0
	}
	d.speed = speed
	d.carry = 0
}

// scale applies the speed multiplier, carrying the fractional part forward so
// that no cycle is lost across ticks.
func (d *Driver) scale(numCycles int64) int64 {
	if d.speed == 1 {
		return numCycles
	}
	exact := float64(numCycles)*d.speed + d.carry
	whole := math.Floor(exact)
	d.carry = exact - whole
	return int64(whole)
}

// RunTick processes numCycles elapsed cycles. Values < 1 are a no-op.
func (d *Driver) RunTick(numCycles int64) TickReport {
	if numCycles < 1 {
		return TickReport{}
	}

	d.state.Playtime.Add(time.Duration(numCycles) * CycleDuration)

	n := d.scale(numCycles)
	report := TickReport{Cycles: numCycles, Scaled: n}
	d.state.Cycles += uint64(n)

	if n > 0 {
		for _, step := range d.world.FanOut() {
			if !step.Present() {
				continue
			}
			if err := guard(step.Name, func() error { return step.Process(n) }); err != nil {
				d.fail(&report, err)
			}
		}
	}

	// Autosave keeps wall time, so it still runs while paused.
	d.state.Counters.DecrementAll(n)
	d.state.Counters.DecrementWall(numCycles)
	report.Fired = d.state.Counters.CheckAndFire()
	for _, f := range report.Fired {
		if f.Err != nil {
			report.Errors = append(report.Errors, f.Err)
			d.state.Record(CategoryDiagnostic, f.Err.Error())
		}
	}
	if n == 0 {
		return report
	}

	if s := d.world.Scripts; s != nil {
		err := guard("scripts", func() error {
			s.UpdateOnlineTime(n)
			return nil
		})
		if err != nil {
			d.fail(&report, err)
		}
	}

	if h := d.world.Hacknet; h != nil {
		err := guard("hacknet", func() error {
			produced, err := h.Produce(n)
			report.Produced = produced
			return err
		})
		if err != nil {
			d.fail(&report, err)
		}
	}

	return report
}

func (d *Driver) fail(report *TickReport, err error) {
	slog.Error("subsystem failed during tick", "cycle", d.state.Cycles, "error", err)
	report.Errors = append(report.Errors, err)
	d.state.Record(CategoryDiagnostic, fmt.Sprintf("tick: %v", err))
}

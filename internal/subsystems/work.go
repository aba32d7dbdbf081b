package subsystems

import (
	"fmt"

	"github.com/talgya/idle-engine/internal/economy"
	"github.com/talgya/idle-engine/internal/social"
)

// FactionWork is active work for a faction. It earns reputation with that
// faction and a salary every cycle.
type FactionWork struct {
	Faction     string  `json:"faction"`
	RepPerCycle float64 `json:"rep_per_cycle"`
	PayPerCycle float64 `json:"pay_per_cycle"`
	Cycles      int64   `json:"cycles"`

	factions *social.Registry
	ledger   *economy.Ledger
}

// NewFactionWork starts work for the named faction.
func NewFactionWork(factions *social.Registry, ledger *economy.Ledger, faction string, rep, pay float64) *FactionWork {
	return &FactionWork{
		Faction:     faction,
		RepPerCycle: rep,
		PayPerCycle: pay,
		factions:    factions,
		ledger:      ledger,
	}
}

// Attach rebinds a restored session to the live registry and ledger.
func (w *FactionWork) Attach(factions *social.Registry, ledger *economy.Ledger) {
	w.factions = factions
	w.ledger = ledger
}

// FactionName returns the faction the work is for.
func (w *FactionWork) FactionName() string {
	return w.Faction
}

// Process credits reputation and salary for the elapsed cycles.
func (w *FactionWork) Process(numCycles int64) error {
	if numCycles <= 0 {
		return nil
	}
	f := w.factions.Get(w.Faction)
	if f == nil {
		return fmt.Errorf("work: unknown faction %q", w.Faction)
	}
	n := float64(numCycles)
	f.Reputation += w.RepPerCycle * n * (1 + f.Favor/100)
	if w.ledger != nil && w.PayPerCycle != 0 {
		w.ledger.Gain(economy.SourceWork, w.PayPerCycle*n)
	}
	w.Cycles += numCycles
	return nil
}

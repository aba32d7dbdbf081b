package subsystems

import "github.com/talgya/idle-engine/internal/economy"

// Script is a running hacking script.
type Script struct {
	Name           string  `json:"name"`
	Host           string  `json:"host"`
	OnlineCycles   int64   `json:"online_cycles"`
	IncomePerCycle float64 `json:"income_per_cycle"`
}

// OnlineSeconds returns how long the script has been running.
func (s *Script) OnlineSeconds() float64 {
	return float64(s.OnlineCycles) * CycleSeconds
}

// Scripts tracks the online time of running scripts and credits their income.
// Scripts do not run offline; their income is estimated separately.
type Scripts struct {
	Running []*Script `json:"running"`

	ledger *economy.Ledger
}

// NewScripts creates a script table crediting the given ledger.
func NewScripts(ledger *economy.Ledger, running ...*Script) *Scripts {
	return &Scripts{Running: running, ledger: ledger}
}

// Attach rebinds a restored script table to the live ledger.
func (s *Scripts) Attach(ledger *economy.Ledger) {
	s.ledger = ledger
}

// UpdateOnlineTime advances every script's clock and books its income.
func (s *Scripts) UpdateOnlineTime(numCycles int64) {
	if numCycles <= 0 {
		return
	}
	var income float64
	for _, sc := range s.Running {
		sc.OnlineCycles += numCycles
		income += sc.IncomePerCycle * float64(numCycles)
	}
	if s.ledger != nil && income != 0 {
		s.ledger.Gain(economy.SourceHacking, income)
	}
}

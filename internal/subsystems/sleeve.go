package subsystems

import "math"

// Sleeve recovers from shock and gains synchronization over time. Both values
// are clamped to [0, 100].
type Sleeve struct {
	Shock        float64 `json:"shock"`
	Sync         float64 `json:"sync"`
	ShockDecay   float64 `json:"shock_decay"` // per cycle
	SyncPerCycle float64 `json:"sync_per_cycle"`
}

// Process moves shock and sync toward their bounds.
func (s *Sleeve) Process(numCycles int64) error {
	if numCycles <= 0 {
		return nil
	}
	n := float64(numCycles)
	s.Shock = math.Max(0, s.Shock-s.ShockDecay*n)
	s.Sync = math.Min(100, s.Sync+s.SyncPerCycle*n)
	return nil
}

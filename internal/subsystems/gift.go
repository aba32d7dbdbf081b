package subsystems

import "math"

// Gift charges toward a maximum at a fixed rate per cycle.
type Gift struct {
	Charge         float64 `json:"charge"`
	Max            float64 `json:"max"`
	ChargePerCycle float64 `json:"charge_per_cycle"`
}

// Process adds charge, clamped to Max.
func (g *Gift) Process(numCycles int64) error {
	if numCycles <= 0 {
		return nil
	}
	g.Charge = math.Min(g.Max, g.Charge+g.ChargePerCycle*float64(numCycles))
	return nil
}

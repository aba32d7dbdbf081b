package subsystems

// Gang earns respect and territory power at fixed per-cycle rates.
type Gang struct {
	Respect         float64 `json:"respect"`
	RespectPerCycle float64 `json:"respect_per_cycle"`
	Power           float64 `json:"power"`
	PowerPerCycle   float64 `json:"power_per_cycle"`
}

// Process credits respect and power for the elapsed cycles.
func (g *Gang) Process(numCycles int64) error {
	if numCycles <= 0 {
		return nil
	}
	n := float64(numCycles)
	g.Respect += g.RespectPerCycle * n
	g.Power += g.PowerPerCycle * n
	return nil
}

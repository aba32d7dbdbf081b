package world

import "fmt"

// Step is one entry of the fan-out list: a presence check paired with the call
// to make when the subsystem is present.
type Step struct {
	Name    string
	Present func() bool
	Process func(numCycles int64) error
}

// FanOut returns the live per-tick subsystem steps in their fixed order:
// terminal, work, stock market, gang, gift, corporation, bladeburner, worm, sleeves.
// Corporation and bladeburner only accumulate here; their Apply runs on the
// mechanics counter.
func (s *State) FanOut() []Step {
	steps := []Step{
		processStep("terminal", s.Terminal),
		processStep("work", s.Work),
		processStep("stocks", s.Stocks),
		processStep("gang", s.Gang),
		processStep("gift", s.Gift),
		accumulateStep("corporation", s.Corporation),
		accumulateStep("bladeburner", s.Bladeburner),
		processStep("worm", s.Worm),
	}
	return append(steps, s.sleeveSteps()...)
}

// OfflineSteps returns the subsystems given a single batched call during
// offline reconciliation, in order: stock market, gang, corporation,
// bladeburner, gift, sleeves. Work and hacknet are handled separately.
func (s *State) OfflineSteps() []Step {
	steps := []Step{
		processStep("stocks", s.Stocks),
		processStep("gang", s.Gang),
		accumulateStep("corporation", s.Corporation),
		accumulateStep("bladeburner", s.Bladeburner),
		processStep("gift", s.Gift),
	}
	return append(steps, s.sleeveSteps()...)
}

func (s *State) sleeveSteps() []Step {
	steps := make([]Step, 0, len(s.Sleeves))
	for i, sl := range s.Sleeves {
		steps = append(steps, processStep(fmt.Sprintf("sleeve[%d]", i), sl))
	}
	return steps
}

func processStep(name string, p Processor) Step {
	return Step{
		Name:    name,
		Present: func() bool { return !isNil(p) },
		Process: func(n int64) error { return p.Process(n) },
	}
}

func accumulateStep(name string, a Accumulator) Step {
	return Step{
		Name:    name,
		Present: func() bool { return !isNil(a) },
		Process: func(n int64) error {
			a.Accumulate(n)
			return nil
		},
	}
}

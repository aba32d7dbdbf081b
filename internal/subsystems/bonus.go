package subsystems

import "fmt"

// MaxBonusMultiplier caps how many banked state steps one Apply may spend.
const MaxBonusMultiplier = 10

// BonusBank stores cycles on every tick and spends them in whole state steps.
// Cycles banked while offline become bonus time, spent up to
// MaxBonusMultiplier steps per Apply.
type BonusBank struct {
	Name           string `json:"name"`
	Stored         int64  `json:"stored"`
	CyclesPerState int64  `json:"cycles_per_state"`
	States         int64  `json:"states"`

	// OnState runs once per completed state step.
	OnState func(step int64) error `json:"-"`
}

// NewBonusBank creates a bank that completes one state every cyclesPerState cycles.
func NewBonusBank(name string, cyclesPerState int64, onState func(int64) error) *BonusBank {
	if cyclesPerState <= 0 {
		cyclesPerState = 1
	}
	return &BonusBank{Name: name, CyclesPerState: cyclesPerState, OnState: onState}
}

// Accumulate banks cycles.
func (b *BonusBank) Accumulate(numCycles int64) {
	if numCycles > 0 {
		b.Stored += numCycles
	}
}

// Apply spends banked cycles in whole state steps.
func (b *BonusBank) Apply() error {
	if b.CyclesPerState <= 0 {
		return fmt.Errorf("%s: cycles per state must be positive", b.Name)
	}
	steps := b.Stored / b.CyclesPerState
	if steps > MaxBonusMultiplier {
		steps = MaxBonusMultiplier
	}
	for i := int64(0); i < steps; i++ {
		b.Stored -= b.CyclesPerState
		b.States++
		if b.OnState != nil {
			if err := b.OnState(b.States); err != nil {
				return fmt.Errorf("%s state %d: %w", b.Name, b.States, err)
			}
		}
	}
	return nil
}

// BonusTime returns the banked time in seconds.
func (b *BonusBank) BonusTime() float64 {
	return float64(b.Stored) * CycleSeconds
}

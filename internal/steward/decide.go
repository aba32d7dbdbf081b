package steward

import (
	"fmt"
	"time"
)

// Actions the steward may take.
const (
	ActionNone  = "none"
	ActionSave  = "save"
	ActionSlow  = "slow"
	ActionAlert = "alert"
)

// Policy tunes the decision rules.
type Policy struct {
	// SaveEvery forces a manual save when autosave is off and the last save is older.
	SaveEvery time.Duration
	// MaxSpeed is the speed the steward drops back to while ticks keep failing.
	MaxSpeed float64
	// ErrorStreak is how many consecutive failing observations trigger a slowdown.
	ErrorStreak int
}

// DefaultPolicy returns the built-in rules.
func DefaultPolicy() Policy {
	return Policy{
		SaveEvery:   10 * time.Minute,
		MaxSpeed:    1,
		ErrorStreak: 3,
	}
}

// Decision is one corrective action with its rationale.
type Decision struct {
	Action    string  `json:"action"`
	Rationale string  `json:"rationale"`
	Speed     float64 `json:"speed,omitempty"`
}

// Decide picks at most one action. Doing nothing is the usual outcome.
func Decide(snap *Snapshot, h *Health, mem *CycleMemory, pol Policy) Decision {
	if h.Stalled {
		return Decision{Action: ActionAlert, Rationale: "engine reports running but cycles did not advance"}
	}

	if h.TickErrors > 0 && snap.Status.Speed > pol.MaxSpeed && mem.ErrorStreak()+1 >= pol.ErrorStreak {
		return Decision{
			Action:    ActionSlow,
			Speed:     pol.MaxSpeed,
			Rationale: fmt.Sprintf("ticks failing for %d observations at speed %.2f", mem.ErrorStreak()+1, snap.Status.Speed),
		}
	}

	if h.AutosaveOff && (!h.Saved || h.SinceLastSave >= pol.SaveEvery) {
		return Decision{Action: ActionSave, Rationale: "autosave disabled and no recent save"}
	}

	return Decision{Action: ActionNone, Rationale: fmt.Sprintf("health %s", h.Level)}
}

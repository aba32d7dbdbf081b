package steward

import (
	"context"
	"log/slog"
)

// Steward ties observation, triage, decision and action together.
type Steward struct {
	Observer *Observer
	Actor    *Actor
	Memory   *CycleMemory
	Policy   Policy
}

// RunCycle executes one observe, decide, act cycle and records it.
func (s *Steward) RunCycle(ctx context.Context) (Decision, error) {
	snap, err := s.Observer.Observe(ctx)
	if err != nil {
		return Decision{}, err
	}

	h := Triage(snap, s.Memory.Last(), s.Memory.LastSave())
	d := Decide(snap, h, s.Memory, s.Policy)
	slog.Info("steward decision",
		"cycles", snap.Status.Cycles,
		"level", h.Level,
		"cycles_per_sec", h.CyclesPerSecond,
		"action", d.Action,
		"rationale", d.Rationale,
	)

	if err := s.Actor.Act(ctx, d); err != nil {
		return d, err
	}
	if d.Action == ActionAlert {
		slog.Warn("steward alert", "rationale", d.Rationale)
	}

	s.Memory.Record(CycleRecord{
		At:         snap.At,
		Cycles:     snap.Status.Cycles,
		TickErrors: h.TickErrors,
		Level:      h.Level,
		Action:     d.Action,
		Rationale:  d.Rationale,
	})
	return d, nil
}

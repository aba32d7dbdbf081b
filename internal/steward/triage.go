package steward

import (
	"time"

	"github.com/talgya/idle-engine/internal/engine"
)

// Health levels, most severe first.
const (
	LevelCritical = "CRITICAL"
	LevelWarning  = "WARNING"
	LevelHealthy  = "HEALTHY"
)

// Health holds diagnostic signals derived from a snapshot and the previous
// observation. Computed deterministically before any decision.
type Health struct {
	Stalled         bool          // running, yet cycles did not advance since last observation
	TickErrors      int           // failures in the last tick
	Diagnostics     int           // diagnostic events in the recent log
	AutosaveOff     bool          // autosave disabled in settings
	Saved           bool          // any save is known
	SinceLastSave   time.Duration // since the newest autosave event, or since the steward's last save
	CyclesPerSecond float64       // observed rate since last observation
	Level           string
}

// Triage computes Health from the snapshot and the previous record, if any.
func Triage(snap *Snapshot, prev *CycleRecord, lastSave time.Time) *Health {
	h := &Health{
		TickErrors:  snap.Status.Errors,
		AutosaveOff: snap.Settings.AutosaveSeconds == 0,
	}

	for _, e := range snap.Events {
		switch e.Category {
		case engine.CategoryDiagnostic:
			h.Diagnostics++
		case engine.CategoryAutosave:
			if e.At.After(lastSave) {
				lastSave = e.At
			}
		}
	}
	if !lastSave.IsZero() {
		h.Saved = true
		h.SinceLastSave = snap.At.Sub(lastSave)
	}

	if prev != nil {
		elapsed := snap.At.Sub(prev.At).Seconds()
		if elapsed > 0 && snap.Status.Cycles >= prev.Cycles {
			h.CyclesPerSecond = float64(snap.Status.Cycles-prev.Cycles) / elapsed
		}
		h.Stalled = snap.Status.Running && snap.Status.Speed > 0 && snap.Status.Cycles == prev.Cycles
	}

	switch {
	case h.Stalled:
		h.Level = LevelCritical
	case h.TickErrors > 0 || h.Diagnostics > 0 || h.AutosaveOff:
		h.Level = LevelWarning
	default:
		h.Level = LevelHealthy
	}
	return h
}

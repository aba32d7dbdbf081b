package engine

import (
	"time"
)

// maxEvents bounds the in-memory event log.
const maxEvents = 1000

// Event categories.
const (
	CategoryAutosave   = "autosave"
	CategoryFaction    = "faction"
	CategoryContract   = "contract"
	CategoryOffline    = "offline"
	CategoryDiagnostic = "diagnostic"
	CategoryEngine     = "engine"
)

// Event is a notable occurrence reported to the presentation layer.
type Event struct {
	Tick        uint64    `json:"tick" db:"tick"`
	At          time.Time `json:"at" db:"at"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category" db:"category"`
}

// Playtime holds the cumulative playtime counters.
type Playtime struct {
	Total           time.Duration `json:"total"`
	SinceReset      time.Duration `json:"since_reset"`       // since the last prestige
	SinceMajorReset time.Duration `json:"since_major_reset"` // since the last major reset
}

// Add credits d to every counter.
func (p *Playtime) Add(d time.Duration) {
	if d <= 0 {
		return
	}
	p.Total += d
	p.SinceReset += d
	p.SinceMajorReset += d
}

// State is the scheduling state owned by the engine: the persisted clock
// instant, the playtime counters, the counter table, and the event log.
type State struct {
	LastUpdate time.Time
	Playtime   Playtime
	Cycles     uint64 // simulation cycles processed, monotonic
	Counters   *CounterTable
	Events     []Event

	// Notify, when set, observes every recorded event.
	Notify func(Event)
}

// NewState creates a fresh state anchored at now.
func NewState(now time.Time, counters *CounterTable) *State {
	if counters == nil {
		counters = NewCounterTable(0)
	}
	return &State{
		LastUpdate: now,
		Counters:   counters,
	}
}

// Record appends an event to the log, trimming it to the most recent entries.
func (s *State) Record(category, description string) Event {
	ev := Event{
		Tick:        s.Cycles,
		At:          s.LastUpdate,
		Description: description,
		Category:    category,
	}
	s.Events = append(s.Events, ev)
	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}
	if s.Notify != nil {
		s.Notify(ev)
	}
	return ev
}

// DrainEvents returns and clears the event log.
func (s *State) DrainEvents() []Event {
	out := s.Events
	s.Events = nil
	return out
}

// Prestige resets the since-reset playtime counter.
func (s *State) Prestige() {
	s.Playtime.SinceReset = 0
}

// MajorReset resets both since-reset playtime counters.
func (s *State) MajorReset() {
	s.Playtime.SinceReset = 0
	s.Playtime.SinceMajorReset = 0
}

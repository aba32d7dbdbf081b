package config

import "sync"

// Settings are the player-adjustable options read by the scheduler when a
// counter reloads. The API goroutine writes them while the tick loop reads.
type Settings struct {
	mu              sync.RWMutex
	autosaveSeconds int
}

// NewSettings creates settings with the given autosave interval in wall-clock
// seconds; the speed multiplier does not shorten it.
func NewSettings(autosaveSeconds int) *Settings {
	return &Settings{autosaveSeconds: autosaveSeconds}
}

// AutosaveSeconds returns the autosave interval. Zero means autosave is disabled.
func (s *Settings) AutosaveSeconds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.autosaveSeconds
}

// SetAutosaveSeconds changes the autosave interval. Negative values disable autosave.
func (s *Settings) SetAutosaveSeconds(n int) {
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	s.autosaveSeconds = n
	s.mu.Unlock()
}

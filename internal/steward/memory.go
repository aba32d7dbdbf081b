package steward

import (
	"encoding/json"
	"log/slog"
	"os"
	"time"
)

const maxRecords = 10

// CycleRecord captures what happened in a single steward cycle.
type CycleRecord struct {
	At         time.Time `json:"at"`
	Cycles     uint64    `json:"cycles"`
	TickErrors int       `json:"tick_errors"`
	Level      string    `json:"level"`
	Action     string    `json:"action"`
	Rationale  string    `json:"rationale,omitempty"`
}

// CycleMemory keeps the most recent steward cycle records.
type CycleMemory struct {
	Records []CycleRecord `json:"records"`
}

// LoadMemory reads the memory file. Returns empty memory if it is missing or corrupt.
func LoadMemory(path string) *CycleMemory {
	data, err := os.ReadFile(path)
	if err != nil {
		return &CycleMemory{}
	}
	var mem CycleMemory
	if err := json.Unmarshal(data, &mem); err != nil {
		slog.Warn("steward memory corrupted, starting fresh", "error", err)
		return &CycleMemory{}
	}
	return &mem
}

// Save writes the memory to path.
func (m *CycleMemory) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Record adds a cycle record, trimming to maxRecords.
func (m *CycleMemory) Record(r CycleRecord) {
	m.Records = append(m.Records, r)
	if len(m.Records) > maxRecords {
		m.Records = m.Records[len(m.Records)-maxRecords:]
	}
}

// Last returns the newest record, or nil.
func (m *CycleMemory) Last() *CycleRecord {
	if len(m.Records) == 0 {
		return nil
	}
	return &m.Records[len(m.Records)-1]
}

// LastSave returns when the steward last saved, or the zero time.
func (m *CycleMemory) LastSave() time.Time {
	for i := len(m.Records) - 1; i >= 0; i-- {
		if m.Records[i].Action == ActionSave {
			return m.Records[i].At
		}
	}
	return time.Time{}
}

// ErrorStreak counts the newest consecutive records with tick errors.
func (m *CycleMemory) ErrorStreak() int {
	n := 0
	for i := len(m.Records) - 1; i >= 0; i-- {
		if m.Records[i].TickErrors == 0 {
			break
		}
		n++
	}
	return n
}

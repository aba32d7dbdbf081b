package subsystems

import (
	"fmt"
	"log/slog"
)

// Action is one queued terminal command that needs a number of cycles to complete.
type Action struct {
	Name      string `json:"name"`
	Cycles    int64  `json:"cycles"`
	Remaining int64  `json:"remaining"`
}

// Terminal runs queued actions one after another.
type Terminal struct {
	Queue     []*Action `json:"queue"`
	Completed []string  `json:"completed"`
}

// Enqueue adds an action needing the given number of cycles.
func (t *Terminal) Enqueue(name string, cycles int64) error {
	if cycles <= 0 {
		return fmt.Errorf("terminal action %q: cycles must be positive, got %d", name, cycles)
	}
	t.Queue = append(t.Queue, &Action{Name: name, Cycles: cycles, Remaining: cycles})
	return nil
}

// Process spends cycles on the head of the queue, carrying leftovers to the
// next action.
func (t *Terminal) Process(numCycles int64) error {
	for numCycles > 0 && len(t.Queue) > 0 {
		head := t.Queue[0]
		if head.Remaining > numCycles {
			head.Remaining -= numCycles
			return nil
		}
		numCycles -= head.Remaining
		head.Remaining = 0
		t.Completed = append(t.Completed, head.Name)
		t.Queue = t.Queue[1:]
		slog.Debug("terminal action complete", "action", head.Name)
	}
	return nil
}

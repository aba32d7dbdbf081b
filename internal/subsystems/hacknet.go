package subsystems

import (
	"math"

	"github.com/talgya/idle-engine/internal/economy"
)

// Hacknet production units.
const (
	UnitMoney  = "money"
	UnitHashes = "hashes"
)

// Node is one hacknet node.
type Node struct {
	Level int `json:"level"`
	RAM   int `json:"ram"`
	Cores int `json:"cores"`
}

// PerSecond returns the node's production rate.
func (n Node) PerSecond() float64 {
	if n.Level <= 0 {
		return 0
	}
	return 1.5 * float64(n.Level) * math.Pow(1.035, float64(n.RAM-1)) * (float64(n.Cores+5) / 6)
}

// Hacknet is a farm of nodes. In money mode production goes to the ledger;
// in hash mode it fills a capped hash store.
type Hacknet struct {
	Nodes        []Node  `json:"nodes"`
	HashMode     bool    `json:"hash_mode"`
	Hashes       float64 `json:"hashes"`
	HashCapacity float64 `json:"hash_capacity"`
	Multiplier   float64 `json:"multiplier"`

	ledger *economy.Ledger
}

// NewHacknet creates a farm that credits money to the given ledger.
func NewHacknet(ledger *economy.Ledger, nodes ...Node) *Hacknet {
	return &Hacknet{Nodes: nodes, Multiplier: 1, ledger: ledger}
}

// Attach rebinds a restored farm to the live ledger.
func (h *Hacknet) Attach(ledger *economy.Ledger) {
	h.ledger = ledger
}

// Unit names what Produce returns.
func (h *Hacknet) Unit() string {
	if h.HashMode {
		return UnitHashes
	}
	return UnitMoney
}

// Produce runs the farm for numCycles and returns the amount produced.
// Hashes beyond capacity are lost and not counted.
func (h *Hacknet) Produce(numCycles int64) (float64, error) {
	if numCycles <= 0 {
		return 0, nil
	}
	var rate float64
	for _, n := range h.Nodes {
		rate += n.PerSecond()
	}
	amount := rate * h.Multiplier * float64(numCycles) * CycleSeconds

	if h.HashMode {
		before := h.Hashes
		h.Hashes = math.Min(h.HashCapacity, h.Hashes+amount)
		return h.Hashes - before, nil
	}
	if h.ledger != nil {
		h.ledger.Gain(economy.SourceHacknet, amount)
	}
	return amount, nil
}

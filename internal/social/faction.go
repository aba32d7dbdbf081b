// Package social tracks faction membership, favor, and reputation.
// Reputation grows passively while the player is a member and not working for the faction.
package social

import "log/slog"

// DefaultPassiveRate is the reputation gained per cycle by a member faction at zero favor.
const DefaultPassiveRate = 1.0 / 60

// Faction is one organization the player can be invited to and earn reputation with.
type Faction struct {
	Name       string  `json:"name"`
	Favor      float64 `json:"favor"`
	Reputation float64 `json:"reputation"`
	Member     bool    `json:"member"`
	Invited    bool    `json:"invited"`
	OffersWork bool    `json:"offers_work"` // Special and gang factions never offer work
}

// Eligible reports whether the faction earns passive reputation.
func (f *Faction) Eligible() bool {
	return f != nil && f.Member && f.OffersWork
}

// Registry holds factions in a fixed order. Iteration order never depends on
// insertion timing or save-file order.
type Registry struct {
	BaseRate float64

	order  []string
	byName map[string]*Faction
}

// NewRegistry creates a registry from the given factions, keeping their order.
func NewRegistry(factions ...*Faction) *Registry {
	r := &Registry{
		BaseRate: DefaultPassiveRate,
		byName:   make(map[string]*Faction, len(factions)),
	}
	for _, f := range factions {
		r.Add(f)
	}
	return r
}

// Add appends a faction. Adding a name twice replaces the stored faction in place.
func (r *Registry) Add(f *Faction) {
	if f == nil {
		return
	}
	if _, ok := r.byName[f.Name]; !ok {
		r.order = append(r.order, f.Name)
	}
	r.byName[f.Name] = f
}

// Get returns the named faction or nil.
func (r *Registry) Get(name string) *Faction {
	return r.byName[name]
}

// All returns factions in registry order.
func (r *Registry) All() []*Faction {
	out := make([]*Faction, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// RepRate returns the passive reputation per cycle for a faction with the given favor.
func (r *Registry) RepRate(favor float64) float64 {
	if favor < 0 {
		favor = 0
	}
	return r.BaseRate * (1 + favor/100)
}

// Invite delivers an invitation. It returns false when the faction is unknown,
// already joined, or already invited.
func (r *Registry) Invite(name string) bool {
	f := r.byName[name]
	if f == nil || f.Member || f.Invited {
		return false
	}
	f.Invited = true
	slog.Info("faction invitation received", "faction", name)
	return true
}

// Join accepts a pending invitation.
func (r *Registry) Join(name string) bool {
	f := r.byName[name]
	if f == nil || f.Member {
		return false
	}
	f.Member = true
	f.Invited = false
	return true
}

// PassiveGain applies passive reputation for the given number of cycles to every
// eligible faction except the one currently being worked for.
// Returns the total reputation gained.
func (r *Registry) PassiveGain(cycles int64, exclude string) float64 {
	if cycles <= 0 {
		return 0
	}
	var total float64
	for _, name := range r.order {
		f := r.byName[name]
		if name == exclude || !f.Eligible() {
			continue
		}
		gain := r.RepRate(f.Favor) * float64(cycles)
		f.Reputation += gain
		total += gain
	}
	return total
}

// OfflineGain credits reputation for an offline period. Each eligible faction
// earns its favor-based rate times cycles, divided evenly across the number of
// eligible factions. Returns the total reputation gained.
func (r *Registry) OfflineGain(cycles int64) float64 {
	if cycles <= 0 {
		return 0
	}
	var eligible []*Faction
	for _, name := range r.order {
		if f := r.byName[name]; f.Eligible() {
			eligible = append(eligible, f)
		}
	}
	if len(eligible) == 0 {
		return 0
	}

	var total float64
	share := float64(len(eligible))
	for _, f := range eligible {
		gain := r.RepRate(f.Favor) * float64(cycles) / share
		f.Reputation += gain
		total += gain
	}
	return total
}

// Package world holds the handles to every subsystem the simulation clock drives.
// A nil handle means the mechanic is not unlocked yet; the scheduler treats it as a no-op.
// Typed nil pointers count as absent too (see DropNilHandles).
package world

import (
	"reflect"

	"github.com/talgya/idle-engine/internal/economy"
	"github.com/talgya/idle-engine/internal/social"
)

// Processor is the basic subsystem contract. Process must accept any
// non-negative cycle count in a single call, from one live cycle up to
// several days of offline cycles.
type Processor interface {
	Process(numCycles int64) error
}

// Accumulator banks cycles cheaply on every tick and spends them later in Apply.
// Corporation and bladeburner use this for their bonus-time mechanic.
type Accumulator interface {
	Accumulate(numCycles int64)
	Apply() error
}

// WorkSession is the player's active work. FactionName is empty unless the
// work is for a faction, which then earns no passive reputation.
type WorkSession interface {
	Processor
	FactionName() string
}

// ScriptClock tracks the online time of externally running scripts.
type ScriptClock interface {
	UpdateOnlineTime(numCycles int64)
}

// Producer is a subsystem whose processing yields a measurable production
// amount, such as hacknet money or hashes.
type Producer interface {
	Produce(numCycles int64) (float64, error)
	Unit() string
}

// InvitationSource evaluates which factions want to invite the player.
type InvitationSource interface {
	PendingInvitations() []string
}

// MessageSource scans for and delivers narrative messages. LateGame reports
// whether the slower late-game message cadence applies.
type MessageSource interface {
	CheckMessages() error
	LateGame() bool
}

// ContractGenerator creates one random contract.
type ContractGenerator interface {
	GenerateContract() error
}

// AchievementChecker re-evaluates achievement unlock conditions.
type AchievementChecker interface {
	CheckAchievements() error
}

// State is the closed set of collaborators observed each tick.
type State struct {
	Terminal    Processor
	Work        WorkSession
	Stocks      Processor // nil until the stock market account exists
	Gang        Processor
	Gift        Processor
	Corporation Accumulator
	Bladeburner Accumulator
	Worm        Processor
	Sleeves     []Processor

	Scripts ScriptClock
	Hacknet Producer

	Invitations  InvitationSource
	Messages     MessageSource
	Contracts    ContractGenerator
	Achievements AchievementChecker

	Factions *social.Registry
	Ledger   *economy.Ledger
}

// DropNilHandles clears handles that hold a typed nil pointer, so that every
// nil check in the scheduler sees them as absent.
func (s *State) DropNilHandles() {
	if isNil(s.Terminal) {
		s.Terminal = nil
	}
	if isNil(s.Work) {
		s.Work = nil
	}
	if isNil(s.Stocks) {
		s.Stocks = nil
	}
	if isNil(s.Gang) {
		s.Gang = nil
	}
	if isNil(s.Gift) {
		s.Gift = nil
	}
	if isNil(s.Corporation) {
		s.Corporation = nil
	}
	if isNil(s.Bladeburner) {
		s.Bladeburner = nil
	}
	if isNil(s.Worm) {
		s.Worm = nil
	}
	sleeves := s.Sleeves[:0]
	for _, sl := range s.Sleeves {
		if !isNil(sl) {
			sleeves = append(sleeves, sl)
		}
	}
	s.Sleeves = sleeves
	if isNil(s.Scripts) {
		s.Scripts = nil
	}
	if isNil(s.Hacknet) {
		s.Hacknet = nil
	}
	if isNil(s.Invitations) {
		s.Invitations = nil
	}
	if isNil(s.Messages) {
		s.Messages = nil
	}
	if isNil(s.Contracts) {
		s.Contracts = nil
	}
	if isNil(s.Achievements) {
		s.Achievements = nil
	}
}

// isNil reports whether h is nil or an interface wrapping a nil pointer.
func isNil(h any) bool {
	if h == nil {
		return true
	}
	v := reflect.ValueOf(h)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// New creates a world state with an empty faction registry and ledger.
func New() *State {
	return &State{
		Factions: social.NewRegistry(),
		Ledger:   economy.NewLedger(),
	}
}

// WorkFaction returns the faction currently being worked for, if any.
func (s *State) WorkFaction() string {
	if s.Work == nil {
		return ""
	}
	return s.Work.FactionName()
}

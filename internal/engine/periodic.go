package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/talgya/idle-engine/internal/config"
	"github.com/talgya/idle-engine/internal/entropy"
	"github.com/talgya/idle-engine/internal/world"
)

// DefaultRecheckCycles is how long a disabled counter waits before re-reading its reload.
const DefaultRecheckCycles = 300

// Saver persists the game. It is called from inside a tick, so it must not
// re-enter the engine.
type Saver interface {
	Save() error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func() error

func (f SaverFunc) Save() error { return f() }

// Periodic binds the counter actions to the world they act on.
type Periodic struct {
	Policy   config.Policy
	Settings *config.Settings
	World    *world.State
	State    *State
	Saver    Saver
	Random   entropy.Source
}

// Install registers every periodic counter on the state's table.
func (p *Periodic) Install() {
	t := p.State.Counters
	pol := p.Policy

	t.Register(CounterAutosave, p.autosaveCycles(), p.autosaveCycles, p.autosave)
	t.UseWallClock(CounterAutosave)
	t.Register(CounterInvitations, pol.InvitationCycles, Fixed(pol.InvitationCycles), p.invitations)
	t.Register(CounterPassiveRep, pol.PassiveRepCycles, Fixed(pol.PassiveRepCycles), p.passiveRep)
	t.Register(CounterMessages, pol.MessageCycles, p.messageCycles, p.messages)
	t.Register(CounterMechanics, pol.MechanicsCycles, Fixed(pol.MechanicsCycles), p.mechanics)
	t.Register(CounterContracts, pol.ContractIntervalCycles, Fixed(pol.ContractIntervalCycles), p.contract)
	t.Register(CounterAchievements, pol.AchievementFirstCycles, Fixed(pol.AchievementCycles), p.achievements)
}

// autosaveCycles converts the autosave setting to cycles. Zero disables autosave.
func (p *Periodic) autosaveCycles() int64 {
	if p.Settings == nil {
		return 0
	}
	secs := p.Settings.AutosaveSeconds()
	if secs <= 0 {
		return 0
	}
	return int64(time.Duration(secs) * time.Second / CycleDuration)
}

func (p *Periodic) autosave(int64) error {
	if p.Saver == nil {
		return nil
	}
	if err := p.Saver.Save(); err != nil {
		return err
	}
	p.State.Record(CategoryAutosave, "game saved")
	return nil
}

func (p *Periodic) invitations(int64) error {
	src := p.World.Invitations
	if src == nil || p.World.Factions == nil {
		return nil
	}
	for _, name := range src.PendingInvitations() {
		if p.World.Factions.Invite(name) {
			p.State.Record(CategoryFaction, fmt.Sprintf("invited to %s", name))
		}
	}
	return nil
}

func (p *Periodic) passiveRep(elapsed int64) error {
	if p.World.Factions == nil {
		return nil
	}
	p.World.Factions.PassiveGain(elapsed, p.World.WorkFaction())
	return nil
}

func (p *Periodic) messageCycles() int64 {
	if m := p.World.Messages; m != nil && m.LateGame() {
		return p.Policy.LateGameMessageCycles
	}
	return p.Policy.MessageCycles
}

func (p *Periodic) messages(int64) error {
	if p.World.Messages == nil {
		return nil
	}
	return p.World.Messages.CheckMessages()
}

// mechanics spends banked corporation and bladeburner cycles. Each is guarded
// on its own so a bladeburner fault does not skip the corporation.
func (p *Periodic) mechanics(int64) error {
	var errs []error
	if c := p.World.Corporation; c != nil {
		errs = append(errs, guard("corporation", c.Apply))
	}
	if b := p.World.Bladeburner; b != nil {
		errs = append(errs, guard("bladeburner", b.Apply))
	}
	return errors.Join(errs...)
}

func (p *Periodic) contract(int64) error {
	gen := p.World.Contracts
	if gen == nil {
		return nil
	}
	if entropy.Or(p.Random).Float() >= p.Policy.ContractProbability {
		return nil
	}
	if err := gen.GenerateContract(); err != nil {
		return err
	}
	p.State.Record(CategoryContract, "random contract generated")
	return nil
}

func (p *Periodic) achievements(int64) error {
	if p.World.Achievements == nil {
		return nil
	}
	return p.World.Achievements.CheckAchievements()
}

package main

import (
	"log/slog"

	"github.com/talgya/idle-engine/internal/economy"
	"github.com/talgya/idle-engine/internal/entropy"
	"github.com/talgya/idle-engine/internal/social"
	"github.com/talgya/idle-engine/internal/subsystems"
	"github.com/talgya/idle-engine/internal/world"
)

// slotName is the save slot holding the mechanics below.
const slotName = "subsystems"

// game is the set of mechanics the binary runs. It is saved as one
// compressed slot next to the engine state.
type game struct {
	Terminal     *subsystems.Terminal      `json:"terminal"`
	Work         *subsystems.FactionWork   `json:"work,omitempty"`
	Market       *subsystems.Market        `json:"market,omitempty"`
	Gang         *subsystems.Gang          `json:"gang,omitempty"`
	Corporation  *subsystems.BonusBank     `json:"corporation,omitempty"`
	Bladeburner  *subsystems.BonusBank     `json:"bladeburner,omitempty"`
	Sleeves      []*subsystems.Sleeve      `json:"sleeves"`
	Hacknet      *subsystems.Hacknet       `json:"hacknet"`
	Scripts      *subsystems.Scripts       `json:"scripts"`
	Gift         *subsystems.Gift          `json:"gift,omitempty"`
	Inbox        *subsystems.Inbox         `json:"inbox"`
	Contracts    *subsystems.ContractBoard `json:"contracts,omitempty"`
	Achievements *subsystems.Achievements  `json:"achievements"`
}

func defaultFactions() []*social.Faction {
	return []*social.Faction{
		{Name: "Sector-12", Member: true, OffersWork: true},
		{Name: "Netburners", Member: true, OffersWork: true},
		{Name: "CyberSec", OffersWork: true},
		{Name: "NiteSec", OffersWork: true},
		{Name: "Slum Snakes", OffersWork: false},
	}
}

func invitationRules() []subsystems.InvitationRule {
	return []subsystems.InvitationRule{
		{Faction: "CyberSec", MinMoney: 1e4},
		{Faction: "NiteSec", MinMoney: 1e6},
	}
}

func achievementDefs() []subsystems.Achievement {
	return []subsystems.Achievement{
		{ID: "FIRST_THOUSAND", Condition: subsystems.MoneyAtLeast(1e3)},
		{ID: "MILLIONAIRE", Condition: subsystems.MoneyAtLeast(1e6)},
		{ID: "BILLIONAIRE", Condition: subsystems.MoneyAtLeast(1e9)},
	}
}

// newGame creates a fresh set of mechanics for a new save.
func newGame(seed int64, ledger *economy.Ledger, factions *social.Registry, random entropy.Source) *game {
	g := &game{
		Terminal: &subsystems.Terminal{},
		Work:     subsystems.NewFactionWork(factions, ledger, "Sector-12", 0.05, 2),
		Market: subsystems.NewMarket(seed,
			&subsystems.Stock{Symbol: "ECP", BasePrice: 120, Volatility: 0.35, Shares: 10},
			&subsystems.Stock{Symbol: "MGCP", BasePrice: 45, Volatility: 0.2},
			&subsystems.Stock{Symbol: "BLD", BasePrice: 8, Volatility: 0.5, Shares: 100},
		),
		Gang:        &subsystems.Gang{RespectPerCycle: 0.02, PowerPerCycle: 0.001},
		Corporation: subsystems.NewBonusBank("corporation", 10, nil),
		Bladeburner: subsystems.NewBonusBank("bladeburner", 5, nil),
		Sleeves: []*subsystems.Sleeve{
			{Shock: 100, ShockDecay: 0.001, SyncPerCycle: 0.0005},
		},
		Hacknet: subsystems.NewHacknet(ledger,
			subsystems.Node{Level: 1, RAM: 1, Cores: 1},
			subsystems.Node{Level: 5, RAM: 2, Cores: 1},
		),
		Scripts: subsystems.NewScripts(ledger,
			&subsystems.Script{Name: "early-hack.js", Host: "n00dles", IncomePerCycle: 0.4},
		),
		Gift: &subsystems.Gift{Max: 100, ChargePerCycle: 0.002},
		Inbox: subsystems.NewInbox(ledger, 1e9,
			&subsystems.Message{ID: "j0.msg", Text: "Welcome. Keep your scripts running."},
			&subsystems.Message{ID: "j1.msg", Text: "They know you have a million.", MinMoney: 1e6},
		),
		Contracts:    subsystems.NewContractBoard(random, "n00dles", "foodnstuff", "sigma-cosmetics"),
		Achievements: subsystems.NewAchievements(ledger, achievementDefs()...),
	}
	_ = g.Terminal.Enqueue("scan-analyze", 25)
	return g
}

// attach rebinds a game restored from a save to the live ledger, registry and
// random source, and rebuilds anything not stored in the slot.
func (g *game) attach(ledger *economy.Ledger, factions *social.Registry, random entropy.Source) {
	if g.Terminal == nil {
		g.Terminal = &subsystems.Terminal{}
	}
	if g.Work != nil {
		g.Work.Attach(factions, ledger)
	}
	if g.Market != nil {
		g.Market.Attach()
	}
	if g.Hacknet == nil {
		g.Hacknet = subsystems.NewHacknet(ledger)
	}
	g.Hacknet.Attach(ledger)
	if g.Scripts == nil {
		g.Scripts = subsystems.NewScripts(ledger)
	}
	g.Scripts.Attach(ledger)
	if g.Inbox == nil {
		g.Inbox = subsystems.NewInbox(ledger, 1e9)
	}
	g.Inbox.Attach(ledger)
	if g.Contracts != nil {
		g.Contracts.Attach(random)
	}

	achievements := subsystems.NewAchievements(ledger, achievementDefs()...)
	if g.Achievements != nil {
		for id, ok := range g.Achievements.Unlocked {
			achievements.Unlocked[id] = ok
		}
	}
	g.Achievements = achievements
}

// hookDividends pays corporation dividends into the ledger on every state step.
func (g *game) hookDividends(ledger *economy.Ledger) {
	if g.Corporation == nil {
		return
	}
	g.Corporation.OnState = func(step int64) error {
		ledger.Gain(economy.SourceCorporation, 25)
		slog.Debug("corporation state", "step", step)
		return nil
	}
}

// wire points the world handles at the mechanics. Nil mechanics stay nil
// interfaces so the scheduler skips them.
func (g *game) wire(w *world.State, factions *social.Registry, ledger *economy.Ledger) {
	w.Terminal = g.Terminal
	if g.Work != nil {
		w.Work = g.Work
	}
	if g.Market != nil {
		w.Stocks = g.Market
	}
	if g.Gang != nil {
		w.Gang = g.Gang
	}
	if g.Gift != nil {
		w.Gift = g.Gift
	}
	if g.Corporation != nil {
		w.Corporation = g.Corporation
	}
	if g.Bladeburner != nil {
		w.Bladeburner = g.Bladeburner
	}
	w.Sleeves = w.Sleeves[:0]
	for _, s := range g.Sleeves {
		w.Sleeves = append(w.Sleeves, s)
	}
	w.Scripts = g.Scripts
	w.Hacknet = g.Hacknet
	w.Invitations = subsystems.NewInvitations(factions, ledger, invitationRules()...)
	w.Messages = g.Inbox
	if g.Contracts != nil {
		w.Contracts = g.Contracts
	}
	w.Achievements = g.Achievements
}

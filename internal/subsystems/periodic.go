package subsystems

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/idle-engine/internal/economy"
	"github.com/talgya/idle-engine/internal/entropy"
	"github.com/talgya/idle-engine/internal/social"
)

// InvitationRule invites the player to a faction once their money reaches MinMoney.
type InvitationRule struct {
	Faction  string
	MinMoney float64
}

// Invitations evaluates money thresholds against the ledger.
type Invitations struct {
	Rules []InvitationRule

	factions *social.Registry
	ledger   *economy.Ledger
}

// NewInvitations creates an invitation source.
func NewInvitations(factions *social.Registry, ledger *economy.Ledger, rules ...InvitationRule) *Invitations {
	return &Invitations{Rules: rules, factions: factions, ledger: ledger}
}

// PendingInvitations returns factions whose requirements are met and which
// have not already invited or accepted the player.
func (inv *Invitations) PendingInvitations() []string {
	var out []string
	for _, r := range inv.Rules {
		f := inv.factions.Get(r.Faction)
		if f == nil || f.Member || f.Invited {
			continue
		}
		if inv.ledger.Money >= r.MinMoney {
			out = append(out, r.Faction)
		}
	}
	return out
}

// Message is a narrative message delivered once its money threshold is met.
type Message struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	MinMoney  float64 `json:"min_money"`
	Delivered bool    `json:"delivered"`
}

// Inbox delivers messages in order.
type Inbox struct {
	Messages []*Message `json:"messages"`
	// LateGameMoney switches the inbox to the slow cadence once reached.
	LateGameMoney float64 `json:"late_game_money"`

	ledger *economy.Ledger
}

// NewInbox creates an inbox reading money from the given ledger.
func NewInbox(ledger *economy.Ledger, lateGameMoney float64, messages ...*Message) *Inbox {
	return &Inbox{Messages: messages, LateGameMoney: lateGameMoney, ledger: ledger}
}

// Attach rebinds a restored inbox to the live ledger.
func (in *Inbox) Attach(ledger *economy.Ledger) {
	in.ledger = ledger
}

// CheckMessages delivers every message whose threshold has been reached.
func (in *Inbox) CheckMessages() error {
	for _, m := range in.Messages {
		if m.Delivered || in.ledger.Money < m.MinMoney {
			continue
		}
		m.Delivered = true
		slog.Info("message delivered", "id", m.ID)
	}
	return nil
}

// LateGame reports whether the slow message cadence applies.
func (in *Inbox) LateGame() bool {
	return in.LateGameMoney > 0 && in.ledger.Money >= in.LateGameMoney
}

// Contract types a generated contract may carry.
var contractTypes = []string{
	"Find Largest Prime Factor",
	"Subarray with Maximum Sum",
	"Total Ways to Sum",
	"Spiralize Matrix",
	"Array Jumping Game",
	"Merge Overlapping Intervals",
	"Generate IP Addresses",
	"Algorithmic Stock Trader",
	"Minimum Path Sum in a Triangle",
	"Unique Paths in a Grid",
}

// Contract is a coding contract placed on a server.
type Contract struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Host  string `json:"host"`
	Tries int    `json:"tries"`
}

// ContractBoard generates contracts on random hosts.
type ContractBoard struct {
	Hosts     []string    `json:"hosts"`
	Contracts []*Contract `json:"contracts"`

	random entropy.Source
}

// NewContractBoard creates a board placing contracts on the given hosts.
func NewContractBoard(random entropy.Source, hosts ...string) *ContractBoard {
	return &ContractBoard{Hosts: hosts, random: entropy.Or(random)}
}

// Attach sets the random source of a restored board.
func (b *ContractBoard) Attach(random entropy.Source) {
	b.random = entropy.Or(random)
}

// GenerateContract places one random contract.
func (b *ContractBoard) GenerateContract() error {
	if len(b.Hosts) == 0 {
		return fmt.Errorf("contracts: no hosts to place a contract on")
	}
	c := &Contract{
		ID:    uuid.New().String(),
		Type:  contractTypes[pick(b.random, len(contractTypes))],
		Host:  b.Hosts[pick(b.random, len(b.Hosts))],
		Tries: 10,
	}
	b.Contracts = append(b.Contracts, c)
	return nil
}

func pick(src entropy.Source, n int) int {
	i := int(src.Float() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// Achievement unlocks when its condition first holds.
type Achievement struct {
	ID        string
	Condition func(*economy.Ledger) bool
}

// Achievements tracks which achievements are unlocked.
type Achievements struct {
	Defined  []Achievement   `json:"-"`
	Unlocked map[string]bool `json:"unlocked"`

	ledger *economy.Ledger
}

// NewAchievements creates an achievement checker over the given ledger.
func NewAchievements(ledger *economy.Ledger, defined ...Achievement) *Achievements {
	return &Achievements{Defined: defined, Unlocked: make(map[string]bool), ledger: ledger}
}

// CheckAchievements unlocks every achievement whose condition now holds.
func (a *Achievements) CheckAchievements() error {
	for _, def := range a.Defined {
		if a.Unlocked[def.ID] || def.Condition == nil {
			continue
		}
		if def.Condition(a.ledger) {
			a.Unlocked[def.ID] = true
			slog.Info("achievement unlocked", "id", def.ID)
		}
	}
	return nil
}

// UnlockedIDs returns the unlocked achievement ids in sorted order.
func (a *Achievements) UnlockedIDs() []string {
	ids := make([]string, 0, len(a.Unlocked))
	for id, ok := range a.Unlocked {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// MoneyAtLeast is an achievement condition on the current balance.
func MoneyAtLeast(amount float64) func(*economy.Ledger) bool {
	return func(l *economy.Ledger) bool { return l.Money >= amount }
}

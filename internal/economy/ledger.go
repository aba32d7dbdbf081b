// Package economy tracks the player's money and where it came from.
package economy

import (
	"fmt"
	"sort"
	"time"
)

// Income sources.
const (
	SourceHacking = "hacking"
	SourceHacknet = "hacknet"
	SourceStocks  = "stocks"
	SourceWork    = "work"
	SourceOffline = "offline"

	SourceCorporation = "corporation"
)

// Ledger holds the current balance and per-source totals since the last reset.
type Ledger struct {
	Money       float64            `json:"money"`
	SinceReset  map[string]float64 `json:"since_reset"`
	SinceLaunch map[string]float64 `json:"since_launch"`
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		SinceReset:  make(map[string]float64),
		SinceLaunch: make(map[string]float64),
	}
}

// Gain adds (or, for negative amounts, removes) money attributed to a source.
func (l *Ledger) Gain(source string, amount float64) {
	if l.SinceReset == nil {
		l.SinceReset = make(map[string]float64)
	}
	if l.SinceLaunch == nil {
		l.SinceLaunch = make(map[string]float64)
	}
	l.Money += amount
	l.SinceReset[source] += amount
	l.SinceLaunch[source] += amount
}

// ResetSinceReset clears the per-source totals at a prestige event.
func (l *Ledger) ResetSinceReset() {
	l.SinceReset = make(map[string]float64)
}

// ScriptRate returns the average scripted income per millisecond of active playtime.
// A zero or negative playtime yields a zero rate.
func (l *Ledger) ScriptRate(playtimeSinceReset time.Duration) float64 {
	ms := float64(playtimeSinceReset.Milliseconds())
	if ms <= 0 {
		return 0
	}
	rate := l.SinceReset[SourceHacking] / ms
	if rate < 0 {
		return 0
	}
	return rate
}

// OfflineScriptIncome estimates what running scripts earned while the process
// was not running: the average rate times the offline span times discount.
func (l *Ledger) OfflineScriptIncome(offline, playtimeSinceReset time.Duration, discount float64) float64 {
	if offline <= 0 || discount <= 0 {
		return 0
	}
	return l.ScriptRate(playtimeSinceReset) * float64(offline.Milliseconds()) * discount
}

// Sources returns the sources with recorded income since reset, sorted by name.
func (l *Ledger) Sources() []string {
	out := make([]string, 0, len(l.SinceReset))
	for s := range l.SinceReset {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (l *Ledger) String() string {
	return fmt.Sprintf("money=%.2f sources=%d", l.Money, len(l.SinceReset))
}

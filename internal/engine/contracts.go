package engine

import (
	"time"

	"github.com/talgya/idle-engine/internal/config"
	"github.com/talgya/idle-engine/internal/entropy"
)

// ContractOpportunities returns how many contract sampling opportunities fit
// in an offline span.
func ContractOpportunities(offline time.Duration, intervalCycles int64) int64 {
	if offline <= 0 || intervalCycles <= 0 {
		return 0
	}
	return int64(offline / (time.Duration(intervalCycles) * CycleDuration))
}

// OfflineContracts decides how many contracts an offline span produced. Up to
// the sampling threshold every opportunity gets its own draw; above it the
// count is opportunities * probability, with the fractional part settled by a
// single draw. estimated reports which path was taken.
func OfflineContracts(offline time.Duration, pol config.Policy, rng entropy.Source) (count int64, estimated bool) {
	rng = entropy.Or(rng)
	opportunities := ContractOpportunities(offline, pol.ContractIntervalCycles)
	if opportunities <= 0 || pol.ContractProbability <= 0 {
		return 0, false
	}

	if opportunities <= pol.ContractSampleThreshold {
		for i := int64(0); i < opportunities; i++ {
			if rng.Float() < pol.ContractProbability {
				count++
			}
		}
		return count, false
	}

	expected := float64(opportunities) * pol.ContractProbability
	count = int64(expected)
	if frac := expected - float64(count); frac > 0 && rng.Float() < frac {
		count++
	}
	return count, true
}

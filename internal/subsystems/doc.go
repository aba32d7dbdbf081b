// Package subsystems provides the reference mechanics the idle engine drives:
// a terminal action queue, faction work, a noise-driven stock market, a gang,
// bonus-time banks, sleeves, a hacknet farm, a charge gift and the periodic
// sources (invitations, messages, contracts, achievements).
//
// Every Process accepts any cycle count in one call. A batch of N cycles has
// the same effect as N single-cycle calls, so the offline reconciler can hand
// days of cycles to each mechanic at once.
package subsystems

// CycleSeconds is the length of one game cycle in seconds.
const CycleSeconds = 0.2

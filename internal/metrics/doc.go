// Package metrics exposes prometheus counters and gauges for the clock
// lifecycle: prepare outcomes, instance promotions, provider faults and the
// size of the coordinator's pending sets.
//
// A nil *Recorder is valid and records nothing, so components can take an
// optional recorder without branching.
package metrics

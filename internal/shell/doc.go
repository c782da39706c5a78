// Package shell assembles a home-screen host: the clock service, the
// dynamicbox coordinator, a provider runtime and the screen they render
// into, all driven by one event loop.
//
// A Shell can be scripted with a [Scenario], a YAML list of timed actions
// such as requesting a clock, faulting its provider or backgrounding the
// screen. Scenarios run against a fake clock for instant, deterministic
// replays or against the wall clock for live observation.
package shell

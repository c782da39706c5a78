// Package tui renders a live bubbletea view of a shell's clock lifecycle:
// a status panel for the candidate and attached clocks above a scrolling
// log of lifecycle events.
package tui

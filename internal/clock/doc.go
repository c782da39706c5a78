// Package clock models the clock the home screen is trying to show and the
// service that drives it through a widget family.
//
// A [Clock] is the desired widget: a package name, its lazily resolved
// provider id, a configuration blob and a lifecycle [State]. The [Manager]
// holds at most one candidate (being prepared) and one attached clock.
// The [Service] turns "desired widget changed" requests into the family's
// Prepare, Create and Destroy calls, and reacts to the family's upcalls
// (view ready, creation fault, fatal provider error).
//
// Everything in this package is loop-affine: call it only from the event
// loop goroutine (see package loop).
package clock

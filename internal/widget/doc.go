// Package widget coordinates the lifecycle of remotely-rendered clock
// widgets ("dynamicboxes") whose content is produced by a provider process
// and embedded into the home screen's scroll view.
//
// The [Coordinator] implements the clock family operations (Prepare,
// Configure, Create, Destroy) and correlates asynchronous provider
// notifications by provider id. It keeps four collections:
//
//   - pending creation: instances created speculatively and waiting for
//     the provider to become ready (refresh countdown or force timer)
//   - first-instance cache: a single instance pre-created at boot
//   - live view / pending deletion: embedded instances whose provider has
//     not yet reported deletion
//   - freeze set: embedded instances whose visibility thaws on resume
//
// An [Instance] is owned by exactly one of the first three at a time.
//
// # Threading
//
// A Coordinator is loop-affine. Every operation, timer callback and
// notification must run on the goroutine driving its loop.Loop; provider
// notification sources are expected to Post onto that loop.
package widget

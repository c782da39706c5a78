// Package provider supplies the provider-side collaborators of the widget
// coordinator.
//
//   - [Registry] resolves package names to provider ids from a YAML file
//   - [Watcher] reloads the registry when the file changes
//   - [Launcher] starts and stops real provider processes
//   - [Runtime] simulates providers in-process: it creates instances,
//     reports creation and deletion on the event loop, streams content
//     updates and injects faults
//   - [Screen] is a minimal presentation layer the runtime's instances are
//     embedded into
//
// The simulated runtime and screen are loop-affine like the coordinator.
// Registry and Launcher are safe for concurrent use.
package provider

// Package event provides a pub-sub event bus for observing the clock
// lifecycle without coupling observers to the coordinator.
//
// The coordinator and the clock service publish events; the CLI, the live
// watch view and the metrics recorder subscribe.
//
// # Main Types
//
//   - [Event]: Interface that all events implement, providing EventType(), ID() and Timestamp()
//   - [Bus]: Synchronous pub-sub dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Clock service:
//   - [ClockRequestedEvent]: A desired widget change was received
//   - [ClockWaitingEvent]: Prepare returned async; the candidate waits
//   - [ClockAttachedEvent]: A clock was embedded and is now attached
//   - [ClockDetachedEvent]: The attached clock was torn down
//   - [CandidateSupersededEvent]: A newer request replaced a pending candidate
//   - [RequestFailedEvent]: Prepare or create failed for a candidate
//
// Widget instances:
//   - [InstancePromotedEvent]: A pending instance finished via refresh or force trigger
//   - [ProviderFaultEvent]: An embedded provider faulted and was reactivated
//   - [ProviderFatalEvent]: The retry budget ran out
//   - [CreationFaultEvent]: The provider reported an error creating an instance
//   - [ScrollHoldEvent]: An instance asked the scroller to hold or release
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers are called
// synchronously on the publishing goroutine and protected against panics.
//
// # Basic Usage
//
//	bus := event.NewBus(logger)
//	bus.Subscribe(event.TypeProviderFatal, func(e event.Event) {
//	    fatal := e.(event.ProviderFatalEvent)
//	    log.Printf("provider %s gave up", fatal.ProviderID)
//	})
//	bus.SubscribeAll(func(e event.Event) {
//	    log.Printf("event: %s at %v", e.EventType(), e.Timestamp())
//	})
package event

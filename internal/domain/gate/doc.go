// Package gate provides a broadcast rendezvous primitive.
//
// A Gate lets any number of goroutines park in Wait until some other
// goroutine calls Signal. Signal releases exactly the goroutines that were
// parked when it ran and immediately re-arms the gate, so a goroutine that
// starts waiting after Signal returns sits out until the next Signal.
// Signals are never latched: there is no "already signaled" state a late
// waiter can observe.
//
// Waits are interruptible through their context. Close ends the gate's
// life: every parked waiter is released with ErrClosed and all later waits
// fail immediately with the same error.
//
// Example Usage:
//
//	g := gate.New()
//
//	go func() {
//		if err := g.Wait(ctx); err != nil {
//			return // interrupted or closed, no data
//		}
//		// consume whatever the signaler published
//	}()
//
//	released := g.Signal()
package gate

// Package dispatch offloads planning searches from a single host goroutine to
// a fixed pool of background workers, and hands the results back to the host
// without blocking it.
//
// Architecture:
//
//   - Submit appends a WorkItem to a FIFO pending queue. Any goroutine may
//     submit; submitting never waits for planning.
//   - Each worker goroutine blocks on the pending queue, claims one item at a
//     time, runs its own private Planner on it with no lock held, and passes
//     the outcome to the coordinator's completion sink.
//   - The completion sink stores the outcome on the item and appends it to a
//     completed list.
//   - The host calls Drain on its delivery goroutine at whatever cadence it
//     likes (once per frame, once per fixed step). Drain swaps the completed
//     list out under its lock, releases the lock, then invokes callbacks in
//     the order the items completed.
//
// The pending queue and the completed list have separate locks, and neither
// is held while planning or while running callbacks, so a callback may submit
// more work. Completion order is not submission order.
//
// A callback that panics does not prevent delivery of the rest of its batch:
// each panic is recovered into a *CallbackError and all of them are returned
// together from Drain.
//
// Shutdown is cooperative. Stop closes the queue and flags every worker; a
// worker finishes the search it is running, hands in the result and exits at
// the top of its loop. Call Wait (or Shutdown with a deadline) to join the
// workers before assuming no further results will appear; one last Drain then
// delivers whatever completed in flight.
//
// Usage:
//
//	c := dispatch.New(func() dispatch.Planner { return goap.NewPlanner() })
//	if err := c.Start(4); err != nil {
//	    return err
//	}
//	defer c.Shutdown(ctx)
//
//	_, err := c.Submit(agent, goal, actions, func(o *goap.Outcome) {
//	    // runs on the goroutine that calls Drain
//	})
//
//	// once per tick, on the host goroutine:
//	if _, err := c.Drain(); err != nil {
//	    slog.Warn("callback failures", "error", err)
//	}
package dispatch

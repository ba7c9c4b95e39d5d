package app

import (
	"context"
	"time"
)

// idleWait bounds how long Run sleeps when nothing is scheduled.
const idleWait = time.Minute

// Run drives c in real time until ctx is cancelled, then tears it down.
// A single timer is re-armed on every state change to the next deadline.
func Run(ctx context.Context, c *Coordinator) {
	timer := time.NewTimer(idleWait)
	defer timer.Stop()
	defer c.Teardown()

	for {
		wait := idleWait
		if next, ok := c.NextDeadline(); ok {
			wait = time.Until(next)
			if wait < 0 {
				wait = 0
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return
		case <-c.Wake():
		case now := <-timer.C:
			c.Tick(now)
		}
	}
}

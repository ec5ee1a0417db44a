package browser

import (
	"context"
	"time"
)

// DefaultPollInterval is the fixed polling cadence for condition waits.
const DefaultPollInterval = 250 * time.Millisecond

// WaitUntil polls pred against c until it returns true, the timeout lapses,
// or the context dies. A detached document scope is an immediate false —
// the waiter never hangs on a dead context. The same primitive, with a
// negated predicate, confirms disappearance (e.g. a modal closing).
func WaitUntil(ctx context.Context, c Context, pred func(Context) bool, timeout time.Duration) bool {
	return WaitUntilEvery(ctx, c, pred, timeout, DefaultPollInterval)
}

// WaitUntilEvery is WaitUntil with an explicit polling interval.
func WaitUntilEvery(ctx context.Context, c Context, pred func(Context) bool, timeout, interval time.Duration) bool {
	if c == nil {
		return false
	}
	deadline := time.Now().Add(timeout)
	for {
		if ctx.Err() != nil || !c.Alive() {
			return false
		}
		if pred(c) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}
}

// Settle sleeps for d as a first-order stabilizer before polling begins,
// honoring context cancellation. It is never a substitute for a
// disappearance check.
func Settle(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// ElementVisible builds a predicate asserting that selector resolves to a
// visible element.
func ElementVisible(selector string) func(Context) bool {
	return func(c Context) bool {
		el, err := c.Find(selector)
		if err != nil {
			return false
		}
		return el.Visible()
	}
}

// ElementGone builds a predicate asserting that selector resolves to no
// visible element.
func ElementGone(selector string) func(Context) bool {
	visible := ElementVisible(selector)
	return func(c Context) bool { return !visible(c) }
}

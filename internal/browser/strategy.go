package browser

import (
	"context"
	"fmt"
	"time"

	"hanapilot/internal/logging"
)

// Strategy is one named, idempotent way to accomplish a logical action.
// Each strategy re-establishes focus/selection before mutating, so a failed
// attempt never leaves state a later strategy cannot safely overwrite.
type Strategy struct {
	Name string

	// Run performs the action. el is the resolved target element, or nil
	// for strategies that work purely at the session level.
	Run func(ctx context.Context, c Context, el Element) error

	// Elementless marks strategies that operate at the session level and
	// can run even when no candidate locator resolved.
	Elementless bool
}

// Outcome reports how a Perform call ended.
type Outcome struct {
	OK bool

	// StrategyIndex is the index of the verified strategy, or -1 when the
	// target was already satisfied before any strategy ran.
	StrategyIndex int

	// Strategy is the verified strategy's name, "" when none ran.
	Strategy string

	// Err carries the terminal failure classification when OK is false.
	Err error
}

// Guard lets interrupt-handling code run before strategies touch a
// sensitive target. PreCheck returns true when an interrupt was present and
// resolved, meaning the target may already hold a human-supplied value.
type Guard interface {
	PreCheck(ctx context.Context, c Context) bool
}

// Executor runs ordered strategies against located targets, gating success
// on a caller-supplied verification. "Did the value actually land" is the
// only ground truth; the executor assumes nothing about which input method
// the remote UI honors.
type Executor struct {
	// LocateWait bounds how long to wait for a usable candidate locator.
	LocateWait time.Duration

	// VerifyWait is the settle delay between a strategy running and its
	// verification being consulted.
	VerifyWait time.Duration

	log *logging.Logger
}

// NewExecutor returns an Executor with standard timing.
func NewExecutor() *Executor {
	return &Executor{
		LocateWait: 5 * time.Second,
		VerifyWait: 300 * time.Millisecond,
		log:        logging.Get(logging.CategoryBrowser),
	}
}

// Perform locates target in c and runs strategies in order until one
// verifies. verify is consulted after each strategy; the first verified
// strategy wins and later ones never run. Exhaustion is reported in the
// Outcome, not retried.
func (e *Executor) Perform(ctx context.Context, c Context, target Target, strategies []Strategy, verify func() bool) Outcome {
	return e.PerformGuarded(ctx, c, target, strategies, verify, nil)
}

// PerformGuarded is Perform with an interrupt pre-check: before any
// strategy runs, guard gets a chance to resolve a human-required overlay;
// if afterwards the target already verifies, the action completes without
// running a single strategy.
func (e *Executor) PerformGuarded(ctx context.Context, c Context, target Target, strategies []Strategy, verify func() bool, guard Guard) Outcome {
	if verify == nil {
		return Outcome{Err: fmt.Errorf("verify predicate required")}
	}

	if guard != nil && guard.PreCheck(ctx, c) {
		if verify() {
			e.log.Info("%s: already satisfied after interrupt resolution", target.Name)
			return Outcome{OK: true, StrategyIndex: -1}
		}
	}

	el, err := Locate(ctx, c, target, e.LocateWait)
	if err != nil {
		// Session-level strategies can still run without a resolved
		// element; everything else is over.
		if !hasElementless(strategies) {
			e.log.Warn("%s: no usable locator (%v)", target.Name, err)
			return Outcome{StrategyIndex: -1, Err: ErrLocatorExhausted}
		}
		e.log.Warn("%s: no usable locator (%v), trying session-level strategies", target.Name, err)
	}

	for i, s := range strategies {
		if ctx.Err() != nil {
			return Outcome{StrategyIndex: -1, Err: ctx.Err()}
		}
		if el == nil && !s.Elementless {
			continue
		}
		e.log.Debug("%s: strategy %d (%s)", target.Name, i+1, s.Name)
		if err := s.Run(ctx, c, el); err != nil {
			e.log.Debug("%s: strategy %s errored: %v", target.Name, s.Name, err)
			continue
		}
		Settle(ctx, e.VerifyWait)
		if verify() {
			e.log.Info("%s: verified via strategy %s", target.Name, s.Name)
			return Outcome{OK: true, StrategyIndex: i, Strategy: s.Name}
		}
	}

	e.log.Warn("%s: all strategies exhausted unverified", target.Name)
	return Outcome{StrategyIndex: -1, Err: ErrLocatorExhausted}
}

func hasElementless(strategies []Strategy) bool {
	for _, s := range strategies {
		if s.Elementless {
			return true
		}
	}
	return false
}

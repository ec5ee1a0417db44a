// Package watchdog detects and resolves interrupt UI: informational modals
// it may dismiss on its own, and secure-input overlays that legally require
// a human and must never be forged. It runs cooperatively, polled between
// discrete steps of the main flow.
package watchdog

import (
	"context"
	"strings"
	"time"

	"hanapilot/internal/browser"
	"hanapilot/internal/logging"
)

// Class splits signatures into the two interrupt kinds.
type Class int

const (
	// AutoDismiss marks informational popups the engine may close itself.
	AutoDismiss Class = iota
	// RequiresHuman marks overlays (virtual keyboards, secure entry) the
	// engine must wait out, never dismiss.
	RequiresHuman
)

// State is one signature's position in its lifecycle:
// Absent → Visible → (Dismissed | HumanPending) → Absent.
type State int

const (
	StateAbsent State = iota
	StateVisible
	StateDismissed
	StateHumanPending
)

func (s State) String() string {
	switch s {
	case StateVisible:
		return "visible"
	case StateDismissed:
		return "dismissed"
	case StateHumanPending:
		return "human-pending"
	default:
		return "absent"
	}
}

// Signature describes one known interrupt condition. Registered once at
// startup, evaluated continuously.
type Signature struct {
	Name  string
	Class Class

	// Selectors locate the popup container; first visible match counts.
	Selectors []string

	// TitleContains optionally narrows a match to containers whose text
	// mentions this string.
	TitleContains string

	// CloseSelectors are the ranked structural OK/close controls tried
	// first when dismissing.
	CloseSelectors []string

	// DeclineJS is an optional script invoked before force-hiding, for
	// popups whose only safe exit is a specific handler (e.g. a "no"
	// callback).
	DeclineJS string

	// CheckParent extends the visibility check to the enclosing scope —
	// a popup may render outside the frame that triggered it.
	CheckParent bool
}

// Watchdog evaluates registered signatures against a document scope.
type Watchdog struct {
	sigs   []Signature
	states map[string]State

	// HumanWait bounds how long automation suspends for a RequiresHuman
	// overlay to be resolved by the operator.
	HumanWait time.Duration

	// AppearWait is the short window the pre-check gives an overlay to
	// materialize before a sensitive action proceeds.
	AppearWait time.Duration

	// DismissWait bounds each disappearance check after a dismissal
	// attempt.
	DismissWait time.Duration

	log *logging.Logger
}

// New returns a Watchdog over the given signatures.
func New(sigs []Signature) *Watchdog {
	return &Watchdog{
		sigs:        sigs,
		states:      make(map[string]State, len(sigs)),
		HumanWait:   3 * time.Minute,
		AppearWait:  2 * time.Second,
		DismissWait: 5 * time.Second,
		log:         logging.Get(logging.CategoryWatchdog),
	}
}

// State reports the tracked lifecycle state for a signature name.
func (w *Watchdog) State(name string) State {
	return w.states[name]
}

func (w *Watchdog) transition(sig Signature, to State) {
	from := w.states[sig.Name]
	if from == to {
		return
	}
	w.states[sig.Name] = to
	w.log.Info("%s: %s -> %s", sig.Name, from, to)
}

// scopes returns the contexts a signature must be checked against.
func scopes(c browser.Context, sig Signature) []browser.Context {
	out := []browser.Context{c}
	if sig.CheckParent {
		if p := c.Parent(); p != nil {
			out = append(out, p)
		}
	}
	return out
}

// find returns the visible container element for sig, if any.
func (w *Watchdog) find(c browser.Context, sig Signature) (browser.Context, browser.Element, bool) {
	for _, scope := range scopes(c, sig) {
		if !scope.Alive() {
			continue
		}
		for _, sel := range sig.Selectors {
			els, err := scope.FindAll(sel)
			if err != nil {
				continue
			}
			for _, el := range els {
				if !el.Visible() {
					continue
				}
				if sig.TitleContains != "" && !containsText(el, sig.TitleContains) {
					continue
				}
				return scope, el, true
			}
		}
	}
	return nil, nil, false
}

func containsText(el browser.Element, needle string) bool {
	return needle == "" || strings.Contains(el.Text(), needle)
}

// Check returns the signatures currently visible against c, updating their
// tracked state.
func (w *Watchdog) Check(ctx context.Context, c browser.Context) []Signature {
	var visible []Signature
	for _, sig := range w.sigs {
		if _, _, ok := w.find(c, sig); ok {
			w.transition(sig, StateVisible)
			visible = append(visible, sig)
		} else if w.states[sig.Name] == StateVisible {
			w.transition(sig, StateAbsent)
		}
	}
	return visible
}

// Sweep auto-dismisses every visible AutoDismiss signature and returns how
// many were dismissed. RequiresHuman signatures are reported visible but
// left alone.
func (w *Watchdog) Sweep(ctx context.Context, c browser.Context) int {
	dismissed := 0
	for _, sig := range w.Check(ctx, c) {
		if sig.Class != AutoDismiss {
			continue
		}
		if w.dismiss(ctx, c, sig) {
			dismissed++
		}
	}
	return dismissed
}

// dismiss escalates through the ranked dismissal strategies, each followed
// by a disappearance check; first confirmed disappearance wins.
func (w *Watchdog) dismiss(ctx context.Context, c browser.Context, sig Signature) bool {
	scope, el, ok := w.find(c, sig)
	if !ok {
		w.transition(sig, StateAbsent)
		return true
	}

	gone := func() bool {
		_, _, still := w.find(c, sig)
		return !still
	}
	confirm := func() bool {
		return browser.WaitUntil(ctx, scope, func(browser.Context) bool { return gone() }, w.DismissWait)
	}

	// 1. Structural close control.
	for _, closeSel := range sig.CloseSelectors {
		btn, err := scope.Find(closeSel)
		if err != nil || !btn.Visible() {
			continue
		}
		if err := btn.Click(); err != nil {
			w.log.Debug("%s: close control %s click failed: %v", sig.Name, closeSel, err)
			continue
		}
		if confirm() {
			w.log.Info("%s: dismissed via close control %s", sig.Name, closeSel)
			w.transition(sig, StateDismissed)
			w.transition(sig, StateAbsent)
			return true
		}
	}

	// 2. Escape key.
	if err := scope.Press("Escape"); err == nil && confirm() {
		w.log.Info("%s: dismissed via escape", sig.Name)
		w.transition(sig, StateDismissed)
		w.transition(sig, StateAbsent)
		return true
	}

	// 3. Decline handler, when the popup has one.
	if sig.DeclineJS != "" {
		if _, err := scope.Eval(sig.DeclineJS); err == nil && confirm() {
			w.log.Info("%s: dismissed via decline handler", sig.Name)
			w.transition(sig, StateDismissed)
			w.transition(sig, StateAbsent)
			return true
		}
	}

	// 4. Force-hide, the last resort.
	if err := el.Eval(`() => { this.style.display = 'none'; }`); err == nil && confirm() {
		w.log.Warn("%s: force-hidden", sig.Name)
		w.transition(sig, StateDismissed)
		w.transition(sig, StateAbsent)
		return true
	}

	w.log.Warn("%s: could not dismiss", sig.Name)
	return false
}

// WaitHuman suspends until a RequiresHuman signature disappears, bounded by
// HumanWait. Returns browser.ErrHumanTimeout when the operator never
// resolves it.
func (w *Watchdog) WaitHuman(ctx context.Context, c browser.Context, sig Signature) error {
	w.transition(sig, StateHumanPending)
	gone := browser.WaitUntil(ctx, c, func(browser.Context) bool {
		_, _, still := w.find(c, sig)
		return !still
	}, w.HumanWait)
	if !gone {
		return browser.ErrHumanTimeout
	}
	w.transition(sig, StateAbsent)
	return nil
}

var _ browser.Guard = (*Watchdog)(nil)

// PreCheck implements browser.Guard for sensitive actions: give any
// RequiresHuman overlay a short window to appear; if one is (or becomes)
// visible, suspend until the human resolves it. Returns true when an
// overlay was seen and waited out — the guarded field may already hold a
// human-supplied value.
func (w *Watchdog) PreCheck(ctx context.Context, c browser.Context) bool {
	for _, sig := range w.sigs {
		if sig.Class != RequiresHuman {
			continue
		}
		appeared := browser.WaitUntil(ctx, c, func(browser.Context) bool {
			_, _, ok := w.find(c, sig)
			return ok
		}, w.AppearWait)
		if !appeared {
			continue
		}
		w.transition(sig, StateVisible)
		w.log.Info("%s: secure overlay present, suspending automation", sig.Name)
		if err := w.WaitHuman(ctx, c, sig); err != nil {
			w.log.Warn("%s: %v", sig.Name, err)
		}
		return true
	}
	return false
}

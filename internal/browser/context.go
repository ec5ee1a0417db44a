// Package browser is the resilient interaction layer over a hostile,
// asynchronous, multi-frame document tree. It owns frame/context resolution,
// predicate waiting, and the multi-strategy verified action executor that
// every higher-level flow builds on.
package browser

import (
	"context"
	"time"
)

// Context is one document scope the engine can query and mutate: the main
// page or a nested frame. Implementations must tolerate being asked about a
// dead document — queries on a detached context return zero values, never
// panic.
type Context interface {
	// Identity is the name or URL fragment used to re-resolve this scope.
	Identity() string

	// Alive reports whether the underlying document still accepts commands.
	// Once false, the context is terminal; callers re-resolve, never retry
	// in place.
	Alive() bool

	// Find returns the first element matching selector, or ErrNotFound.
	Find(selector string) (Element, error)

	// FindAll returns every element matching selector, possibly empty.
	FindAll(selector string) ([]Element, error)

	// Eval runs a script against the document and returns its result
	// serialized as a JSON string.
	Eval(js string) (string, error)

	// EvalBool runs a script expected to produce a boolean.
	EvalBool(js string) (bool, error)

	// Type sends paced keystrokes at the session level, landing wherever
	// focus currently is.
	Type(text string, delay time.Duration) error

	// Press sends one named key ("Enter", "Escape", "Backspace", "End").
	Press(key string) error

	// SelectAll issues the platform select-all chord.
	SelectAll() error

	// Descend resolves a child scope by frame name or URL fragment,
	// waiting up to wait for its container to appear. Returns ErrNotFound
	// when no such child exists.
	Descend(ctx context.Context, identity string, wait time.Duration) (Context, error)

	// Children enumerates the currently known child scopes.
	Children() []Context

	// Parent returns the enclosing scope, or nil at the top.
	Parent() Context

	// HTML serializes the current document markup for diagnostics.
	HTML() (string, error)
}

// Element is one resolved UI element inside a Context. Query methods return
// zero values when the element has gone stale.
type Element interface {
	// Visible reports whether the element is rendered and not hidden by
	// display, visibility, opacity, or a zero-area box.
	Visible() bool

	// Enabled reports whether the element accepts interaction.
	Enabled() bool

	// Text returns the element's trimmed inner text.
	Text() string

	// Value returns the element's materialized value property.
	Value() string

	// Attribute returns an attribute value, or "" when absent.
	Attribute(name string) string

	// Click performs a native activation.
	Click() error

	// Focus gives the element input focus.
	Focus() error

	// SelectText selects the element's current content.
	SelectText() error

	// SetValue assigns the value property directly and fires the synthetic
	// input/change/keyup events obfuscated handlers listen for.
	SetValue(value string) error

	// Eval runs a script with `this` bound to the element.
	Eval(js string) error

	// ScrollIntoView brings the element into the viewport.
	ScrollIntoView() error
}

// Resolution is the outcome of resolving a target scope. Degraded means the
// wanted child was never found and Context is the parent itself — callers
// must verify independently rather than trust it.
type Resolution struct {
	Context  Context
	Degraded bool
}

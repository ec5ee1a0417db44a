package browser

import "errors"

// Sentinel errors for the interaction layer. Components compare with
// errors.Is and translate into boolean step outcomes; none of these should
// escape a component boundary as a panic.
var (
	// ErrNotFound means no candidate locator produced a usable element.
	ErrNotFound = errors.New("browser: element not found")

	// ErrContextDetached means the document scope died under us. Dismiss and
	// confirm operations treat this as success (the surface disappearing is
	// what detaches it); everything else treats it as failure.
	ErrContextDetached = errors.New("browser: context detached")

	// ErrLocatorExhausted means every candidate locator and strategy was
	// tried without a verified success.
	ErrLocatorExhausted = errors.New("browser: locators and strategies exhausted")

	// ErrHumanTimeout means a human-required interrupt never resolved within
	// its long bound.
	ErrHumanTimeout = errors.New("browser: human intervention timed out")
)

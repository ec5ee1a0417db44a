package browser

import (
	"context"
	"strings"
	"time"
)

// Target names one logical UI element through an ordered list of equivalent
// candidate locators. Candidates are tried in declaration order; the first
// visible (and, when required, enabled) match wins.
type Target struct {
	// Name identifies the element in logs.
	Name string

	// Selectors are the candidate locators, most specific first. Must be
	// non-empty.
	Selectors []string

	// TextContains, when set, additionally filters candidates to elements
	// whose inner text contains this string.
	TextContains string

	// RequireEnabled demands the element accept interaction, not just be
	// visible.
	RequireEnabled bool
}

// Locate finds the first usable candidate for t inside c, waiting up to
// wait for one to become visible. Returns ErrNotFound on exhaustion and
// ErrContextDetached when the scope died while looking.
func Locate(ctx context.Context, c Context, t Target, wait time.Duration) (Element, error) {
	if c == nil || len(t.Selectors) == 0 {
		return nil, ErrNotFound
	}

	var found Element
	ok := WaitUntil(ctx, c, func(c Context) bool {
		for _, sel := range t.Selectors {
			els, err := c.FindAll(sel)
			if err != nil {
				continue
			}
			for _, el := range els {
				if !el.Visible() {
					continue
				}
				if t.RequireEnabled && !el.Enabled() {
					continue
				}
				if t.TextContains != "" && !strings.Contains(el.Text(), t.TextContains) {
					continue
				}
				found = el
				return true
			}
		}
		return false
	}, wait)

	if ok {
		return found, nil
	}
	if !c.Alive() {
		return nil, ErrContextDetached
	}
	return nil, ErrNotFound
}

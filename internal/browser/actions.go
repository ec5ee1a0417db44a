package browser

import (
	"context"
	"time"
)

// The remote portal's input widgets silently ignore some input methods:
// focus races eat the first keystrokes, obfuscated handlers reject
// synthetic events, secure fields detach mid-entry. These prebuilt strategy
// sets escalate from gentle to invasive; the executor's verification
// decides which one actually landed.

// TypeStrategies returns the escalating strategies for entering text into a
// field, ordered least to most invasive.
func TypeStrategies(text string) []Strategy {
	return []Strategy{
		{
			Name: "paced keystrokes",
			Run: func(ctx context.Context, c Context, el Element) error {
				if err := el.Focus(); err != nil {
					return err
				}
				if err := el.Click(); err != nil {
					return err
				}
				_ = el.SelectText()
				if err := c.Press("Backspace"); err != nil {
					return err
				}
				return c.Type(text, 70*time.Millisecond)
			},
		},
		{
			Name: "settled select-all keystrokes",
			Run: func(ctx context.Context, c Context, el Element) error {
				Settle(ctx, 1500*time.Millisecond)
				if err := el.Focus(); err != nil {
					return err
				}
				if err := c.SelectAll(); err != nil {
					return err
				}
				return c.Type(text, 70*time.Millisecond)
			},
		},
		{
			Name: "aggressive clear and retype",
			Run: func(ctx context.Context, c Context, el Element) error {
				for i := 0; i < 3; i++ {
					if err := el.Click(); err != nil {
						return err
					}
					Settle(ctx, 100*time.Millisecond)
				}
				if err := c.Press("End"); err != nil {
					return err
				}
				for i := 0; i < 20; i++ {
					if err := c.Press("Backspace"); err != nil {
						return err
					}
				}
				return c.Type(text, 70*time.Millisecond)
			},
		},
		{
			Name: "direct value with synthetic events",
			Run: func(ctx context.Context, c Context, el Element) error {
				return el.SetValue(text)
			},
		},
		{
			// When the field itself cannot be resolved (secure overlays
			// reparent it), blind session-level typing is the last resort:
			// the overlay routes keys to the field it guards.
			Name:        "raw session keystrokes",
			Elementless: true,
			Run: func(ctx context.Context, c Context, el Element) error {
				return c.Type(text, 100*time.Millisecond)
			},
		},
	}
}

// ClickStrategies returns the escalating strategies for activating a
// control.
func ClickStrategies() []Strategy {
	return []Strategy{
		{
			Name: "native click",
			Run: func(ctx context.Context, c Context, el Element) error {
				_ = el.ScrollIntoView()
				return el.Click()
			},
		},
		{
			Name: "synthetic mouse sequence",
			Run: func(ctx context.Context, c Context, el Element) error {
				return el.Eval(`() => {
					for (const type of ['mousedown', 'mouseup', 'click']) {
						this.dispatchEvent(new MouseEvent(type, {bubbles: true, cancelable: true, view: window}));
					}
				}`)
			},
		},
		{
			Name: "script click",
			Run: func(ctx context.Context, c Context, el Element) error {
				return el.Eval(`() => this.click()`)
			},
		},
	}
}

// ValueAtLeast builds the standard verification for text entry: the field's
// materialized value is at least as long as what was typed. Secure fields
// mask their value, so equality cannot be asserted.
func ValueAtLeast(el func() Element, length int) func() bool {
	return func() bool {
		e := el()
		if e == nil {
			return false
		}
		return len([]rune(e.Value())) >= length
	}
}

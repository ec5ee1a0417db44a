// Package browsertest provides scripted in-memory implementations of the
// browser boundary for tests. A FakeContext is a dictionary of selectors to
// elements whose state tests mutate between steps to simulate the remote
// UI appearing, disappearing, and detaching.
package browsertest

import (
	"context"
	"time"

	"hanapilot/internal/browser"
)

// FakeElement is a scriptable element.
type FakeElement struct {
	VisibleFlag bool
	EnabledFlag bool
	TextValue   string
	Val         string
	Attributes  map[string]string

	Clicks    int
	Focuses   int
	Selects   int
	SetValues []string
	Scripts   []string

	ClickErr error
	EvalErr  error

	// OnClick runs after every successful click; tests use it to flip
	// visibility elsewhere in the fake DOM.
	OnClick func()

	// OnEval runs after every successful script evaluation.
	OnEval func(js string)

	// VisibleFunc, when set, overrides VisibleFlag; tests use it to
	// script visibility changing across successive polls.
	VisibleFunc func() bool
}

var _ browser.Element = (*FakeElement)(nil)

func (e *FakeElement) Visible() bool {
	if e.VisibleFunc != nil {
		return e.VisibleFunc()
	}
	return e.VisibleFlag
}
func (e *FakeElement) Enabled() bool { return e.EnabledFlag }
func (e *FakeElement) Text() string  { return e.TextValue }
func (e *FakeElement) Value() string { return e.Val }

func (e *FakeElement) Attribute(name string) string {
	return e.Attributes[name]
}

func (e *FakeElement) Click() error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.Clicks++
	if e.OnClick != nil {
		e.OnClick()
	}
	return nil
}

func (e *FakeElement) Focus() error      { e.Focuses++; return nil }
func (e *FakeElement) SelectText() error { e.Selects++; return nil }

func (e *FakeElement) SetValue(value string) error {
	if e.EvalErr != nil {
		return e.EvalErr
	}
	e.Val = value
	e.SetValues = append(e.SetValues, value)
	return nil
}

func (e *FakeElement) Eval(js string) error {
	if e.EvalErr != nil {
		return e.EvalErr
	}
	e.Scripts = append(e.Scripts, js)
	if e.OnEval != nil {
		e.OnEval(js)
	}
	return nil
}

func (e *FakeElement) ScrollIntoView() error { return nil }

// FakeContext is a scriptable document scope.
type FakeContext struct {
	Name     string
	AliveVal bool

	// DOM maps selectors to elements.
	DOM map[string][]*FakeElement

	// Kids are known child scopes; Descendable ones are also reachable
	// through Descend.
	Kids        []*FakeContext
	Descendable map[string]*FakeContext
	ParentCtx   *FakeContext

	// Typed records session-level keystrokes; OnType lets tests route them
	// into a field, OnPress lets them react to named keys.
	Typed      []string
	Pressed    []string
	SelectAlls int
	OnType     func(text string)
	OnPress    func(key string)

	BoolResults map[string]bool

	// OnEvalBool runs before a boolean evaluation resolves, so tests can
	// script the document reacting to the script's side effects.
	OnEvalBool func(js string)

	HTMLVal string
	HTMLErr error
}

var _ browser.Context = (*FakeContext)(nil)

// NewContext returns a live, empty fake scope.
func NewContext(name string) *FakeContext {
	return &FakeContext{
		Name:        name,
		AliveVal:    true,
		DOM:         map[string][]*FakeElement{},
		Descendable: map[string]*FakeContext{},
		BoolResults: map[string]bool{},
	}
}

// Add registers an element under a selector and returns it for scripting.
func (c *FakeContext) Add(selector string, el *FakeElement) *FakeElement {
	c.DOM[selector] = append(c.DOM[selector], el)
	return el
}

// AddVisible registers a visible, enabled element.
func (c *FakeContext) AddVisible(selector string) *FakeElement {
	return c.Add(selector, &FakeElement{VisibleFlag: true, EnabledFlag: true})
}

func (c *FakeContext) Identity() string { return c.Name }
func (c *FakeContext) Alive() bool      { return c.AliveVal }

func (c *FakeContext) Find(selector string) (browser.Element, error) {
	els := c.DOM[selector]
	if len(els) == 0 {
		return nil, browser.ErrNotFound
	}
	return els[0], nil
}

func (c *FakeContext) FindAll(selector string) ([]browser.Element, error) {
	els := c.DOM[selector]
	out := make([]browser.Element, 0, len(els))
	for _, el := range els {
		out = append(out, el)
	}
	return out, nil
}

func (c *FakeContext) Eval(js string) (string, error) {
	if !c.AliveVal {
		return "", browser.ErrContextDetached
	}
	return "null", nil
}

func (c *FakeContext) EvalBool(js string) (bool, error) {
	if !c.AliveVal {
		return false, browser.ErrContextDetached
	}
	if c.OnEvalBool != nil {
		c.OnEvalBool(js)
	}
	return c.BoolResults[js], nil
}

func (c *FakeContext) Type(text string, delay time.Duration) error {
	if !c.AliveVal {
		return browser.ErrContextDetached
	}
	c.Typed = append(c.Typed, text)
	if c.OnType != nil {
		c.OnType(text)
	}
	return nil
}

func (c *FakeContext) Press(key string) error {
	if !c.AliveVal {
		return browser.ErrContextDetached
	}
	c.Pressed = append(c.Pressed, key)
	if c.OnPress != nil {
		c.OnPress(key)
	}
	return nil
}

func (c *FakeContext) SelectAll() error {
	c.SelectAlls++
	return nil
}

func (c *FakeContext) Children() []browser.Context {
	out := make([]browser.Context, 0, len(c.Kids))
	for _, k := range c.Kids {
		out = append(out, k)
	}
	return out
}

func (c *FakeContext) Descend(ctx context.Context, identity string, wait time.Duration) (browser.Context, error) {
	if child, ok := c.Descendable[identity]; ok {
		child.ParentCtx = c
		return child, nil
	}
	return nil, browser.ErrNotFound
}

func (c *FakeContext) Parent() browser.Context {
	if c.ParentCtx == nil {
		return nil
	}
	return c.ParentCtx
}

func (c *FakeContext) HTML() (string, error) {
	if c.HTMLErr != nil {
		return "", c.HTMLErr
	}
	if !c.AliveVal {
		return "", browser.ErrContextDetached
	}
	return c.HTMLVal, nil
}

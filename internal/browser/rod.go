package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// rodContext adapts a rod page (main document or frame) to the Context
// interface. Detachment is sticky: once a command fails with a dead-target
// error the context reports not-alive forever.
type rodContext struct {
	page     *rod.Page
	identity string
	parent   *rodContext

	mu       sync.Mutex
	children []*rodContext
	detached bool
}

// NewContext wraps a rod page as the engine's top-level Context.
func NewContext(page *rod.Page, identity string) Context {
	return &rodContext{page: page, identity: identity}
}

func (r *rodContext) Identity() string { return r.identity }

func (r *rodContext) Parent() Context {
	if r.parent == nil {
		return nil
	}
	return r.parent
}

func (r *rodContext) markDetached(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if strings.Contains(msg, "detached") ||
		strings.Contains(msg, "context canceled") ||
		strings.Contains(msg, "Cannot find context") ||
		strings.Contains(msg, "target closed") {
		r.mu.Lock()
		r.detached = true
		r.mu.Unlock()
		return true
	}
	return false
}

func (r *rodContext) Alive() bool {
	r.mu.Lock()
	if r.detached {
		r.mu.Unlock()
		return false
	}
	r.mu.Unlock()

	_, err := r.page.Timeout(2 * time.Second).Evaluate(&rod.EvalOptions{
		JS:      `() => true`,
		ByValue: true,
	})
	if err != nil {
		r.markDetached(err)
		return false
	}
	return true
}

func (r *rodContext) Find(selector string) (Element, error) {
	els, err := r.page.Elements(selector)
	if err != nil {
		r.markDetached(err)
		return nil, ErrNotFound
	}
	if len(els) == 0 {
		return nil, ErrNotFound
	}
	return &rodElement{el: els.First()}, nil
}

func (r *rodContext) FindAll(selector string) ([]Element, error) {
	els, err := r.page.Elements(selector)
	if err != nil {
		r.markDetached(err)
		return nil, ErrNotFound
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el})
	}
	return out, nil
}

func (r *rodContext) Eval(js string) (string, error) {
	res, err := r.page.Evaluate(&rod.EvalOptions{JS: js, ByValue: true})
	if err != nil {
		if r.markDetached(err) {
			return "", ErrContextDetached
		}
		return "", err
	}
	return res.Value.JSON("", ""), nil
}

func (r *rodContext) EvalBool(js string) (bool, error) {
	res, err := r.page.Evaluate(&rod.EvalOptions{JS: js, ByValue: true})
	if err != nil {
		if r.markDetached(err) {
			return false, ErrContextDetached
		}
		return false, err
	}
	return res.Value.Bool(), nil
}

func (r *rodContext) Type(text string, delay time.Duration) error {
	for _, ch := range text {
		if err := r.page.Keyboard.Type(input.Key(ch)); err != nil {
			r.markDetached(err)
			return err
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	return nil
}

var namedKeys = map[string]input.Key{
	"Enter":     input.Enter,
	"Escape":    input.Escape,
	"Backspace": input.Backspace,
	"End":       input.End,
	"Tab":       input.Tab,
}

func (r *rodContext) Press(key string) error {
	k, ok := namedKeys[key]
	if !ok {
		return fmt.Errorf("unknown key %q", key)
	}
	if err := r.page.Keyboard.Type(k); err != nil {
		r.markDetached(err)
		return err
	}
	return nil
}

func (r *rodContext) SelectAll() error {
	modifier := input.ControlLeft
	if runtime.GOOS == "darwin" {
		modifier = input.MetaLeft
	}
	kb := r.page.Keyboard
	if err := kb.Press(modifier); err != nil {
		r.markDetached(err)
		return err
	}
	defer kb.Release(modifier)
	return kb.Type(input.KeyA)
}

func (r *rodContext) Children() []Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Context, 0, len(r.children))
	for _, c := range r.children {
		out = append(out, c)
	}
	return out
}

// Descend finds a child frame by name or, failing that, by URL fragment
// match on the container's src attribute.
func (r *rodContext) Descend(ctx context.Context, identity string, wait time.Duration) (Context, error) {
	deadline := time.Now().Add(wait)
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		sel := fmt.Sprintf("iframe[name=%q], frame[name=%q]", identity, identity)
		if els, err := r.page.Elements(sel); err == nil && len(els) > 0 {
			if frame, err := els.First().Frame(); err == nil {
				return r.adopt(frame, identity), nil
			}
		} else if err != nil {
			r.markDetached(err)
			return nil, ErrContextDetached
		}

		// URL-fragment fallback: containers whose src mentions the
		// identity (popup frames are often injected with generated names).
		if els, err := r.page.Elements("iframe, frame"); err == nil {
			for _, el := range els {
				src, aerr := el.Attribute("src")
				if aerr != nil || src == nil {
					continue
				}
				if strings.Contains(*src, identity) {
					if frame, ferr := el.Frame(); ferr == nil {
						return r.adopt(frame, identity), nil
					}
				}
			}
		}

		if time.Now().After(deadline) {
			return nil, ErrNotFound
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(DefaultPollInterval):
		}
	}
}

func (r *rodContext) adopt(frame *rod.Page, identity string) *rodContext {
	child := &rodContext{page: frame, identity: identity, parent: r}
	r.mu.Lock()
	r.children = append(r.children, child)
	r.mu.Unlock()
	return child
}

func (r *rodContext) HTML() (string, error) {
	html, err := r.page.HTML()
	if err != nil {
		if r.markDetached(err) {
			return "", ErrContextDetached
		}
		return "", err
	}
	return html, nil
}

// rodElement adapts a rod element to the Element interface.
type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Visible() bool {
	v, err := e.el.Visible()
	return err == nil && v
}

func (e *rodElement) Enabled() bool {
	res, err := e.el.Eval(`() => !this.disabled`)
	if err != nil {
		return false
	}
	return res.Value.Bool()
}

func (e *rodElement) Text() string {
	t, err := e.el.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(t)
}

func (e *rodElement) Value() string {
	res, err := e.el.Eval(`() => this.value === undefined || this.value === null ? "" : String(this.value)`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

func (e *rodElement) Attribute(name string) string {
	v, err := e.el.Attribute(name)
	if err != nil || v == nil {
		return ""
	}
	return *v
}

func (e *rodElement) Click() error {
	return e.el.Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Focus() error {
	return e.el.Focus()
}

func (e *rodElement) SelectText() error {
	_, err := e.el.Eval(`() => { if (typeof this.select === 'function') this.select(); }`)
	return err
}

func (e *rodElement) SetValue(value string) error {
	_, err := e.el.Eval(`(v) => {
		this.value = v;
		for (const type of ['input', 'change', 'keyup']) {
			this.dispatchEvent(new Event(type, {bubbles: true}));
		}
	}`, value)
	return err
}

func (e *rodElement) Eval(js string) error {
	_, err := e.el.Eval(js)
	return err
}

func (e *rodElement) ScrollIntoView() error {
	return e.el.ScrollIntoView()
}

// Package auth drives the portal's certificate login: menu navigation,
// credential-store and identity selection inside the certificate popup
// frame, secret entry, and confirmation. One state machine, fail-stop.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hanapilot/internal/browser"
	"hanapilot/internal/console"
	"hanapilot/internal/logging"
	"hanapilot/internal/watchdog"
)

// State names the flow's position for logs and errors.
type State int

const (
	StateMenuSelect State = iota
	StateCredentialLogin
	StateStoreSelect
	StateMediumSelect
	StateIdentitySelect
	StateSecretEntry
	StateConfirm
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateMenuSelect:
		return "menu-select"
	case StateCredentialLogin:
		return "credential-login"
	case StateStoreSelect:
		return "store-select"
	case StateMediumSelect:
		return "medium-select"
	case StateIdentitySelect:
		return "identity-select"
	case StateSecretEntry:
		return "secret-entry"
	case StateConfirm:
		return "confirm"
	case StateDone:
		return "done"
	default:
		return "failed"
	}
}

// Portal locators for the certificate login surface.
const (
	certMenuText      = "공동/금융인증서"
	certLoginSelector = "#certLogin"
	popupFrameName    = "delfino4htmlIframe"
	popupURLFragment  = "delfinoG10"
	popupSection      = "#delfino-section"
	storeListSelector = "#certStorePopupBody li"
	certRowSelector   = "tr[id^='grid_certificateInfos_0_rec_']"
	passwordSelector  = "input[name='selectDialogPasswordInput']"
	okButtonSelector  = ".okButton.okButtonMsg"
)

// Config carries the operator-supplied disambiguation inputs.
type Config struct {
	// StoreKeywords pick the certificate storage location (e.g. an
	// external drive's label) out of the store list.
	StoreKeywords []string

	// OwnerName is matched against the certificate list.
	OwnerName string

	// Password is the certificate secret.
	Password string
}

// Flow is the certificate login state machine.
type Flow struct {
	cfg      Config
	exec     *browser.Executor
	resolver *browser.Resolver
	guard    *watchdog.Watchdog
	prompter console.Prompter
	log      *logging.Logger

	// PopupWait bounds how long the certificate popup frame may take to
	// appear after the login control is activated.
	PopupWait time.Duration

	// StepWait bounds each in-popup element appearance.
	StepWait time.Duration

	// ConfirmWait bounds the surface-disappearance check after each
	// confirm click.
	ConfirmWait time.Duration

	// TransitionWait bounds the appearance check that verifies a menu or
	// medium activation took effect.
	TransitionWait time.Duration

	state State
}

// New returns a Flow wired to the shared interaction layer. guard watches
// the secure-input overlays; prompter receives operator-visible warnings.
func New(cfg Config, exec *browser.Executor, resolver *browser.Resolver, guard *watchdog.Watchdog, prompter console.Prompter) *Flow {
	return &Flow{
		cfg:            cfg,
		exec:           exec,
		resolver:       resolver,
		guard:          guard,
		prompter:       prompter,
		log:            logging.Get(logging.CategoryAuth),
		PopupWait:      30 * time.Second,
		StepWait:       30 * time.Second,
		ConfirmWait:    10 * time.Second,
		TransitionWait: 5 * time.Second,
	}
}

// State reports the flow's current state.
func (f *Flow) State() State { return f.state }

func (f *Flow) fail(state State, err error) error {
	f.state = StateFailed
	return fmt.Errorf("%s: %w", state, err)
}

// Run executes the whole login sequence against the portal's main page.
func (f *Flow) Run(ctx context.Context, page browser.Context) error {
	f.state = StateMenuSelect
	if err := f.selectMenu(ctx, page); err != nil {
		return f.fail(StateMenuSelect, err)
	}

	f.state = StateCredentialLogin
	popup, err := f.openCertPopup(ctx, page)
	if err != nil {
		return f.fail(StateCredentialLogin, err)
	}

	f.state = StateMediumSelect
	if err := f.selectMedium(ctx, popup); err != nil {
		return f.fail(StateMediumSelect, err)
	}

	f.state = StateStoreSelect
	if err := f.selectStore(ctx, popup); err != nil {
		return f.fail(StateStoreSelect, err)
	}

	f.state = StateIdentitySelect
	if err := f.selectIdentity(ctx, popup); err != nil {
		return f.fail(StateIdentitySelect, err)
	}

	f.state = StateSecretEntry
	if err := f.enterSecret(ctx, popup); err != nil {
		return f.fail(StateSecretEntry, err)
	}

	f.state = StateConfirm
	if err := f.confirm(ctx, page, popup); err != nil {
		return f.fail(StateConfirm, err)
	}

	f.state = StateDone
	f.log.Info("certificate login complete")
	return nil
}

// selectMenu activates the certificate login tab on the login page.
func (f *Flow) selectMenu(ctx context.Context, page browser.Context) error {
	target := browser.Target{
		Name:         "certificate login menu",
		Selectors:    []string{"a"},
		TextContains: certMenuText,
	}
	loginVisible := browser.ElementVisible(certLoginSelector)
	out := f.exec.Perform(ctx, page, target, browser.ClickStrategies(), func() bool {
		return browser.WaitUntil(ctx, page, loginVisible, f.TransitionWait)
	})
	if !out.OK {
		return out.Err
	}
	return nil
}

// openCertPopup clicks the login control until the certificate popup frame
// materializes, then resolves into it. Degraded resolution proceeds against
// the main page; every later step verifies independently.
func (f *Flow) openCertPopup(ctx context.Context, page browser.Context) (browser.Context, error) {
	framePresent := func(c browser.Context) bool {
		if el, err := c.Find("iframe[name='" + popupFrameName + "']"); err == nil && el.Visible() {
			return true
		}
		return browser.ElementVisible(popupSection)(c)
	}

	appeared := false
	for attempt := 0; attempt < 20 && !appeared; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		btn, err := browser.Locate(ctx, page, browser.Target{
			Name:      "certificate login control",
			Selectors: []string{certLoginSelector},
		}, 3*time.Second)
		if err != nil {
			return nil, err
		}
		if err := btn.Click(); err != nil {
			_ = btn.Eval(`() => this.click()`)
		}
		appeared = browser.WaitUntil(ctx, page, framePresent, 3*time.Second)
	}
	if !appeared {
		return nil, fmt.Errorf("certificate popup never appeared: %w", browser.ErrNotFound)
	}

	res := f.resolver.Resolve(ctx, page, popupFrameName)
	if res.Degraded {
		// Some portal builds inject the frame under a generated name; the
		// URL fragment still identifies it.
		res = f.resolver.Resolve(ctx, page, popupURLFragment)
	}
	if res.Degraded {
		f.log.Warn("certificate frame unresolved, continuing against main page")
	}

	popup := res.Context
	if !browser.WaitUntil(ctx, popup, browser.ElementVisible(popupSection), f.StepWait) {
		f.log.Warn("certificate popup container not confirmed visible")
	}
	return popup, nil
}

// selectMedium picks the storage medium (local/removable disk).
func (f *Flow) selectMedium(ctx context.Context, popup browser.Context) error {
	target := browser.Target{
		Name:      "storage medium control",
		Selectors: []string{".localDiskButton", "#localDiskButton"},
	}
	storeVisible := browser.ElementVisible(storeListSelector)
	out := f.exec.Perform(ctx, popup, target, browser.ClickStrategies(), func() bool {
		return browser.WaitUntil(ctx, popup, storeVisible, f.TransitionWait)
	})
	if !out.OK {
		return out.Err
	}
	return nil
}

// selectStore picks the certificate store entry, preferring configured
// keywords over static fallbacks.
func (f *Flow) selectStore(ctx context.Context, popup browser.Context) error {
	if !browser.WaitUntil(ctx, popup, browser.ElementVisible(storeListSelector), f.StepWait) {
		return fmt.Errorf("certificate store list: %w", browser.ErrNotFound)
	}
	entries, err := popup.FindAll(storeListSelector)
	if err != nil || len(entries) == 0 {
		return fmt.Errorf("certificate store list empty: %w", browser.ErrNotFound)
	}

	entry := f.matchStoreEntry(entries)
	if entry == nil {
		f.log.Warn("no store entry matched keywords %v, using first of %d", f.cfg.StoreKeywords, len(entries))
		entry = entries[0]
	}

	// The list item carries a checkbox whose change event the popup's
	// script listens for; fire both.
	_ = entry.Eval(`() => {
		const box = this.querySelector('input[type=checkbox]');
		if (box) {
			box.checked = true;
			box.dispatchEvent(new Event('change', {bubbles: true}));
			box.dispatchEvent(new Event('click', {bubbles: true}));
		}
	}`)
	if err := entry.Click(); err != nil {
		return err
	}

	// The certificate grid replacing the store list is the proof the
	// selection took.
	if !browser.WaitUntil(ctx, popup, browser.ElementVisible(certRowSelector), f.StepWait) {
		return fmt.Errorf("certificate list never appeared: %w", browser.ErrNotFound)
	}
	return nil
}

func (f *Flow) matchStoreEntry(entries []browser.Element) browser.Element {
	for _, kw := range f.cfg.StoreKeywords {
		needle := strings.ToLower(kw)
		for _, el := range entries {
			label := strings.ToLower(el.Attribute("aria-label") + " " + el.Text())
			if strings.Contains(label, needle) {
				f.log.Info("store entry matched keyword %q", kw)
				return el
			}
		}
	}
	return nil
}

// selectIdentity picks the certificate row whose owner matches the
// configured name, falling back to the first row. The fallback trades
// precision for availability and is surfaced to the operator.
func (f *Flow) selectIdentity(ctx context.Context, popup browser.Context) error {
	rows, err := popup.FindAll(certRowSelector)
	if err != nil || len(rows) == 0 {
		return fmt.Errorf("certificate rows: %w", browser.ErrNotFound)
	}

	var row browser.Element
	for _, r := range rows {
		if f.cfg.OwnerName != "" && strings.Contains(r.Text(), f.cfg.OwnerName) {
			row = r
			break
		}
	}
	if row == nil {
		row = rows[0]
		if f.cfg.OwnerName != "" {
			f.log.Warn("owner %q not found among %d certificates, falling back to first", f.cfg.OwnerName, len(rows))
			if f.prompter != nil {
				f.prompter.Say("경고: 인증서 목록에서 %q 을(를) 찾지 못해 첫 번째 인증서를 사용합니다.", f.cfg.OwnerName)
			}
		}
	}

	if strings.Contains(row.Attribute("class"), "w2ui-selected") {
		f.log.Debug("certificate row already selected")
		return nil
	}
	return row.Click()
}

// enterSecret types the certificate password, guarded by the secure-overlay
// pre-check: if a human-required keyboard is up, the flow suspends and the
// field may come back already filled.
func (f *Flow) enterSecret(ctx context.Context, popup browser.Context) error {
	field := func() browser.Element {
		el, err := popup.Find(passwordSelector)
		if err != nil {
			return nil
		}
		return el
	}
	target := browser.Target{
		Name:      "certificate password",
		Selectors: []string{passwordSelector},
	}
	verify := browser.ValueAtLeast(field, len([]rune(f.cfg.Password)))
	out := f.exec.PerformGuarded(ctx, popup, target, browser.TypeStrategies(f.cfg.Password), verify, f.guard)
	if !out.OK {
		return out.Err
	}
	return nil
}

// confirm activates the OK control and takes the popup surface
// disappearing — including the frame detaching — as the success signal.
// Short-circuits when a human already completed the whole dialog.
func (f *Flow) confirm(ctx context.Context, page, popup browser.Context) error {
	surfaceGone := func() bool {
		if !popup.Alive() {
			return true
		}
		return browser.ElementGone(popupSection)(popup) && browser.ElementGone("iframe[name='"+popupFrameName+"']")(page)
	}
	if surfaceGone() {
		f.log.Info("confirmation surface already gone")
		return nil
	}

	// A disabled OK button means the popup is still validating; give it a
	// moment.
	if el, err := popup.Find(okButtonSelector); err == nil && !el.Enabled() {
		browser.WaitUntil(ctx, popup, func(browser.Context) bool {
			e, ferr := popup.Find(okButtonSelector)
			return ferr == nil && e.Enabled()
		}, f.ConfirmWait)
	}

	target := browser.Target{
		Name:      "certificate confirm",
		Selectors: []string{okButtonSelector, ".okButton"},
	}
	out := f.exec.Perform(ctx, popup, target, detachTolerant(browser.ClickStrategies()), func() bool {
		return browser.WaitUntilEvery(ctx, page, func(browser.Context) bool { return surfaceGone() },
			f.ConfirmWait, 500*time.Millisecond)
	})
	if !out.OK {
		if surfaceGone() {
			return nil
		}
		return out.Err
	}
	return nil
}

// detachTolerant wraps click strategies so a detached frame mid-click is
// not an error: the surface disappearing is exactly what detaches it, and
// the verification decides.
func detachTolerant(strategies []browser.Strategy) []browser.Strategy {
	out := make([]browser.Strategy, len(strategies))
	for i, s := range strategies {
		run := s.Run
		out[i] = browser.Strategy{
			Name:        s.Name,
			Elementless: s.Elementless,
			Run: func(ctx context.Context, c browser.Context, el browser.Element) error {
				err := run(ctx, c, el)
				if err == nil {
					return nil
				}
				if errors.Is(err, browser.ErrContextDetached) || strings.Contains(err.Error(), "detached") {
					return nil
				}
				return err
			},
		}
	}
	return out
}

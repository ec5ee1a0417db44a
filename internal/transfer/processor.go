// Package transfer drives the portal's multi-account transfer form: landing
// popup cleanup, menu navigation into the batch form, per-row field entry
// with verification, and the guarded withdrawal-password step.
package transfer

import (
	"context"
	"fmt"
	"time"

	"hanapilot/internal/bank"
	"hanapilot/internal/browser"
	"hanapilot/internal/console"
	"hanapilot/internal/ledger"
	"hanapilot/internal/logging"
	"hanapilot/internal/watchdog"
)

const (
	// mainFrameName hosts the banking content below the portal chrome.
	mainFrameName = "hanaMainframe"

	// formSlots is the number of recipient rows the batch form renders.
	formSlots = 10

	passwordSelector = "#paymAcctPw"

	// memoLimit bounds the passbook memo fields.
	memoLimit = 10
)

var (
	transferMenuTarget = browser.Target{
		Name:      "transfer-menu",
		Selectors: []string{"a[title='이체']"},
	}
	multiTransferTarget = browser.Target{
		Name:      "multi-transfer-menu",
		Selectors: []string{"a[title='다계좌이체']", "a[onclick*='wpdep416_01t_01']"},
	}
	submitTarget = browser.Target{
		Name:         "submit",
		Selectors:    []string{"a.btn_confirm", "a.btn_type01", "a"},
		TextContains: "다계좌이체진행",
	}
)

// revealSubmenuJS un-hides every collapsed ancestor of the multi-transfer
// menu entry. The hover-driven submenu sometimes never opens under
// automation; forcing display is the documented self-heal.
const revealSubmenuJS = `() => {
	const a = document.querySelector("a[title='다계좌이체'], a[onclick*='wpdep416_01t_01']");
	if (!a) return false;
	for (let n = a; n && n !== document.body; n = n.parentElement) {
		if (getComputedStyle(n).display === 'none') n.style.display = 'block';
	}
	return true;
}`

const scrollTopJS = `() => { window.scrollTo(0, 0); }`

// Config carries what the processor needs beyond its collaborators.
type Config struct {
	// AccountPassword is the withdrawal account password, entered under
	// the secure-input guard.
	AccountPassword string

	// AutoSubmit presses the final submission control; when false the
	// filled form is handed to the operator instead.
	AutoSubmit bool
}

// SkippedRow records a work-set row the form filler could not place.
type SkippedRow struct {
	Row    ledger.TransferRow
	Reason string
}

// Outcome summarizes one batch run: the rows actually entered into the
// form, the rows skipped with reasons, and whether submission happened.
type Outcome struct {
	Processed []ledger.TransferRow
	Skipped   []SkippedRow
	Submitted bool
}

// Processor fills and optionally submits the multi-account transfer form.
type Processor struct {
	cfg      Config
	exec     *browser.Executor
	resolver *browser.Resolver
	guard    *watchdog.Watchdog
	prompter console.Prompter
	dumper   *browser.Dumper
	log      *logging.Logger

	// FormWait bounds waiting for the batch form to render after menu
	// navigation.
	FormWait time.Duration

	// SubmenuWait bounds waiting for the submenu entry to surface after a
	// menu activation.
	SubmenuWait time.Duration

	// FieldSettle is the pause before keystroke entry into a freshly
	// rendered field.
	FieldSettle time.Duration
}

// New returns a Processor. guard handles secure-input overlays during
// password entry; dumper may be nil.
func New(cfg Config, exec *browser.Executor, resolver *browser.Resolver, guard *watchdog.Watchdog, prompter console.Prompter, dumper *browser.Dumper) *Processor {
	return &Processor{
		cfg:         cfg,
		exec:        exec,
		resolver:    resolver,
		guard:       guard,
		prompter:    prompter,
		dumper:      dumper,
		log:         logging.Get(logging.CategoryTransfer),
		FormWait:    20 * time.Second,
		SubmenuWait: 2 * time.Second,
		FieldSettle: 500 * time.Millisecond,
	}
}

// Run executes one batch against the logged-in portal page. Unfillable rows
// are skipped with a reason, never silently dropped; a skipped row keeps its
// empty ledger status and surfaces in the next run.
func (p *Processor) Run(ctx context.Context, page browser.Context, rows []ledger.TransferRow) (*Outcome, error) {
	if len(rows) == 0 {
		return &Outcome{}, nil
	}
	if len(rows) > formSlots {
		p.log.Info("work set of %d rows truncated to the form's %d slots; remainder stays pending", len(rows), formSlots)
		rows = rows[:formSlots]
	}

	p.sweepLanding(ctx, page)

	res := p.resolver.Resolve(ctx, page, mainFrameName)
	frame := res.Context
	if res.Degraded {
		p.log.Warn("main frame not resolved, proceeding against the page itself")
	}

	if err := p.openBatchForm(ctx, frame); err != nil {
		return nil, err
	}
	if err := p.deviceGate(ctx, frame); err != nil {
		return nil, err
	}

	if !browser.WaitUntil(ctx, frame, browser.ElementVisible(fieldID("rcvBnkCd", 0)), p.FormWait) {
		return nil, fmt.Errorf("batch form never rendered")
	}

	out := &Outcome{}
	slot := 0
	for _, row := range rows {
		if err := p.fillRow(ctx, frame, slot, row); err != nil {
			p.log.Warn("row %d (%s): %v, skipping", row.RowIndex+1, row.CustomerName, err)
			out.Skipped = append(out.Skipped, SkippedRow{Row: row, Reason: err.Error()})
			continue
		}
		out.Processed = append(out.Processed, row)
		slot++
	}
	if len(out.Processed) == 0 {
		return out, fmt.Errorf("no rows could be entered")
	}

	if _, err := frame.Eval(scrollTopJS); err != nil {
		p.log.Debug("scroll to top failed: %v", err)
	}

	if err := p.enterPassword(ctx, frame); err != nil {
		return out, err
	}

	if !p.cfg.AutoSubmit {
		p.prompter.Say("입력이 끝났습니다. 내용을 확인한 뒤 직접 이체를 진행해 주세요.")
		return out, nil
	}
	if err := p.submit(ctx, frame); err != nil {
		return out, err
	}
	out.Submitted = true
	return out, nil
}

// sweepLanding dismisses the informational popups racing the landing page,
// on the page itself and every known frame.
func (p *Processor) sweepLanding(ctx context.Context, page browser.Context) {
	wd := watchdog.New(watchdog.MainPageSignatures())
	wd.DismissWait = 3 * time.Second
	n := wd.Sweep(ctx, page)
	for _, child := range page.Children() {
		n += wd.Sweep(ctx, child)
	}
	if n > 0 {
		p.log.Info("dismissed %d landing popups", n)
	}
}

// openBatchForm navigates transfer menu -> multi-account transfer, forcing
// the submenu open when hover automation fails to reveal it.
func (p *Processor) openBatchForm(ctx context.Context, frame browser.Context) error {
	menuVerify := func() bool {
		el, err := browser.Locate(ctx, frame, multiTransferTarget, p.SubmenuWait)
		return err == nil && el.Visible()
	}
	o := p.exec.Perform(ctx, frame, transferMenuTarget, browser.ClickStrategies(), menuVerify)
	if !o.OK {
		// The link may exist but stay collapsed; reveal and re-check.
		if ok, err := frame.EvalBool(revealSubmenuJS); err != nil || !ok {
			return fmt.Errorf("transfer menu: %w", o.Err)
		}
		if !menuVerify() {
			return fmt.Errorf("transfer submenu never appeared: %w", o.Err)
		}
		p.log.Info("transfer submenu force-revealed")
	}

	o = p.exec.Perform(ctx, frame, multiTransferTarget, browser.ClickStrategies(), func() bool {
		return browser.ElementVisible(fieldID("rcvBnkCd", 0))(frame) ||
			browser.ElementVisible(passwordSelector)(frame)
	})
	if !o.OK {
		return fmt.Errorf("multi-transfer menu: %w", o.Err)
	}
	return nil
}

// deviceGate surfaces the device-registration dialog to the operator. It is
// never auto-dismissed: registering or declining a device is the account
// holder's call.
func (p *Processor) deviceGate(ctx context.Context, frame browser.Context) error {
	wd := watchdog.New([]watchdog.Signature{watchdog.DevicePopupSignature()})
	if len(wd.Check(ctx, frame)) == 0 {
		return nil
	}
	for {
		d, err := console.AskDecision(p.prompter,
			"기기 등록 안내 팝업이 떠 있습니다. 직접 처리한 뒤 계속하시겠습니까? (y=계속 / d=화면 저장 / n=중단): ")
		if err != nil {
			return err
		}
		switch d {
		case console.DecisionContinue:
			return nil
		case console.DecisionDebug:
			if p.dumper != nil {
				if path, derr := p.dumper.Save(frame, "device-popup"); derr == nil {
					p.prompter.Say("화면을 %s 에 저장했습니다.", path)
				}
			}
		default:
			return fmt.Errorf("operator aborted at device-registration popup")
		}
	}
}

func fieldID(prefix string, slot int) string {
	return fmt.Sprintf("#%s%d", prefix, slot)
}

// fillRow enters one recipient into form slot: bank code, account number,
// amount, and the passbook memos on both sides.
func (p *Processor) fillRow(ctx context.Context, frame browser.Context, slot int, row ledger.TransferRow) error {
	code, ok := bank.Code(row.BankName)
	if !ok {
		return fmt.Errorf("no wire code for institution %q", row.BankName)
	}

	// Bank select: the dropdown only honors a value assignment with the
	// change event fired.
	bankSel := fieldID("rcvBnkCd", slot)
	o := p.exec.Perform(ctx, frame,
		browser.Target{Name: "bank-" + bankSel, Selectors: []string{bankSel}},
		[]browser.Strategy{{
			Name: "select by value",
			Run: func(ctx context.Context, c browser.Context, el browser.Element) error {
				return el.SetValue(code)
			},
		}},
		func() bool { return fieldValue(frame, bankSel) == code })
	if !o.OK {
		return fmt.Errorf("bank code %s not accepted: %w", code, o.Err)
	}

	// Account number: keystrokes, after letting the slot's widgets attach
	// their handlers.
	browser.Settle(ctx, p.FieldSettle)
	acctSel := fieldID("rcvAcctNo", slot)
	o = p.exec.Perform(ctx, frame,
		browser.Target{Name: "account-" + acctSel, Selectors: []string{acctSel}},
		browser.TypeStrategies(row.AccountNumber),
		func() bool { return bank.DigitsOnly(fieldValue(frame, acctSel)) == row.AccountNumber })
	if !o.OK {
		return fmt.Errorf("account number not accepted: %w", o.Err)
	}

	amount := fmt.Sprintf("%d", row.Amount)
	amtSel := fieldID("trnsAmt", slot)
	o = p.exec.Perform(ctx, frame,
		browser.Target{Name: "amount-" + amtSel, Selectors: []string{amtSel}},
		browser.TypeStrategies(amount),
		func() bool { return bank.DigitsOnly(fieldValue(frame, amtSel)) == amount })
	if !o.OK {
		return fmt.Errorf("amount not accepted: %w", o.Err)
	}

	// Memos are best-effort: a rejected memo must not sink the transfer.
	memo := truncateRunes(row.Label, memoLimit)
	for _, prefix := range []string{"wdrwPsbkMarkCtt", "rcvPsbkMarkCtt"} {
		sel := fieldID(prefix, slot)
		el, err := frame.Find(sel)
		if err != nil {
			p.log.Debug("memo field %s missing", sel)
			continue
		}
		if err := el.SetValue(memo); err != nil {
			p.log.Warn("memo field %s rejected %q: %v", sel, memo, err)
		}
	}

	p.log.Info("slot %d: %s %s / %s / %s원", slot, row.BankName, row.AccountNumber, row.CustomerName, amount)
	return nil
}

func fieldValue(c browser.Context, selector string) string {
	el, err := c.Find(selector)
	if err != nil {
		return ""
	}
	return el.Value()
}

// enterPassword types the withdrawal password under the secure-input guard:
// if a virtual keyboard claims the field, the human's entry stands.
func (p *Processor) enterPassword(ctx context.Context, frame browser.Context) error {
	pw := p.cfg.AccountPassword
	if pw == "" {
		p.prompter.Say("출금계좌 비밀번호를 직접 입력해 주세요.")
		return nil
	}
	target := browser.Target{Name: "withdrawal-password", Selectors: []string{passwordSelector}}
	verify := browser.ValueAtLeast(func() browser.Element {
		el, err := frame.Find(passwordSelector)
		if err != nil {
			return nil
		}
		return el
	}, len(pw))
	o := p.exec.PerformGuarded(ctx, frame, target, browser.TypeStrategies(pw), verify, p.guard)
	if !o.OK {
		return fmt.Errorf("withdrawal password not accepted: %w", o.Err)
	}
	return nil
}

// submit presses the final control and clears the fraud-warning popups that
// race the submission.
func (p *Processor) submit(ctx context.Context, frame browser.Context) error {
	wd := watchdog.New(watchdog.SubmissionSignatures())
	o := p.exec.Perform(ctx, frame, submitTarget, browser.ClickStrategies(), func() bool {
		wd.Sweep(ctx, frame)
		// Submission navigates the frame or clears the form.
		return !frame.Alive() || !browser.ElementVisible(fieldID("rcvBnkCd", 0))(frame)
	})
	if !o.OK {
		return fmt.Errorf("submission not confirmed: %w", o.Err)
	}
	wd.Sweep(ctx, frame)
	return nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

package auth

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"hanapilot/internal/browser"
	"hanapilot/internal/browser/browsertest"
	"hanapilot/internal/console"
	"hanapilot/internal/watchdog"
)

// portalFixture wires a fake login page and certificate popup with the
// selectors the flow drives.
type portalFixture struct {
	page  *browsertest.FakeContext
	popup *browsertest.FakeContext

	menu     *browsertest.FakeElement
	login    *browsertest.FakeElement
	frameEl  *browsertest.FakeElement
	section  *browsertest.FakeElement
	medium   *browsertest.FakeElement
	store    *browsertest.FakeElement
	certRow  *browsertest.FakeElement
	password *browsertest.FakeElement
	okBtn    *browsertest.FakeElement
}

func newPortal() *portalFixture {
	fx := &portalFixture{
		page:  browsertest.NewContext("main"),
		popup: browsertest.NewContext(popupFrameName),
	}
	fx.page.Descendable[popupFrameName] = fx.popup

	fx.menu = fx.page.Add("a", &browsertest.FakeElement{
		VisibleFlag: true, EnabledFlag: true, TextValue: "공동/금융인증서 로그인",
	})
	fx.login = fx.page.Add(certLoginSelector, &browsertest.FakeElement{EnabledFlag: true})
	fx.menu.OnClick = func() { fx.login.VisibleFlag = true }

	fx.frameEl = fx.page.Add("iframe[name='"+popupFrameName+"']", &browsertest.FakeElement{})
	fx.login.OnClick = func() { fx.frameEl.VisibleFlag = true }

	fx.section = fx.popup.AddVisible(popupSection)
	fx.medium = fx.popup.AddVisible(".localDiskButton")
	fx.store = fx.popup.Add(storeListSelector, &browsertest.FakeElement{
		VisibleFlag: true, EnabledFlag: true,
		TextValue:  "이동식 디스크",
		Attributes: map[string]string{"aria-label": "Seagate Portable Drive"},
	})
	fx.certRow = fx.popup.Add(certRowSelector, &browsertest.FakeElement{
		VisibleFlag: true, EnabledFlag: true,
		TextValue:  "홍길동 (주)발급기관 2026-12-31",
		Attributes: map[string]string{"class": "w2ui-row"},
	})
	fx.password = fx.popup.AddVisible(passwordSelector)
	fx.popup.OnType = func(text string) { fx.password.Val += text }

	fx.okBtn = fx.popup.AddVisible(okButtonSelector)
	fx.okBtn.OnClick = func() {
		fx.section.VisibleFlag = false
		fx.frameEl.VisibleFlag = false
	}
	return fx
}

func newFlow(cfg Config, out *bytes.Buffer) *Flow {
	exec := browser.NewExecutor()
	exec.LocateWait = 100 * time.Millisecond
	exec.VerifyWait = 0

	resolver := browser.NewResolver(nil)
	resolver.Wait = 50 * time.Millisecond

	wd := watchdog.New(watchdog.SecureInputSignatures())
	wd.AppearWait = 10 * time.Millisecond
	wd.HumanWait = 100 * time.Millisecond

	prompter := console.New(strings.NewReader(""), out)
	f := New(cfg, exec, resolver, wd, prompter)
	f.PopupWait = time.Second
	f.StepWait = time.Second
	f.ConfirmWait = 200 * time.Millisecond
	f.TransitionWait = 100 * time.Millisecond
	return f
}

func TestRunHappyPath(t *testing.T) {
	fx := newPortal()
	out := &bytes.Buffer{}
	f := newFlow(Config{
		StoreKeywords: []string{"seagate"},
		OwnerName:     "홍길동",
		Password:      "pw12",
	}, out)

	if err := f.Run(context.Background(), fx.page); err != nil {
		t.Fatalf("Run: %v (state %s)", err, f.State())
	}
	if f.State() != StateDone {
		t.Fatalf("state = %s, want done", f.State())
	}
	if fx.certRow.Clicks != 1 {
		t.Errorf("certificate row clicks = %d", fx.certRow.Clicks)
	}
	if fx.password.Val == "" {
		t.Error("password never landed")
	}
	if strings.Contains(out.String(), "경고") {
		t.Error("unexpected operator warning on exact owner match")
	}
}

func TestIdentityFallbackWarnsOperator(t *testing.T) {
	fx := newPortal()
	out := &bytes.Buffer{}
	f := newFlow(Config{
		StoreKeywords: []string{"seagate"},
		OwnerName:     "김철수", // not in the certificate list
		Password:      "pw12",
	}, out)

	if err := f.Run(context.Background(), fx.page); err != nil {
		t.Fatalf("Run: %v (state %s)", err, f.State())
	}
	if fx.certRow.Clicks != 1 {
		t.Error("fallback should still select the first certificate")
	}
	if !strings.Contains(out.String(), "경고") {
		t.Error("first-identity fallback must be flagged to the operator")
	}
}

func TestIdentityAlreadySelectedIsNotReclicked(t *testing.T) {
	fx := newPortal()
	fx.certRow.Attributes["class"] = "w2ui-row w2ui-selected"
	f := newFlow(Config{StoreKeywords: []string{"seagate"}, OwnerName: "홍길동", Password: "pw12"}, &bytes.Buffer{})

	if err := f.Run(context.Background(), fx.page); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fx.certRow.Clicks != 0 {
		t.Error("already-selected row must not be clicked again")
	}
}

func TestConfirmShortCircuitsWhenSurfaceGone(t *testing.T) {
	fx := newPortal()
	fx.section.VisibleFlag = false
	fx.frameEl.VisibleFlag = false
	f := newFlow(Config{Password: "pw"}, &bytes.Buffer{})

	if err := f.confirm(context.Background(), fx.page, fx.popup); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if fx.okBtn.Clicks != 0 {
		t.Error("confirm clicked despite the surface already being gone")
	}
}

func TestConfirmTreatsDetachAsSuccess(t *testing.T) {
	fx := newPortal()
	// Clicking OK detaches the frame before the click "returns".
	fx.okBtn.ClickErr = browser.ErrContextDetached
	fx.okBtn.OnEval = func(string) { // script click path also detaches
		fx.popup.AliveVal = false
	}
	f := newFlow(Config{Password: "pw"}, &bytes.Buffer{})

	if err := f.confirm(context.Background(), fx.page, fx.popup); err != nil {
		t.Fatalf("confirm: %v", err)
	}
}

func TestSecretEntryAfterHumanOverlay(t *testing.T) {
	// A secure keyboard is up; once it resolves, the field already holds a
	// value and no strategy may overwrite it.
	fx := newPortal()
	overlay := fx.popup.AddVisible("#keyboardDialogBody")
	polls := 0
	overlay.VisibleFunc = func() bool {
		polls++
		if polls >= 3 {
			fx.password.Val = "human-typed"
			return false
		}
		return true
	}

	f := newFlow(Config{Password: "pw"}, &bytes.Buffer{})
	if err := f.enterSecret(context.Background(), fx.popup); err != nil {
		t.Fatalf("enterSecret: %v", err)
	}
	if len(fx.popup.Typed) != 0 {
		t.Errorf("session keystrokes sent despite human-entered value: %v", fx.popup.Typed)
	}
	if fx.password.Val != "human-typed" {
		t.Errorf("field value = %q, human value must be preserved", fx.password.Val)
	}
}

func TestRunFailsCleanlyWithoutStoreList(t *testing.T) {
	fx := newPortal()
	fx.popup.DOM[storeListSelector] = nil
	f := newFlow(Config{Password: "pw"}, &bytes.Buffer{})

	err := f.Run(context.Background(), fx.page)
	if err == nil {
		t.Fatal("expected failure with no store list")
	}
	if f.State() != StateFailed {
		t.Errorf("state = %s, want failed", f.State())
	}
	if !strings.Contains(err.Error(), "medium-select") && !strings.Contains(err.Error(), "store-select") {
		t.Errorf("error %q does not name the failing state", err)
	}
}

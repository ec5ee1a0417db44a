package browser_test

import (
	"context"
	"testing"
	"time"

	"hanapilot/internal/browser"
	"hanapilot/internal/browser/browsertest"
)

func TestWaitUntilTrueImmediately(t *testing.T) {
	c := browsertest.NewContext("main")
	ok := browser.WaitUntilEvery(context.Background(), c,
		func(browser.Context) bool { return true },
		time.Second, time.Millisecond)
	if !ok {
		t.Fatal("expected immediate true")
	}
}

func TestWaitUntilTimeout(t *testing.T) {
	c := browsertest.NewContext("main")
	start := time.Now()
	ok := browser.WaitUntilEvery(context.Background(), c,
		func(browser.Context) bool { return false },
		50*time.Millisecond, 5*time.Millisecond)
	if ok {
		t.Fatal("expected timeout false")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("wait ran far past its bound")
	}
}

func TestWaitUntilDetachedContextIsImmediateFalse(t *testing.T) {
	c := browsertest.NewContext("frame")
	c.AliveVal = false
	start := time.Now()
	ok := browser.WaitUntilEvery(context.Background(), c,
		func(browser.Context) bool { return true },
		5*time.Second, time.Millisecond)
	if ok {
		t.Fatal("dead context must never satisfy a wait")
	}
	if time.Since(start) > time.Second {
		t.Fatal("dead context wait should return immediately, not poll out the timeout")
	}
}

func TestWaitUntilPredicateFlips(t *testing.T) {
	c := browsertest.NewContext("main")
	el := c.Add("#late", &browsertest.FakeElement{})
	calls := 0
	pred := func(bc browser.Context) bool {
		calls++
		if calls == 3 {
			el.VisibleFlag = true // the element "appears" on the third poll
		}
		return browser.ElementVisible("#late")(bc)
	}
	ok := browser.WaitUntilEvery(context.Background(), c, pred, time.Second, time.Millisecond)
	if !ok {
		t.Fatal("expected predicate to flip true")
	}
	if calls < 3 {
		t.Fatalf("predicate polled %d times, want at least 3", calls)
	}
}

func TestElementGone(t *testing.T) {
	c := browsertest.NewContext("main")
	el := c.AddVisible("#modal")
	gone := browser.ElementGone("#modal")
	if gone(c) {
		t.Fatal("visible element reported gone")
	}
	el.VisibleFlag = false
	if !gone(c) {
		t.Fatal("hidden element still reported present")
	}
}

func TestWaitUntilHonorsCancellation(t *testing.T) {
	c := browsertest.NewContext("main")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok := browser.WaitUntilEvery(ctx, c,
		func(browser.Context) bool { return true },
		time.Second, time.Millisecond)
	if ok {
		t.Fatal("cancelled context must yield false")
	}
}

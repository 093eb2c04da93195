// ABOUTME: Tests for the retry controller under simulated slow-start and permanently-broken servers.
// ABOUTME: Uses a manual clock so backoff schedules and timeouts run without real delays.
package preview

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	when    time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return !t.fired
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{when: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward, firing due timers in order. Fired callbacks
// may schedule new timers, which are honored within the same advance.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	deadline := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.when.After(deadline) {
				continue
			}
			if next == nil || t.when.Before(next.when) {
				next = t
			}
		}
		if next == nil {
			c.now = deadline
			c.mu.Unlock()
			return
		}
		next.fired = true
		c.now = next.when
		f := next.f
		c.mu.Unlock()
		f()
	}
}

func testRetryConfig() RetryConfig {
	return RetryConfig{
		InconclusiveAttempts: 3,
		MaxAttempts:          6,
		TotalWindow:          time.Minute,
		BaseDelay:            100 * time.Millisecond,
		Growth:               2.0,
		MaxDelay:             time.Second,
		LoadTimeout:          500 * time.Millisecond,
	}
}

func TestBrokenServerTerminatesWithinMaxAttempts(t *testing.T) {
	clock := newFakeClock()
	var mu sync.Mutex
	attempts := 0
	rc := NewRetryController(testRetryConfig(), clock, func(int) {
		mu.Lock()
		attempts++
		mu.Unlock()
	}, nil)

	// The server never fires a load event: only the per-attempt load
	// timeout drives the sequence forward.
	rc.Start()
	clock.Advance(5 * time.Minute)

	if !rc.GaveUp() {
		t.Fatal("controller never reached its terminal give-up state")
	}
	mu.Lock()
	got := attempts
	mu.Unlock()
	if got > 6 {
		t.Errorf("fired %d attempts, exceeds MaxAttempts=6", got)
	}

	sess := rc.Session()
	if sess.LastError == "" {
		t.Error("terminal state must surface an explicit error")
	}
	if sess.IsLoading {
		t.Error("give-up must clear the loading flag")
	}

	// No further attempts after the terminal state.
	clock.Advance(5 * time.Minute)
	mu.Lock()
	if attempts != got {
		t.Errorf("attempts continued after give-up: %d -> %d", got, attempts)
	}
	mu.Unlock()
}

func TestSlowStartEventuallySucceeds(t *testing.T) {
	clock := newFakeClock()
	rc := NewRetryController(testRetryConfig(), clock, nil, nil)

	rc.Start()
	// The first loads are inconclusive: a booting dev server serves a
	// transient error page that still fires onLoad.
	for i := 0; i < 3; i++ {
		rc.OnLoad()
		clock.Advance(200 * time.Millisecond)
	}

	// By now retryCount passed the inconclusive window; this load wins.
	rc.OnLoad()

	sess := rc.Session()
	if sess.RetryStatus != RetryIdle {
		t.Errorf("retryStatus = %s, want idle", sess.RetryStatus)
	}
	if sess.IsLoading {
		t.Error("isLoading still set after accepted load")
	}
	if rc.GaveUp() {
		t.Error("successful sequence must not be terminal")
	}
}

func TestEarlyLoadsAreInconclusive(t *testing.T) {
	clock := newFakeClock()
	var mu sync.Mutex
	attempts := 0
	rc := NewRetryController(testRetryConfig(), clock, func(int) {
		mu.Lock()
		attempts++
		mu.Unlock()
	}, nil)

	rc.Start()
	rc.OnLoad()

	// An inconclusive load schedules another attempt instead of success.
	if sess := rc.Session(); sess.RetryStatus != RetryRetrying {
		t.Errorf("retryStatus = %s, want retrying", sess.RetryStatus)
	}
	clock.Advance(time.Second)
	mu.Lock()
	if attempts < 2 {
		t.Errorf("expected a follow-up attempt after inconclusive load, got %d", attempts)
	}
	mu.Unlock()
}

func TestOnErrorSchedulesBackoffRetry(t *testing.T) {
	clock := newFakeClock()
	var mu sync.Mutex
	attempts := 0
	rc := NewRetryController(testRetryConfig(), clock, func(int) {
		mu.Lock()
		attempts++
		mu.Unlock()
	}, nil)

	rc.Start()
	rc.OnError("connection refused")

	if sess := rc.Session(); sess.LastError != "connection refused" {
		t.Errorf("lastError = %q", sess.LastError)
	}
	clock.Advance(time.Second)
	mu.Lock()
	if attempts < 2 {
		t.Errorf("expected retry after error, attempts = %d", attempts)
	}
	mu.Unlock()
}

func TestManualRefreshResetsSequence(t *testing.T) {
	clock := newFakeClock()
	rc := NewRetryController(testRetryConfig(), clock, nil, nil)

	rc.Start()
	clock.Advance(5 * time.Minute)
	if !rc.GaveUp() {
		t.Fatal("setup: expected give-up")
	}

	rc.ManualRefresh()
	sess := rc.Session()
	if sess.RetryCount != 0 {
		t.Errorf("retryCount = %d after manual refresh, want 0", sess.RetryCount)
	}
	if sess.LastError != "" {
		t.Errorf("lastError = %q, want cleared", sess.LastError)
	}
	if !sess.IsLoading {
		t.Error("manual refresh must restart loading")
	}
}

func TestStopHaltsAllTimers(t *testing.T) {
	clock := newFakeClock()
	var mu sync.Mutex
	attempts := 0
	rc := NewRetryController(testRetryConfig(), clock, func(int) {
		mu.Lock()
		attempts++
		mu.Unlock()
	}, nil)

	rc.Start()
	rc.Stop()
	clock.Advance(time.Minute)

	mu.Lock()
	if attempts > 1 {
		t.Errorf("attempts fired after stop: %d", attempts)
	}
	mu.Unlock()
	if sess := rc.Session(); sess.RetryStatus != RetryIdle || sess.IsLoading {
		t.Errorf("session = %+v, want idle", sess)
	}
}

func TestDelayScheduleCapsAtMaxDelay(t *testing.T) {
	cfg := DefaultRetryConfig()
	if d := cfg.Delay(0); d != cfg.BaseDelay {
		t.Errorf("Delay(0) = %v, want base", d)
	}
	if d := cfg.Delay(20); d != cfg.MaxDelay {
		t.Errorf("Delay(20) = %v, want cap %v", d, cfg.MaxDelay)
	}
	// The exponent clamps at 5, so attempts 5 and 9 share a delay.
	if cfg.Delay(5) != cfg.Delay(9) {
		t.Error("exponent not clamped at 5")
	}
}

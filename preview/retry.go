// ABOUTME: Bounded retry/reconnect controller for live dev servers that are slow to start listening.
// ABOUTME: Distinguishes "still booting" from "genuinely broken" via an inconclusive-load window and hard ceilings.
package preview

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// RetryStatus is the controller's externally visible state.
type RetryStatus string

const (
	RetryIdle     RetryStatus = "idle"
	RetryWaiting  RetryStatus = "waiting"
	RetryRetrying RetryStatus = "retrying"
)

// RetryConfig holds the controller's tunables. The counts and delays are
// empirically chosen defaults, configurable rather than invariant.
type RetryConfig struct {
	// InconclusiveAttempts is how many early load events are treated as
	// inconclusive: a freshly started dev server often serves a transient
	// error page that still fires onLoad.
	InconclusiveAttempts int
	// MaxAttempts is the hard ceiling before the controller gives up.
	MaxAttempts int
	// TotalWindow bounds the whole sequence regardless of attempt count.
	TotalWindow time.Duration
	// BaseDelay and Growth shape the explicit-retry backoff:
	// min(BaseDelay * Growth^min(n,5), MaxDelay).
	BaseDelay time.Duration
	Growth    float64
	MaxDelay  time.Duration
	// LoadTimeout forces the next retry when no load event arrives at all,
	// covering connection-refused cases that never fire one.
	LoadTimeout time.Duration
}

// DefaultRetryConfig returns the production defaults: 8 inconclusive
// attempts, 15 max, 30s window, 250ms base delay growing to a 5s cap, 3s
// load timeout.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InconclusiveAttempts: 8,
		MaxAttempts:          15,
		TotalWindow:          30 * time.Second,
		BaseDelay:            250 * time.Millisecond,
		Growth:               2.0,
		MaxDelay:             5 * time.Second,
		LoadTimeout:          3 * time.Second,
	}
}

// Delay returns the backoff delay before retry attempt n (0-indexed),
// capped at MaxDelay with the exponent clamped at 5.
func (c RetryConfig) Delay(attempt int) time.Duration {
	exp := attempt
	if exp > 5 {
		exp = 5
	}
	d := float64(c.BaseDelay) * math.Pow(c.Growth, float64(exp))
	if d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}
	return time.Duration(d)
}

// Timer is the stoppable handle returned by a Clock.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. The real implementation wraps time.AfterFunc;
// tests substitute a manual clock to simulate slow-start and broken-server
// sequences without real delays.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock returns the production Clock backed by the runtime timer system.
func RealClock() Clock { return realClock{} }

// realClock is the production Clock.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ErrGaveUp is the terminal error surfaced when the server never became
// reachable within the configured bounds.
var ErrGaveUp = fmt.Errorf("server is taking too long to respond; try a manual refresh")

// RetryController wraps a live-server load lifecycle. Callbacks:
//
//   - attempt(n) asks the host to (re)load the server URL
//   - onStateChange reports session updates for the UI
//
// All callbacks fire outside the controller lock.
type RetryController struct {
	cfg   RetryConfig
	clock Clock

	attempt       func(n int)
	onStateChange func(Session)

	mu        sync.Mutex
	active    bool
	count     int
	startedAt time.Time
	loadTimer Timer
	nextTimer Timer
	session   Session
}

// NewRetryController creates a stopped controller. A nil clock uses the
// real time implementation.
func NewRetryController(cfg RetryConfig, clock Clock, attempt func(n int), onStateChange func(Session)) *RetryController {
	if clock == nil {
		clock = realClock{}
	}
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultRetryConfig()
	}
	return &RetryController{
		cfg:           cfg,
		clock:         clock,
		attempt:       attempt,
		onStateChange: onStateChange,
		session:       Session{RetryStatus: RetryIdle},
	}
}

// Start begins a fresh load sequence: retryStatus waiting, count zero, and
// an immediate first attempt.
func (rc *RetryController) Start() {
	rc.mu.Lock()
	rc.stopTimersLocked()
	rc.active = true
	rc.count = 0
	rc.startedAt = rc.clock.Now()
	rc.session = Session{IsLoading: true, RetryStatus: RetryWaiting}
	rc.mu.Unlock()

	rc.notify()
	rc.fireAttempt()
}

// ManualRefresh resets the counter and restarts the whole sequence, clearing
// any terminal error.
func (rc *RetryController) ManualRefresh() {
	rc.Start()
}

// Stop halts all timers and returns the controller to idle. Used on mode
// switch and workspace teardown.
func (rc *RetryController) Stop() {
	rc.mu.Lock()
	rc.stopTimersLocked()
	rc.active = false
	rc.session.IsLoading = false
	rc.session.RetryStatus = RetryIdle
	rc.mu.Unlock()
	rc.notify()
}

// OnLoad reports that a load event fired for the current attempt. Early
// loads are inconclusive (the content may itself be an error page) and
// schedule another attempt; later loads are accepted as success.
func (rc *RetryController) OnLoad() {
	rc.mu.Lock()
	if !rc.active {
		rc.mu.Unlock()
		return
	}
	rc.stopLoadTimerLocked()

	if rc.count < rc.cfg.InconclusiveAttempts {
		rc.mu.Unlock()
		rc.scheduleNext(rc.cfg.BaseDelay)
		return
	}

	// Accepted as success.
	rc.stopTimersLocked()
	rc.active = false
	rc.count = 0
	rc.session = Session{RetryStatus: RetryIdle}
	rc.mu.Unlock()
	rc.notify()
}

// OnError reports a failed load attempt and schedules the next retry with
// exponential backoff.
func (rc *RetryController) OnError(msg string) {
	rc.mu.Lock()
	if !rc.active {
		rc.mu.Unlock()
		return
	}
	rc.stopLoadTimerLocked()
	rc.session.LastError = msg
	delay := rc.cfg.Delay(rc.count)
	rc.mu.Unlock()

	rc.scheduleNext(delay)
}

// Session returns a copy of the current preview session state.
func (rc *RetryController) Session() Session {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.session
}

// scheduleNext advances the attempt counter and schedules the next attempt,
// giving up when either ceiling is exceeded.
func (rc *RetryController) scheduleNext(delay time.Duration) {
	rc.mu.Lock()
	if !rc.active {
		rc.mu.Unlock()
		return
	}
	rc.count++
	exhausted := rc.count >= rc.cfg.MaxAttempts ||
		rc.clock.Now().Sub(rc.startedAt) > rc.cfg.TotalWindow
	if exhausted {
		rc.stopTimersLocked()
		rc.active = false
		rc.session = Session{
			RetryStatus: RetryIdle,
			RetryCount:  rc.count,
			LastError:   ErrGaveUp.Error(),
		}
		rc.mu.Unlock()
		rc.notify()
		return
	}

	rc.session.RetryStatus = RetryRetrying
	rc.session.RetryCount = rc.count
	rc.session.IsLoading = true
	rc.nextTimer = rc.clock.AfterFunc(delay, rc.fireAttempt)
	rc.mu.Unlock()
	rc.notify()
}

// fireAttempt triggers one load attempt and arms the per-attempt load
// timeout so a server that never answers still advances the sequence.
func (rc *RetryController) fireAttempt() {
	rc.mu.Lock()
	if !rc.active {
		rc.mu.Unlock()
		return
	}
	n := rc.count
	rc.loadTimer = rc.clock.AfterFunc(rc.cfg.LoadTimeout, func() {
		rc.scheduleNext(rc.cfg.Delay(n))
	})
	attempt := rc.attempt
	rc.mu.Unlock()

	if attempt != nil {
		attempt(n)
	}
}

// GaveUp reports whether the controller reached its terminal state.
func (rc *RetryController) GaveUp() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return !rc.active && rc.session.LastError == ErrGaveUp.Error()
}

func (rc *RetryController) stopLoadTimerLocked() {
	if rc.loadTimer != nil {
		rc.loadTimer.Stop()
		rc.loadTimer = nil
	}
}

func (rc *RetryController) stopTimersLocked() {
	rc.stopLoadTimerLocked()
	if rc.nextTimer != nil {
		rc.nextTimer.Stop()
		rc.nextTimer = nil
	}
}

func (rc *RetryController) notify() {
	if rc.onStateChange != nil {
		rc.onStateChange(rc.Session())
	}
}

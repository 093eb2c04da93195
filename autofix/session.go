// ABOUTME: Fix session state machine: idle, fixing, completed, failed.
// ABOUTME: Terminal display states auto-revert to idle so a later fix attempt is always possible.
package autofix

import (
	"sync"
	"time"

	"github.com/vitrine-labs/vitrine/preview"
)

// Status is the fix session's externally visible state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusFixing    Status = "fixing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Session is the fix state surfaced to the UI.
type Session struct {
	Status         Status   `json:"status"`
	Message        string   `json:"message,omitempty"`
	PatchesApplied int      `json:"patches_applied"`
	FilesModified  []string `json:"files_modified,omitempty"`
}

// defaultDisplayDuration is how long completed/failed states stay visible
// before reverting to idle. Cosmetic, not correctness-critical.
const defaultDisplayDuration = 4 * time.Second

// State guards the fix session lifecycle. Exactly one fix may be in flight:
// Begin succeeds only from idle. Completed and failed are display states
// that revert to idle after the display duration, so the machine can never
// get stuck refusing new fix attempts.
type State struct {
	mu      sync.Mutex
	session Session
	display time.Duration
	clock   preview.Clock
	epoch   int
	timer   preview.Timer

	onChange func(Session)
}

// NewState creates an idle State. A nil clock uses real time; a
// non-positive display duration uses the default. onChange fires outside
// the lock on every transition.
func NewState(display time.Duration, clock preview.Clock, onChange func(Session)) *State {
	if clock == nil {
		clock = preview.RealClock()
	}
	if display <= 0 {
		display = defaultDisplayDuration
	}
	return &State{
		session:  Session{Status: StatusIdle},
		display:  display,
		clock:    clock,
		onChange: onChange,
	}
}

// Begin transitions into fixing. Returns false when a fix is already in
// flight; callers must not start a repair request on false. Beginning from
// a completed/failed display state cuts the display short.
func (s *State) Begin() bool {
	s.mu.Lock()
	if s.session.Status == StatusFixing {
		s.mu.Unlock()
		return false
	}
	s.stopTimerLocked()
	s.epoch++
	s.session = Session{Status: StatusFixing}
	s.mu.Unlock()
	s.notify()
	return true
}

// Complete transitions fixing -> completed and schedules the revert to idle.
func (s *State) Complete(message string, filesModified []string, patches int) {
	s.settle(Session{
		Status:         StatusCompleted,
		Message:        message,
		PatchesApplied: patches,
		FilesModified:  filesModified,
	})
}

// Fail transitions fixing -> failed and schedules the revert to idle. The
// captured errors stay unresolved; retry is user-initiated.
func (s *State) Fail(message string) {
	s.settle(Session{Status: StatusFailed, Message: message})
}

// Abort transitions fixing -> idle immediately, with no display state. Used
// on cancellation and workspace teardown.
func (s *State) Abort() {
	s.mu.Lock()
	if s.session.Status != StatusFixing {
		s.mu.Unlock()
		return
	}
	s.stopTimerLocked()
	s.epoch++
	s.session = Session{Status: StatusIdle}
	s.mu.Unlock()
	s.notify()
}

// Snapshot returns a copy of the current session.
func (s *State) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// settle moves into a display state and arms the revert timer. The epoch
// guard keeps a stale timer from reverting a newer session.
func (s *State) settle(next Session) {
	s.mu.Lock()
	if s.session.Status != StatusFixing {
		s.mu.Unlock()
		return
	}
	s.stopTimerLocked()
	s.epoch++
	epoch := s.epoch
	s.session = next
	s.timer = s.clock.AfterFunc(s.display, func() {
		s.revert(epoch)
	})
	s.mu.Unlock()
	s.notify()
}

func (s *State) revert(epoch int) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return
	}
	s.session = Session{Status: StatusIdle}
	s.mu.Unlock()
	s.notify()
}

func (s *State) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *State) notify() {
	if s.onChange != nil {
		s.onChange(s.Snapshot())
	}
}

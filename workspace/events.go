// ABOUTME: Event system for workspace state, enabling real-time observation by the UI transport.
// ABOUTME: Provides Emitter with subscribe/emit/unsubscribe pattern and typed WorkspaceEvent delivery.
package workspace

import (
	"sync"
	"time"
)

// EventKind discriminates the type of workspace event.
type EventKind string

const (
	EventFilesChanged   EventKind = "files_changed"
	EventPreviewSession EventKind = "preview_session"
	EventFixSession     EventKind = "fix_session"
	EventErrorCaptured  EventKind = "error_captured"
	EventReload         EventKind = "reload"
	EventStatus         EventKind = "status"
	EventGenerationDone EventKind = "generation_done"
	EventTeardown       EventKind = "teardown"
)

// WorkspaceEvent is a typed event emitted by a workspace.
type WorkspaceEvent struct {
	Kind      EventKind      `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	ProjectID string         `json:"project_id"`
	Data      map[string]any `json:"data,omitempty"`
}

// Emitter delivers workspace events to subscribed channels.
type Emitter struct {
	mu          sync.RWMutex
	subscribers []chan WorkspaceEvent
	closed      bool
}

// NewEmitter creates a new Emitter.
func NewEmitter() *Emitter {
	return &Emitter{subscribers: make([]chan WorkspaceEvent, 0)}
}

// Subscribe registers a new subscriber channel and returns it.
// The channel has a buffer of 64 to reduce the likelihood of blocking.
func (e *Emitter) Subscribe() <-chan WorkspaceEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan WorkspaceEvent, 64)
	e.subscribers = append(e.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber channel and closes it.
func (e *Emitter) Unsubscribe(ch <-chan WorkspaceEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, sub := range e.subscribers {
		if (<-chan WorkspaceEvent)(sub) == ch {
			close(sub)
			e.subscribers = append(e.subscribers[:i], e.subscribers[i+1:]...)
			return
		}
	}
}

// Emit sends an event to all subscribers. Non-blocking: if a subscriber's
// channel buffer is full, the event is dropped for that subscriber.
func (e *Emitter) Emit(event WorkspaceEvent) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return
	}
	for _, ch := range e.subscribers {
		select {
		case ch <- event:
		default:
			// Drop for slow subscribers rather than blocking the pipeline.
		}
	}
}

// Close closes the emitter and all subscriber channels.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	for _, ch := range e.subscribers {
		close(ch)
	}
	e.subscribers = nil
}

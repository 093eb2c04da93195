// ABOUTME: Bounded ring buffer of recent execution log lines from the sandbox.
// ABOUTME: Feeds the repair request's context so fixes see the output surrounding an error.
package capture

import "sync"

// Log is a fixed-capacity ring of recent log lines. Safe for concurrent use.
type Log struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

// NewLog creates a ring holding up to capacity lines.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = 100
	}
	return &Log{lines: make([]string, capacity)}
}

// Append records one log line, evicting the oldest when full.
func (l *Log) Append(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines[l.next] = line
	l.next = (l.next + 1) % len(l.lines)
	if l.next == 0 {
		l.full = true
	}
}

// Recent returns the buffered lines, oldest first.
func (l *Log) Recent() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.full {
		out := make([]string, l.next)
		copy(out, l.lines[:l.next])
		return out
	}
	out := make([]string, 0, len(l.lines))
	out = append(out, l.lines[l.next:]...)
	out = append(out, l.lines[:l.next]...)
	return out
}

// Clear empties the ring.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.lines {
		l.lines[i] = ""
	}
	l.next = 0
	l.full = false
}

// ABOUTME: Deduplicated collection of unresolved captured errors keyed by signature.
// ABOUTME: Suppresses error storms by counting repeats and bounding resource-failure tracking with an LRU.
package capture

import (
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// resourceLRUSize bounds how many distinct failing resource srcs are
// remembered. A page stuck in an image-retry loop can produce an unbounded
// stream of distinct cache-busted URLs; beyond this many the oldest are
// forgotten and may be reported again.
const resourceLRUSize = 256

// Set is the unordered, deduplicated collection of unresolved errors for
// one capture session. Safe for concurrent use.
type Set struct {
	mu           sync.Mutex
	bySignature  map[string]*Error
	resourceSeen *lru.Cache[string, struct{}]
	onFirst      func(Error)
}

// NewSet creates an empty Set. onFirst, if non-nil, is called (outside the
// lock) the first time a given signature is captured; duplicates only
// increment the count.
func NewSet(onFirst func(Error)) *Set {
	seen, _ := lru.New[string, struct{}](resourceLRUSize)
	return &Set{
		bySignature:  make(map[string]*Error),
		resourceSeen: seen,
		onFirst:      onFirst,
	}
}

// Add records a captured error. Repeat signatures are suppressed into a
// count on the original entry. Returns true when the error was new.
func (s *Set) Add(e Error) bool {
	if e.ID == "" {
		e.ID = NewID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Severity == "" {
		e.Severity = SeverityError
	}

	s.mu.Lock()
	if e.Source == SourceResource {
		if _, dup := s.resourceSeen.Get(e.File); dup {
			s.mu.Unlock()
			return false
		}
		s.resourceSeen.Add(e.File, struct{}{})
	}

	sig := e.Signature()
	if existing, ok := s.bySignature[sig]; ok {
		existing.Count++
		s.mu.Unlock()
		return false
	}
	e.Count = 1
	s.bySignature[sig] = &e
	notify := s.onFirst
	s.mu.Unlock()

	if notify != nil {
		notify(e)
	}
	return true
}

// Unresolved returns the current unresolved errors ordered by first capture
// time.
func (s *Set) Unresolved() []Error {
	s.mu.Lock()
	out := make([]Error, 0, len(s.bySignature))
	for _, e := range s.bySignature {
		out = append(out, *e)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// Len returns the number of distinct unresolved errors.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bySignature)
}

// Count returns the suppressed-duplicate count for a signature, or 0.
func (s *Set) Count(signature string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.bySignature[signature]; ok {
		return e.Count
	}
	return 0
}

// ResolveAll flips every tracked error to resolved, empties the set, and
// returns the resolved errors. This is the explicit clear-on-fix path; the
// set never resolves errors by timeout.
func (s *Set) ResolveAll() []Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Error, 0, len(s.bySignature))
	for _, e := range s.bySignature {
		e.Resolved = true
		out = append(out, *e)
	}
	s.bySignature = make(map[string]*Error)
	s.resourceSeen.Purge()
	return out
}

// Clear discards all state without resolving anything. Used only during
// workspace teardown.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bySignature = make(map[string]*Error)
	s.resourceSeen.Purge()
}

// ABOUTME: Captured runtime error model and message normalization for stable dedup signatures.
// ABOUTME: Replaces hex strings, UUIDs, numbers, timestamps, and quoted paths with placeholders.
package capture

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
)

// Source identifies the failure channel an error was captured from.
type Source string

const (
	SourceRuntime  Source = "runtime"
	SourcePromise  Source = "promise"
	SourceConsole  Source = "console"
	SourceNetwork  Source = "network"
	SourceResource Source = "resource"
	SourceHMR      Source = "hmr"
	SourceReact    Source = "react"
	SourceCSP      Source = "csp"
	SourceModule   Source = "module"
)

// Severity grades a captured error for display and repair prioritization.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Error is one normalized captured error. Resolved flips true only on an
// explicit clear-on-fix, never by timeout.
type Error struct {
	ID        string    `json:"id"`
	Source    Source    `json:"source"`
	Message   string    `json:"message"`
	File      string    `json:"file,omitempty"`
	Line      int       `json:"line,omitempty"`
	Column    int       `json:"column,omitempty"`
	Stack     string    `json:"stack,omitempty"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
	Resolved  bool      `json:"resolved"`
	Count     int       `json:"count"`
}

// NewID generates a ULID for a captured error using crypto/rand entropy.
func NewID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// Signature returns the dedup key for this error. Two errors with the same
// source, normalized message, file, and line are the same error.
func (e *Error) Signature() string {
	return fmt.Sprintf("%s|%s|%s|%d", e.Source, NormalizeMessage(e.Message), e.File, e.Line)
}

// Normalization patterns, most specific first so general patterns don't
// consume parts of specific ones.
var (
	uuidPattern             = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	timestampPattern        = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})?`)
	doubleQuotedPathPattern = regexp.MustCompile(`"[^"]*/[^"]*"`)
	singleQuotedPathPattern = regexp.MustCompile(`'[^']*/[^']*'`)
	hexPrefixedPattern      = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	numberPattern           = regexp.MustCompile(`\b\d+\b`)
)

// NormalizeMessage replaces variable content in an error message with stable
// placeholders so errors differing only in runtime-specific values (object
// ids, line offsets inside bundled output, cache-busting params) share a
// signature.
func NormalizeMessage(msg string) string {
	if msg == "" {
		return ""
	}
	result := uuidPattern.ReplaceAllString(msg, "<UUID>")
	result = timestampPattern.ReplaceAllString(result, "<TIMESTAMP>")
	result = doubleQuotedPathPattern.ReplaceAllString(result, "<PATH>")
	result = singleQuotedPathPattern.ReplaceAllString(result, "<PATH>")
	result = hexPrefixedPattern.ReplaceAllString(result, "<HEX>")
	result = numberPattern.ReplaceAllString(result, "<N>")
	return result
}

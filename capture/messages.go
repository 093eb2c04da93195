// ABOUTME: Decoders for the one-way sandbox-to-host message channel, one adapter per failure channel.
// ABOUTME: Pattern-matches on the message's type tag and never throws on unknown or malformed input.
package capture

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Message type tags emitted by the instrumentation payload. The host must
// ignore any message not matching a known tag.
const (
	MsgRuntimeError       = "runtime-error"
	MsgModuleError        = "module-error"
	MsgUnhandledRejection = "unhandled-rejection"
	MsgConsoleError       = "console-error"
	MsgConsoleWarn        = "console-warn"
	MsgNetworkError       = "network-error"
	MsgResourceError      = "resource-error"
	MsgHMRError           = "hmr-error"
	MsgReactError         = "react-error"
	MsgCSPViolation       = "csp-violation"
)

// sandboxMessage is the loose wire shape of one sandbox report.
type sandboxMessage struct {
	Type string `json:"type"`

	Message  string  `json:"message"`
	File     string  `json:"filename"`
	Line     int     `json:"lineno"`
	Column   int     `json:"colno"`
	Stack    string  `json:"stack"`
	URL      string  `json:"url"`
	Method   string  `json:"method"`
	Status   int     `json:"status"`
	Duration float64 `json:"duration"`
	Tag      string  `json:"tag"`
	Src      string  `json:"src"`
	Text     string  `json:"text"`

	ComponentStack    string `json:"componentStack"`
	BlockedURI        string `json:"blockedURI"`
	ViolatedDirective string `json:"violatedDirective"`
	SourceFile        string `json:"sourceFile"`
	LineNumber        int    `json:"lineNumber"`
}

// DecodeMessage parses one sandbox message into a captured Error. Returns
// (zero, false) for unknown tags and undecodable payloads; decoding
// failures must never propagate back toward project code.
func DecodeMessage(data []byte) (Error, bool) {
	var msg sandboxMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Error{}, false
	}

	switch msg.Type {
	case MsgRuntimeError:
		return adaptScriptError(msg, SourceRuntime), true
	case MsgModuleError:
		return adaptScriptError(msg, SourceModule), true
	case MsgUnhandledRejection:
		return Error{
			Source:  SourcePromise,
			Message: orUnknown(msg.Message, "unhandled promise rejection"),
			Stack:   msg.Stack,
		}, true
	case MsgConsoleError:
		return Error{Source: SourceConsole, Message: msg.Message}, true
	case MsgConsoleWarn:
		return Error{Source: SourceConsole, Message: msg.Message, Severity: SeverityWarning}, true
	case MsgNetworkError:
		return adaptNetworkError(msg), true
	case MsgResourceError:
		return adaptResourceError(msg), true
	case MsgHMRError:
		return adaptHMRError(msg), true
	case MsgReactError:
		return adaptReactError(msg), true
	case MsgCSPViolation:
		return adaptCSPViolation(msg), true
	default:
		return Error{}, false
	}
}

// adaptScriptError handles uncaught throws and module-resolution failures.
func adaptScriptError(msg sandboxMessage, source Source) Error {
	return Error{
		Source:  source,
		Message: orUnknown(msg.Message, "script error"),
		File:    msg.File,
		Line:    msg.Line,
		Column:  msg.Column,
		Stack:   msg.Stack,
	}
}

// corsPattern matches the browser error text produced by cross-origin
// request failures, which otherwise surfaces as an opaque network error.
var corsPattern = regexp.MustCompile(`(?i)CORS|cross-origin|Access-Control-Allow-Origin`)

// adaptNetworkError handles fetch/XHR failures, re-tagging CORS-pattern
// text with an actionable message.
func adaptNetworkError(msg sandboxMessage) Error {
	text := msg.Message
	switch {
	case corsPattern.MatchString(text):
		text = fmt.Sprintf("CORS blocked request to %s: %s", msg.URL, text)
	case msg.Status > 0:
		text = fmt.Sprintf("%s %s failed with status %d (%.0fms)", orUnknown(msg.Method, "GET"), msg.URL, msg.Status, msg.Duration)
	default:
		text = fmt.Sprintf("%s %s failed: %s", orUnknown(msg.Method, "GET"), msg.URL, orUnknown(text, "network error"))
	}
	return Error{Source: SourceNetwork, Message: text, File: msg.URL}
}

// adaptResourceError handles img/script/link/media elements that failed to
// load. The src doubles as the dedup key.
func adaptResourceError(msg sandboxMessage) Error {
	return Error{
		Source:   SourceResource,
		Message:  fmt.Sprintf("<%s> failed to load %s", orUnknown(msg.Tag, "resource"), msg.Src),
		File:     msg.Src,
		Severity: SeverityWarning,
	}
}

// hmrLocationPattern extracts "path/to/file.ext:line[:col]" references from
// dev-server build overlay text.
var hmrLocationPattern = regexp.MustCompile(`([\w@./-]+\.(?:jsx?|tsx?|mjs|cjs|vue|svelte|css|scss|html)):(\d+)(?::(\d+))?`)

// adaptHMRError handles dev-server build overlays, parsing a best-effort
// file/line out of the overlay text.
func adaptHMRError(msg sandboxMessage) Error {
	text := strings.TrimSpace(orUnknown(msg.Text, msg.Message))
	e := Error{Source: SourceHMR, Message: text}
	if m := hmrLocationPattern.FindStringSubmatch(text); m != nil {
		e.File = m[1]
		e.Line, _ = strconv.Atoi(m[2])
		if m[3] != "" {
			e.Column, _ = strconv.Atoi(m[3])
		}
	}
	return e
}

// adaptReactError handles the injected error boundary's reports.
func adaptReactError(msg sandboxMessage) Error {
	stack := msg.Stack
	if msg.ComponentStack != "" {
		stack = strings.TrimSpace(stack + "\n\nComponent stack:" + msg.ComponentStack)
	}
	return Error{
		Source:  SourceReact,
		Message: orUnknown(msg.Message, "component render error"),
		Stack:   stack,
	}
}

// adaptCSPViolation handles browser-reported policy violations.
func adaptCSPViolation(msg sandboxMessage) Error {
	return Error{
		Source:  SourceCSP,
		Message: fmt.Sprintf("CSP violation: %s blocked by %s", msg.BlockedURI, msg.ViolatedDirective),
		File:    msg.SourceFile,
		Line:    msg.LineNumber,
	}
}

// orUnknown returns s, or fallback when s is empty.
func orUnknown(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

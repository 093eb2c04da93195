// ABOUTME: Tests for sandbox message decoding across every failure channel tag.
// ABOUTME: Covers CORS re-tagging, overlay file/line parsing, unknown tags, and malformed payloads.
package capture

import (
	"strings"
	"testing"
)

func TestDecodeRuntimeError(t *testing.T) {
	e, ok := DecodeMessage([]byte(`{
		"type":"runtime-error","message":"x is not defined",
		"filename":"app.js","lineno":12,"colno":5,"stack":"ReferenceError: x is not defined"
	}`))
	if !ok {
		t.Fatal("expected decode")
	}
	if e.Source != SourceRuntime || e.File != "app.js" || e.Line != 12 || e.Column != 5 {
		t.Errorf("error = %+v", e)
	}
}

func TestDecodeModuleErrorTaggedModule(t *testing.T) {
	e, ok := DecodeMessage([]byte(`{"type":"module-error","message":"Failed to resolve module './x'"}`))
	if !ok || e.Source != SourceModule {
		t.Errorf("got (%+v, %v)", e, ok)
	}
}

func TestDecodeUnhandledRejection(t *testing.T) {
	e, ok := DecodeMessage([]byte(`{"type":"unhandled-rejection","message":"fetch failed","stack":"at main"}`))
	if !ok || e.Source != SourcePromise || e.Message != "fetch failed" {
		t.Errorf("got (%+v, %v)", e, ok)
	}
}

func TestDecodeConsoleWarnIsWarning(t *testing.T) {
	e, ok := DecodeMessage([]byte(`{"type":"console-warn","message":"deprecated API"}`))
	if !ok || e.Severity != SeverityWarning || e.Source != SourceConsole {
		t.Errorf("got (%+v, %v)", e, ok)
	}
}

func TestDecodeNetworkErrorWithStatus(t *testing.T) {
	e, ok := DecodeMessage([]byte(`{
		"type":"network-error","url":"/api/items","method":"POST","status":500,"duration":120
	}`))
	if !ok {
		t.Fatal("expected decode")
	}
	if e.Source != SourceNetwork {
		t.Errorf("source = %s", e.Source)
	}
	if !strings.Contains(e.Message, "POST /api/items") || !strings.Contains(e.Message, "500") {
		t.Errorf("message = %q", e.Message)
	}
}

func TestDecodeNetworkErrorCORSRetagged(t *testing.T) {
	e, ok := DecodeMessage([]byte(`{
		"type":"network-error","url":"https://api.other.com/v1",
		"message":"No 'Access-Control-Allow-Origin' header is present"
	}`))
	if !ok {
		t.Fatal("expected decode")
	}
	if !strings.HasPrefix(e.Message, "CORS blocked request to https://api.other.com/v1") {
		t.Errorf("message = %q, want CORS re-tag", e.Message)
	}
}

func TestDecodeResourceError(t *testing.T) {
	e, ok := DecodeMessage([]byte(`{"type":"resource-error","tag":"img","src":"/logo.png"}`))
	if !ok {
		t.Fatal("expected decode")
	}
	if e.Source != SourceResource || e.File != "/logo.png" {
		t.Errorf("error = %+v", e)
	}
	if !strings.Contains(e.Message, "<img>") {
		t.Errorf("message = %q", e.Message)
	}
}

func TestDecodeHMRErrorParsesFileAndLine(t *testing.T) {
	e, ok := DecodeMessage([]byte(`{
		"type":"hmr-error",
		"text":"[plugin:vite:react-babel] Unexpected token in src/App.jsx:14:7"
	}`))
	if !ok {
		t.Fatal("expected decode")
	}
	if e.Source != SourceHMR {
		t.Errorf("source = %s", e.Source)
	}
	if e.File != "src/App.jsx" || e.Line != 14 || e.Column != 7 {
		t.Errorf("location = (%s, %d, %d)", e.File, e.Line, e.Column)
	}
}

func TestDecodeReactErrorMergesComponentStack(t *testing.T) {
	e, ok := DecodeMessage([]byte(`{
		"type":"react-error","message":"Cannot read properties of undefined",
		"stack":"at render","componentStack":"\n  at App\n  at Root"
	}`))
	if !ok || e.Source != SourceReact {
		t.Fatalf("got (%+v, %v)", e, ok)
	}
	if !strings.Contains(e.Stack, "Component stack:") || !strings.Contains(e.Stack, "at App") {
		t.Errorf("stack = %q", e.Stack)
	}
}

func TestDecodeCSPViolation(t *testing.T) {
	e, ok := DecodeMessage([]byte(`{
		"type":"csp-violation","blockedURI":"https://evil.example/x.js",
		"violatedDirective":"script-src","sourceFile":"index.html","lineNumber":9
	}`))
	if !ok || e.Source != SourceCSP || e.Line != 9 {
		t.Fatalf("got (%+v, %v)", e, ok)
	}
	if !strings.Contains(e.Message, "script-src") {
		t.Errorf("message = %q", e.Message)
	}
}

func TestDecodeUnknownTagIgnored(t *testing.T) {
	if _, ok := DecodeMessage([]byte(`{"type":"heartbeat","message":"hi"}`)); ok {
		t.Error("unknown tag must be ignored, not decoded")
	}
}

func TestDecodeMalformedPayloadIgnored(t *testing.T) {
	if _, ok := DecodeMessage([]byte(`{{{`)); ok {
		t.Error("malformed payload must be ignored")
	}
}

func TestInstrumentationJSEmbedsEndpoint(t *testing.T) {
	js := InstrumentationJS("/projects/p1/capture")
	if !strings.Contains(js, "'/projects/p1/capture'") {
		t.Error("endpoint not substituted into payload")
	}
	if strings.Contains(js, endpointToken) {
		t.Error("placeholder token left in payload")
	}
}

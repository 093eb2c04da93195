// ABOUTME: Tests for the execution host's mode switching, refresh identity, and session composition.
package preview

import (
	"strings"
	"testing"
)

func newTestHost(reloads *int) *Host {
	return NewHost("/capture", testRetryConfig(), newFakeClock(), func() {
		if reloads != nil {
			*reloads++
		}
	}, nil)
}

func TestHostStaticRenderInjectsInstrumentation(t *testing.T) {
	h := newTestHost(nil)
	doc := h.Render(map[string]string{
		"index.html": "<html><head></head><body></body></html>",
	})
	if doc.Kind != DocProject {
		t.Fatalf("kind = %s", doc.Kind)
	}
	if !strings.Contains(doc.HTML, endpointMarkerFor("/capture")) {
		t.Error("capture endpoint not baked into instrumentation")
	}
}

// endpointMarkerFor returns a string that only appears when the endpoint
// was substituted into the instrumentation payload.
func endpointMarkerFor(endpoint string) string {
	return "'" + endpoint + "'"
}

func TestHostServerModeSkipsSynthesis(t *testing.T) {
	h := newTestHost(nil)
	h.SetServerMode("http://localhost:5173")

	doc := h.Render(map[string]string{"index.html": "<html></html>"})
	if doc.HTML != "" {
		t.Error("server mode must not synthesize content")
	}
	if h.URL() != "http://localhost:5173" {
		t.Errorf("URL = %q", h.URL())
	}
}

func TestHostRefreshCacheBustsServerURL(t *testing.T) {
	h := newTestHost(nil)
	h.SetServerMode("http://localhost:5173")

	h.Refresh()
	if got := h.URL(); got != "http://localhost:5173?v=1" {
		t.Errorf("URL = %q", got)
	}

	h.SetServerMode("http://localhost:5173/app?tab=1")
	h.Refresh()
	if got := h.URL(); !strings.Contains(got, "&v=") {
		t.Errorf("URL = %q, existing query must extend with &", got)
	}
}

func TestHostRefreshFiresReloadInStaticMode(t *testing.T) {
	reloads := 0
	h := newTestHost(&reloads)

	seq := h.Refresh()
	if seq != 1 {
		t.Errorf("seq = %d", seq)
	}
	if reloads != 1 {
		t.Errorf("reloads = %d", reloads)
	}
}

func TestHostTeardownBlocksModeSwitchAndRefresh(t *testing.T) {
	reloads := 0
	h := newTestHost(&reloads)
	h.Teardown()

	h.SetServerMode("http://localhost:5173")
	if h.Mode() != ModeStatic {
		t.Error("SetServerMode accepted after teardown")
	}
	if h.Session().IsLoading {
		t.Error("retry controller started after teardown")
	}

	h.Refresh()
	if reloads != 0 {
		t.Errorf("reloads = %d after teardown, want 0", reloads)
	}
}

func TestHostSessionComposesModeAndRetryState(t *testing.T) {
	h := newTestHost(nil)
	h.SetServerMode("http://localhost:5173")

	sess := h.Session()
	if sess.Mode != ModeServer || sess.ServerURL != "http://localhost:5173" {
		t.Errorf("session = %+v", sess)
	}
	if !sess.IsLoading || sess.RetryStatus != RetryWaiting {
		t.Errorf("retry state not composed: %+v", sess)
	}

	h.SetStaticMode("index.html")
	sess = h.Session()
	if sess.Mode != ModeStatic || sess.IsLoading {
		t.Errorf("session after static switch = %+v", sess)
	}
}

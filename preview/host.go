// ABOUTME: Isolated execution host that renders a project in static or live-server mode.
// ABOUTME: Exposes a uniform render/refresh/reload contract and owns the preview session state.
package preview

import (
	"fmt"
	"sync"

	"github.com/vitrine-labs/vitrine/capture"
)

// Mode selects how the preview is produced.
type Mode string

const (
	// ModeStatic synthesizes a self-contained document from the file map.
	ModeStatic Mode = "static"
	// ModeServer points the sandbox at an externally running dev server.
	ModeServer Mode = "server"
)

// Session is the preview session state surfaced to the UI. It is owned by
// the Host and mutated only by the retry controller and explicit
// refresh/teardown.
type Session struct {
	Mode        Mode        `json:"mode"`
	ServerURL   string      `json:"server_url,omitempty"`
	IsLoading   bool        `json:"is_loading"`
	RetryCount  int         `json:"retry_count"`
	RetryStatus RetryStatus `json:"retry_status"`
	LastError   string      `json:"last_error,omitempty"`
}

// Host renders the current project in one of two modes behind a uniform
// contract. Static synthesis is deterministic in (files, entry) plus the
// refresh counter, which forces re-render identity without changing content.
type Host struct {
	mu              sync.Mutex
	mode            Mode
	serverURL       string
	entry           string
	refreshSeq      int
	captureEndpoint string
	closed          bool

	retry    *RetryController
	onReload func()
}

// NewHost creates a static-mode Host. The capture endpoint is baked into
// the instrumentation payload of every synthesized document. onReload is
// invoked whenever the sandbox should reload (refresh, retry attempts);
// onState receives retry-session updates. A nil clock uses real time.
func NewHost(captureEndpoint string, cfg RetryConfig, clock Clock, onReload func(), onState func(Session)) *Host {
	h := &Host{
		mode:            ModeStatic,
		captureEndpoint: captureEndpoint,
		onReload:        onReload,
	}
	h.retry = NewRetryController(cfg, clock, func(int) {
		h.mu.Lock()
		reload := h.onReload
		h.mu.Unlock()
		if reload != nil {
			reload()
		}
	}, onState)
	return h
}

// SetStaticMode switches to static synthesis with the given entry point and
// stops any live-server retry sequence.
func (h *Host) SetStaticMode(entry string) {
	h.mu.Lock()
	h.mode = ModeStatic
	h.entry = entry
	h.serverURL = ""
	h.mu.Unlock()
	h.retry.Stop()
}

// SetServerMode points the preview at a live dev server URL and starts the
// retry controller, since the server may not be listening yet. A no-op
// after Teardown so a late server announcement cannot restart the timers.
func (h *Host) SetServerMode(url string) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.mode = ModeServer
	h.serverURL = url
	h.mu.Unlock()
	h.retry.Start()
}

// Render synthesizes the preview document for the current file snapshot.
// In server mode no content is synthesized; callers use URL instead.
func (h *Host) Render(files map[string]string) Document {
	h.mu.Lock()
	mode, entry, endpoint := h.mode, h.entry, h.captureEndpoint
	h.mu.Unlock()

	if mode == ModeServer {
		return Document{Kind: DocProject}
	}
	return Synthesize(files, entry, capture.InstrumentationJS(endpoint))
}

// Refresh forces a clean reload: the counter advances (fresh render
// identity in static mode, cache-busting query in server mode) and the
// reload signal fires. In server mode the retry sequence restarts from
// zero, per the manual-refresh contract.
func (h *Host) Refresh() int {
	h.mu.Lock()
	if h.closed {
		seq := h.refreshSeq
		h.mu.Unlock()
		return seq
	}
	h.refreshSeq++
	seq := h.refreshSeq
	mode := h.mode
	reload := h.onReload
	h.mu.Unlock()

	if mode == ModeServer {
		h.retry.ManualRefresh()
	} else if reload != nil {
		reload()
	}
	return seq
}

// RefreshSeq returns the current refresh counter.
func (h *Host) RefreshSeq() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refreshSeq
}

// URL returns the live server URL with a cache-busting query parameter
// after refreshes, or "" in static mode.
func (h *Host) URL() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mode != ModeServer || h.serverURL == "" {
		return ""
	}
	if h.refreshSeq == 0 {
		return h.serverURL
	}
	sep := "?"
	if containsQuery(h.serverURL) {
		sep = "&"
	}
	return fmt.Sprintf("%s%sv=%d", h.serverURL, sep, h.refreshSeq)
}

// Mode returns the current preview mode.
func (h *Host) Mode() Mode {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mode
}

// Retry exposes the controller so the transport layer can deliver load and
// error notifications from the sandbox.
func (h *Host) Retry() *RetryController {
	return h.retry
}

// Session returns the full preview session, composing host-owned mode
// fields with the retry controller's load state.
func (h *Host) Session() Session {
	s := h.retry.Session()
	h.mu.Lock()
	s.Mode = h.mode
	s.ServerURL = h.serverURL
	h.mu.Unlock()
	return s
}

// Teardown stops all timers. The host must not emit reloads or state
// changes after teardown, and mode switches become no-ops.
func (h *Host) Teardown() {
	h.mu.Lock()
	h.closed = true
	h.onReload = nil
	h.mu.Unlock()
	h.retry.Stop()
}

func containsQuery(url string) bool {
	for i := 0; i < len(url); i++ {
		if url[i] == '?' {
			return true
		}
	}
	return false
}

// ABOUTME: Preview handlers: synthesized static documents, live-server redirects, refresh, and doc previews.
package web

import (
	"net/http"

	"github.com/vitrine-labs/vitrine/preview"
	"github.com/vitrine-labs/vitrine/workspace"
)

// handlePreview serves the current preview. Static mode returns the
// synthesized document; server mode redirects to the (cache-busted) live
// URL so the isolated context loads the dev server directly.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.openWorkspace(w, r)
	if !ok {
		return
	}

	if url := ws.Preview().URL(); url != "" {
		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
		return
	}

	doc := ws.Preview().Render(ws.Files())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Preview-Kind", string(doc.Kind))
	// The sandbox policy the UI must apply: scripts yes, same-origin no.
	w.Header().Set("X-Sandbox-Policy", "allow-scripts allow-forms allow-popups")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc.HTML))
}

// handleDocPreview renders a documentation file (markdown or plain text) as
// a standalone page, via the render cache.
func (s *Server) handleDocPreview(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.openWorkspace(w, r)
	if !ok {
		return
	}
	path := r.URL.Query().Get("path")
	content, found := ws.Files()[path]
	if path == "" || !found {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.docs.Render(path, content)))
}

// handleRefresh forces a clean preview reload. In server mode this resets
// the retry sequence; in static mode it bumps the render identity.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.openWorkspace(w, r)
	if !ok {
		return
	}
	seq := ws.Preview().Refresh()
	writeJSON(w, http.StatusOK, map[string]any{"refresh": seq})
}

// sessionResponse is the preview session plus the open-externally URL: the
// live dev-server URL in server mode, this server's preview document
// endpoint in static mode.
type sessionResponse struct {
	preview.Session
	ExternalURL string `json:"external_url"`
}

// handleSession returns the current preview session state.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.openWorkspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Session:     ws.Preview().Session(),
		ExternalURL: externalURL(ws),
	})
}

// externalURL resolves where a full browser tab can load the current
// preview from.
func externalURL(ws *workspace.Workspace) string {
	if u := ws.Preview().URL(); u != "" {
		return u
	}
	return "/projects/" + ws.ProjectID + "/preview"
}

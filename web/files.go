// ABOUTME: File tree and file content handlers over the workspace's reconciled project state.
package web

import (
	"net/http"
)

// handleFileTree returns the current project tree with synthesized folders.
func (s *Server) handleFileTree(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.openWorkspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"project_id": ws.ProjectID,
		"tree":       ws.Tree(),
	})
}

// handleFileContent returns one file's current text content.
func (s *Server) handleFileContent(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, map[string]string{
		"path":    path,
		"content": content,
	})
}

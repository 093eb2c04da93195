// ABOUTME: Auto-fix and error handlers: dispatching fixes, reading live errors, and browsing history.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/vitrine-labs/vitrine/autofix"
)

// handleFix dispatches one auto-fix round trip. Duplicate requests while a
// fix is in flight return 409 without touching the repair service.
func (s *Server) handleFix(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.openWorkspace(w, r)
	if !ok {
		return
	}

	var body struct {
		Problem string `json:"problem_description"`
	}
	if r.Body != nil {
		// An empty body means "fix whatever is captured".
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	err := ws.Fix(r.Context(), body.Problem)
	switch {
	case errors.Is(err, autofix.ErrFixInFlight):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, autofix.ErrNothingToFix):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess := ws.FixSession()
	status := http.StatusOK
	if err != nil {
		// The failure is already reflected in the session; the status code
		// mirrors it so non-SSE clients see the outcome too.
		status = http.StatusBadGateway
	}
	writeJSON(w, status, sess)
}

// handleFixSession returns the current fix session state.
func (s *Server) handleFixSession(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.openWorkspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ws.FixSession())
}

// handleErrors returns the live unresolved captured errors.
func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.openWorkspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"errors": ws.Errors().Unresolved(),
	})
}

// handleErrorHistory returns recorded errors for a project, including
// resolved ones from past sessions.
func (s *Server) handleErrorHistory(w http.ResponseWriter, r *http.Request) {
	projectID := projectParam(r)
	errs, err := s.history.RecentErrors(projectID, queryLimit(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"errors": errs})
}

// handleFixHistory returns past fix attempts for a project.
func (s *Server) handleFixHistory(w http.ResponseWriter, r *http.Request) {
	projectID := projectParam(r)
	fixes, err := s.history.Fixes(projectID, queryLimit(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fixes": fixes})
}

func queryLimit(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}

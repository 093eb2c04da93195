// ABOUTME: Vitrine HTTP server: project workspaces, generation stream intake, preview, capture, and fix.
// ABOUTME: One chi router fronting the single live workspace managed per the teardown-then-rebuild rule.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vitrine-labs/vitrine/autofix"
	"github.com/vitrine-labs/vitrine/preview"
	"github.com/vitrine-labs/vitrine/render"
	"github.com/vitrine-labs/vitrine/sandbox"
	"github.com/vitrine-labs/vitrine/store"
	"github.com/vitrine-labs/vitrine/stream"
	"github.com/vitrine-labs/vitrine/workspace"
)

// Server is the vitrine preview/execution HTTP server.
type Server struct {
	cfg     *Config
	manager *workspace.Manager
	history *store.History
	docs    *render.Cache
	router  chi.Router
}

// Deps carries the server's injectable collaborators, letting tests swap
// the repair client and sandbox factory for fakes.
type Deps struct {
	Repairer   autofix.Repairer
	NewSandbox workspace.SandboxFactory
	Clock      preview.Clock
	Retry      preview.RetryConfig
}

// NewServer creates a Server with its routes wired. Zero-value Deps fields
// get production defaults built from the config.
func NewServer(cfg *Config, deps Deps) (*Server, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	history, err := store.Open(filepath.Join(cfg.DataDir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}

	if deps.Repairer == nil {
		deps.Repairer = autofix.NewClient(cfg.RepairURL, nil)
	}
	if deps.Retry.MaxAttempts == 0 {
		deps.Retry = preview.DefaultRetryConfig()
	}
	if deps.NewSandbox == nil && cfg.SandboxURL != "" {
		deps.NewSandbox = defaultSandboxFactory(cfg.SandboxURL)
	}

	wcfg := workspace.Config{
		CaptureEndpoint: "/capture",
		Retry:           deps.Retry,
		FixDisplay:      cfg.FixDisplay,
		Clock:           deps.Clock,
		Repairer:        deps.Repairer,
		History:         history,
	}

	s := &Server{
		cfg:     cfg,
		manager: workspace.NewManager(wcfg, deps.NewSandbox),
		history: history,
		docs:    render.NewCache(render.DocumentPage, 5*time.Minute),
	}
	s.router = s.buildRouter()
	return s, nil
}

// defaultSandboxFactory provisions sandbox clients against the configured
// sandbox service, one per project.
func defaultSandboxFactory(baseURL string) workspace.SandboxFactory {
	return func(ctx context.Context, projectID string) (*sandbox.Client, error) {
		return sandbox.NewClient(baseURL, projectID, nil), nil
	}
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the configured address with
// timeouts sized for long-lived SSE and generation streams.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:              s.cfg.Bind,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return srv.ListenAndServe()
}

// Close tears down the live workspace and the history store.
func (s *Server) Close() error {
	s.manager.Close(context.Background())
	return s.history.Close()
}

// buildRouter constructs the chi router with all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/projects/{projectID}", func(r chi.Router) {
		r.Post("/open", s.handleOpen)
		r.Post("/close", s.handleClose)
		r.Post("/generate", s.handleGenerate)
		r.Get("/events", s.handleEvents)

		r.Get("/preview", s.handlePreview)
		r.Get("/preview/doc", s.handleDocPreview)
		r.Post("/preview/refresh", s.handleRefresh)
		r.Get("/session", s.handleSession)

		r.Post("/capture", s.handleCapture)
		r.Get("/capture/ws", s.handleCaptureWS)
		r.Get("/errors", s.handleErrors)

		r.Post("/fix", s.handleFix)
		r.Get("/fix", s.handleFixSession)

		r.Get("/files", s.handleFileTree)
		r.Get("/files/content", s.handleFileContent)

		r.Get("/history/errors", s.handleErrorHistory)
		r.Get("/history/fixes", s.handleFixHistory)
	})

	return r
}

// handleHealth returns a JSON health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleOpen opens (or switches to) the workspace for a project. Switching
// away from another project tears its workspace down first.
func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	ws, err := s.manager.Open(r.Context(), projectID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"project_id":   ws.ProjectID,
		"workspace_id": ws.ID,
	})
}

// handleClose tears down the live workspace.
func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if _, ok := s.manager.Get(projectID); !ok {
		http.Error(w, "project not open", http.StatusNotFound)
		return
	}
	s.manager.Close(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// handleGenerate consumes a generation event stream from the request body
// and applies it to the project workspace. The body is the inbound SSE
// protocol; file mutations apply synchronously in arrival order.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	ws, ok := s.manager.Get(projectID)
	if !ok {
		http.Error(w, "project not open", http.StatusNotFound)
		return
	}

	consumer := stream.NewConsumer(ws)
	if err := consumer.Run(r.Context(), r.Body); err != nil {
		log.Printf("web: generation stream for %s: %v", projectID, err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"files": len(ws.Files()),
	})
}

// openWorkspace resolves the URL's project to the live workspace or writes
// a 404.
func (s *Server) openWorkspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	projectID := chi.URLParam(r, "projectID")
	ws, ok := s.manager.Get(projectID)
	if !ok {
		http.Error(w, "project not open", http.StatusNotFound)
		return nil, false
	}
	return ws, true
}

func projectParam(r *http.Request) string {
	return chi.URLParam(r, "projectID")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: encoding response: %v", err)
	}
}

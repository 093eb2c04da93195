// ABOUTME: Manager enforcing the single-live-workspace invariant across project switches.
// ABOUTME: Switching is a hard teardown-then-rebuild so no state leaks between projects.
package workspace

import (
	"context"
	"log"
	"sync"

	"github.com/vitrine-labs/vitrine/sandbox"
)

// SandboxFactory provisions a remote sandbox for a project, or returns nil
// when the project runs as an in-browser static preview only.
type SandboxFactory func(ctx context.Context, projectID string) (*sandbox.Client, error)

// Manager owns the single live workspace. Exactly one project may be
// executing and capturing at a time; opening a different project tears the
// current workspace down completely before the new one exists.
type Manager struct {
	cfg        Config
	newSandbox SandboxFactory

	// mu serializes open/switch/close; teardown must finish before the
	// replacement workspace is constructed.
	mu      sync.Mutex
	current *Workspace
}

// NewManager creates a Manager. newSandbox may be nil.
func NewManager(cfg Config, newSandbox SandboxFactory) *Manager {
	return &Manager{cfg: cfg, newSandbox: newSandbox}
}

// Open returns the live workspace for projectID, creating it if needed.
// Opening a different project id than the current workspace performs the
// atomic switch: full teardown of the old workspace, then construction of
// the new one. Reopening the same project returns the existing workspace.
func (m *Manager) Open(ctx context.Context, projectID string) (*Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		if m.current.ProjectID == projectID {
			return m.current, nil
		}
		log.Printf("workspace: switching %s -> %s", m.current.ProjectID, projectID)
		m.current.Teardown(ctx)
		m.current = nil
	}

	var sb *sandbox.Client
	if m.newSandbox != nil {
		var err error
		sb, err = m.newSandbox(ctx, projectID)
		if err != nil {
			// A missing sandbox degrades to static-only preview; the error
			// surfaces but the workspace still opens.
			log.Printf("workspace: provisioning sandbox for %s: %v", projectID, err)
		}
	}

	m.current = New(projectID, m.cfg, sb)
	return m.current, nil
}

// Current returns the live workspace, or nil when no project is open.
func (m *Manager) Current() *Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Get returns the live workspace only if it belongs to projectID.
func (m *Manager) Get(projectID string) (*Workspace, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.ProjectID != projectID {
		return nil, false
	}
	return m.current, true
}

// Close tears down the live workspace, if any.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.Teardown(ctx)
		m.current = nil
	}
}

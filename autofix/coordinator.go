// ABOUTME: Auto-fix coordinator: assembles repair requests from captured state and applies the results.
// ABOUTME: Single-flight per project; success clears errors, applies patches, and schedules exactly one refresh.
package autofix

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/vitrine-labs/vitrine/capture"
	"github.com/vitrine-labs/vitrine/project"
)

// ErrFixInFlight is returned when a fix is requested while one is already
// running. Duplicate requests are rejected, not queued.
var ErrFixInFlight = errors.New("a fix is already in progress")

// ErrNothingToFix is returned when no errors are captured and no problem
// description was supplied.
var ErrNothingToFix = errors.New("no captured errors and no problem description")

// Patcher applies repaired files back into the project tree.
type Patcher interface {
	Apply(ctx context.Context, op project.Operation) error
}

// Coordinator decouples error detection from error repair. It owns the fix
// session lifecycle for one project: it collects the unresolved errors and
// recent logs, sends one repair request, applies the returned patches, and
// fires a single preview refresh once all patches have landed.
type Coordinator struct {
	projectID string
	repairer  Repairer
	errors    *capture.Set
	logs      *capture.Log
	files     func() map[string]string
	patcher   Patcher
	refresh   func()
	state     *State

	mu        sync.Mutex
	connected bool
	cancel    context.CancelFunc
}

// NewCoordinator wires a Coordinator for one project. files returns the
// current text snapshot; refresh reloads the preview.
func NewCoordinator(projectID string, repairer Repairer, errs *capture.Set, logs *capture.Log,
	files func() map[string]string, patcher Patcher, refresh func(), state *State) *Coordinator {
	return &Coordinator{
		projectID: projectID,
		repairer:  repairer,
		errors:    errs,
		logs:      logs,
		files:     files,
		patcher:   patcher,
		refresh:   refresh,
		state:     state,
	}
}

// Connect marks the coordinator live for its project. Fix requests are
// rejected while disconnected.
func (c *Coordinator) Connect() {
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
}

// Connected reports whether the coordinator is live.
func (c *Coordinator) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close disconnects the coordinator and aborts any in-flight fix. The
// session transitions to idle, never staying stuck in fixing. Called on
// project switch before the replacement coordinator connects.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.connected = false
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.state.Abort()
}

// Session returns the current fix session.
func (c *Coordinator) Session() Session {
	return c.state.Snapshot()
}

// Fix runs one repair round trip. It is a no-op with respect to network
// calls when a fix is already in flight. On success all captured errors are
// resolved, patches are applied through the reconciler, and exactly one
// refresh is scheduled. On failure errors stay unresolved and the failed
// state is surfaced for the display duration.
func (c *Coordinator) Fix(ctx context.Context, problem string) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return fmt.Errorf("fix service not connected for project %s", c.projectID)
	}
	c.mu.Unlock()

	collected := c.errors.Unresolved()
	if len(collected) == 0 && problem == "" {
		return ErrNothingToFix
	}

	if !c.state.Begin() {
		return ErrFixInFlight
	}

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer func() {
		cancel()
		c.mu.Lock()
		c.cancel = nil
		c.mu.Unlock()
	}()

	req := c.assembleRequest(problem, collected)
	result, err := c.repairer.Repair(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			// Aborted: no failed display state, straight back to idle.
			c.state.Abort()
			return ctx.Err()
		}
		c.state.Fail(err.Error())
		return err
	}
	if !result.Success || !result.ErrorFixed {
		msg := result.Message
		if msg == "" {
			msg = "the fix attempt did not resolve the error"
		}
		c.state.Fail(msg)
		return fmt.Errorf("fix failed: %s", msg)
	}

	applied := 0
	for _, patch := range result.Patches {
		op := project.Operation{
			Path:    patch.Path,
			Kind:    project.OpFixed,
			Status:  project.StatusComplete,
			Content: patch.Content,
		}
		if err := c.patcher.Apply(ctx, op); err != nil {
			log.Printf("autofix: applying patch for %s: %v", patch.Path, err)
			continue
		}
		applied++
	}

	resolved := c.errors.ResolveAll()
	log.Printf("autofix: project %s resolved %d errors, %d patches applied",
		c.projectID, len(resolved), applied)

	c.state.Complete(result.Message, result.FilesModified, applied)

	// One refresh after all patches land, never one per file.
	if c.refresh != nil {
		c.refresh()
	}
	return nil
}

// assembleRequest builds the repair request from the captured state. The
// first error's message and stack headline the request; every error rides
// along in full.
func (c *Coordinator) assembleRequest(problem string, collected []capture.Error) RepairRequest {
	headline := problem
	rest := collected
	if headline == "" && len(collected) > 0 {
		headline = collected[0].Message
		rest = collected[1:]
	}
	var stack string
	for _, e := range collected {
		if e.Stack != "" {
			stack = e.Stack
			break
		}
	}
	if len(rest) > 0 {
		var extra []string
		for _, e := range rest {
			extra = append(extra, e.Message)
		}
		headline += "\n\nAdditional errors:\n" + strings.Join(extra, "\n")
	}

	var files map[string]string
	if c.files != nil {
		files = c.files()
	}
	var logs []string
	if c.logs != nil {
		logs = c.logs.Recent()
	}

	return RepairRequest{
		ProjectID:       c.projectID,
		ErrorMessage:    headline,
		StackTrace:      stack,
		CollectedErrors: collected,
		ContextLogs:     logs,
		ProjectFiles:    files,
	}
}

// ABOUTME: Workspace aggregate owning the file tree, preview session, and captured errors for one project.
// ABOUTME: Implements the generation stream sink and tears all state down atomically on project switch.
package workspace

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vitrine-labs/vitrine/autofix"
	"github.com/vitrine-labs/vitrine/capture"
	"github.com/vitrine-labs/vitrine/preview"
	"github.com/vitrine-labs/vitrine/project"
	"github.com/vitrine-labs/vitrine/sandbox"
	"github.com/vitrine-labs/vitrine/store"
	"github.com/vitrine-labs/vitrine/stream"
)

// logCapacity bounds the per-workspace execution log ring.
const logCapacity = 200

// releaseAttempts bounds the best-effort sandbox release on teardown.
const releaseAttempts = 3

// Config carries the collaborators a workspace needs.
type Config struct {
	CaptureEndpoint string
	Retry           preview.RetryConfig
	FixDisplay      time.Duration
	Clock           preview.Clock
	Repairer        autofix.Repairer
	History         *store.History
}

// Workspace is the aggregate root for one open project: file tree, preview
// session, captured errors, execution log, and fix coordinator share a
// single lifecycle. It is created on project open and torn down atomically
// on switch, so no store can be reset in isolation.
type Workspace struct {
	ProjectID string
	ID        string

	events  *Emitter
	rec     *project.Reconciler
	errors  *capture.Set
	logs    *capture.Log
	host    *preview.Host
	fixer   *autofix.Coordinator
	sandbox *sandbox.Client
	history *store.History

	mu       sync.Mutex
	commands []string
	tornDown bool
}

// New assembles a live workspace for projectID. The sandbox client may be
// nil for purely in-browser static previews.
func New(projectID string, cfg Config, sb *sandbox.Client) *Workspace {
	w := &Workspace{
		ProjectID: projectID,
		ID:        uuid.NewString(),
		events:    NewEmitter(),
		logs:      capture.NewLog(logCapacity),
		sandbox:   sb,
		history:   cfg.History,
	}

	w.errors = capture.NewSet(func(e capture.Error) {
		if w.history != nil {
			if err := w.history.RecordError(projectID, e); err != nil {
				log.Printf("workspace %s: recording error history: %v", projectID, err)
			}
		}
		w.emit(EventErrorCaptured, map[string]any{"error": e})
	})

	var blobs project.BlobStore
	if sb != nil {
		blobs = sb
	}
	w.rec = project.NewReconciler(blobs)

	w.host = preview.NewHost(cfg.CaptureEndpoint, cfg.Retry, cfg.Clock,
		func() { w.emit(EventReload, nil) },
		func(s preview.Session) { w.emit(EventPreviewSession, map[string]any{"session": s}) })

	fixState := autofix.NewState(cfg.FixDisplay, cfg.Clock, func(s autofix.Session) {
		w.emit(EventFixSession, map[string]any{"session": s})
	})
	w.fixer = autofix.NewCoordinator(projectID, cfg.Repairer, w.errors, w.logs,
		w.rec.Snapshot, w.rec, func() { w.host.Refresh() }, fixState)
	w.fixer.Connect()

	return w
}

// Events returns the workspace's event emitter for UI subscriptions.
func (w *Workspace) Events() *Emitter { return w.events }

// Preview returns the execution host.
func (w *Workspace) Preview() *preview.Host { return w.host }

// Errors returns the live captured-error set.
func (w *Workspace) Errors() *capture.Set { return w.errors }

// Logs returns the execution log ring.
func (w *Workspace) Logs() *capture.Log { return w.logs }

// Sandbox returns the remote sandbox client, or nil.
func (w *Workspace) Sandbox() *sandbox.Client { return w.sandbox }

// Files returns the current flat text snapshot.
func (w *Workspace) Files() map[string]string { return w.rec.Snapshot() }

// Tree returns the current project tree.
func (w *Workspace) Tree() []*project.File { return w.rec.Tree() }

// SetupCommands returns the setup commands announced by the generation
// backend.
func (w *Workspace) SetupCommands() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.commands))
	copy(out, w.commands)
	return out
}

// Fix runs one auto-fix round trip for the current captured errors.
func (w *Workspace) Fix(ctx context.Context, problem string) error {
	err := w.fixer.Fix(ctx, problem)
	if w.history != nil {
		sess := w.fixer.Session()
		if sess.Status == autofix.StatusCompleted || sess.Status == autofix.StatusFailed {
			now := time.Now()
			if _, herr := w.history.RecordFix(store.FixRecord{
				ProjectID:      w.ProjectID,
				Status:         sess.Status,
				Message:        sess.Message,
				PatchesApplied: sess.PatchesApplied,
				FilesModified:  sess.FilesModified,
				StartedAt:      now,
				FinishedAt:     now,
			}); herr != nil {
				log.Printf("workspace %s: recording fix history: %v", w.ProjectID, herr)
			}
			if sess.Status == autofix.StatusCompleted {
				if herr := w.history.MarkResolved(w.ProjectID); herr != nil {
					log.Printf("workspace %s: marking history resolved: %v", w.ProjectID, herr)
				}
			}
		}
	}
	return err
}

// FixSession returns the current fix session state.
func (w *Workspace) FixSession() autofix.Session { return w.fixer.Session() }

// Capture decodes one sandbox channel message and records it. Unknown tags
// are ignored. Returns true when the message produced a new error.
func (w *Workspace) Capture(data []byte) bool {
	e, ok := capture.DecodeMessage(data)
	if !ok {
		return false
	}
	return w.errors.Add(e)
}

// AppendLog records one execution log line for repair context.
func (w *Workspace) AppendLog(line string) {
	w.logs.Append(line)
}

// alive reports whether the workspace has not been torn down. Sink methods
// check it so a generation stream racing a project switch cannot mutate the
// dead aggregate.
func (w *Workspace) alive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.tornDown
}

// --- stream.Sink ---

// FileStart inserts an empty node for path.
func (w *Workspace) FileStart(path string) {
	if !w.alive() {
		return
	}
	w.rec.FileStart(path)
	w.emit(EventFilesChanged, map[string]any{"path": path})
}

// FileChunk applies one streamed chunk.
func (w *Workspace) FileChunk(path, chunk string, complete bool) {
	if !w.alive() {
		return
	}
	w.rec.FileChunk(path, chunk, complete)
	w.emit(EventFilesChanged, map[string]any{"path": path})
}

// FileOperation applies a file operation event, including document outputs.
func (w *Workspace) FileOperation(ctx context.Context, data stream.FileOperationData) error {
	if !w.alive() {
		return nil
	}
	op := project.Operation{
		Path:    data.Path,
		Kind:    project.OpKind(data.Kind),
		Status:  project.OpStatus(data.Status),
		Content: data.Content,
	}
	if err := w.rec.Apply(ctx, op); err != nil {
		return err
	}
	w.emit(EventFilesChanged, map[string]any{"path": data.Path})
	return nil
}

// FileComplete applies the authoritative final content for path.
func (w *Workspace) FileComplete(path, content string) {
	if !w.alive() {
		return
	}
	w.rec.FileComplete(path, content)
	w.emit(EventFilesChanged, map[string]any{"path": path})
}

// ServerStarted switches the preview to live-server mode.
func (w *Workspace) ServerStarted(url string) {
	if !w.alive() {
		return
	}
	w.host.SetServerMode(url)
}

// Status records a backend status line.
func (w *Workspace) Status(message string) {
	if !w.alive() {
		return
	}
	w.logs.Append(message)
	w.emit(EventStatus, map[string]any{"message": message})
}

// Commands records the backend's announced setup commands.
func (w *Workspace) Commands(cmds []string) {
	w.mu.Lock()
	if !w.tornDown {
		w.commands = append(w.commands, cmds...)
	}
	w.mu.Unlock()
}

// Completed marks the generation stream finished.
func (w *Workspace) Completed() {
	w.emit(EventGenerationDone, map[string]any{"status": "complete"})
}

// Failed marks the generation stream failed.
func (w *Workspace) Failed(message string) {
	if !w.alive() {
		return
	}
	w.logs.Append("generation failed: " + message)
	w.emit(EventGenerationDone, map[string]any{"status": "error", "message": message})
}

// Cancelled marks the generation stream cancelled rather than leaving it
// perpetually in progress.
func (w *Workspace) Cancelled() {
	w.emit(EventGenerationDone, map[string]any{"status": "cancelled"})
}

// Teardown destroys all workspace state atomically: preview stopped, fix
// coordinator disconnected, files, errors, and logs cleared together. The
// remote sandbox is released best-effort with bounded retries; teardown
// never blocks on it. Idempotent.
func (w *Workspace) Teardown(ctx context.Context) {
	w.mu.Lock()
	if w.tornDown {
		w.mu.Unlock()
		return
	}
	w.tornDown = true
	sb := w.sandbox
	w.sandbox = nil
	w.commands = nil
	w.mu.Unlock()

	w.emit(EventTeardown, nil)
	w.host.Teardown()
	w.fixer.Close()
	w.rec.Reset()
	w.errors.Clear()
	w.logs.Clear()
	w.events.Close()

	if sb != nil {
		go releaseSandbox(sb)
	}
}

// releaseSandbox deletes the remote sandbox, retrying a bounded number of
// times. Failures are logged and abandoned; resource growth is bounded by
// the sandbox service's own reaping.
func releaseSandbox(sb *sandbox.Client) {
	delay := 500 * time.Millisecond
	for attempt := 0; attempt < releaseAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := sb.Delete(ctx)
		cancel()
		if err == nil {
			return
		}
		log.Printf("workspace: releasing sandbox %s (attempt %d): %v", sb.ID(), attempt+1, err)
		time.Sleep(delay)
		delay *= 2
	}
}

func (w *Workspace) emit(kind EventKind, data map[string]any) {
	w.events.Emit(WorkspaceEvent{
		Kind:      kind,
		Timestamp: time.Now(),
		ProjectID: w.ProjectID,
		Data:      data,
	})
}

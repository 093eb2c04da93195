// ABOUTME: Tests for the workspace aggregate: sink wiring, capture, and atomic teardown on switch.
package workspace

import (
	"context"
	"testing"

	"github.com/vitrine-labs/vitrine/autofix"
	"github.com/vitrine-labs/vitrine/preview"
	"github.com/vitrine-labs/vitrine/stream"
)

var _ stream.Sink = (*Workspace)(nil)

type nopRepairer struct{}

func (nopRepairer) Repair(ctx context.Context, req autofix.RepairRequest) (*autofix.RepairResult, error) {
	return &autofix.RepairResult{Success: true, ErrorFixed: true}, nil
}

func testConfig() Config {
	return Config{
		CaptureEndpoint: "/capture",
		Retry:           preview.DefaultRetryConfig(),
		Repairer:        nopRepairer{},
	}
}

func TestWorkspaceStreamsFilesIntoTree(t *testing.T) {
	w := New("p1", testConfig(), nil)
	defer w.Teardown(context.Background())

	w.FileStart("index.html")
	w.FileChunk("index.html", "<html>", false)
	w.FileChunk("index.html", "</html>", false)
	w.FileComplete("index.html", "<html></html>")
	w.FileChunk("src/a.js", "console.log(1)", true)

	files := w.Files()
	if files["index.html"] != "<html></html>" {
		t.Errorf("index.html = %q", files["index.html"])
	}
	if files["src/a.js"] != "console.log(1)" {
		t.Errorf("src/a.js = %q", files["src/a.js"])
	}
}

func TestWorkspaceCaptureRoutesSandboxMessages(t *testing.T) {
	w := New("p1", testConfig(), nil)
	defer w.Teardown(context.Background())

	msg := []byte(`{"type":"runtime-error","message":"boom","filename":"a.js","lineno":3}`)
	if !w.Capture(msg) {
		t.Fatal("message not captured")
	}
	if w.Capture(msg) {
		t.Error("duplicate signature captured as new")
	}
	if w.Errors().Len() != 1 {
		t.Errorf("errors = %d", w.Errors().Len())
	}
	if w.Capture([]byte(`{"type":"mystery"}`)) {
		t.Error("unknown tag must be ignored")
	}
}

func TestServerStartedSwitchesPreviewMode(t *testing.T) {
	w := New("p1", testConfig(), nil)
	defer w.Teardown(context.Background())

	w.ServerStarted("http://localhost:5173")
	if w.Preview().Mode() != preview.ModeServer {
		t.Errorf("mode = %s", w.Preview().Mode())
	}
	sess := w.Preview().Session()
	if sess.ServerURL != "http://localhost:5173" || !sess.IsLoading {
		t.Errorf("session = %+v", sess)
	}
}

func TestTeardownClearsEverything(t *testing.T) {
	w := New("p1", testConfig(), nil)
	w.FileComplete("a.js", "x")
	w.Capture([]byte(`{"type":"runtime-error","message":"boom"}`))
	w.AppendLog("line one")

	w.Teardown(context.Background())

	if len(w.Files()) != 0 {
		t.Error("files survive teardown")
	}
	if w.Errors().Len() != 0 {
		t.Error("errors survive teardown")
	}
	if len(w.Logs().Recent()) != 0 {
		t.Error("logs survive teardown")
	}
	// Idempotent.
	w.Teardown(context.Background())
}

func TestSinkIgnoredAfterTeardown(t *testing.T) {
	w := New("p1", testConfig(), nil)
	w.Teardown(context.Background())

	// A generation stream racing the switch must not revive the aggregate.
	w.FileStart("ghost.js")
	w.FileChunk("ghost.js", "boo()", true)
	w.FileComplete("late.js", "x")
	w.Status("still running")
	w.Commands([]string{"npm install"})
	w.ServerStarted("http://localhost:5173")

	if n := len(w.Files()); n != 0 {
		t.Errorf("files = %d after teardown, want 0", n)
	}
	if len(w.Logs().Recent()) != 0 {
		t.Error("logs regrew after teardown")
	}
	if len(w.SetupCommands()) != 0 {
		t.Error("commands recorded after teardown")
	}
	if w.Preview().Mode() != preview.ModeStatic {
		t.Error("late server announcement restarted the preview")
	}
	sess := w.Preview().Session()
	if sess.IsLoading {
		t.Errorf("retry sequence live after teardown: %+v", sess)
	}
}

func TestSwitchLeavesNoStateFromPreviousProject(t *testing.T) {
	m := NewManager(testConfig(), nil)
	ctx := context.Background()

	a, err := m.Open(ctx, "project-a")
	if err != nil {
		t.Fatalf("Open a: %v", err)
	}
	a.FileComplete("secret.js", "token")
	a.Capture([]byte(`{"type":"runtime-error","message":"boom"}`))
	a.ServerStarted("http://localhost:3000")

	b, err := m.Open(ctx, "project-b")
	if err != nil {
		t.Fatalf("Open b: %v", err)
	}
	if b == a {
		t.Fatal("switch returned the old workspace")
	}
	if b.ID == a.ID {
		t.Error("workspace ids not distinct")
	}
	if len(b.Files()) != 0 || b.Errors().Len() != 0 {
		t.Error("state from project-a reachable under project-b")
	}
	if b.Preview().Mode() != preview.ModeStatic {
		t.Error("preview session leaked across switch")
	}
	// The old aggregate is fully cleared, not merely orphaned.
	if len(a.Files()) != 0 || a.Errors().Len() != 0 {
		t.Error("old workspace retains state after switch")
	}
}

func TestOpenSameProjectReturnsExistingWorkspace(t *testing.T) {
	m := NewManager(testConfig(), nil)
	ctx := context.Background()

	a, _ := m.Open(ctx, "p1")
	a.FileComplete("a.js", "x")
	again, _ := m.Open(ctx, "p1")
	if again != a {
		t.Fatal("reopening the same project rebuilt the workspace")
	}
	if len(again.Files()) != 1 {
		t.Error("files lost on reopen")
	}
}

func TestManagerGetScopedToProject(t *testing.T) {
	m := NewManager(testConfig(), nil)
	m.Open(context.Background(), "p1")

	if _, ok := m.Get("p1"); !ok {
		t.Error("Get missed the live workspace")
	}
	if _, ok := m.Get("p2"); ok {
		t.Error("Get returned a workspace for the wrong project")
	}
}

func TestFixClearsErrorsAndRefreshesOnce(t *testing.T) {
	w := New("p1", testConfig(), nil)
	defer w.Teardown(context.Background())

	reloads := 0
	ch := w.Events().Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for evt := range ch {
			if evt.Kind == EventReload {
				reloads++
			}
		}
	}()

	w.Capture([]byte(`{"type":"runtime-error","message":"boom"}`))
	if err := w.Fix(context.Background(), ""); err != nil {
		t.Fatalf("Fix: %v", err)
	}
	if w.Errors().Len() != 0 {
		t.Error("errors remain after successful fix")
	}
	if got := w.FixSession().Status; got != autofix.StatusCompleted {
		t.Errorf("fix status = %s", got)
	}

	w.Events().Unsubscribe(ch)
	<-done
	if reloads != 1 {
		t.Errorf("reload events = %d, want exactly 1", reloads)
	}
}

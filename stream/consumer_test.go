// ABOUTME: Tests for the consumer loop's dispatch ordering, terminal events, and cancellation behavior.
// ABOUTME: Uses a recording sink to verify file events arrive synchronously in arrival order.
package stream

import (
	"context"
	"strings"
	"testing"
)

// recordingSink records dispatched events for assertions.
type recordingSink struct {
	calls     []string
	chunks    map[string]string
	completed bool
	failed    string
	cancelled bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{chunks: make(map[string]string)}
}

func (s *recordingSink) FileStart(path string) {
	s.calls = append(s.calls, "start:"+path)
	if _, ok := s.chunks[path]; !ok {
		s.chunks[path] = ""
	}
}

func (s *recordingSink) FileChunk(path, chunk string, complete bool) {
	s.calls = append(s.calls, "chunk:"+path)
	if complete {
		s.chunks[path] = chunk
		return
	}
	s.chunks[path] += chunk
}

func (s *recordingSink) FileOperation(_ context.Context, d FileOperationData) error {
	s.calls = append(s.calls, "op:"+d.Path)
	s.chunks[d.Path] = d.Content
	return nil
}

func (s *recordingSink) FileComplete(path, content string) {
	s.calls = append(s.calls, "complete:"+path)
	s.chunks[path] = content
}

func (s *recordingSink) ServerStarted(url string) { s.calls = append(s.calls, "server:"+url) }
func (s *recordingSink) Status(msg string)        { s.calls = append(s.calls, "status") }
func (s *recordingSink) Commands(cmds []string)   { s.calls = append(s.calls, "commands") }
func (s *recordingSink) Completed()               { s.completed = true }
func (s *recordingSink) Failed(msg string)        { s.failed = msg }
func (s *recordingSink) Cancelled()               { s.cancelled = true }

func sseFrames(frames ...string) string {
	var b strings.Builder
	for _, f := range frames {
		b.WriteString("data: ")
		b.WriteString(f)
		b.WriteString("\n\n")
	}
	return b.String()
}

func TestConsumerAppliesFileEventsInOrder(t *testing.T) {
	input := sseFrames(
		`{"type":"file_start","path":"a.js"}`,
		`{"type":"file_content","path":"a.js","chunk":"let x","status":"in_progress"}`,
		`{"type":"file_content","path":"a.js","chunk":" = 1;","status":"in_progress"}`,
		`{"type":"file_complete","path":"a.js","content":"let x = 1;"}`,
		`{"type":"complete"}`,
	)

	sink := newRecordingSink()
	err := NewConsumer(sink).Run(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sink.chunks["a.js"] != "let x = 1;" {
		t.Errorf("content = %q", sink.chunks["a.js"])
	}
	if !sink.completed {
		t.Error("terminal complete event not dispatched")
	}
}

func TestConsumerMissingStartEvent(t *testing.T) {
	input := sseFrames(
		`{"type":"file_content","path":"src/a.js","chunk":"console.log(1)","status":"complete"}`,
	)

	sink := newRecordingSink()
	if err := NewConsumer(sink).Run(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if sink.chunks["src/a.js"] != "console.log(1)" {
		t.Errorf("content = %q, missing-start chunk was dropped", sink.chunks["src/a.js"])
	}
}

func TestConsumerStopsAtErrorEvent(t *testing.T) {
	input := sseFrames(
		`{"type":"error","message":"generation exploded"}`,
		`{"type":"file_start","path":"never.js"}`,
	)

	sink := newRecordingSink()
	if err := NewConsumer(sink).Run(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if sink.failed != "generation exploded" {
		t.Errorf("failed = %q", sink.failed)
	}
	for _, call := range sink.calls {
		if call == "start:never.js" {
			t.Error("events after terminal error were dispatched")
		}
	}
}

func TestConsumerSkipsMalformedFrames(t *testing.T) {
	input := "data: this is not json\n\n" + sseFrames(`{"type":"file_start","path":"ok.js"}`, `{"type":"complete"}`)

	sink := newRecordingSink()
	if err := NewConsumer(sink).Run(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.calls) == 0 || sink.calls[0] != "start:ok.js" {
		t.Errorf("calls = %v, malformed frame should be skipped", sink.calls)
	}
}

func TestConsumerCancellationMarksStreamCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := newRecordingSink()
	err := NewConsumer(sink).Run(ctx, strings.NewReader(sseFrames(`{"type":"file_start","path":"a.js"}`)))
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if !sink.cancelled {
		t.Error("cancellation must mark the stream cancelled, not leave it in progress")
	}
	if len(sink.calls) != 0 {
		t.Errorf("mutations applied after cancellation: %v", sink.calls)
	}
}

// ABOUTME: Consumer loop that drives a Sink from a generation backend SSE stream.
// ABOUTME: Applies file events synchronously in arrival order and terminates cleanly on cancellation.
package stream

import (
	"context"
	"fmt"
	"io"
	"log"
)

// Sink receives decoded generation events. File mutations must be applied
// synchronously as each event arrives so per-path ordering is preserved.
type Sink interface {
	FileStart(path string)
	FileChunk(path, chunk string, complete bool)
	FileOperation(ctx context.Context, data FileOperationData) error
	FileComplete(path, content string)
	ServerStarted(url string)
	Status(message string)
	Commands(cmds []string)
	Completed()
	Failed(message string)
	Cancelled()
}

// Consumer reads SSE frames, decodes them, and dispatches to a Sink.
type Consumer struct {
	sink Sink
}

// NewConsumer creates a Consumer dispatching to the given sink.
func NewConsumer(sink Sink) *Consumer {
	return &Consumer{sink: sink}
}

// Run consumes the stream until EOF, a terminal event, or context
// cancellation. Cancellation stops further mutation immediately and marks
// the in-flight generation as cancelled rather than leaving it perpetually
// in progress. A transport error is returned verbatim after the sink has
// been notified of the failure.
func (c *Consumer) Run(ctx context.Context, r io.Reader) error {
	parser := NewParser(r)

	for {
		select {
		case <-ctx.Done():
			c.sink.Cancelled()
			return ctx.Err()
		default:
		}

		raw, err := parser.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			c.sink.Failed(err.Error())
			return fmt.Errorf("generation stream read: %w", err)
		}

		evt, err := Decode(raw)
		if err != nil {
			// Malformed frames are skipped; a bad payload must not kill
			// the whole generation.
			log.Printf("stream: skipping malformed %q event: %v", raw.Type, err)
			continue
		}
		if evt == nil {
			continue
		}

		if done := c.dispatch(ctx, evt); done {
			return nil
		}
	}
}

// dispatch routes one event to the sink. Returns true for terminal events.
func (c *Consumer) dispatch(ctx context.Context, evt *Event) bool {
	switch evt.Type {
	case EventStatus, EventAgentStart, EventAgentComplete, EventPlanCreated:
		c.sink.Status(evt.Message)
	case EventFileStart:
		c.sink.FileStart(evt.FileStart.Path)
	case EventFileContent:
		d := evt.FileContent
		c.sink.FileChunk(d.Path, d.Chunk, d.Status == "complete")
	case EventFileOperation:
		if err := c.sink.FileOperation(ctx, *evt.FileOperation); err != nil {
			log.Printf("stream: file_operation %s: %v", evt.FileOperation.Path, err)
		}
	case EventFileComplete:
		c.sink.FileComplete(evt.FileComplete.Path, evt.FileComplete.Content)
	case EventCommands:
		c.sink.Commands(evt.Commands)
	case EventServerStarted, EventPreviewReady:
		c.sink.ServerStarted(evt.ServerURL)
	case EventComplete:
		c.sink.Completed()
		return true
	case EventError:
		c.sink.Failed(evt.Message)
		return true
	case EventCancelled:
		c.sink.Cancelled()
		return true
	}
	return false
}

// ABOUTME: Outbound SSE: streams workspace events (files, preview session, fix session, errors) to the UI.
package web

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SSEEvent represents a server-sent event ready for formatting and transmission.
type SSEEvent struct {
	Event string // event type (e.g. "preview_session", "fix_session")
	Data  string // JSON-encoded event data
}

// Format renders the SSEEvent as a properly formatted SSE message string.
// The format follows the SSE spec: "event: <type>\ndata: <data>\n\n".
func (e SSEEvent) Format() string {
	return fmt.Sprintf("event: %s\ndata: %s\n\n", e.Event, e.Data)
}

// handleEvents streams workspace events to the client until it disconnects
// or the workspace is torn down.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.openWorkspace(w, r)
	if !ok {
		return
	}

	ch := ws.Events().Subscribe()
	defer ws.Events().Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)

	// Initial snapshot so a late subscriber does not wait for the next
	// state change.
	snapshot := map[string]any{
		"preview": ws.Preview().Session(),
		"fix":     ws.FixSession(),
		"errors":  ws.Errors().Len(),
	}
	fmt.Fprint(w, marshalSSE("snapshot", snapshot).Format())
	if canFlush {
		flusher.Flush()
	}

	for {
		select {
		case evt, open := <-ch:
			if !open {
				// Workspace torn down.
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			fmt.Fprint(w, SSEEvent{Event: string(evt.Kind), Data: string(data)}.Format())
			if canFlush {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

// marshalSSE builds an SSEEvent from any payload, degrading to an error
// object when encoding fails.
func marshalSSE(event string, v any) SSEEvent {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(`{"error":"failed to marshal event"}`)
	}
	return SSEEvent{Event: event, Data: string(data)}
}

// ABOUTME: Capture intake: HTTP beacon endpoint and the sandbox websocket channel.
// ABOUTME: Messages with unknown tags are dropped silently; load events feed the retry controller.
package web

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

// maxCaptureBody bounds one capture report. Instrumentation truncates
// payloads client-side; this is the server-side backstop.
const maxCaptureBody = 64 << 10

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 1024,
	// The sandbox is a different origin by construction.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleCapture accepts one sandbox report via POST (sendBeacon/fetch
// keepalive fallback for when the message channel is unavailable).
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.openWorkspace(w, r)
	if !ok {
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxCaptureBody))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	s.routeCaptureMessage(ws.ProjectID, data)
	// Always 204: capture intake must never signal failure back into the
	// sandbox's error hooks.
	w.WriteHeader(http.StatusNoContent)
}

// handleCaptureWS upgrades to a websocket carrying the sandbox's one-way
// message channel: error reports, load lifecycle events, and log lines.
func (s *Server) handleCaptureWS(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.openWorkspace(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: capture ws upgrade: %v", err)
		return
	}
	defer conn.Close()

	projectID := ws.ProjectID
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		s.routeCaptureMessage(projectID, data)
	}
}

// liveMessage is the non-error control traffic on the capture channel.
type liveMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Line    string `json:"line"`
}

// routeCaptureMessage dispatches one channel message. Load lifecycle and
// log messages are handled here; everything else goes through the error
// decoder, which drops unknown tags.
func (s *Server) routeCaptureMessage(projectID string, data []byte) {
	ws, ok := s.manager.Get(projectID)
	if !ok {
		// The workspace was torn down while the message was in flight.
		return
	}

	var ctl liveMessage
	if err := json.Unmarshal(data, &ctl); err != nil {
		return
	}
	switch ctl.Type {
	case "load-event":
		ws.Preview().Retry().OnLoad()
	case "load-error":
		ws.Preview().Retry().OnError(ctl.Message)
	case "console-log":
		ws.AppendLog(ctl.Line)
	default:
		ws.Capture(data)
	}
}

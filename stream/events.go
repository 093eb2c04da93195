// ABOUTME: Typed generation events and the boundary adapters that normalize loose wire payloads.
// ABOUTME: Each event type has one adapter tolerating fields at the top level or nested under "data".
package stream

import (
	"encoding/json"
	"fmt"
)

// EventType discriminates generation backend events.
type EventType string

const (
	EventStatus        EventType = "status"
	EventAgentStart    EventType = "agent_start"
	EventAgentComplete EventType = "agent_complete"
	EventPlanCreated   EventType = "plan_created"
	EventFileStart     EventType = "file_start"
	EventFileContent   EventType = "file_content"
	EventFileOperation EventType = "file_operation"
	EventFileComplete  EventType = "file_complete"
	EventCommands      EventType = "commands"
	EventServerStarted EventType = "server_started"
	EventPreviewReady  EventType = "preview_ready"
	EventComplete      EventType = "complete"
	EventError         EventType = "error"
	EventCancelled     EventType = "cancelled"
)

// Event is a decoded generation event. Exactly one payload field is set
// depending on Type; lifecycle events (complete, cancelled, agent_*) carry
// only Message.
type Event struct {
	Type          EventType
	Message       string
	FileStart     *FileStartData
	FileContent   *FileContentData
	FileOperation *FileOperationData
	FileComplete  *FileCompleteData
	Commands      []string
	ServerURL     string
	Plan          *PlanData
}

// FileStartData announces that a file is about to stream.
type FileStartData struct {
	Path string
}

// FileContentData carries one streamed chunk for a path. Status "complete"
// means Chunk is the full replacement content.
type FileContentData struct {
	Path   string
	Chunk  string
	Status string
}

// FileOperationData is the richer operation event used for patches and
// document outputs.
type FileOperationData struct {
	Path    string
	Kind    string // create, modify, fixed, documentation
	Status  string // in_progress, complete
	Content string
}

// FileCompleteData is the authoritative final content for a path.
type FileCompleteData struct {
	Path    string
	Content string
}

// PlanData is the generation plan summary announced before files stream.
type PlanData struct {
	Description string
	Files       []string
}

// envelope is the loose wire shape: some backends put payload fields at the
// event's top level, others nest them under "data". Both are accepted.
type envelope struct {
	Type string                     `json:"type"`
	Data map[string]json.RawMessage `json:"data"`
	Rest map[string]json.RawMessage `json:"-"`
}

// Decode parses a raw SSE frame into a typed Event. Unknown event types
// return (nil, nil) so callers skip them instead of failing the stream.
func Decode(raw RawEvent) (*Event, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw.Data), &env.Rest); err != nil {
		return nil, fmt.Errorf("decode event payload: %w", err)
	}
	if typeRaw, ok := env.Rest["type"]; ok {
		_ = json.Unmarshal(typeRaw, &env.Type)
	}
	if env.Type == "" {
		// SSE-level event name is the fallback discriminant.
		env.Type = raw.Type
	}
	if dataRaw, ok := env.Rest["data"]; ok {
		_ = json.Unmarshal(dataRaw, &env.Data)
	}

	switch EventType(env.Type) {
	case EventStatus, EventAgentStart, EventAgentComplete, EventComplete, EventError, EventCancelled:
		return &Event{Type: EventType(env.Type), Message: env.str("message")}, nil
	case EventPlanCreated:
		return adaptPlanCreated(env), nil
	case EventFileStart:
		return adaptFileStart(env), nil
	case EventFileContent:
		return adaptFileContent(env), nil
	case EventFileOperation:
		return adaptFileOperation(env), nil
	case EventFileComplete:
		return adaptFileComplete(env), nil
	case EventCommands:
		return adaptCommands(env), nil
	case EventServerStarted, EventPreviewReady:
		return &Event{Type: EventType(env.Type), ServerURL: env.str("url", "preview_url", "server_url")}, nil
	default:
		return nil, nil
	}
}

// adaptFileStart normalizes a file_start payload.
func adaptFileStart(env envelope) *Event {
	return &Event{
		Type:      EventFileStart,
		FileStart: &FileStartData{Path: env.str("path", "file_path", "filename")},
	}
}

// adaptFileContent normalizes a file_content payload.
func adaptFileContent(env envelope) *Event {
	return &Event{
		Type: EventFileContent,
		FileContent: &FileContentData{
			Path:   env.str("path", "file_path", "filename"),
			Chunk:  env.str("chunk", "content"),
			Status: env.str("status"),
		},
	}
}

// adaptFileOperation normalizes a file_operation payload.
func adaptFileOperation(env envelope) *Event {
	return &Event{
		Type: EventFileOperation,
		FileOperation: &FileOperationData{
			Path:    env.str("path", "file_path", "filename"),
			Kind:    env.str("kind", "operation"),
			Status:  env.str("status"),
			Content: env.str("content", "chunk"),
		},
	}
}

// adaptFileComplete normalizes a file_complete payload.
func adaptFileComplete(env envelope) *Event {
	return &Event{
		Type: EventFileComplete,
		FileComplete: &FileCompleteData{
			Path:    env.str("path", "file_path", "filename"),
			Content: env.str("content", "full_content"),
		},
	}
}

// adaptCommands normalizes a commands payload.
func adaptCommands(env envelope) *Event {
	var cmds []string
	if raw, ok := env.lookup("commands"); ok {
		_ = json.Unmarshal(raw, &cmds)
	}
	return &Event{Type: EventCommands, Commands: cmds}
}

// adaptPlanCreated normalizes a plan_created payload.
func adaptPlanCreated(env envelope) *Event {
	plan := &PlanData{Description: env.str("description", "plan")}
	if raw, ok := env.lookup("files"); ok {
		_ = json.Unmarshal(raw, &plan.Files)
	}
	return &Event{Type: EventPlanCreated, Plan: plan}
}

// lookup finds a field under "data" first, then at the top level.
func (e envelope) lookup(key string) (json.RawMessage, bool) {
	if raw, ok := e.Data[key]; ok {
		return raw, true
	}
	if raw, ok := e.Rest[key]; ok {
		return raw, true
	}
	return nil, false
}

// str returns the first present string value among the given keys, checking
// the nested data object before the top level for each.
func (e envelope) str(keys ...string) string {
	for _, key := range keys {
		raw, ok := e.lookup(key)
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

package chat

import (
	"encoding/json"
	"fmt"

	"github.com/papercomputeco/chatstream/pkg/sse"
)

// Stream event names emitted by the backend's send endpoint.
const (
	eventToken     = "token"
	eventWidget    = "widget"
	eventToolStart = "tool_start"
	eventToolEnd   = "tool_end"
	eventError     = "error"
	eventDone      = "done"
)

// StreamEvent is one decoded event from the send stream. It is a closed set
// of typed payloads plus UnknownEvent for forward compatibility with event
// names this client does not know yet.
type StreamEvent interface {
	streamEvent()
}

// TokenEvent carries a text chunk to append to the streaming message.
type TokenEvent struct {
	Content string `json:"content"`
}

// WidgetEvent carries a widget directive to attach to the streaming message.
type WidgetEvent struct {
	Widget WidgetDirective
}

// ToolStartEvent announces a server-side tool invocation. Informational; the
// payload shape is not enforced.
type ToolStartEvent struct {
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolEndEvent announces a finished server-side tool invocation.
type ToolEndEvent struct {
	Name    string `json:"name"`
	Output  string `json:"output"`
	IsError bool   `json:"is_error"`
}

// ErrorEvent is the server-signaled terminal failure for the current turn.
type ErrorEvent struct {
	Message string `json:"message"`
}

// DoneEvent is the terminal success signal.
type DoneEvent struct{}

// UnknownEvent preserves an unrecognized event name and its raw payload.
type UnknownEvent struct {
	Name string
	Data json.RawMessage
}

func (TokenEvent) streamEvent()     {}
func (WidgetEvent) streamEvent()    {}
func (ToolStartEvent) streamEvent() {}
func (ToolEndEvent) streamEvent()   {}
func (ErrorEvent) streamEvent()     {}
func (DoneEvent) streamEvent()      {}
func (UnknownEvent) streamEvent()   {}

// DecodeStreamEvent converts a wire-level SSE event into a typed StreamEvent.
// An empty data payload decodes as an empty JSON object. A malformed payload
// returns an error naming the offending event; one bad frame must not abort
// the stream, so callers log and continue.
func DecodeStreamEvent(ev *sse.Event) (StreamEvent, error) {
	data := ev.Data
	if data == "" {
		data = "{}"
	}

	switch ev.Type {
	case eventToken:
		var e TokenEvent
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, fmt.Errorf("decoding %s event: %w", ev.Type, err)
		}
		return e, nil

	case eventWidget:
		var payload struct {
			WidgetID string         `json:"widget_id"`
			Type     string         `json:"type"`
			Props    map[string]any `json:"props"`
			Display  Display        `json:"display"`
		}
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return nil, fmt.Errorf("decoding %s event: %w", ev.Type, err)
		}
		if payload.Props == nil {
			payload.Props = map[string]any{}
		}
		if payload.Display == "" {
			payload.Display = DisplayInline
		}
		return WidgetEvent{Widget: WidgetDirective{
			WidgetID: payload.WidgetID,
			Type:     payload.Type,
			Props:    payload.Props,
			Display:  payload.Display,
		}}, nil

	case eventToolStart:
		var e ToolStartEvent
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, fmt.Errorf("decoding %s event: %w", ev.Type, err)
		}
		return e, nil

	case eventToolEnd:
		var e ToolEndEvent
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, fmt.Errorf("decoding %s event: %w", ev.Type, err)
		}
		return e, nil

	case eventError:
		var e ErrorEvent
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, fmt.Errorf("decoding %s event: %w", ev.Type, err)
		}
		return e, nil

	case eventDone:
		if !json.Valid([]byte(data)) {
			return nil, fmt.Errorf("decoding %s event: invalid JSON payload", ev.Type)
		}
		return DoneEvent{}, nil

	default:
		return UnknownEvent{Name: ev.Type, Data: json.RawMessage(data)}, nil
	}
}

// Package eventstream publishes chat turn telemetry to an event stream
// backend. Publishing is best effort: a failed publish never fails the send
// path that produced the turn.
package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnCompleted is emitted after a chat turn finishes streaming.
	EventTypeTurnCompleted = "chatstream.turn.completed"
)

// Turn outcomes.
const (
	OutcomeDone           = "done"
	OutcomeServerError    = "server_error"
	OutcomeTransportError = "transport_error"
)

// TurnCompletedEvent is a transport-neutral telemetry payload for one
// completed send/stream round-trip.
type TurnCompletedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
	Turn          TurnMeta    `json:"turn"`
}

// EventSource identifies where the turn originated.
type EventSource struct {
	ConversationID string `json:"conversation_id"`
}

// TurnMeta captures the lifecycle of one turn.
type TurnMeta struct {
	UserMessageID      string        `json:"user_message_id"`
	AssistantMessageID string        `json:"assistant_message_id"`
	StartedAt          time.Time     `json:"started_at"`
	CompletedAt        time.Time     `json:"completed_at"`
	Duration           time.Duration `json:"duration"`
	TokenEvents        int           `json:"token_events"`
	WidgetEvents       int           `json:"widget_events"`

	// Outcome is one of the Outcome constants.
	Outcome string `json:"outcome"`

	// FinalContent is the assistant content as it stood when the stream
	// terminated, including any partial content from an errored turn.
	FinalContent string `json:"final_content"`
}

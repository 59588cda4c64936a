// Package chat implements the streaming chat core: the conversation message
// model, the observable session state store, and the stream orchestration that
// drives one send/stream round-trip against the backend.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat turn.
//
// IDs are generated client-side at creation time so the message can be shown
// optimistically before any server acknowledgment. Content of an assistant
// message grows by append while the message is streaming; it is never
// replaced wholesale.
type Message struct {
	ID        string            `json:"id"`
	Role      Role              `json:"role"`
	Content   string            `json:"content"`
	Widgets   []WidgetDirective `json:"widgets,omitempty"`
	CreatedAt time.Time         `json:"created_at"`

	// Streaming is true only while this message is the in-flight assistant
	// response. Once cleared it never reverts.
	Streaming bool `json:"streaming"`
}

// NewUserMessage creates a complete user message with a fresh ID.
func NewUserMessage(text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   text,
		CreatedAt: time.Now(),
	}
}

// NewAssistantPlaceholder creates an empty assistant message with a fresh ID,
// flagged as streaming. The orchestrator appends content to it as token
// events arrive.
func NewAssistantPlaceholder() Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		CreatedAt: time.Now(),
		Streaming: true,
	}
}

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/chatstream/pkg/eventstream"
	esnop "github.com/papercomputeco/chatstream/pkg/eventstream/nop"
	"github.com/papercomputeco/chatstream/pkg/logger"
	"github.com/papercomputeco/chatstream/pkg/panel"
	panelnop "github.com/papercomputeco/chatstream/pkg/panel/nop"
	"github.com/papercomputeco/chatstream/pkg/sse"
)

// ErrSendInFlight is returned by Send while a previous send on the same
// session is still streaming. Two interleaved streams would both append into
// the session's streaming message, so overlapping sends are rejected outright.
var ErrSendInFlight = errors.New("a send is already in flight for this session")

// API is the backend surface the session consumes. Implemented by
// pkg/apiclient against the real platform and by test fakes.
type API interface {
	// SendMessage posts text to the conversation's send endpoint and returns
	// the SSE response body. The caller closes the body once drained.
	SendMessage(ctx context.Context, conversationID, text string) (io.ReadCloser, error)
}

// Session orchestrates send/stream round-trips for one conversation session.
// It owns the only write path into its Store; the presentation layer reads
// the store and never mutates it.
type Session struct {
	api      API
	store    *Store
	panels   panel.Stack
	events   eventstream.Publisher
	logger   *slog.Logger
	inFlight atomic.Bool
}

// SessionOption configures a Session created with NewSession.
type SessionOption func(*Session)

// WithPanelStack sets the collaborator receiving panel-display widgets.
func WithPanelStack(stack panel.Stack) SessionOption {
	return func(s *Session) {
		s.panels = stack
	}
}

// WithPublisher sets the turn telemetry publisher.
func WithPublisher(pub eventstream.Publisher) SessionOption {
	return func(s *Session) {
		s.events = pub
	}
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = l
	}
}

// NewSession creates a Session that mutates the given store. Panel stack,
// publisher, and logger default to no-ops.
func NewSession(api API, store *Store, opts ...SessionOption) *Session {
	s := &Session{
		api:    api,
		store:  store,
		panels: panelnop.NewStack(),
		events: esnop.NewPublisher(),
		logger: logger.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Store returns the session's state store for read/subscribe access.
func (s *Session) Store() *Store {
	return s.store
}

// Send runs one full chat round-trip: append the user message optimistically,
// open the assistant streaming placeholder, issue the request, and apply
// stream events to the store until the stream terminates.
//
// Cleanup is unconditional: FinishStreaming fires exactly once per Send on
// every exit path — done event, server error event, transport failure, or
// request-issuance failure — so the session can never be left stuck in a
// streaming state.
//
// A server-signaled error event is absorbed (logged, nil return); transport
// errors are returned after cleanup. A malformed frame is skipped, not fatal.
func (s *Session) Send(ctx context.Context, conversationID, text string) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrSendInFlight
	}
	defer s.inFlight.Store(false)

	// The user message appears immediately and unconditionally, even if the
	// request below never leaves the machine.
	user := NewUserMessage(text)
	s.store.Add(user)

	assistant := NewAssistantPlaceholder()
	s.store.Add(assistant)

	turn := &turnState{
		conversationID: conversationID,
		userID:         user.ID,
		assistantID:    assistant.ID,
		startedAt:      time.Now(),
		outcome:        eventstream.OutcomeTransportError,
	}
	defer func() {
		s.store.FinishStreaming()
		s.publishTurn(turn)
	}()

	body, err := s.api.SendMessage(ctx, conversationID, text)
	if err != nil {
		s.logger.Error("send request failed",
			"conversation_id", conversationID,
			"error", err,
		)
		return fmt.Errorf("sending message: %w", err)
	}
	defer body.Close()

	reader := sse.NewReader(body)
	for {
		ev, err := reader.Next()
		if err != nil {
			s.logger.Error("stream read failed",
				"conversation_id", conversationID,
				"error", err,
			)
			return fmt.Errorf("reading stream: %w", err)
		}
		if ev == nil {
			// Stream exhausted without an explicit terminal event.
			turn.outcome = eventstream.OutcomeDone
			return nil
		}

		decoded, err := DecodeStreamEvent(ev)
		if err != nil {
			// One malformed frame must not abort the stream.
			s.logger.Warn("skipping malformed stream event",
				"event", ev.Type,
				"error", err,
			)
			continue
		}

		if terminal := s.dispatch(decoded, turn); terminal {
			return nil
		}
	}
}

// dispatch applies one decoded stream event to the store. It returns true
// when the event terminates the turn.
func (s *Session) dispatch(ev StreamEvent, turn *turnState) bool {
	switch e := ev.(type) {
	case TokenEvent:
		s.store.AppendDelta(e.Content)
		turn.tokenEvents++

	case WidgetEvent:
		s.store.AppendWidget(e.Widget)
		turn.widgetEvents++
		if e.Widget.Display == DisplayPanel {
			s.panels.Push(panelEntry(e.Widget))
		}

	case ToolStartEvent:
		// Tool progress is not surfaced yet; keep the stream moving.
		s.logger.Debug("tool started", "tool", e.Name)

	case ToolEndEvent:
		s.logger.Debug("tool finished", "tool", e.Name, "is_error", e.IsError)

	case ErrorEvent:
		// Terminal for this turn, absorbed rather than propagated: the UI
		// keeps whatever partial content arrived and becomes interactive
		// again.
		s.logger.Error("server reported stream error", "message", e.Message)
		turn.outcome = eventstream.OutcomeServerError
		return true

	case DoneEvent:
		turn.outcome = eventstream.OutcomeDone
		return true

	case UnknownEvent:
		// Forward compatibility: new event types are ignored silently.
		s.logger.Debug("ignoring unknown stream event", "event", e.Name)
	}

	return false
}

// turnState accumulates per-send telemetry for the turn-completed event.
type turnState struct {
	conversationID string
	userID         string
	assistantID    string
	startedAt      time.Time
	tokenEvents    int
	widgetEvents   int
	outcome        string
}

// publishTurn emits turn telemetry after cleanup. Best effort: failures are
// logged and never surface to the send path.
func (s *Session) publishTurn(turn *turnState) {
	completedAt := time.Now()

	var finalContent string
	for _, msg := range s.store.Messages() {
		if msg.ID == turn.assistantID {
			finalContent = msg.Content
			break
		}
	}

	event := &eventstream.TurnCompletedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeTurnCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     completedAt,
		Source: eventstream.EventSource{
			ConversationID: turn.conversationID,
		},
		Turn: eventstream.TurnMeta{
			UserMessageID:      turn.userID,
			AssistantMessageID: turn.assistantID,
			StartedAt:          turn.startedAt,
			CompletedAt:        completedAt,
			Duration:           completedAt.Sub(turn.startedAt),
			TokenEvents:        turn.tokenEvents,
			WidgetEvents:       turn.widgetEvents,
			Outcome:            turn.outcome,
			FinalContent:       finalContent,
		},
	}

	// The send's context may already be canceled by the failure that ended
	// the turn; telemetry still gets a short window of its own.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.events.PublishTurn(ctx, event); err != nil {
		s.logger.Warn("publishing turn event failed", "error", err)
	}
}

// panelEntry maps a panel-display widget onto the panel stack's entry shape.
// A "title" prop becomes the panel title when present.
func panelEntry(w WidgetDirective) panel.Entry {
	entry := panel.Entry{
		ID:         w.WidgetID,
		WidgetType: w.Type,
		Props:      w.Props,
	}
	if title, ok := w.Props["title"].(string); ok {
		entry.Title = title
	}
	return entry
}

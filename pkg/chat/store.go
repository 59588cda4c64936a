package chat

import "sync"

// Change describes one store mutation, delivered synchronously to
// subscribers. Renderers consume changes incrementally (a delta prints as it
// arrives) instead of diffing message snapshots.
type Change interface {
	storeChange()
}

// MessageAdded reports a message appended to the conversation.
type MessageAdded struct {
	Message Message
}

// DeltaAppended reports text appended to the streaming message.
type DeltaAppended struct {
	MessageID string
	Delta     string
}

// WidgetAppended reports a widget attached to the streaming message.
type WidgetAppended struct {
	MessageID string
	Widget    WidgetDirective
}

// StreamFinished reports that the session's streaming state was cleared.
type StreamFinished struct{}

// Cleared reports that the message list was emptied.
type Cleared struct{}

func (MessageAdded) storeChange()   {}
func (DeltaAppended) storeChange()  {}
func (WidgetAppended) storeChange() {}
func (StreamFinished) storeChange() {}
func (Cleared) storeChange()        {}

// Store holds the canonical, observable message list for one conversation
// session plus the session-wide streaming flag.
//
// The store is constructed per session and passed to whatever consumes it —
// there is no package-level shared instance. All mutations are short,
// mutex-guarded, and notify subscribers synchronously before returning, so a
// reader observes every change the moment the mutating call completes.
type Store struct {
	mu       sync.Mutex
	messages []Message

	// streamingID is the ID of the in-flight assistant message, or empty.
	// At most one message streams at a time; tracking the ID directly makes
	// the append operations O(1) lookups instead of scans.
	streamingID string

	subscribers map[int]func(Change)
	nextSubID   int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		subscribers: make(map[int]func(Change)),
	}
}

// Subscribe registers fn to receive every subsequent Change. The returned
// function removes the subscription. Callbacks run synchronously inside the
// mutating call and must not mutate the store re-entrantly.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Add appends a message to the conversation. If the message is flagged
// streaming it becomes the current streaming message. Duplicate IDs are not
// rejected; IDs are generated once per send and never reused.
func (s *Store) Add(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msg)
	if msg.Streaming {
		s.streamingID = msg.ID
	}
	s.notify(MessageAdded{Message: msg})
}

// AppendDelta appends a text delta to the current streaming message.
// A no-op when nothing is streaming: late-arriving events after early
// termination are expected and must not fail.
func (s *Store) AppendDelta(delta string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := s.streamingMessage()
	if msg == nil {
		return
	}

	msg.Content += delta
	s.notify(DeltaAppended{MessageID: msg.ID, Delta: delta})
}

// AppendWidget attaches a widget directive to the current streaming message.
// A no-op when nothing is streaming.
func (s *Store) AppendWidget(w WidgetDirective) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := s.streamingMessage()
	if msg == nil {
		return
	}

	msg.Widgets = append(msg.Widgets, w)
	s.notify(WidgetAppended{MessageID: msg.ID, Widget: w})
}

// FinishStreaming clears the streaming flag on every flagged message and the
// session-wide streaming state. Idempotent: calling it with nothing streaming
// is a safe no-op and emits no change.
func (s *Store) FinishStreaming() {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The invariant guarantees at most one flagged message, but clear them
	// all so a violated invariant cannot wedge the streaming state.
	finished := false
	for i := range s.messages {
		if s.messages[i].Streaming {
			s.messages[i].Streaming = false
			finished = true
		}
	}

	if s.streamingID == "" && !finished {
		return
	}

	s.streamingID = ""
	s.notify(StreamFinished{})
}

// Clear empties the message list, used when switching conversations.
// Any in-flight streaming state is dropped with the messages.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.streamingID = ""
	s.notify(Cleared{})
}

// Messages returns a snapshot of the conversation in order.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Streaming reports whether a response stream is in flight.
func (s *Store) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamingID != ""
}

// streamingMessage returns the current streaming message, or nil.
// Callers must hold s.mu.
func (s *Store) streamingMessage() *Message {
	if s.streamingID == "" {
		return nil
	}
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ID == s.streamingID {
			return &s.messages[i]
		}
	}
	return nil
}

// notify fans a change out to all subscribers. Callers must hold s.mu.
func (s *Store) notify(c Change) {
	for _, fn := range s.subscribers {
		fn(c)
	}
}

package chat_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatstream/pkg/chat"
	"github.com/papercomputeco/chatstream/pkg/eventstream"
	"github.com/papercomputeco/chatstream/pkg/panel"
)

// fakeAPI serves a canned SSE stream, or fails outright.
type fakeAPI struct {
	stream string
	body   io.ReadCloser
	err    error

	mu    sync.Mutex
	calls []string
}

func (f *fakeAPI) SendMessage(_ context.Context, conversationID, _ string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.calls = append(f.calls, conversationID)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if f.body != nil {
		return f.body, nil
	}
	return io.NopCloser(strings.NewReader(f.stream)), nil
}

// recordingStack records panel pushes.
type recordingStack struct {
	mu      sync.Mutex
	entries []panel.Entry
}

func (r *recordingStack) Push(entry panel.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

// recordingPublisher records published turn events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.TurnCompletedEvent
}

func (r *recordingPublisher) PublishTurn(_ context.Context, event *eventstream.TurnCompletedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

// failingReader yields its prefix then fails mid-stream.
type failingReader struct {
	prefix io.Reader
	err    error
	done   bool
}

func (f *failingReader) Read(p []byte) (int, error) {
	if !f.done {
		n, err := f.prefix.Read(p)
		if err == io.EOF {
			f.done = true
			return n, nil
		}
		return n, err
	}
	return 0, f.err
}

func (f *failingReader) Close() error { return nil }

// blockingReader blocks reads until released, then ends the stream.
type blockingReader struct {
	release chan struct{}
}

func (b *blockingReader) Read([]byte) (int, error) {
	<-b.release
	return 0, io.EOF
}

func (b *blockingReader) Close() error { return nil }

var _ = Describe("Session", func() {
	var (
		store     *chat.Store
		panels    *recordingStack
		publisher *recordingPublisher
	)

	BeforeEach(func() {
		store = chat.NewStore()
		panels = &recordingStack{}
		publisher = &recordingPublisher{}
	})

	newSession := func(api chat.API) *chat.Session {
		return chat.NewSession(api, store,
			chat.WithPanelStack(panels),
			chat.WithPublisher(publisher),
		)
	}

	Describe("Send", func() {
		Context("with a token stream ending in done", func() {
			stream := "event: token\ndata: {\"content\":\"Hi\"}\n\n" +
				"event: token\ndata: {\"content\":\" there\"}\n\n" +
				"event: done\ndata: {}\n\n"

			It("reconstructs the assistant response", func() {
				session := newSession(&fakeAPI{stream: stream})

				err := session.Send(context.Background(), "c1", "hello")
				Expect(err).NotTo(HaveOccurred())

				msgs := store.Messages()
				Expect(msgs).To(HaveLen(2))

				Expect(msgs[0].Role).To(Equal(chat.RoleUser))
				Expect(msgs[0].Content).To(Equal("hello"))
				Expect(msgs[0].Streaming).To(BeFalse())

				Expect(msgs[1].Role).To(Equal(chat.RoleAssistant))
				Expect(msgs[1].Content).To(Equal("Hi there"))
				Expect(msgs[1].Streaming).To(BeFalse())

				Expect(store.Streaming()).To(BeFalse())
			})

			It("publishes a completed turn event", func() {
				session := newSession(&fakeAPI{stream: stream})

				Expect(session.Send(context.Background(), "c1", "hello")).To(Succeed())

				Expect(publisher.events).To(HaveLen(1))
				event := publisher.events[0]
				Expect(event.EventType).To(Equal(eventstream.EventTypeTurnCompleted))
				Expect(event.Source.ConversationID).To(Equal("c1"))
				Expect(event.Turn.Outcome).To(Equal(eventstream.OutcomeDone))
				Expect(event.Turn.TokenEvents).To(Equal(2))
				Expect(event.Turn.FinalContent).To(Equal("Hi there"))
			})

			It("generates distinct IDs for the user and assistant messages", func() {
				session := newSession(&fakeAPI{stream: stream})

				Expect(session.Send(context.Background(), "c1", "hello")).To(Succeed())

				msgs := store.Messages()
				Expect(msgs[0].ID).NotTo(BeEmpty())
				Expect(msgs[1].ID).NotTo(BeEmpty())
				Expect(msgs[0].ID).NotTo(Equal(msgs[1].ID))
			})
		})

		Context("with a panel widget", func() {
			stream := "event: widget\ndata: {\"widget_id\":\"w1\",\"type\":\"chart\",\"props\":{},\"display\":\"panel\"}\n\n" +
				"event: done\ndata: {}\n\n"

			It("attaches the widget and pushes the panel exactly once", func() {
				session := newSession(&fakeAPI{stream: stream})

				Expect(session.Send(context.Background(), "c1", "graph it")).To(Succeed())

				msgs := store.Messages()
				Expect(msgs[1].Widgets).To(HaveLen(1))
				Expect(msgs[1].Widgets[0].WidgetID).To(Equal("w1"))

				Expect(panels.entries).To(HaveLen(1))
				Expect(panels.entries[0].ID).To(Equal("w1"))
				Expect(panels.entries[0].WidgetType).To(Equal("chart"))
			})
		})

		Context("with an inline widget", func() {
			stream := "event: widget\ndata: {\"widget_id\":\"w2\",\"type\":\"table\",\"display\":\"inline\"}\n\n" +
				"event: done\ndata: {}\n\n"

			It("does not push a panel", func() {
				session := newSession(&fakeAPI{stream: stream})

				Expect(session.Send(context.Background(), "c1", "tabulate")).To(Succeed())

				Expect(store.Messages()[1].Widgets).To(HaveLen(1))
				Expect(panels.entries).To(BeEmpty())
			})
		})

		Context("with a server error event", func() {
			stream := "event: token\ndata: {\"content\":\"par\"}\n\n" +
				"event: error\ndata: {\"message\":\"LLM timeout\"}\n\n"

			It("absorbs the error and keeps partial content", func() {
				session := newSession(&fakeAPI{stream: stream})

				err := session.Send(context.Background(), "c1", "hello")
				Expect(err).NotTo(HaveOccurred())

				msgs := store.Messages()
				Expect(msgs[1].Content).To(Equal("par"))
				Expect(store.Streaming()).To(BeFalse())

				Expect(publisher.events[0].Turn.Outcome).To(Equal(eventstream.OutcomeServerError))
			})

			It("clears streaming even when the error arrives first", func() {
				session := newSession(&fakeAPI{
					stream: "event: error\ndata: {\"message\":\"LLM timeout\"}\n\n",
				})

				Expect(session.Send(context.Background(), "c1", "hello")).To(Succeed())

				Expect(store.Messages()[1].Content).To(BeEmpty())
				Expect(store.Streaming()).To(BeFalse())
			})
		})

		Context("when the request cannot be issued", func() {
			It("returns the transport error after cleanup", func() {
				session := newSession(&fakeAPI{err: errors.New("connection refused")})

				err := session.Send(context.Background(), "c1", "hello")
				Expect(err).To(MatchError(ContainSubstring("connection refused")))

				// The optimistic user message and the placeholder both exist.
				msgs := store.Messages()
				Expect(msgs).To(HaveLen(2))
				Expect(msgs[0].Content).To(Equal("hello"))
				Expect(msgs[1].Content).To(BeEmpty())
				Expect(store.Streaming()).To(BeFalse())

				Expect(publisher.events[0].Turn.Outcome).To(Equal(eventstream.OutcomeTransportError))
			})
		})

		Context("when the stream fails mid-read", func() {
			It("returns the read error after cleanup", func() {
				session := newSession(&fakeAPI{
					body: &failingReader{
						prefix: strings.NewReader("event: token\ndata: {\"content\":\"Hi\"}\n\n"),
						err:    errors.New("connection reset"),
					},
				})

				err := session.Send(context.Background(), "c1", "hello")
				Expect(err).To(MatchError(ContainSubstring("connection reset")))

				Expect(store.Messages()[1].Content).To(Equal("Hi"))
				Expect(store.Streaming()).To(BeFalse())
			})
		})

		Context("with a malformed frame between valid tokens", func() {
			stream := "event: token\ndata: {\"content\":\"Hi\"}\n\n" +
				"event: token\ndata: {not json\n\n" +
				"event: token\ndata: {\"content\":\" there\"}\n\n" +
				"event: done\ndata: {}\n\n"

			It("applies both valid tokens in order", func() {
				session := newSession(&fakeAPI{stream: stream})

				Expect(session.Send(context.Background(), "c1", "hello")).To(Succeed())
				Expect(store.Messages()[1].Content).To(Equal("Hi there"))
			})
		})

		Context("with tool progress and unknown events", func() {
			stream := "event: tool_start\ndata: {\"name\":\"search\"}\n\n" +
				"event: token\ndata: {\"content\":\"found it\"}\n\n" +
				"event: tool_end\ndata: {\"name\":\"search\"}\n\n" +
				"event: usage\ndata: {\"tokens\":7}\n\n" +
				"event: done\ndata: {}\n\n"

			It("passes over them without halting the stream", func() {
				session := newSession(&fakeAPI{stream: stream})

				Expect(session.Send(context.Background(), "c1", "hello")).To(Succeed())
				Expect(store.Messages()[1].Content).To(Equal("found it"))
			})
		})

		Context("when the stream ends without a terminal event", func() {
			It("finishes cleanly", func() {
				session := newSession(&fakeAPI{
					stream: "event: token\ndata: {\"content\":\"Hi\"}\n\n",
				})

				Expect(session.Send(context.Background(), "c1", "hello")).To(Succeed())
				Expect(store.Messages()[1].Content).To(Equal("Hi"))
				Expect(store.Streaming()).To(BeFalse())
			})
		})

		Context("while a send is in flight", func() {
			It("rejects an overlapping send", func() {
				release := make(chan struct{})
				session := newSession(&fakeAPI{body: &blockingReader{release: release}})

				done := make(chan error, 1)
				go func() {
					done <- session.Send(context.Background(), "c1", "first")
				}()

				Eventually(store.Streaming).Should(BeTrue())

				err := session.Send(context.Background(), "c1", "second")
				Expect(err).To(MatchError(chat.ErrSendInFlight))

				close(release)
				Eventually(done).Should(Receive(BeNil()))
				Expect(store.Streaming()).To(BeFalse())
			})
		})
	})
})

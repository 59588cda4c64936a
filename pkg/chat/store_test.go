package chat_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatstream/pkg/chat"
)

var _ = Describe("Store", func() {
	var store *chat.Store

	BeforeEach(func() {
		store = chat.NewStore()
	})

	Describe("Add", func() {
		It("appends messages in order", func() {
			store.Add(chat.NewUserMessage("first"))
			store.Add(chat.NewUserMessage("second"))

			msgs := store.Messages()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Content).To(Equal("first"))
			Expect(msgs[1].Content).To(Equal("second"))
		})

		It("sets the session streaming flag for a streaming message", func() {
			Expect(store.Streaming()).To(BeFalse())
			store.Add(chat.NewAssistantPlaceholder())
			Expect(store.Streaming()).To(BeTrue())
		})
	})

	Describe("AppendDelta", func() {
		It("reconstructs content as the concatenation of deltas in call order", func() {
			store.Add(chat.NewAssistantPlaceholder())

			deltas := []string{"Hel", "lo", " ", "wor", "ld", "!"}
			for _, d := range deltas {
				store.AppendDelta(d)
			}

			msgs := store.Messages()
			Expect(msgs[0].Content).To(Equal("Hello world!"))
		})

		It("is a safe no-op when nothing is streaming", func() {
			store.Add(chat.NewUserMessage("hello"))

			Expect(func() { store.AppendDelta("late token") }).NotTo(Panic())
			Expect(store.Messages()[0].Content).To(Equal("hello"))
		})

		It("is a safe no-op after the stream finished", func() {
			store.Add(chat.NewAssistantPlaceholder())
			store.AppendDelta("partial")
			store.FinishStreaming()

			store.AppendDelta(" more")
			Expect(store.Messages()[0].Content).To(Equal("partial"))
		})
	})

	Describe("AppendWidget", func() {
		widget := chat.WidgetDirective{
			WidgetID: "w1",
			Type:     "chart",
			Props:    map[string]any{},
			Display:  chat.DisplayInline,
		}

		It("attaches widgets to the streaming message in order", func() {
			store.Add(chat.NewAssistantPlaceholder())

			store.AppendWidget(widget)
			second := widget
			second.WidgetID = "w2"
			store.AppendWidget(second)

			msgs := store.Messages()
			Expect(msgs[0].Widgets).To(HaveLen(2))
			Expect(msgs[0].Widgets[0].WidgetID).To(Equal("w1"))
			Expect(msgs[0].Widgets[1].WidgetID).To(Equal("w2"))
		})

		It("is a safe no-op when nothing is streaming", func() {
			Expect(func() { store.AppendWidget(widget) }).NotTo(Panic())
			Expect(store.Messages()).To(BeEmpty())
		})
	})

	Describe("FinishStreaming", func() {
		It("clears the streaming flag on the message and the session", func() {
			store.Add(chat.NewAssistantPlaceholder())
			store.FinishStreaming()

			Expect(store.Streaming()).To(BeFalse())
			Expect(store.Messages()[0].Streaming).To(BeFalse())
		})

		It("is idempotent", func() {
			store.Add(chat.NewAssistantPlaceholder())
			store.AppendDelta("hi")

			store.FinishStreaming()
			after := store.Messages()

			store.FinishStreaming()
			Expect(store.Messages()).To(Equal(after))
			Expect(store.Streaming()).To(BeFalse())
		})

		It("is a safe no-op on an empty store", func() {
			Expect(func() { store.FinishStreaming() }).NotTo(Panic())
			Expect(store.Streaming()).To(BeFalse())
		})
	})

	Describe("Clear", func() {
		It("empties the message list", func() {
			store.Add(chat.NewUserMessage("hello"))
			store.Add(chat.NewAssistantPlaceholder())

			store.Clear()

			Expect(store.Messages()).To(BeEmpty())
			Expect(store.Streaming()).To(BeFalse())
		})
	})

	Describe("Subscribe", func() {
		It("notifies synchronously on every mutation", func() {
			var changes []chat.Change
			store.Subscribe(func(c chat.Change) {
				changes = append(changes, c)
			})

			store.Add(chat.NewAssistantPlaceholder())
			store.AppendDelta("hi")
			store.FinishStreaming()
			store.Clear()

			Expect(changes).To(HaveLen(4))
			Expect(changes[0]).To(BeAssignableToTypeOf(chat.MessageAdded{}))
			Expect(changes[1]).To(BeAssignableToTypeOf(chat.DeltaAppended{}))
			Expect(changes[2]).To(BeAssignableToTypeOf(chat.StreamFinished{}))
			Expect(changes[3]).To(BeAssignableToTypeOf(chat.Cleared{}))
		})

		It("carries the delta text in the change", func() {
			var delta chat.DeltaAppended
			store.Subscribe(func(c chat.Change) {
				if d, ok := c.(chat.DeltaAppended); ok {
					delta = d
				}
			})

			store.Add(chat.NewAssistantPlaceholder())
			store.AppendDelta("chunk")

			Expect(delta.Delta).To(Equal("chunk"))
			Expect(delta.MessageID).To(Equal(store.Messages()[0].ID))
		})

		It("stops notifying after unsubscribe", func() {
			count := 0
			unsubscribe := store.Subscribe(func(chat.Change) { count++ })

			store.Add(chat.NewUserMessage("one"))
			unsubscribe()
			store.Add(chat.NewUserMessage("two"))

			Expect(count).To(Equal(1))
		})

		It("does not notify on idempotent FinishStreaming", func() {
			count := 0
			store.Subscribe(func(chat.Change) { count++ })

			store.FinishStreaming()
			Expect(count).To(BeZero())
		})
	})
})

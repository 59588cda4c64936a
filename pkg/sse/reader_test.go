package sse

import (
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// chunkReader delivers at most size bytes per Read call, forcing the Reader
// to reassemble lines and events across delivery boundaries.
type chunkReader struct {
	data []byte
	size int
	pos  int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if c.pos >= len(c.data) {
		return 0, io.EOF
	}
	n := c.size
	if n > len(p) {
		n = len(p)
	}
	if c.pos+n > len(c.data) {
		n = len(c.data) - c.pos
	}
	copy(p, c.data[c.pos:c.pos+n])
	c.pos += n
	return n, nil
}

// drain reads all events from r until exhaustion.
func drain(r *Reader) []Event {
	var events []Event
	for {
		ev, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		if ev == nil {
			return events
		}
		events = append(events, *ev)
	}
}

var _ = Describe("Reader", func() {
	Describe("Next", func() {
		Context("with standard SSE events", func() {
			It("parses a single event", func() {
				r := NewReader(strings.NewReader("data: hello world\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("hello world"))
				Expect(ev.Type).To(BeEmpty())
				Expect(ev.ID).To(BeEmpty())

				ev, err = r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("parses multiple events", func() {
				r := NewReader(strings.NewReader("data: first\n\ndata: second\n\n"))

				events := drain(r)
				Expect(events).To(HaveLen(2))
				Expect(events[0].Data).To(Equal("first"))
				Expect(events[1].Data).To(Equal("second"))
			})

			It("parses event type", func() {
				r := NewReader(strings.NewReader("event: token\ndata: {\"content\":\"Hi\"}\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Type).To(Equal("token"))
				Expect(ev.Data).To(Equal("{\"content\":\"Hi\"}"))
			})

			It("parses event ID", func() {
				r := NewReader(strings.NewReader("id: 42\ndata: hello\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.ID).To(Equal("42"))
				Expect(ev.Data).To(Equal("hello"))
			})

			It("joins multiple data lines with newline", func() {
				r := NewReader(strings.NewReader("data: line one\ndata: line two\ndata: line three\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("line one\nline two\nline three"))
			})
		})

		Context("with the chatstream event vocabulary", func() {
			It("parses a full token/widget/done sequence", func() {
				input := "event: token\ndata: {\"content\":\"Hello\"}\n\n" +
					"event: widget\ndata: {\"widget_id\":\"w1\",\"type\":\"chart\",\"props\":{},\"display\":\"panel\"}\n\n" +
					"event: done\ndata: {}\n\n"
				r := NewReader(strings.NewReader(input))

				events := drain(r)
				Expect(events).To(HaveLen(3))
				Expect(events[0].Type).To(Equal("token"))
				Expect(events[1].Type).To(Equal("widget"))
				Expect(events[1].Data).To(ContainSubstring("w1"))
				Expect(events[2].Type).To(Equal("done"))
			})
		})

		Context("with SSE comments", func() {
			It("ignores comment lines", func() {
				r := NewReader(strings.NewReader(": keep-alive\ndata: hello\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("hello"))
			})
		})

		Context("with data field variations", func() {
			It("handles data field with no space after colon", func() {
				r := NewReader(strings.NewReader("data:no-space\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("no-space"))
			})

			It("handles empty data field", func() {
				r := NewReader(strings.NewReader("data:\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(BeEmpty())
			})

			It("handles data field with only a space (empty value per spec)", func() {
				r := NewReader(strings.NewReader("data: \n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(BeEmpty())
			})
		})

		Context("edge cases", func() {
			It("returns nil on empty input", func() {
				r := NewReader(strings.NewReader(""))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("returns nil on input with only blank lines", func() {
				r := NewReader(strings.NewReader("\n\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("yields event when stream ends without trailing blank line", func() {
				r := NewReader(strings.NewReader("event: done\ndata: {}"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Type).To(Equal("done"))
				Expect(ev.Data).To(Equal("{}"))

				ev, err = r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("skips leading blank lines before first event", func() {
				r := NewReader(strings.NewReader("\n\ndata: hello\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("hello"))
			})

			It("ignores unknown fields", func() {
				r := NewReader(strings.NewReader("retry: 3000\nfoo: bar\ndata: hello\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("hello"))
			})

			It("handles field with no colon", func() {
				// Per spec: if a line has no colon, the entire line is the field
				// name with an empty value.
				r := NewReader(strings.NewReader("data\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(BeEmpty())
			})
		})

		Context("with chunked delivery", func() {
			// Multi-byte UTF-8 content so byte-level splits land inside runes.
			input := "event: token\ndata: {\"content\":\"héllo wörld — 日本語\"}\n\n" +
				"event: token\ndata: {\"content\":\" more\"}\n\nevent: done\ndata: {}\n\n"

			wellFormed := func(events []Event) {
				Expect(events).To(HaveLen(3))
				Expect(events[0].Type).To(Equal("token"))
				Expect(events[0].Data).To(Equal("{\"content\":\"héllo wörld — 日本語\"}"))
				Expect(events[1].Data).To(Equal("{\"content\":\" more\"}"))
				Expect(events[2].Type).To(Equal("done"))
			}

			It("parses identically with one-byte reads", func() {
				r := NewReader(&chunkReader{data: []byte(input), size: 1})
				wellFormed(drain(r))
			})

			It("parses identically for every chunk size", func() {
				for size := 1; size <= len(input); size++ {
					r := NewReader(&chunkReader{data: []byte(input), size: size})
					wellFormed(drain(r))
				}
			})

			It("parses identically when split at every byte offset", func() {
				raw := []byte(input)
				for off := 0; off <= len(raw); off++ {
					src := io.MultiReader(
						&chunkReader{data: raw[:off], size: len(raw) + 1},
						&chunkReader{data: raw[off:], size: len(raw) + 1},
					)
					r := NewReader(src)
					wellFormed(drain(r))
				}
			})
		})
	})
})

// Package sse provides a minimal SSE (Server-Sent Events) reader and writer
// for the chatstream client. The reader parses the line-oriented SSE text
// format from an incrementally-delivered byte stream; the writer emits events
// in the same format for the local dev server.
//
// This package deals in wire framing only. Decoding an event's data payload
// (JSON, in this system) is the consumer's job.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event represents a single parsed SSE event, delimited by a blank line
// in the byte stream.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	// An empty string means the default "message" type per the SSE spec.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n" (per the SSE spec, multiple data fields are joined
	// with a single newline).
	Data string

	// ID is the last event ID from the "id:" field, if present.
	ID string
}

package sse

import (
	"fmt"
	"io"
)

// WriteEvent writes a single SSE event to w: an optional "event:" line, a
// "data:" line per newline-separated segment of data, and the terminating
// blank line. An empty data string still produces one empty "data:" line so
// the event survives a round-trip through Reader.
func WriteEvent(w io.Writer, name, data string) error {
	if name != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", name); err != nil {
			return err
		}
	}

	start := 0
	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			if _, err := fmt.Fprintf(w, "data: %s\n", data[start:i]); err != nil {
				return err
			}
			start = i + 1
		}
	}

	_, err := io.WriteString(w, "\n")
	return err
}

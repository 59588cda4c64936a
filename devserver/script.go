package devserver

import (
	"encoding/json"
	"strings"
)

// Frame is one server-sent event in a scripted reply. Data holds the JSON
// payload for the event's data field; empty means an empty object.
type Frame struct {
	Event string
	Data  string
}

// Script produces the frames streamed in reply to a message.
type Script func(conversationID, message string) []Frame

// EchoScript tokenizes an acknowledgement of the user's message and closes
// with a done frame. It is the default script.
func EchoScript(conversationID, message string) []Frame {
	reply := "You said: " + message

	var frames []Frame
	words := strings.Fields(reply)
	for i, word := range words {
		token := word
		if i < len(words)-1 {
			token += " "
		}
		frames = append(frames, TokenFrame(token))
	}
	frames = append(frames, DoneFrame())

	return frames
}

// TokenFrame builds a token frame carrying the given text.
func TokenFrame(content string) Frame {
	data, _ := json.Marshal(map[string]string{"content": content})
	return Frame{Event: "token", Data: string(data)}
}

// WidgetFrame builds a widget frame from a raw directive payload.
func WidgetFrame(payload string) Frame {
	return Frame{Event: "widget", Data: payload}
}

// ErrorFrame builds an error frame with the given message.
func ErrorFrame(message string) Frame {
	data, _ := json.Marshal(map[string]string{"message": message})
	return Frame{Event: "error", Data: string(data)}
}

// DoneFrame builds the terminal done frame.
func DoneFrame() Frame {
	return Frame{Event: "done", Data: "{}"}
}

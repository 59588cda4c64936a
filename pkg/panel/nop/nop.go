package nop

import "github.com/papercomputeco/chatstream/pkg/panel"

// Stack is a no-op panel stack used for tests and headless sessions.
type Stack struct{}

// NewStack creates a new no-op panel stack.
func NewStack() *Stack {
	return &Stack{}
}

// Push does nothing.
func (s *Stack) Push(_ panel.Entry) {}

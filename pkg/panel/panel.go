// Package panel defines the side-panel stack collaborator. The chat core
// pushes an entry for every panel-display widget; rendering the stack is the
// presentation layer's concern.
package panel

// Entry is one pushed side panel, keyed by the widget that opened it.
type Entry struct {
	ID         string         `json:"id"`
	WidgetType string         `json:"widget_type"`
	Props      map[string]any `json:"props,omitempty"`
	Title      string         `json:"title,omitempty"`
}

// Stack receives panel entries pushed by the chat core.
type Stack interface {
	Push(entry Entry)
}

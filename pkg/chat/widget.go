package chat

// Display selects where a widget renders.
type Display string

const (
	// DisplayInline renders the widget in the message flow.
	DisplayInline Display = "inline"

	// DisplayPanel renders inline and additionally pushes a side-panel entry.
	DisplayPanel Display = "panel"
)

// WidgetDirective is a structured, renderable unit embedded in an assistant
// response. The Type tag and Props schema are owned by the rendering layer;
// the core routes them without interpretation.
//
// A directive is created once per widget event and is immutable afterwards.
type WidgetDirective struct {
	WidgetID string         `json:"widget_id"`
	Type     string         `json:"type"`
	Props    map[string]any `json:"props"`
	Display  Display        `json:"display"`
}

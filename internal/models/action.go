// Package models defines the action structures emitted by the dialog router.
package models

// ActionType enumerates the renderable shapes an Action can take.
type ActionType string

const (
	ActionTypeText    ActionType = "TEXT"
	ActionTypeList    ActionType = "LIST"
	ActionTypeButtons ActionType = "BUTTONS"
	ActionTypeCards   ActionType = "CARDS"
	ActionTypeHandoff ActionType = "HANDOFF"
)

// Side effect names emitted alongside actions. They are consumed by external
// observers; the router never executes them itself.
const (
	SideEffectOrderCreated       = "order_created"
	SideEffectAppointmentCreated = "appointment_created"
	SideEffectHandoffTriggered   = "handoff_triggered"
	SideEffectErrorOccurred      = "error_occurred"
)

// ListItem is one selectable entry of a LIST action.
type ListItem struct {
	ID          string `json:"id"` // payload id delivered back on tap, "<type>_<entityID>"
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Button is one selectable entry of a BUTTONS action.
type Button struct {
	ID    string `json:"id"` // payload id delivered back on tap
	Label string `json:"label"`
}

// Card is one entry of a CARDS action.
type Card struct {
	Title    string   `json:"title"`
	Body     string   `json:"body,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	Buttons  []Button `json:"buttons,omitempty"`
}

// RichPayload carries the structured part of a non-TEXT action.
type RichPayload struct {
	ListType string     `json:"list_type,omitempty"` // menu type for LIST actions, e.g. "products"
	Items    []ListItem `json:"items,omitempty"`
	Buttons  []Button   `json:"buttons,omitempty"`
	Cards    []Card     `json:"cards,omitempty"`
}

// Action is the single structured output of routing one resolved intent. It is
// handed to the outbound delivery collaborator; the StateDelta is applied to
// the conversation state by the caller.
type Action struct {
	Type        ActionType   `json:"type"`
	Text        string       `json:"text,omitempty"`
	RichPayload *RichPayload `json:"rich_payload,omitempty"`
	StateDelta  *StateDelta  `json:"state_delta,omitempty"`
	SideEffects []string     `json:"side_effects,omitempty"`
}

// HasSideEffect reports whether the named side effect is present.
func (a *Action) HasSideEffect(name string) bool {
	for _, se := range a.SideEffects {
		if se == name {
			return true
		}
	}
	return false
}

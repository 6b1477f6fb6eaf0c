// Package models defines conversation state structures for TajerBot dialogs.
package models

import "time"

// Flow names for ConversationState.CurrentFlow. The flow vocabulary is an open
// string set; these constants cover the flows the built-in decision functions
// use. Any new flow a decision function introduces must also get an entry in
// the intent package's flow expectation table, or context resolution will not
// short-circuit for it.
const (
	FlowBrowsingProducts = "browsing_products"
	FlowBrowsingServices = "browsing_services"
	FlowOrdering         = "ordering"
	FlowBooking          = "booking"
	FlowPayment          = "payment"
	FlowAwaitingOrderID  = "awaiting_order_id"
	FlowAwaitingHandoff  = "awaiting_handoff"
)

// MenuItem is one entry of a displayed menu, addressable by 1-indexed position.
type MenuItem struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}

// Menu captures the most recently displayed list for positional reference.
type Menu struct {
	Type    string     `json:"type"` // e.g. "products", "services", "orders"
	Items   []MenuItem `json:"items"`
	ShownAt time.Time  `json:"shown_at"`
}

// Expired reports whether the menu is too old for positional resolution.
func (m *Menu) Expired(now time.Time) bool {
	return now.Sub(m.ShownAt) > MenuTTL
}

// ConversationState is the durable per-conversation dialog state. It is
// treated as an immutable value by the pipeline and router; all mutation goes
// through StateDelta values applied by the caller.
type ConversationState struct {
	ConversationID        string            `json:"conversation_id"`
	TenantID              string            `json:"tenant_id"`
	AwaitingResponse      bool              `json:"awaiting_response"`
	CurrentFlow           string            `json:"current_flow,omitempty"`
	LastQuestion          string            `json:"last_question,omitempty"`
	LastMenu              *Menu             `json:"last_menu,omitempty"`
	Entities              map[string]string `json:"entities,omitempty"`
	ClarificationAttempts int               `json:"clarification_attempts"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// Entity returns a carried-forward slot value, or empty string when absent.
func (s *ConversationState) Entity(key string) string {
	if s.Entities == nil {
		return ""
	}
	return s.Entities[key]
}

// ActiveMenu returns the last shown menu if it is still eligible for
// positional resolution, nil otherwise.
func (s *ConversationState) ActiveMenu(now time.Time) *Menu {
	if s.LastMenu == nil || s.LastMenu.Expired(now) {
		return nil
	}
	return s.LastMenu
}

// StateDelta is a partial ConversationState returned by a decision function.
// Only the fields whose presence flag is set are applied; Entities entries are
// merged key by key, with empty values deleting the key.
type StateDelta struct {
	AwaitingResponse      *bool             `json:"awaiting_response,omitempty"`
	CurrentFlow           *string           `json:"current_flow,omitempty"`
	LastQuestion          *string           `json:"last_question,omitempty"`
	LastMenu              *Menu             `json:"last_menu,omitempty"`
	ClearMenu             bool              `json:"clear_menu,omitempty"`
	Entities              map[string]string `json:"entities,omitempty"`
	ClarificationAttempts *int              `json:"clarification_attempts,omitempty"`
}

// Apply merges the delta into a copy of the given state and returns it. The
// input state is never modified.
func (d *StateDelta) Apply(s ConversationState, now time.Time) ConversationState {
	out := s
	if s.Entities != nil {
		out.Entities = make(map[string]string, len(s.Entities))
		for k, v := range s.Entities {
			out.Entities[k] = v
		}
	}
	if d == nil {
		return out
	}
	if d.AwaitingResponse != nil {
		out.AwaitingResponse = *d.AwaitingResponse
	}
	if d.CurrentFlow != nil {
		out.CurrentFlow = *d.CurrentFlow
	}
	if d.LastQuestion != nil {
		out.LastQuestion = *d.LastQuestion
	}
	if d.LastMenu != nil {
		out.LastMenu = d.LastMenu
	}
	if d.ClearMenu {
		out.LastMenu = nil
	}
	if len(d.Entities) > 0 {
		if out.Entities == nil {
			out.Entities = make(map[string]string, len(d.Entities))
		}
		for k, v := range d.Entities {
			if v == "" {
				delete(out.Entities, k)
			} else {
				out.Entities[k] = v
			}
		}
	}
	if d.ClarificationAttempts != nil {
		out.ClarificationAttempts = *d.ClarificationAttempts
	}
	out.UpdatedAt = now
	return out
}

// Helpers for building StateDelta literals without intermediate variables.

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// IntPtr returns a pointer to i.
func IntPtr(i int) *int { return &i }

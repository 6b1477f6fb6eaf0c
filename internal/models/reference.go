// Package models defines the ephemeral reference context structures used for
// positional and descriptive follow-up references.
package models

import "time"

// ReferenceTTL is how long a stored reference context stays resolvable.
const ReferenceTTL = 5 * time.Minute

// ReferenceItem is one opaque record of a displayed list, carrying the text
// fields the descriptive matcher searches.
type ReferenceItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

// ReferenceContext is the ephemeral "current list" of a conversation. A new
// list display replaces the prior active context; expired contexts are treated
// as absent even when still physically stored.
type ReferenceContext struct {
	ContextID      string          `json:"context_id"`
	ConversationID string          `json:"conversation_id"`
	ListType       string          `json:"list_type"`
	Items          []ReferenceItem `json:"items"`
	CreatedAt      time.Time       `json:"created_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
}

// Expired reports whether the context is past its expiry instant.
func (rc *ReferenceContext) Expired(now time.Time) bool {
	return !now.Before(rc.ExpiresAt)
}

// ReferenceMatchType records how a reference was resolved.
type ReferenceMatchType string

const (
	ReferenceMatchPositional  ReferenceMatchType = "positional"
	ReferenceMatchDescriptive ReferenceMatchType = "descriptive"
)

// ReferenceMatch is the concrete answer of resolving a follow-up reference
// against the active context. Ambiguous descriptive matches still return the
// first item in list order, with Ambiguous set and MatchCount > 1.
type ReferenceMatch struct {
	Item       ReferenceItem      `json:"item"`
	Position   int                `json:"position"` // 1-indexed
	ListType   string             `json:"list_type"`
	MatchType  ReferenceMatchType `json:"match_type"`
	Ambiguous  bool               `json:"ambiguous,omitempty"`
	MatchCount int                `json:"match_count,omitempty"`
}

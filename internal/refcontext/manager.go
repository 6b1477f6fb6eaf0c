// Package refcontext stores the lists shown to a customer and resolves
// follow-up references against them ("2", "the last one", "the blue one").
// Each conversation keeps at most one active reference context; storing a new
// list replaces the previous one, and contexts expire after
// models.ReferenceTTL.
package refcontext

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tajerhq/tajerbot/internal/cache"
	"github.com/tajerhq/tajerbot/internal/models"
	"github.com/tajerhq/tajerbot/internal/store"
)

// Manager persists reference contexts through the store and keeps a
// read-through cache projection keyed by conversation ID so the hot lookup on
// every inbound message rarely touches the database.
type Manager struct {
	store store.Store
	cache cache.Cache
	now   func() time.Time
}

// NewManager returns a Manager backed by st and c. The cache may be nil, in
// which case every lookup reads through to the store.
func NewManager(st store.Store, c cache.Cache) *Manager {
	return &Manager{store: st, cache: c, now: time.Now}
}

func (m *Manager) cacheKey(conversationID string) string {
	return "refctx:" + conversationID
}

// Store records the items just shown to a conversation as its active
// reference context, replacing any previous one, and returns the new context
// ID. The context expires models.ReferenceTTL after creation.
func (m *Manager) Store(ctx context.Context, conversationID, listType string, items []models.ReferenceItem) (string, error) {
	slog.Debug("refcontext.Store called", "conversation_id", conversationID, "list_type", listType, "items", len(items))
	if len(items) == 0 {
		return "", fmt.Errorf("refcontext: cannot store empty item list")
	}

	now := m.now().UTC()
	rc := models.ReferenceContext{
		ContextID:      uuid.NewString(),
		ConversationID: conversationID,
		ListType:       listType,
		Items:          items,
		CreatedAt:      now,
		ExpiresAt:      now.Add(models.ReferenceTTL),
	}
	if err := m.store.SaveReferenceContext(rc); err != nil {
		return "", fmt.Errorf("refcontext: save context: %w", err)
	}
	if m.cache != nil {
		if data, err := json.Marshal(rc); err == nil {
			if err := m.cache.Set(ctx, m.cacheKey(conversationID), data, models.ReferenceTTL); err != nil {
				slog.Warn("refcontext cache set failed", "conversation_id", conversationID, "error", err)
			}
		}
	}
	return rc.ContextID, nil
}

// active returns the conversation's current reference context, or nil when
// there is none or it has expired. Reads go through the cache when one is
// configured.
func (m *Manager) active(ctx context.Context, conversationID string) (*models.ReferenceContext, error) {
	now := m.now().UTC()
	data, ok, err := cache.GetOrLoad(ctx, m.cache, m.cacheKey(conversationID), models.ReferenceTTL, func(ctx context.Context) ([]byte, bool, error) {
		rc, err := m.store.GetActiveReferenceContext(conversationID, now)
		if err != nil {
			return nil, false, err
		}
		if rc == nil {
			return nil, false, nil
		}
		encoded, err := json.Marshal(rc)
		if err != nil {
			return nil, false, err
		}
		return encoded, true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("refcontext: load context: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var rc models.ReferenceContext
	if err := json.Unmarshal(data, &rc); err != nil {
		return nil, fmt.Errorf("refcontext: decode cached context: %w", err)
	}
	// The cached projection can outlive the context's own deadline when the
	// cache TTL was granted before the deadline passed, so re-check expiry.
	if rc.Expired(now) {
		return nil, nil
	}
	return &rc, nil
}

// Resolve maps free text onto an item of the conversation's active reference
// context. It returns nil when no context is active or nothing in the text
// points at an item. Resolution never mutates the context, so repeated calls
// with the same input return the same match.
func (m *Manager) Resolve(ctx context.Context, conversationID, text string) (*models.ReferenceMatch, error) {
	slog.Debug("refcontext.Resolve called", "conversation_id", conversationID)
	rc, err := m.active(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, nil
	}

	if pos, ok := ParsePosition(text, len(rc.Items)); ok {
		return &models.ReferenceMatch{
			Item:      rc.Items[pos-1],
			Position:  pos,
			ListType:  rc.ListType,
			MatchType: models.ReferenceMatchPositional,
		}, nil
	}
	return matchDescriptive(rc, text), nil
}

// stopWords are tokens carrying no descriptive signal in any of the supported
// languages; they are dropped before descriptive matching.
var stopWords = map[string]struct{}{
	// English
	"the": {}, "a": {}, "an": {}, "one": {}, "that": {}, "this": {}, "i": {},
	"want": {}, "like": {}, "please": {}, "give": {}, "me": {}, "it": {},
	"show": {}, "take": {}, "get": {}, "buy": {}, "order": {},
	// French
	"le": {}, "la": {}, "les": {}, "un": {}, "une": {}, "ce": {}, "cette": {},
	"je": {}, "veux": {}, "voudrais": {}, "svp": {}, "moi": {}, "donne": {},
	"donnez": {}, "prends": {},
	// Darija / Arabic
	"bghit": {}, "bghyt": {}, "3tini": {}, "3tyni": {}, "dik": {}, "dak": {},
	"had": {}, "hadi": {}, "hada": {}, "wach": {}, "afak": {}, "3afak": {},
	"بغيت": {}, "عطيني": {}, "هاد": {}, "ديك": {}, "داك": {}, "واش": {}, "عفاك": {},
}

// matchDescriptive tests each non-stop-word token of text for a substring
// match against the items' title, description, and category. Several matching
// items resolve to the first in list order with the Ambiguous flag set.
func matchDescriptive(rc *models.ReferenceContext, text string) *models.ReferenceMatch {
	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,!?;:()\"'")
		if len([]rune(tok)) < 2 {
			continue
		}
		if _, skip := stopWords[tok]; skip {
			continue
		}
		tokens = append(tokens, tok)
	}
	if len(tokens) == 0 {
		return nil
	}

	var (
		first      *models.ReferenceMatch
		matchCount int
	)
	for i, item := range rc.Items {
		haystack := strings.ToLower(item.Title + " " + item.Description + " " + item.Category)
		matched := false
		for _, tok := range tokens {
			if strings.Contains(haystack, tok) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		matchCount++
		if first == nil {
			first = &models.ReferenceMatch{
				Item:      item,
				Position:  i + 1,
				ListType:  rc.ListType,
				MatchType: models.ReferenceMatchDescriptive,
			}
		}
	}
	if first == nil {
		return nil
	}
	first.MatchCount = matchCount
	first.Ambiguous = matchCount > 1
	return first
}

// Package store provides storage backends for TajerBot.
//
// This file implements an in-memory store used in tests and for running the
// core without a database.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/tajerhq/tajerbot/internal/models"
)

// InMemoryStore is a concurrency-safe in-memory Store implementation.
type InMemoryStore struct {
	mu         sync.RWMutex
	states     map[string]models.ConversationState
	refs       map[string]models.ReferenceContext // keyed by conversation id: at most one active
	records    []models.ClassificationRecord
	tenants    map[string]models.TenantContext
	usage      map[string]int // "tenantID|day" -> count
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		states:  make(map[string]models.ConversationState),
		refs:    make(map[string]models.ReferenceContext),
		tenants: make(map[string]models.TenantContext),
		usage:   make(map[string]int),
	}
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }

func (s *InMemoryStore) GetConversationState(conversationID string) (*models.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[conversationID]
	if !ok {
		return nil, nil
	}
	out := state
	return &out, nil
}

func (s *InMemoryStore) SaveConversationState(state models.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.ConversationID] = state
	return nil
}

func (s *InMemoryStore) SaveReferenceContext(rc models.ReferenceContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[rc.ConversationID] = rc
	return nil
}

func (s *InMemoryStore) GetActiveReferenceContext(conversationID string, now time.Time) (*models.ReferenceContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rc, ok := s.refs[conversationID]
	if !ok || rc.Expired(now) {
		return nil, nil
	}
	out := rc
	return &out, nil
}

func (s *InMemoryStore) DeleteExpiredReferenceContexts(now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, rc := range s.refs {
		if rc.Expired(now) {
			delete(s.refs, id)
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) AddClassificationRecord(rec models.ClassificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *InMemoryStore) ListClassificationRecords(tenantID string, limit int) ([]models.ClassificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ClassificationRecord
	for _, rec := range s.records {
		if rec.TenantID == tenantID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) GetTenant(tenantID string) (*models.TenantContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	out := t
	return &out, nil
}

func (s *InMemoryStore) SaveTenant(t models.TenantContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
	return nil
}

func (s *InMemoryStore) IncrementClassifierUsage(tenantID, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tenantID + "|" + day
	s.usage[key]++
	return s.usage[key], nil
}

func (s *InMemoryStore) GetClassifierUsage(tenantID, day string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage[tenantID+"|"+day], nil
}

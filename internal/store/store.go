// Package store provides storage backends for TajerBot.
//
// It persists conversation states, reference contexts, the append-only
// classification log, tenants, and classifier usage counters. SQLite is the
// default backend; PostgreSQL is selected automatically for postgres DSNs.
package store

import (
	"time"

	"github.com/tajerhq/tajerbot/internal/models"
)

// Store is the persistence contract shared by all backends.
type Store interface {
	// Conversation state. A missing conversation returns (nil, nil).
	GetConversationState(conversationID string) (*models.ConversationState, error)
	SaveConversationState(state models.ConversationState) error

	// Reference contexts. Saving replaces any prior active context for the
	// conversation. GetActiveReferenceContext returns the most recent
	// non-expired context, or (nil, nil) when none exists.
	SaveReferenceContext(rc models.ReferenceContext) error
	GetActiveReferenceContext(conversationID string, now time.Time) (*models.ReferenceContext, error)
	DeleteExpiredReferenceContexts(now time.Time) (int64, error)

	// Classification log, append-only.
	AddClassificationRecord(rec models.ClassificationRecord) error
	ListClassificationRecords(tenantID string, limit int) ([]models.ClassificationRecord, error)

	// Tenant registry. A missing tenant returns (nil, nil).
	GetTenant(tenantID string) (*models.TenantContext, error)
	SaveTenant(t models.TenantContext) error

	// Classifier usage accounting, per tenant per day (day formatted
	// "2006-01-02" in UTC). Increment returns the new count.
	IncrementClassifierUsage(tenantID, day string) (int, error)
	GetClassifierUsage(tenantID, day string) (int, error)

	// Close releases backend resources.
	Close() error
}

// UsageDay formats the UTC day bucket used for classifier usage accounting.
func UsageDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

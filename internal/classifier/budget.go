package classifier

import (
	"log/slog"
	"time"

	"github.com/tajerhq/tajerbot/internal/store"
)

// Budget enforces the per-tenant daily call allowance for the external
// classifier. Usage is persisted so restarts do not reset the counter.
type Budget struct {
	store store.Store
	now   func() time.Time
}

// NewBudget creates a budget tracker backed by the given store.
func NewBudget(st store.Store) *Budget {
	return &Budget{store: st, now: time.Now}
}

// Allow reports whether the tenant may make another external classifier call
// today. A non-positive limit disables the gateway entirely. Store read
// failures deny the call: an unreliable counter must not grant unmetered
// access to a paid service.
func (b *Budget) Allow(tenantID string, dailyLimit int) bool {
	if dailyLimit <= 0 {
		return false
	}
	day := store.UsageDay(b.now())
	used, err := b.store.GetClassifierUsage(tenantID, day)
	if err != nil {
		slog.Error("Budget Allow usage read failed, denying call", "error", err, "tenantID", tenantID)
		return false
	}
	allowed := used < dailyLimit
	if !allowed {
		slog.Info("Budget exhausted for tenant", "tenantID", tenantID, "used", used, "limit", dailyLimit)
	}
	return allowed
}

// Record counts one external classifier call against the tenant's budget.
// Failures are logged, not propagated: accounting must never break resolution.
func (b *Budget) Record(tenantID string) {
	day := store.UsageDay(b.now())
	if _, err := b.store.IncrementClassifierUsage(tenantID, day); err != nil {
		slog.Error("Budget Record increment failed", "error", err, "tenantID", tenantID)
	}
}

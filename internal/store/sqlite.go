// Package store provides storage backends for TajerBot.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tajerhq/tajerbot/internal/models"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetConversationState retrieves the state for a conversation, or nil if absent.
func (s *SQLiteStore) GetConversationState(conversationID string) (*models.ConversationState, error) {
	row := s.db.QueryRow(`SELECT conversation_id, tenant_id, awaiting_response, current_flow, last_question, last_menu, entities, clarification_attempts, updated_at
		FROM conversation_states WHERE conversation_id = ?`, conversationID)
	state, err := scanConversationState(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetConversationState failed", "error", err, "conversationID", conversationID)
		return nil, fmt.Errorf("failed to get conversation state for %s: %w", conversationID, err)
	}
	return state, nil
}

// SaveConversationState upserts a conversation state.
func (s *SQLiteStore) SaveConversationState(state models.ConversationState) error {
	menuCol, err := marshalJSONColumn(state.LastMenu)
	if err != nil {
		return err
	}
	entitiesCol, err := marshalJSONColumn(state.Entities)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO conversation_states (conversation_id, tenant_id, awaiting_response, current_flow, last_question, last_menu, entities, clarification_attempts, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET
			tenant_id=excluded.tenant_id,
			awaiting_response=excluded.awaiting_response,
			current_flow=excluded.current_flow,
			last_question=excluded.last_question,
			last_menu=excluded.last_menu,
			entities=excluded.entities,
			clarification_attempts=excluded.clarification_attempts,
			updated_at=excluded.updated_at`,
		state.ConversationID, state.TenantID, state.AwaitingResponse, state.CurrentFlow, state.LastQuestion,
		menuCol, entitiesCol, state.ClarificationAttempts, state.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveConversationState failed", "error", err, "conversationID", state.ConversationID)
		return fmt.Errorf("failed to save conversation state for %s: %w", state.ConversationID, err)
	}
	slog.Debug("SQLiteStore SaveConversationState succeeded", "conversationID", state.ConversationID)
	return nil
}

// SaveReferenceContext stores a new reference context, replacing any prior
// context for the conversation.
func (s *SQLiteStore) SaveReferenceContext(rc models.ReferenceContext) error {
	itemsJSON, err := json.Marshal(rc.Items)
	if err != nil {
		return fmt.Errorf("marshal reference items: %w", err)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin reference context transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM reference_contexts WHERE conversation_id = ?`, rc.ConversationID); err != nil {
		slog.Error("SQLiteStore SaveReferenceContext delete failed", "error", err, "conversationID", rc.ConversationID)
		return fmt.Errorf("failed to replace reference context for %s: %w", rc.ConversationID, err)
	}
	if _, err := tx.Exec(`INSERT INTO reference_contexts (context_id, conversation_id, list_type, items, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rc.ContextID, rc.ConversationID, rc.ListType, string(itemsJSON), rc.CreatedAt, rc.ExpiresAt); err != nil {
		slog.Error("SQLiteStore SaveReferenceContext insert failed", "error", err, "conversationID", rc.ConversationID)
		return fmt.Errorf("failed to insert reference context for %s: %w", rc.ConversationID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reference context: %w", err)
	}
	slog.Debug("SQLiteStore SaveReferenceContext succeeded", "conversationID", rc.ConversationID, "listType", rc.ListType, "items", len(rc.Items))
	return nil
}

// GetActiveReferenceContext returns the most recent non-expired context for a
// conversation, or nil if none exists.
func (s *SQLiteStore) GetActiveReferenceContext(conversationID string, now time.Time) (*models.ReferenceContext, error) {
	row := s.db.QueryRow(`SELECT context_id, conversation_id, list_type, items, created_at, expires_at
		FROM reference_contexts WHERE conversation_id = ? AND expires_at > ?
		ORDER BY created_at DESC LIMIT 1`, conversationID, now)
	rc, err := scanReferenceContext(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetActiveReferenceContext failed", "error", err, "conversationID", conversationID)
		return nil, fmt.Errorf("failed to get reference context for %s: %w", conversationID, err)
	}
	return rc, nil
}

// DeleteExpiredReferenceContexts removes contexts past expiry and reports how
// many were deleted.
func (s *SQLiteStore) DeleteExpiredReferenceContexts(now time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM reference_contexts WHERE expires_at <= ?`, now)
	if err != nil {
		slog.Error("SQLiteStore DeleteExpiredReferenceContexts failed", "error", err)
		return 0, fmt.Errorf("failed to delete expired reference contexts: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// AddClassificationRecord appends one entry to the classification log.
func (s *SQLiteStore) AddClassificationRecord(rec models.ClassificationRecord) error {
	_, err := s.db.Exec(`INSERT INTO classification_log (id, tenant_id, conversation_id, message, intent, confidence, method, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.TenantID, rec.ConversationID, rec.Message, rec.Intent, rec.Confidence, rec.Method, rec.ElapsedMs, rec.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore AddClassificationRecord failed", "error", err, "conversationID", rec.ConversationID)
		return fmt.Errorf("failed to insert classification record: %w", err)
	}
	return nil
}

// ListClassificationRecords returns the most recent log entries for a tenant.
func (s *SQLiteStore) ListClassificationRecords(tenantID string, limit int) ([]models.ClassificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT id, tenant_id, conversation_id, message, intent, confidence, method, elapsed_ms, created_at
		FROM classification_log WHERE tenant_id = ? ORDER BY created_at DESC LIMIT ?`, tenantID, limit)
	if err != nil {
		slog.Error("SQLiteStore ListClassificationRecords query failed", "error", err, "tenantID", tenantID)
		return nil, fmt.Errorf("failed to query classification log: %w", err)
	}
	defer rows.Close()

	var records []models.ClassificationRecord
	for rows.Next() {
		rec, err := scanClassificationRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate classification log rows: %w", err)
	}
	return records, nil
}

// GetTenant retrieves a tenant by id, or nil if absent.
func (s *SQLiteStore) GetTenant(tenantID string) (*models.TenantContext, error) {
	row := s.db.QueryRow(`SELECT id, business_name, currency, languages, classifier_daily_limit, delivery_fee_text, return_policy_text, payment_help_text, faq_text, handoff_number
		FROM tenants WHERE id = ?`, tenantID)
	t, err := scanTenant(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetTenant failed", "error", err, "tenantID", tenantID)
		return nil, fmt.Errorf("failed to get tenant %s: %w", tenantID, err)
	}
	return t, nil
}

// SaveTenant upserts a tenant.
func (s *SQLiteStore) SaveTenant(t models.TenantContext) error {
	languagesCol, err := marshalJSONColumn(t.Languages)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO tenants (id, business_name, currency, languages, classifier_daily_limit, delivery_fee_text, return_policy_text, payment_help_text, faq_text, handoff_number)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			business_name=excluded.business_name,
			currency=excluded.currency,
			languages=excluded.languages,
			classifier_daily_limit=excluded.classifier_daily_limit,
			delivery_fee_text=excluded.delivery_fee_text,
			return_policy_text=excluded.return_policy_text,
			payment_help_text=excluded.payment_help_text,
			faq_text=excluded.faq_text,
			handoff_number=excluded.handoff_number`,
		t.ID, t.BusinessName, t.Currency, languagesCol, t.ClassifierDailyLimit,
		t.DeliveryFeeText, t.ReturnPolicyText, t.PaymentHelpText, t.FAQText, t.HandoffNumber)
	if err != nil {
		slog.Error("SQLiteStore SaveTenant failed", "error", err, "tenantID", t.ID)
		return fmt.Errorf("failed to save tenant %s: %w", t.ID, err)
	}
	return nil
}

// IncrementClassifierUsage bumps the per-tenant per-day usage counter and
// returns the new count.
func (s *SQLiteStore) IncrementClassifierUsage(tenantID, day string) (int, error) {
	_, err := s.db.Exec(`INSERT INTO classifier_usage (tenant_id, day, count) VALUES (?, ?, 1)
		ON CONFLICT(tenant_id, day) DO UPDATE SET count = count + 1`, tenantID, day)
	if err != nil {
		slog.Error("SQLiteStore IncrementClassifierUsage failed", "error", err, "tenantID", tenantID, "day", day)
		return 0, fmt.Errorf("failed to increment classifier usage for %s: %w", tenantID, err)
	}
	return s.GetClassifierUsage(tenantID, day)
}

// GetClassifierUsage returns the usage count for a tenant and day.
func (s *SQLiteStore) GetClassifierUsage(tenantID, day string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT count FROM classifier_usage WHERE tenant_id = ? AND day = ?`, tenantID, day).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetClassifierUsage failed", "error", err, "tenantID", tenantID, "day", day)
		return 0, fmt.Errorf("failed to get classifier usage for %s: %w", tenantID, err)
	}
	return count, nil
}

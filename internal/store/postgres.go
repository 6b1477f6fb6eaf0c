// Package store provides storage backends for TajerBot.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/tajerhq/tajerbot/internal/models"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// GetConversationState retrieves the state for a conversation, or nil if absent.
func (s *PostgresStore) GetConversationState(conversationID string) (*models.ConversationState, error) {
	row := s.db.QueryRow(`SELECT conversation_id, tenant_id, awaiting_response, current_flow, last_question, last_menu, entities, clarification_attempts, updated_at
		FROM conversation_states WHERE conversation_id = $1`, conversationID)
	state, err := scanConversationState(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetConversationState failed", "error", err, "conversationID", conversationID)
		return nil, fmt.Errorf("failed to get conversation state for %s: %w", conversationID, err)
	}
	return state, nil
}

// SaveConversationState upserts a conversation state.
func (s *PostgresStore) SaveConversationState(state models.ConversationState) error {
	menuCol, err := marshalJSONColumn(state.LastMenu)
	if err != nil {
		return err
	}
	entitiesCol, err := marshalJSONColumn(state.Entities)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO conversation_states (conversation_id, tenant_id, awaiting_response, current_flow, last_question, last_menu, entities, clarification_attempts, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (conversation_id) DO UPDATE SET
			tenant_id=EXCLUDED.tenant_id,
			awaiting_response=EXCLUDED.awaiting_response,
			current_flow=EXCLUDED.current_flow,
			last_question=EXCLUDED.last_question,
			last_menu=EXCLUDED.last_menu,
			entities=EXCLUDED.entities,
			clarification_attempts=EXCLUDED.clarification_attempts,
			updated_at=EXCLUDED.updated_at`,
		state.ConversationID, state.TenantID, state.AwaitingResponse, state.CurrentFlow, state.LastQuestion,
		menuCol, entitiesCol, state.ClarificationAttempts, state.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveConversationState failed", "error", err, "conversationID", state.ConversationID)
		return fmt.Errorf("failed to save conversation state for %s: %w", state.ConversationID, err)
	}
	return nil
}

// SaveReferenceContext stores a new reference context, replacing any prior
// context for the conversation.
func (s *PostgresStore) SaveReferenceContext(rc models.ReferenceContext) error {
	itemsJSON, err := json.Marshal(rc.Items)
	if err != nil {
		return fmt.Errorf("marshal reference items: %w", err)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin reference context transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM reference_contexts WHERE conversation_id = $1`, rc.ConversationID); err != nil {
		slog.Error("PostgresStore SaveReferenceContext delete failed", "error", err, "conversationID", rc.ConversationID)
		return fmt.Errorf("failed to replace reference context for %s: %w", rc.ConversationID, err)
	}
	if _, err := tx.Exec(`INSERT INTO reference_contexts (context_id, conversation_id, list_type, items, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rc.ContextID, rc.ConversationID, rc.ListType, string(itemsJSON), rc.CreatedAt, rc.ExpiresAt); err != nil {
		slog.Error("PostgresStore SaveReferenceContext insert failed", "error", err, "conversationID", rc.ConversationID)
		return fmt.Errorf("failed to insert reference context for %s: %w", rc.ConversationID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reference context: %w", err)
	}
	return nil
}

// GetActiveReferenceContext returns the most recent non-expired context for a
// conversation, or nil if none exists.
func (s *PostgresStore) GetActiveReferenceContext(conversationID string, now time.Time) (*models.ReferenceContext, error) {
	row := s.db.QueryRow(`SELECT context_id, conversation_id, list_type, items, created_at, expires_at
		FROM reference_contexts WHERE conversation_id = $1 AND expires_at > $2
		ORDER BY created_at DESC LIMIT 1`, conversationID, now)
	rc, err := scanReferenceContext(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetActiveReferenceContext failed", "error", err, "conversationID", conversationID)
		return nil, fmt.Errorf("failed to get reference context for %s: %w", conversationID, err)
	}
	return rc, nil
}

// DeleteExpiredReferenceContexts removes contexts past expiry and reports how
// many were deleted.
func (s *PostgresStore) DeleteExpiredReferenceContexts(now time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM reference_contexts WHERE expires_at <= $1`, now)
	if err != nil {
		slog.Error("PostgresStore DeleteExpiredReferenceContexts failed", "error", err)
		return 0, fmt.Errorf("failed to delete expired reference contexts: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// AddClassificationRecord appends one entry to the classification log.
func (s *PostgresStore) AddClassificationRecord(rec models.ClassificationRecord) error {
	_, err := s.db.Exec(`INSERT INTO classification_log (id, tenant_id, conversation_id, message, intent, confidence, method, elapsed_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.TenantID, rec.ConversationID, rec.Message, rec.Intent, rec.Confidence, rec.Method, rec.ElapsedMs, rec.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore AddClassificationRecord failed", "error", err, "conversationID", rec.ConversationID)
		return fmt.Errorf("failed to insert classification record: %w", err)
	}
	return nil
}

// ListClassificationRecords returns the most recent log entries for a tenant.
func (s *PostgresStore) ListClassificationRecords(tenantID string, limit int) ([]models.ClassificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT id, tenant_id, conversation_id, message, intent, confidence, method, elapsed_ms, created_at
		FROM classification_log WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2`, tenantID, limit)
	if err != nil {
		slog.Error("PostgresStore ListClassificationRecords query failed", "error", err, "tenantID", tenantID)
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
func (s *PostgresStore) GetTenant(tenantID string) (*models.TenantContext, error) {
	row := s.db.QueryRow(`SELECT id, business_name, currency, languages, classifier_daily_limit, delivery_fee_text, return_policy_text, payment_help_text, faq_text, handoff_number
		FROM tenants WHERE id = $1`, tenantID)
	t, err := scanTenant(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetTenant failed", "error", err, "tenantID", tenantID)
		return nil, fmt.Errorf("failed to get tenant %s: %w", tenantID, err)
	}
	return t, nil
}

// SaveTenant upserts a tenant.
func (s *PostgresStore) SaveTenant(t models.TenantContext) error {
	languagesCol, err := marshalJSONColumn(t.Languages)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO tenants (id, business_name, currency, languages, classifier_daily_limit, delivery_fee_text, return_policy_text, payment_help_text, faq_text, handoff_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			business_name=EXCLUDED.business_name,
			currency=EXCLUDED.currency,
			languages=EXCLUDED.languages,
			classifier_daily_limit=EXCLUDED.classifier_daily_limit,
			delivery_fee_text=EXCLUDED.delivery_fee_text,
			return_policy_text=EXCLUDED.return_policy_text,
			payment_help_text=EXCLUDED.payment_help_text,
			faq_text=EXCLUDED.faq_text,
			handoff_number=EXCLUDED.handoff_number`,
		t.ID, t.BusinessName, t.Currency, languagesCol, t.ClassifierDailyLimit,
		t.DeliveryFeeText, t.ReturnPolicyText, t.PaymentHelpText, t.FAQText, t.HandoffNumber)
	if err != nil {
		slog.Error("PostgresStore SaveTenant failed", "error", err, "tenantID", t.ID)
		return fmt.Errorf("failed to save tenant %s: %w", t.ID, err)
	}
	return nil
}

// IncrementClassifierUsage bumps the per-tenant per-day usage counter and
// returns the new count.
func (s *PostgresStore) IncrementClassifierUsage(tenantID, day string) (int, error) {
	var count int
	err := s.db.QueryRow(`INSERT INTO classifier_usage (tenant_id, day, count) VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, day) DO UPDATE SET count = classifier_usage.count + 1
		RETURNING count`, tenantID, day).Scan(&count)
	if err != nil {
		slog.Error("PostgresStore IncrementClassifierUsage failed", "error", err, "tenantID", tenantID, "day", day)
		return 0, fmt.Errorf("failed to increment classifier usage for %s: %w", tenantID, err)
	}
	return count, nil
}

// GetClassifierUsage returns the usage count for a tenant and day.
func (s *PostgresStore) GetClassifierUsage(tenantID, day string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT count FROM classifier_usage WHERE tenant_id = $1 AND day = $2`, tenantID, day).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetClassifierUsage failed", "error", err, "tenantID", tenantID, "day", day)
		return 0, fmt.Errorf("failed to get classifier usage for %s: %w", tenantID, err)
	}
	return count, nil
}

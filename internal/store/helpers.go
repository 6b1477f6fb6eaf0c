package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tajerhq/tajerbot/internal/models"
)

// marshalJSONColumn serializes v for a nullable JSON/text column. A nil or
// empty value is stored as SQL NULL.
func marshalJSONColumn(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case *models.Menu:
		if val == nil {
			return nil, nil
		}
	case map[string]string:
		if len(val) == 0 {
			return nil, nil
		}
	case []string:
		if len(val) == 0 {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal json column: %w", err)
	}
	return string(data), nil
}

// unmarshalJSONColumn deserializes a nullable JSON/text column into target.
// SQL NULL leaves target untouched.
func unmarshalJSONColumn(col sql.NullString, target interface{}) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(col.String), target); err != nil {
		return fmt.Errorf("unmarshal json column: %w", err)
	}
	return nil
}

// scanConversationState scans one conversation_states row.
func scanConversationState(row *sql.Row) (*models.ConversationState, error) {
	var s models.ConversationState
	var awaiting bool
	var menuJSON, entitiesJSON sql.NullString
	err := row.Scan(
		&s.ConversationID, &s.TenantID, &awaiting, &s.CurrentFlow, &s.LastQuestion,
		&menuJSON, &entitiesJSON, &s.ClarificationAttempts, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.AwaitingResponse = awaiting
	if menuJSON.Valid && menuJSON.String != "" {
		var menu models.Menu
		if err := unmarshalJSONColumn(menuJSON, &menu); err != nil {
			return nil, err
		}
		s.LastMenu = &menu
	}
	if err := unmarshalJSONColumn(entitiesJSON, &s.Entities); err != nil {
		return nil, err
	}
	return &s, nil
}

// scanReferenceContext scans one reference_contexts row.
func scanReferenceContext(row *sql.Row) (*models.ReferenceContext, error) {
	var rc models.ReferenceContext
	var itemsJSON string
	err := row.Scan(&rc.ContextID, &rc.ConversationID, &rc.ListType, &itemsJSON, &rc.CreatedAt, &rc.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(itemsJSON), &rc.Items); err != nil {
		return nil, fmt.Errorf("unmarshal reference items: %w", err)
	}
	return &rc, nil
}

// scanClassificationRecord scans one classification_log row from sql.Rows.
func scanClassificationRecord(rows *sql.Rows) (models.ClassificationRecord, error) {
	var rec models.ClassificationRecord
	err := rows.Scan(
		&rec.ID, &rec.TenantID, &rec.ConversationID, &rec.Message,
		&rec.Intent, &rec.Confidence, &rec.Method, &rec.ElapsedMs, &rec.CreatedAt,
	)
	if err != nil {
		return rec, fmt.Errorf("scan classification record: %w", err)
	}
	return rec, nil
}

// scanTenant scans one tenants row.
func scanTenant(row *sql.Row) (*models.TenantContext, error) {
	var t models.TenantContext
	var languagesJSON sql.NullString
	err := row.Scan(
		&t.ID, &t.BusinessName, &t.Currency, &languagesJSON, &t.ClassifierDailyLimit,
		&t.DeliveryFeeText, &t.ReturnPolicyText, &t.PaymentHelpText, &t.FAQText, &t.HandoffNumber,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSONColumn(languagesJSON, &t.Languages); err != nil {
		return nil, err
	}
	return &t, nil
}

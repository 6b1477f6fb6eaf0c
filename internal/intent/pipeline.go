// Package intent implements the layered resolution of one inbound customer
// message into exactly one IntentResult. Stages run in strict precedence
// order; the first stage producing a confident result short-circuits the rest:
//
//  1. flow context (the previous turn asked a direct question)
//  2. menu position against the last displayed list
//  3. explicit structured payload (button or list tap)
//  4. rule-based multilingual pattern classification
//  5. external classifier, budget-gated
//  6. UNKNOWN default
//
// Everything except stage 5 is pure in-process computation.
package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tajerhq/tajerbot/internal/classifier"
	"github.com/tajerhq/tajerbot/internal/lang"
	"github.com/tajerhq/tajerbot/internal/models"
	"github.com/tajerhq/tajerbot/internal/refcontext"
	"github.com/tajerhq/tajerbot/internal/store"
)

const (
	// contextConfidence is the fixed confidence of a flow-context resolution.
	contextConfidence = 0.9
	// clarificationThreshold is the external-classifier confidence below
	// which the result is flagged as needing clarification.
	clarificationThreshold = 0.65
)

// budgetGate decides whether a tenant may spend an external classifier call
// and records spent calls.
type budgetGate interface {
	Allow(tenantID string, dailyLimit int) bool
	Record(tenantID string)
}

// Pipeline resolves inbound messages. It is stateless and safe for concurrent
// use across conversations; callers must serialize resolutions within one
// conversation because ConversationState is read without versioning.
type Pipeline struct {
	gateway classifier.Gateway
	budget  budgetGate
	store   store.Store
	now     func() time.Time
}

// NewPipeline returns a Pipeline. gateway may be nil to disable stage 5
// entirely; st may be nil to disable classification logging (tests).
func NewPipeline(gateway classifier.Gateway, budget budgetGate, st store.Store) *Pipeline {
	return &Pipeline{gateway: gateway, budget: budget, store: st, now: time.Now}
}

// Resolve turns one inbound message plus the conversation's current state into
// an IntentResult. It never returns an error: every failure mode degrades to
// UNKNOWN with needsClarification set.
func (p *Pipeline) Resolve(ctx context.Context, msg models.InboundMessage, state models.ConversationState, tenant models.TenantContext) models.IntentResult {
	start := p.now()
	result := p.resolve(ctx, msg, state, tenant)
	result.LanguageTags = lang.Tag(msg.Body)
	p.logClassification(msg, result, p.now().Sub(start))
	return result
}

func (p *Pipeline) resolve(ctx context.Context, msg models.InboundMessage, state models.ConversationState, tenant models.TenantContext) models.IntentResult {
	// Stage 1: flow context.
	if state.AwaitingResponse && state.CurrentFlow != "" {
		if expected, ok := ExpectedIntent(state.CurrentFlow); ok {
			slog.Debug("intent resolved from flow context", "conversation_id", msg.ConversationID, "flow", state.CurrentFlow, "intent", expected)
			result := models.IntentResult{
				Intent:              expected,
				Confidence:          contextConfidence,
				Slots:               ExtractSlots(msg.Body, expected),
				ResolvedFromContext: true,
				Method:              models.ResolveMethodContext,
			}
			p.attachMenuSelection(msg.Body, state, &result)
			return result
		}
	}

	// Stage 2: menu position.
	if menu := state.ActiveMenu(p.now()); menu != nil {
		if pos, ok := refcontext.ParsePosition(msg.Body, len(menu.Items)); ok {
			if mapped, known := menuIntents[menu.Type]; known {
				slog.Debug("intent resolved from menu position", "conversation_id", msg.ConversationID, "menu_type", menu.Type, "position", pos)
				result := models.IntentResult{
					Intent:     mapped,
					Confidence: contextConfidence,
					Method:     models.ResolveMethodContext,
				}
				result.SetSlot(models.SlotPosition, strconv.Itoa(pos))
				if key, found := menuSlotKeys[menu.Type]; found {
					result.SetSlot(key, menu.Items[pos-1].ID)
				}
				return result
			}
		}
	}

	// Stage 3: structured payload. Deterministic, no confidence computation.
	if msg.PayloadID != "" {
		if mapped, slotKey, slotVal, ok := resolvePayload(msg.PayloadID); ok {
			slog.Debug("intent resolved from structured payload", "conversation_id", msg.ConversationID, "payload_id", msg.PayloadID, "intent", mapped)
			result := models.IntentResult{
				Intent:     mapped,
				Confidence: 1.0,
				Method:     models.ResolveMethodContext,
			}
			if slotKey != "" {
				result.SetSlot(slotKey, slotVal)
			}
			return result
		}
	}

	// Stage 4: rule classification.
	normalized := strings.ToLower(strings.TrimSpace(msg.Body))
	ruleIntent, ruleConf, matched := classifyRules(normalized)
	if matched && ruleConf >= RuleAcceptThreshold {
		return models.IntentResult{
			Intent:     ruleIntent,
			Confidence: ruleConf,
			Slots:      ExtractSlots(msg.Body, ruleIntent),
			Method:     models.ResolveMethodRule,
		}
	}

	// Stage 5: external classification, budget permitting.
	if p.gateway != nil && p.budget != nil && p.budget.Allow(tenant.ID, tenant.ClassifierDailyLimit) {
		return p.classifyExternal(ctx, msg, state, tenant)
	}

	// Stage 6: default.
	return models.IntentResult{
		Intent:             models.IntentUnknown,
		Confidence:         0,
		Method:             models.ResolveMethodDefault,
		NeedsClarification: true,
	}
}

// attachMenuSelection fills the selection slots when the message answers an
// active menu whose mapped intent matches the one already resolved. A flow
// question like "which product?" is usually answered with a bare position
// against the last displayed list.
func (p *Pipeline) attachMenuSelection(body string, state models.ConversationState, result *models.IntentResult) {
	menu := state.ActiveMenu(p.now())
	if menu == nil || menuIntents[menu.Type] != result.Intent {
		return
	}
	pos, ok := refcontext.ParsePosition(body, len(menu.Items))
	if !ok {
		return
	}
	result.SetSlot(models.SlotPosition, strconv.Itoa(pos))
	if key, found := menuSlotKeys[menu.Type]; found {
		result.SetSlot(key, menu.Items[pos-1].ID)
	}
}

// classifyExternal delegates to the gateway. Timeouts, transport errors and
// budget exhaustion all degrade to UNKNOWN with needsClarification set; the
// pipeline never retries the gateway.
func (p *Pipeline) classifyExternal(ctx context.Context, msg models.InboundMessage, state models.ConversationState, tenant models.TenantContext) models.IntentResult {
	unknown := models.IntentResult{
		Intent:             models.IntentUnknown,
		Confidence:         0,
		Method:             models.ResolveMethodExternal,
		NeedsClarification: true,
	}

	res, err := p.gateway.Classify(ctx, msg.Body, summarizeState(state))
	if err != nil {
		slog.Error("external classifier failed", "error", err, "tenant_id", tenant.ID, "conversation_id", msg.ConversationID)
		return unknown
	}
	p.budget.Record(tenant.ID)
	if res.BudgetExceeded {
		slog.Warn("external classifier budget exhausted", "tenant_id", tenant.ID)
		return unknown
	}

	mapped := models.Intent(strings.ToUpper(res.Label))
	if !models.IsValidIntent(mapped) {
		mapped = models.IntentUnknown
	}
	result := models.IntentResult{
		Intent:             mapped,
		Confidence:         res.Confidence,
		Method:             models.ResolveMethodExternal,
		NeedsClarification: res.Confidence < clarificationThreshold || mapped == models.IntentUnknown,
	}
	for k, v := range res.Slots {
		result.SetSlot(k, v)
	}
	// The local extractor can still contribute slots the model missed.
	for k, v := range ExtractSlots(msg.Body, mapped) {
		if result.Slot(k) == "" {
			result.SetSlot(k, v)
		}
	}
	return result
}

// summarizeState builds the compact state summary handed to the external
// classifier. It deliberately omits entity values beyond keys.
func summarizeState(state models.ConversationState) string {
	var parts []string
	if state.CurrentFlow != "" {
		parts = append(parts, "flow="+state.CurrentFlow)
	}
	if state.AwaitingResponse {
		parts = append(parts, "awaiting_response")
	}
	if state.LastQuestion != "" {
		parts = append(parts, "last_question="+state.LastQuestion)
	}
	if state.LastMenu != nil {
		parts = append(parts, fmt.Sprintf("last_menu=%s(%d items)", state.LastMenu.Type, len(state.LastMenu.Items)))
	}
	return strings.Join(parts, " ")
}

// logClassification appends the resolution to the classification log. Log
// failures are reported, never propagated.
func (p *Pipeline) logClassification(msg models.InboundMessage, result models.IntentResult, elapsed time.Duration) {
	if p.store == nil {
		return
	}
	rec := models.ClassificationRecord{
		ID:             uuid.NewString(),
		TenantID:       msg.TenantID,
		ConversationID: msg.ConversationID,
		Message:        msg.Body,
		Intent:         result.Intent,
		Confidence:     result.Confidence,
		Method:         result.Method,
		ElapsedMs:      elapsed.Milliseconds(),
		CreatedAt:      p.now().UTC(),
	}
	if err := p.store.AddClassificationRecord(rec); err != nil {
		slog.Error("failed to append classification record", "error", err, "tenant_id", msg.TenantID, "conversation_id", msg.ConversationID)
	}
}

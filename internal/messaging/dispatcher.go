package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tajerhq/tajerbot/internal/intent"
	"github.com/tajerhq/tajerbot/internal/models"
	"github.com/tajerhq/tajerbot/internal/router"
	"github.com/tajerhq/tajerbot/internal/store"
)

// SideEffectObserver is notified of the side effects emitted with an action.
// Observers execute them; the dispatcher only reports.
type SideEffectObserver func(ctx context.Context, msg models.InboundMessage, action models.Action)

// Dispatcher drives one inbound message through resolution, routing, state
// persistence and delivery. Resolutions for the same conversation are
// serialized with a per-conversation lock; different conversations run fully
// in parallel.
type Dispatcher struct {
	store    store.Store
	pipeline *intent.Pipeline
	router   *router.Router
	service  Service // nil in API-only mode
	tenantID string
	observer SideEffectObserver
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*conversationLock
}

// conversationLock serializes one conversation. The holder count lets the
// dispatcher drop the map entry once no dispatch is using or waiting on it,
// so the lock table only holds in-flight conversations.
type conversationLock struct {
	mu      sync.Mutex
	holders int
}

// NewDispatcher creates a Dispatcher. tenantID is the tenant inbound channel
// messages belong to; service and observer may be nil.
func NewDispatcher(st store.Store, p *intent.Pipeline, r *router.Router, service Service, tenantID string) *Dispatcher {
	return &Dispatcher{
		store:    st,
		pipeline: p,
		router:   r,
		service:  service,
		tenantID: tenantID,
		now:      time.Now,
		locks:    make(map[string]*conversationLock),
	}
}

// SetSideEffectObserver registers the observer called after every dispatched
// action that carries side effects.
func (d *Dispatcher) SetSideEffectObserver(obs SideEffectObserver) {
	d.observer = obs
}

// lockConversation blocks until the conversation's serializing lock is held.
func (d *Dispatcher) lockConversation(conversationID string) *conversationLock {
	d.mu.Lock()
	l, ok := d.locks[conversationID]
	if !ok {
		l = &conversationLock{}
		d.locks[conversationID] = l
	}
	l.holders++
	d.mu.Unlock()

	l.mu.Lock()
	return l
}

// unlockConversation releases the lock and evicts the map entry once the last
// holder is gone.
func (d *Dispatcher) unlockConversation(conversationID string, l *conversationLock) {
	l.mu.Unlock()

	d.mu.Lock()
	l.holders--
	if l.holders == 0 {
		delete(d.locks, conversationID)
	}
	d.mu.Unlock()
}

// Run consumes the service's responses channel until it closes or ctx is
// cancelled. Each message dispatches in its own goroutine; the
// per-conversation lock keeps same-conversation processing sequential.
func (d *Dispatcher) Run(ctx context.Context) {
	if d.service == nil {
		slog.Warn("dispatcher Run called without a messaging service")
		return
	}
	slog.Info("dispatcher started", "tenant_id", d.tenantID)
	for {
		select {
		case <-ctx.Done():
			slog.Info("dispatcher stopped")
			return
		case resp, ok := <-d.service.Responses():
			if !ok {
				slog.Info("dispatcher responses channel closed")
				return
			}
			go d.handleResponse(ctx, resp)
		}
	}
}

func (d *Dispatcher) handleResponse(ctx context.Context, resp models.Response) {
	from, err := d.service.ValidateAndCanonicalizeRecipient(resp.From)
	if err != nil {
		slog.Warn("dispatcher dropping response with invalid sender", "from", resp.From, "error", err)
		return
	}
	msg := models.InboundMessage{
		TenantID:       d.tenantID,
		ConversationID: d.tenantID + ":" + from,
		CustomerID:     from,
		Body:           resp.Body,
		PayloadID:      resp.PayloadID,
		Timestamp:      resp.Time,
	}
	if _, err := d.Dispatch(ctx, msg); err != nil {
		slog.Error("dispatch failed", "error", err, "conversation_id", msg.ConversationID)
	}
}

// Dispatch resolves and routes one inbound message, persists the resulting
// state, delivers the action when a service is configured, and returns the
// action. A failed resolution never leaves a partial state delta applied.
func (d *Dispatcher) Dispatch(ctx context.Context, msg models.InboundMessage) (models.Action, error) {
	if err := msg.Validate(); err != nil {
		return models.Action{}, fmt.Errorf("invalid inbound message: %w", err)
	}

	lock := d.lockConversation(msg.ConversationID)
	defer d.unlockConversation(msg.ConversationID, lock)

	state, err := d.loadState(msg)
	if err != nil {
		return models.Action{}, err
	}
	tenant, err := d.loadTenant(msg.TenantID)
	if err != nil {
		return models.Action{}, err
	}
	customer := models.CustomerContext{
		ID:          msg.CustomerID,
		TenantID:    msg.TenantID,
		PhoneNumber: msg.CustomerID,
	}

	result := d.pipeline.Resolve(ctx, msg, state, tenant)
	action := d.router.Route(ctx, router.Request{
		Result:   result,
		State:    state,
		Tenant:   tenant,
		Customer: customer,
		Message:  msg.Body,
	})

	newState := action.StateDelta.Apply(state, d.now().UTC())
	if err := d.store.SaveConversationState(newState); err != nil {
		// The reply still goes out; the next turn just sees stale state.
		slog.Error("failed to persist conversation state", "error", err, "conversation_id", msg.ConversationID)
	}

	if d.service != nil {
		if err := d.service.SendAction(ctx, customer.PhoneNumber, action); err != nil {
			slog.Error("failed to deliver action", "error", err, "conversation_id", msg.ConversationID)
		}
	}
	if d.observer != nil && len(action.SideEffects) > 0 {
		d.observer(ctx, msg, action)
	}
	return action, nil
}

func (d *Dispatcher) loadState(msg models.InboundMessage) (models.ConversationState, error) {
	state, err := d.store.GetConversationState(msg.ConversationID)
	if err != nil {
		return models.ConversationState{}, fmt.Errorf("load conversation state: %w", err)
	}
	if state == nil {
		return models.ConversationState{
			ConversationID: msg.ConversationID,
			TenantID:       msg.TenantID,
		}, nil
	}
	return *state, nil
}

func (d *Dispatcher) loadTenant(tenantID string) (models.TenantContext, error) {
	tenant, err := d.store.GetTenant(tenantID)
	if err != nil {
		return models.TenantContext{}, fmt.Errorf("load tenant: %w", err)
	}
	if tenant == nil {
		// Unregistered tenants still get the default dialog behavior.
		return models.TenantContext{ID: tenantID}, nil
	}
	return *tenant, nil
}

// Package router maps a resolved intent plus conversation state to exactly
// one structured Action. Decision functions are pure with respect to their
// inputs and declared read collaborators; persisting state deltas, delivering
// the action, and executing side effects all belong to the caller.
//
// Nothing below the Route boundary may escape it: a missing handler and a
// panicking decision function are both normalized into a generic apology
// action with a human-handoff side effect.
package router

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/tajerhq/tajerbot/internal/commerce"
	"github.com/tajerhq/tajerbot/internal/models"
	"github.com/tajerhq/tajerbot/internal/refcontext"
)

// Request bundles the inputs of one routing decision. Message carries the raw
// customer text for decisions that resolve descriptive references ("the blue
// one") against the conversation's last displayed list.
type Request struct {
	Result   models.IntentResult
	State    models.ConversationState
	Tenant   models.TenantContext
	Customer models.CustomerContext
	Message  string
}

// DecisionFunc computes the Action for one intent. Returning an error is
// equivalent to panicking: both are normalized by Route into the fallback
// action. Decision functions should prefer turning expected failures (not
// found, validation) into plain text actions themselves.
type DecisionFunc func(ctx context.Context, req Request) (models.Action, error)

// Router dispatches intents through a fixed, closed handler table built at
// construction time.
type Router struct {
	catalog  commerce.Repo
	refs     *refcontext.Manager
	handlers map[models.Intent]DecisionFunc
	now      func() time.Time
}

// NewRouter returns a Router with the built-in decision functions. refs may
// be nil; list displays then skip reference-context bookkeeping.
func NewRouter(catalog commerce.Repo, refs *refcontext.Manager) *Router {
	r := &Router{catalog: catalog, refs: refs, now: time.Now}
	r.handlers = map[models.Intent]DecisionFunc{
		models.IntentGreet:                  r.decideGreet,
		models.IntentBrowseProducts:         r.decideBrowseProducts,
		models.IntentProductDetails:         r.decideProductDetails,
		models.IntentBrowseServices:         r.decideBrowseServices,
		models.IntentServiceDetails:         r.decideServiceDetails,
		models.IntentPlaceOrder:             r.decidePlaceOrder,
		models.IntentBookAppointment:        r.decideBookAppointment,
		models.IntentCheckOrderStatus:       r.decideCheckOrderStatus,
		models.IntentCheckAppointmentStatus: r.decideCheckAppointmentStatus,
		models.IntentAskDeliveryFees:        r.decideAskDeliveryFees,
		models.IntentAskReturnPolicy:        r.decideAskReturnPolicy,
		models.IntentPaymentHelp:            r.decidePaymentHelp,
		models.IntentRequestHuman:           r.decideRequestHuman,
		models.IntentGeneralFAQ:             r.decideGeneralFAQ,
		models.IntentSmallTalk:              r.decideSmallTalk,
		models.IntentUnknown:                r.decideUnknown,
	}
	return r
}

// Override replaces the handler for one intent. Used by tests and by hosts
// that customize single flows.
func (r *Router) Override(i models.Intent, fn DecisionFunc) {
	r.handlers[i] = fn
}

// Route dispatches the request to its decision function and returns a
// well-formed Action in every case. Panics and errors from decision functions
// are logged with full context and converted into the fallback action.
func (r *Router) Route(ctx context.Context, req Request) (action models.Action) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("decision function panicked",
				"tenant_id", req.Tenant.ID,
				"customer_id", req.Customer.ID,
				"intent", req.Result.Intent,
				"panic", rec,
				"stack", string(debug.Stack()))
			action = r.fallbackAction(req)
		}
	}()

	handler, ok := r.handlers[req.Result.Intent]
	if !ok {
		slog.Error("no decision function for intent",
			"tenant_id", req.Tenant.ID,
			"customer_id", req.Customer.ID,
			"intent", req.Result.Intent)
		return r.fallbackAction(req)
	}

	act, err := handler(ctx, req)
	if err != nil {
		slog.Error("decision function failed",
			"tenant_id", req.Tenant.ID,
			"customer_id", req.Customer.ID,
			"intent", req.Result.Intent,
			"error", err)
		return r.fallbackAction(req)
	}
	return act
}

// fallbackAction is the single failure path: a polite apology plus a
// human-handoff side effect. Raw errors never reach the customer.
func (r *Router) fallbackAction(req Request) models.Action {
	tag := replyLanguage(req.Result, req.Tenant, req.Customer)
	return models.Action{
		Type:        models.ActionTypeText,
		Text:        phrase(tag, "handoff"),
		SideEffects: []string{models.SideEffectErrorOccurred, models.SideEffectHandoffTriggered},
		StateDelta: &models.StateDelta{
			AwaitingResponse: models.BoolPtr(false),
			CurrentFlow:      models.StringPtr(models.FlowAwaitingHandoff),
		},
	}
}

package router

import (
	"context"
	"errors"
	"testing"

	"github.com/tajerhq/tajerbot/internal/cache"
	"github.com/tajerhq/tajerbot/internal/commerce"
	"github.com/tajerhq/tajerbot/internal/models"
	"github.com/tajerhq/tajerbot/internal/refcontext"
	"github.com/tajerhq/tajerbot/internal/store"
)

func testRequest(intent models.Intent) Request {
	return Request{
		Result:   models.IntentResult{Intent: intent, Confidence: 0.9, Method: models.ResolveMethodRule},
		State:    models.ConversationState{ConversationID: "conv1", TenantID: "t1"},
		Tenant:   models.TenantContext{ID: "t1", BusinessName: "Atlas Bazaar", Currency: "MAD", Languages: []string{"en"}},
		Customer: models.CustomerContext{ID: "c1", TenantID: "t1", PhoneNumber: "+212600000001"},
	}
}

func seededRepo() *commerce.InMemoryRepo {
	repo := commerce.NewInMemoryRepo()
	repo.AddProduct(models.Product{ID: "p1", TenantID: "t1", Name: "Argan Oil", Description: "cold pressed", Category: "cosmetics", Price: 12000, Stock: 5})
	repo.AddProduct(models.Product{ID: "p2", TenantID: "t1", Name: "Leather Bag", Category: "accessories", Price: 45000, Stock: 2})
	repo.AddService(models.Service{ID: "s1", TenantID: "t1", Name: "Haircut", Price: 8000, DurationMin: 30})
	return repo
}

func TestRouteEveryIntentReturnsWellFormedAction(t *testing.T) {
	r := NewRouter(seededRepo(), nil)
	for _, intent := range models.AllIntents {
		action := r.Route(context.Background(), testRequest(intent))
		if action.Type == "" {
			t.Errorf("intent %s: empty action type", intent)
		}
		if action.Type == models.ActionTypeText && action.Text == "" {
			t.Errorf("intent %s: TEXT action without text", intent)
		}
	}
}

func TestRoutePanicRecovery(t *testing.T) {
	r := NewRouter(seededRepo(), nil)
	r.Override(models.IntentGreet, func(ctx context.Context, req Request) (models.Action, error) {
		panic("boom")
	})

	action := r.Route(context.Background(), testRequest(models.IntentGreet))
	if action.Type != models.ActionTypeText {
		t.Errorf("fallback type = %q, want TEXT", action.Type)
	}
	if action.Text == "" {
		t.Error("fallback action has no text")
	}
	if !action.HasSideEffect(models.SideEffectHandoffTriggered) {
		t.Error("fallback missing handoff_triggered side effect")
	}
	if !action.HasSideEffect(models.SideEffectErrorOccurred) {
		t.Error("fallback missing error_occurred side effect")
	}
}

func TestRouteDecisionErrorFallsBack(t *testing.T) {
	r := NewRouter(seededRepo(), nil)
	r.Override(models.IntentSmallTalk, func(ctx context.Context, req Request) (models.Action, error) {
		return models.Action{}, errors.New("backend down")
	})

	action := r.Route(context.Background(), testRequest(models.IntentSmallTalk))
	if !action.HasSideEffect(models.SideEffectHandoffTriggered) {
		t.Error("error fallback missing handoff_triggered side effect")
	}
}

func TestRouteUnmappedIntentFallsBack(t *testing.T) {
	r := NewRouter(seededRepo(), nil)
	req := testRequest(models.Intent("NOT_A_REAL_INTENT"))
	action := r.Route(context.Background(), req)
	if !action.HasSideEffect(models.SideEffectHandoffTriggered) {
		t.Error("unmapped intent fallback missing handoff_triggered side effect")
	}
}

func TestSmallTalkFarewell(t *testing.T) {
	r := NewRouter(seededRepo(), nil)

	req := testRequest(models.IntentSmallTalk)
	req.Message = "ok thanks, bye!"
	farewell := r.Route(context.Background(), req)

	req.Message = "how are you"
	generic := r.Route(context.Background(), req)

	if farewell.Text == generic.Text {
		t.Errorf("farewell reply %q should differ from generic small talk", farewell.Text)
	}
}

func TestBrowseProductsBuildsMenuAndReferenceContext(t *testing.T) {
	refs := refcontext.NewManager(store.NewInMemoryStore(), cache.NewMemoryCache())
	r := NewRouter(seededRepo(), refs)

	action := r.Route(context.Background(), testRequest(models.IntentBrowseProducts))
	if action.Type != models.ActionTypeList {
		t.Fatalf("action type = %q, want LIST", action.Type)
	}
	if action.RichPayload == nil || len(action.RichPayload.Items) != 2 {
		t.Fatalf("rich payload items = %+v, want 2", action.RichPayload)
	}
	if action.StateDelta == nil || action.StateDelta.LastMenu == nil {
		t.Fatal("state delta missing menu")
	}
	if action.StateDelta.LastMenu.Type != "products" {
		t.Errorf("menu type = %q, want products", action.StateDelta.LastMenu.Type)
	}
	if got := *action.StateDelta.CurrentFlow; got != models.FlowBrowsingProducts {
		t.Errorf("flow = %q, want %q", got, models.FlowBrowsingProducts)
	}

	// The displayed list must be resolvable as a reference context.
	match, err := refs.Resolve(context.Background(), "conv1", "the last one")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if match == nil || match.Position != 2 {
		t.Fatalf("reference match = %+v, want position 2", match)
	}
}

func TestProductDetailsResolvesDescriptiveReference(t *testing.T) {
	refs := refcontext.NewManager(store.NewInMemoryStore(), cache.NewMemoryCache())
	r := NewRouter(seededRepo(), refs)

	// Display the list first so a reference context exists.
	r.Route(context.Background(), testRequest(models.IntentBrowseProducts))

	req := testRequest(models.IntentProductDetails)
	req.Message = "the leather one"
	action := r.Route(context.Background(), req)
	if action.Type != models.ActionTypeCards {
		t.Fatalf("action type = %q, want CARDS", action.Type)
	}
	if action.StateDelta == nil || action.StateDelta.Entities[models.SlotProductID] != "p2" {
		t.Errorf("descriptive reference did not resolve to p2: %+v", action.StateDelta)
	}
}

func TestPlaceOrderResolvesReferenceFromActiveList(t *testing.T) {
	refs := refcontext.NewManager(store.NewInMemoryStore(), cache.NewMemoryCache())
	r := NewRouter(seededRepo(), refs)
	r.Route(context.Background(), testRequest(models.IntentBrowseProducts))

	req := testRequest(models.IntentPlaceOrder)
	req.Message = "I'll take the first one"
	action := r.Route(context.Background(), req)
	if !action.HasSideEffect(models.SideEffectOrderCreated) {
		t.Fatalf("order not created from positional reference: %+v", action)
	}
}

func TestProductDetailsWithSlot(t *testing.T) {
	r := NewRouter(seededRepo(), nil)
	req := testRequest(models.IntentProductDetails)
	req.Result.SetSlot(models.SlotProductID, "p1")

	action := r.Route(context.Background(), req)
	if action.Type != models.ActionTypeCards {
		t.Fatalf("action type = %q, want CARDS", action.Type)
	}
	if action.StateDelta == nil || action.StateDelta.Entities[models.SlotProductID] != "p1" {
		t.Error("product_id not carried into state entities")
	}
	if got := *action.StateDelta.CurrentFlow; got != models.FlowOrdering {
		t.Errorf("flow = %q, want %q", got, models.FlowOrdering)
	}
}

func TestProductDetailsNotFound(t *testing.T) {
	r := NewRouter(seededRepo(), nil)
	req := testRequest(models.IntentProductDetails)
	req.Result.SetSlot(models.SlotProductID, "missing")

	action := r.Route(context.Background(), req)
	if action.Type != models.ActionTypeText {
		t.Errorf("not-found action type = %q, want TEXT", action.Type)
	}
	if action.HasSideEffect(models.SideEffectErrorOccurred) {
		t.Error("not-found must be a plain answer, not an error fallback")
	}
}

func TestProductDetailsWithoutIDAsksForSelection(t *testing.T) {
	r := NewRouter(seededRepo(), nil)
	action := r.Route(context.Background(), testRequest(models.IntentProductDetails))
	if action.StateDelta == nil || action.StateDelta.AwaitingResponse == nil || !*action.StateDelta.AwaitingResponse {
		t.Error("clarifying question must set awaiting_response")
	}
	if got := *action.StateDelta.CurrentFlow; got != models.FlowBrowsingProducts {
		t.Errorf("flow = %q, want %q", got, models.FlowBrowsingProducts)
	}
}

func TestPlaceOrderCreatesOrder(t *testing.T) {
	repo := seededRepo()
	r := NewRouter(repo, nil)
	req := testRequest(models.IntentPlaceOrder)
	req.Result.SetSlot(models.SlotProductID, "p1")
	req.Result.SetSlot(models.SlotQuantity, "2")

	action := r.Route(context.Background(), req)
	if !action.HasSideEffect(models.SideEffectOrderCreated) {
		t.Fatalf("order_created side effect missing: %+v", action)
	}
	orders, err := repo.ListOrdersByCustomer(context.Background(), "t1", "c1", 10)
	if err != nil {
		t.Fatalf("ListOrdersByCustomer failed: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(orders))
	}
	if orders[0].Quantity != 2 {
		t.Errorf("quantity = %d, want 2", orders[0].Quantity)
	}
	if orders[0].Total != 24000 {
		t.Errorf("total = %d, want 24000", orders[0].Total)
	}
	if action.StateDelta.Entities[models.SlotOrderID] == "" {
		t.Error("order_id not carried into state entities")
	}
}

func TestPlaceOrderUsesCarriedEntity(t *testing.T) {
	repo := seededRepo()
	r := NewRouter(repo, nil)
	req := testRequest(models.IntentPlaceOrder)
	req.State.Entities = map[string]string{models.SlotProductID: "p2"}

	action := r.Route(context.Background(), req)
	if !action.HasSideEffect(models.SideEffectOrderCreated) {
		t.Fatalf("order not created from carried entity: %+v", action)
	}
	orders, _ := repo.ListOrdersByCustomer(context.Background(), "t1", "c1", 10)
	if len(orders) != 1 || orders[0].ProductID != "p2" {
		t.Errorf("orders = %+v, want one for p2", orders)
	}
}

func TestPlaceOrderWithoutProductAsks(t *testing.T) {
	r := NewRouter(seededRepo(), nil)
	action := r.Route(context.Background(), testRequest(models.IntentPlaceOrder))
	if action.HasSideEffect(models.SideEffectOrderCreated) {
		t.Fatal("order created without a product")
	}
	if action.StateDelta == nil || *action.StateDelta.CurrentFlow != models.FlowBrowsingProducts {
		t.Error("missing product should steer back to browsing")
	}
}

func TestBookAppointmentNeedsDate(t *testing.T) {
	r := NewRouter(seededRepo(), nil)
	req := testRequest(models.IntentBookAppointment)
	req.Result.SetSlot(models.SlotServiceID, "s1")

	action := r.Route(context.Background(), req)
	if action.HasSideEffect(models.SideEffectAppointmentCreated) {
		t.Fatal("appointment created without a date")
	}
	if *action.StateDelta.CurrentFlow != models.FlowBooking {
		t.Errorf("flow = %q, want %q", *action.StateDelta.CurrentFlow, models.FlowBooking)
	}
	if action.StateDelta.Entities[models.SlotServiceID] != "s1" {
		t.Error("service_id not carried while asking for a date")
	}
}

func TestBookAppointmentCreates(t *testing.T) {
	repo := seededRepo()
	r := NewRouter(repo, nil)
	req := testRequest(models.IntentBookAppointment)
	req.Result.SetSlot(models.SlotServiceID, "s1")
	req.Result.SetSlot(models.SlotDate, "tomorrow")
	req.Result.SetSlot(models.SlotTime, "14:30")

	action := r.Route(context.Background(), req)
	if !action.HasSideEffect(models.SideEffectAppointmentCreated) {
		t.Fatalf("appointment_created side effect missing: %+v", action)
	}
	appts, err := repo.ListAppointmentsByCustomer(context.Background(), "t1", "c1", 10)
	if err != nil || len(appts) != 1 {
		t.Fatalf("appointments = %v (err %v), want 1", appts, err)
	}
	if appts[0].ScheduledAt.Hour() != 14 || appts[0].ScheduledAt.Minute() != 30 {
		t.Errorf("scheduled at %v, want 14:30", appts[0].ScheduledAt)
	}
}

func TestCheckOrderStatusAsksWhenUnknown(t *testing.T) {
	r := NewRouter(seededRepo(), nil)
	action := r.Route(context.Background(), testRequest(models.IntentCheckOrderStatus))
	if *action.StateDelta.CurrentFlow != models.FlowAwaitingOrderID {
		t.Errorf("flow = %q, want %q", *action.StateDelta.CurrentFlow, models.FlowAwaitingOrderID)
	}
}

func TestUnknownEscalatesAfterMaxAttempts(t *testing.T) {
	r := NewRouter(seededRepo(), nil)

	req := testRequest(models.IntentUnknown)
	action := r.Route(context.Background(), req)
	if action.Type != models.ActionTypeText {
		t.Errorf("first unknown type = %q, want clarifying TEXT", action.Type)
	}
	if got := *action.StateDelta.ClarificationAttempts; got != 1 {
		t.Errorf("attempts after first unknown = %d, want 1", got)
	}

	req.State.ClarificationAttempts = models.MaxClarificationAttempts
	action = r.Route(context.Background(), req)
	if action.Type != models.ActionTypeHandoff {
		t.Errorf("escalation type = %q, want HANDOFF", action.Type)
	}
	if !action.HasSideEffect(models.SideEffectHandoffTriggered) {
		t.Error("escalation missing handoff_triggered side effect")
	}
}

func TestTenantCannedAnswers(t *testing.T) {
	r := NewRouter(seededRepo(), nil)
	req := testRequest(models.IntentAskDeliveryFees)
	req.Tenant.DeliveryFeeText = "Flat 30 MAD in Casablanca."

	action := r.Route(context.Background(), req)
	if action.Text != "Flat 30 MAD in Casablanca." {
		t.Errorf("delivery text = %q, want tenant override", action.Text)
	}
}

func TestReplyLanguageSelection(t *testing.T) {
	req := testRequest(models.IntentGreet)

	req.Result.LanguageTags = []string{"ar", "ary"}
	if got := replyLanguage(req.Result, req.Tenant, req.Customer); got != "ary" {
		t.Errorf("tag preference = %q, want ary", got)
	}

	req.Customer.Language = "fr"
	if got := replyLanguage(req.Result, req.Tenant, req.Customer); got != "fr" {
		t.Errorf("customer preference = %q, want fr", got)
	}

	req.Customer.Language = ""
	req.Result.LanguageTags = nil
	if got := replyLanguage(req.Result, req.Tenant, req.Customer); got != "en" {
		t.Errorf("fallback = %q, want en (tenant default)", got)
	}
}

func TestStateDeltaRoundTrip(t *testing.T) {
	// The caller applies the returned delta; a browse followed by a greet must
	// leave the state clean again.
	refs := refcontext.NewManager(store.NewInMemoryStore(), nil)
	r := NewRouter(seededRepo(), refs)
	state := models.ConversationState{ConversationID: "conv1", TenantID: "t1"}

	req := testRequest(models.IntentBrowseProducts)
	req.State = state
	action := r.Route(context.Background(), req)
	state = action.StateDelta.Apply(state, r.now())
	if !state.AwaitingResponse || state.CurrentFlow != models.FlowBrowsingProducts || state.LastMenu == nil {
		t.Fatalf("state after browse = %+v", state)
	}

	req = testRequest(models.IntentGreet)
	req.State = state
	action = r.Route(context.Background(), req)
	state = action.StateDelta.Apply(state, r.now())
	if state.AwaitingResponse || state.CurrentFlow != "" {
		t.Errorf("state after greet = %+v, want idle", state)
	}
}

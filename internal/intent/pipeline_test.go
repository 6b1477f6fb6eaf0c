package intent

import (
	"context"
	"testing"
	"time"

	"github.com/tajerhq/tajerbot/internal/classifier"
	"github.com/tajerhq/tajerbot/internal/models"
	"github.com/tajerhq/tajerbot/internal/store"
)

type stubGateway struct {
	result *classifier.Result
	err    error
	calls  int
}

func (s *stubGateway) Classify(ctx context.Context, text, stateSummary string) (*classifier.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubBudget struct {
	allow    bool
	recorded int
}

func (s *stubBudget) Allow(tenantID string, dailyLimit int) bool { return s.allow }
func (s *stubBudget) Record(tenantID string)                     { s.recorded++ }

func testMessage(body string) models.InboundMessage {
	return models.InboundMessage{
		TenantID:       "t1",
		ConversationID: "conv1",
		CustomerID:     "c1",
		Body:           body,
	}
}

func testTenant() models.TenantContext {
	return models.TenantContext{ID: "t1", ClassifierDailyLimit: 100}
}

func TestResolveContextTakesPrecedenceOverRules(t *testing.T) {
	gw := &stubGateway{}
	p := NewPipeline(gw, &stubBudget{allow: true}, nil)

	// The body matches the greet rule group, but the awaited flow answer wins.
	state := models.ConversationState{
		ConversationID:   "conv1",
		AwaitingResponse: true,
		CurrentFlow:      models.FlowBooking,
	}
	res := p.Resolve(context.Background(), testMessage("hello, tomorrow at 14:30"), state, testTenant())

	if res.Method != models.ResolveMethodContext {
		t.Fatalf("method = %q, want context", res.Method)
	}
	if res.Intent != models.IntentBookAppointment {
		t.Errorf("intent = %q, want BOOK_APPOINTMENT", res.Intent)
	}
	if !res.ResolvedFromContext {
		t.Error("ResolvedFromContext not set")
	}
	if res.Confidence < 0.9 {
		t.Errorf("confidence = %v, want >= 0.9", res.Confidence)
	}
	if res.Slot(models.SlotDate) != "tomorrow" {
		t.Errorf("date slot = %q, want tomorrow", res.Slot(models.SlotDate))
	}
	if res.Slot(models.SlotTime) != "14:30" {
		t.Errorf("time slot = %q, want 14:30", res.Slot(models.SlotTime))
	}
	if gw.calls != 0 {
		t.Errorf("gateway called %d times, want 0", gw.calls)
	}
}

func TestResolveMenuPosition(t *testing.T) {
	p := NewPipeline(nil, nil, nil)
	state := models.ConversationState{
		ConversationID: "conv1",
		LastMenu: &models.Menu{
			Type: "products",
			Items: []models.MenuItem{
				{ID: "p1", Position: 1},
				{ID: "p2", Position: 2},
				{ID: "p3", Position: 3},
			},
			ShownAt: time.Now(),
		},
	}

	res := p.Resolve(context.Background(), testMessage("1"), state, testTenant())
	if res.Intent != models.IntentProductDetails || res.Slot(models.SlotProductID) != "p1" {
		t.Fatalf("input \"1\": got intent=%q product_id=%q", res.Intent, res.Slot(models.SlotProductID))
	}

	res = p.Resolve(context.Background(), testMessage("the last one"), state, testTenant())
	if res.Slot(models.SlotProductID) != "p3" {
		t.Errorf("input \"last\": product_id = %q, want p3", res.Slot(models.SlotProductID))
	}
	if res.Slot(models.SlotPosition) != "3" {
		t.Errorf("input \"last\": position slot = %q, want 3", res.Slot(models.SlotPosition))
	}
}

func TestResolveFlowContextAttachesMenuSelection(t *testing.T) {
	p := NewPipeline(nil, nil, nil)
	state := models.ConversationState{
		ConversationID:   "conv1",
		AwaitingResponse: true,
		CurrentFlow:      models.FlowBrowsingProducts,
		LastMenu: &models.Menu{
			Type: "products",
			Items: []models.MenuItem{
				{ID: "p1", Position: 1},
				{ID: "p2", Position: 2},
			},
			ShownAt: time.Now(),
		},
	}

	// A bare position answering "which product?" must carry the selected id.
	res := p.Resolve(context.Background(), testMessage("2"), state, testTenant())
	if res.Intent != models.IntentProductDetails || !res.ResolvedFromContext {
		t.Fatalf("got intent=%q resolvedFromContext=%v", res.Intent, res.ResolvedFromContext)
	}
	if res.Slot(models.SlotProductID) != "p2" {
		t.Errorf("product_id slot = %q, want p2", res.Slot(models.SlotProductID))
	}
	if res.Slot(models.SlotPosition) != "2" {
		t.Errorf("position slot = %q, want 2", res.Slot(models.SlotPosition))
	}
}

func TestResolveMenuPositionOutOfRangeFallsThrough(t *testing.T) {
	p := NewPipeline(nil, nil, nil)
	state := models.ConversationState{
		ConversationID: "conv1",
		LastMenu: &models.Menu{
			Type:    "products",
			Items:   []models.MenuItem{{ID: "p1", Position: 1}},
			ShownAt: time.Now(),
		},
	}

	res := p.Resolve(context.Background(), testMessage("2"), state, testTenant())
	if res.Method == models.ResolveMethodContext {
		t.Errorf("out-of-range position resolved by menu stage: %+v", res)
	}
	if res.Intent != models.IntentUnknown {
		t.Errorf("intent = %q, want UNKNOWN fallback", res.Intent)
	}
}

func TestResolveExpiredMenuIgnored(t *testing.T) {
	p := NewPipeline(nil, nil, nil)
	state := models.ConversationState{
		ConversationID: "conv1",
		LastMenu: &models.Menu{
			Type:    "products",
			Items:   []models.MenuItem{{ID: "p1", Position: 1}},
			ShownAt: time.Now().Add(-models.MenuTTL - time.Minute),
		},
	}

	res := p.Resolve(context.Background(), testMessage("1"), state, testTenant())
	if res.Slot(models.SlotProductID) != "" {
		t.Errorf("expired menu still resolved: %+v", res)
	}
}

func TestResolveStructuredPayload(t *testing.T) {
	p := NewPipeline(nil, nil, nil)

	msg := testMessage("")
	msg.PayloadID = "product_abc123"
	res := p.Resolve(context.Background(), msg, models.ConversationState{}, testTenant())
	if res.Intent != models.IntentProductDetails {
		t.Errorf("list payload intent = %q, want PRODUCT_DETAILS", res.Intent)
	}
	if res.Slot(models.SlotProductID) != "abc123" {
		t.Errorf("product_id slot = %q, want abc123", res.Slot(models.SlotProductID))
	}
	if res.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", res.Confidence)
	}

	msg = testMessage("")
	msg.PayloadID = "btn_delivery_fees"
	res = p.Resolve(context.Background(), msg, models.ConversationState{}, testTenant())
	if res.Intent != models.IntentAskDeliveryFees {
		t.Errorf("button payload intent = %q, want ASK_DELIVERY_FEES", res.Intent)
	}
}

func TestResolveRuleClassification(t *testing.T) {
	gw := &stubGateway{}
	p := NewPipeline(gw, &stubBudget{allow: true}, nil)

	cases := []struct {
		body string
		want models.Intent
	}{
		{"hello", models.IntentGreet},
		{"salam, labas?", models.IntentGreet},
		{"show me your products", models.IntentBrowseProducts},
		{"chnou 3andkom?", models.IntentBrowseProducts},
		{"bghit nchri had l7aja", models.IntentPlaceOrder},
		{"je veux commander", models.IntentPlaceOrder},
		{"where is my order?", models.IntentCheckOrderStatus},
		{"فين الطلب ديالي", models.IntentCheckOrderStatus},
		{"how much is delivery?", models.IntentAskDeliveryFees},
		{"can I return this product?", models.IntentAskReturnPolicy},
		{"kifach nkhelles?", models.IntentPaymentHelp},
		{"I want to talk to a human", models.IntentRequestHuman},
		{"bghit nqayed maw3id", models.IntentBookAppointment},
		{"merci beaucoup", models.IntentSmallTalk},
	}
	for _, tc := range cases {
		res := p.Resolve(context.Background(), testMessage(tc.body), models.ConversationState{}, testTenant())
		if res.Intent != tc.want {
			t.Errorf("Resolve(%q) intent = %q, want %q", tc.body, res.Intent, tc.want)
		}
		if res.Method != models.ResolveMethodRule {
			t.Errorf("Resolve(%q) method = %q, want rule", tc.body, res.Method)
		}
		if res.Confidence < RuleAcceptThreshold {
			t.Errorf("Resolve(%q) confidence = %v, want >= %v", tc.body, res.Confidence, RuleAcceptThreshold)
		}
	}
	if gw.calls != 0 {
		t.Errorf("gateway called %d times for rule-resolvable messages, want 0", gw.calls)
	}
}

func TestResolveExternalFallback(t *testing.T) {
	gw := &stubGateway{result: &classifier.Result{Label: "GENERAL_FAQ", Confidence: 0.85}}
	budget := &stubBudget{allow: true}
	p := NewPipeline(gw, budget, nil)

	res := p.Resolve(context.Background(), testMessage("zzzzqqq weird text"), models.ConversationState{}, testTenant())
	if res.Intent != models.IntentGeneralFAQ {
		t.Errorf("intent = %q, want GENERAL_FAQ", res.Intent)
	}
	if res.Method != models.ResolveMethodExternal {
		t.Errorf("method = %q, want external", res.Method)
	}
	if res.NeedsClarification {
		t.Error("needsClarification set despite confidence 0.85")
	}
	if gw.calls != 1 {
		t.Errorf("gateway calls = %d, want 1", gw.calls)
	}
	if budget.recorded != 1 {
		t.Errorf("budget recorded = %d, want 1", budget.recorded)
	}
}

func TestResolveExternalLowConfidenceNeedsClarification(t *testing.T) {
	gw := &stubGateway{result: &classifier.Result{Label: "SMALL_TALK", Confidence: 0.4}}
	p := NewPipeline(gw, &stubBudget{allow: true}, nil)

	res := p.Resolve(context.Background(), testMessage("zzzzqqq"), models.ConversationState{}, testTenant())
	if !res.NeedsClarification {
		t.Error("expected needsClarification for confidence below threshold")
	}
}

func TestResolveExternalBudgetExceeded(t *testing.T) {
	gw := &stubGateway{result: &classifier.Result{BudgetExceeded: true}}
	p := NewPipeline(gw, &stubBudget{allow: true}, nil)

	res := p.Resolve(context.Background(), testMessage("zzzzqqq"), models.ConversationState{}, testTenant())
	if res.Intent != models.IntentUnknown {
		t.Errorf("intent = %q, want UNKNOWN", res.Intent)
	}
	if res.Method != models.ResolveMethodExternal {
		t.Errorf("method = %q, want external", res.Method)
	}
	if !res.NeedsClarification {
		t.Error("expected needsClarification on budget exhaustion")
	}
	if gw.calls != 1 {
		t.Errorf("gateway calls = %d, want 1 (no retry)", gw.calls)
	}
}

func TestResolveExternalUnknownLabel(t *testing.T) {
	gw := &stubGateway{result: &classifier.Result{Label: "SOMETHING_NEW", Confidence: 0.9}}
	p := NewPipeline(gw, &stubBudget{allow: true}, nil)

	res := p.Resolve(context.Background(), testMessage("zzzzqqq"), models.ConversationState{}, testTenant())
	if res.Intent != models.IntentUnknown {
		t.Errorf("unknown label mapped to %q, want UNKNOWN", res.Intent)
	}
	if !res.NeedsClarification {
		t.Error("expected needsClarification for unmappable label")
	}
}

func TestResolveDefaultWhenBudgetDenied(t *testing.T) {
	gw := &stubGateway{}
	p := NewPipeline(gw, &stubBudget{allow: false}, nil)

	res := p.Resolve(context.Background(), testMessage("zzzzqqq"), models.ConversationState{}, testTenant())
	if res.Method != models.ResolveMethodDefault {
		t.Errorf("method = %q, want default", res.Method)
	}
	if res.Intent != models.IntentUnknown || !res.NeedsClarification {
		t.Errorf("got %+v, want UNKNOWN with needsClarification", res)
	}
	if gw.calls != 0 {
		t.Errorf("gateway called %d times with budget denied, want 0", gw.calls)
	}
}

func TestResolveAppendsClassificationLog(t *testing.T) {
	st := store.NewInMemoryStore()
	p := NewPipeline(nil, nil, st)

	p.Resolve(context.Background(), testMessage("hello"), models.ConversationState{}, testTenant())
	p.Resolve(context.Background(), testMessage("bonjour"), models.ConversationState{}, testTenant())

	recs, err := st.ListClassificationRecords("t1", 10)
	if err != nil {
		t.Fatalf("ListClassificationRecords failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("log entries = %d, want 2", len(recs))
	}
	for _, rec := range recs {
		if rec.Intent != models.IntentGreet {
			t.Errorf("logged intent = %q, want GREET", rec.Intent)
		}
		if rec.Method != models.ResolveMethodRule {
			t.Errorf("logged method = %q, want rule", rec.Method)
		}
	}
}

func TestResolveSetsLanguageTags(t *testing.T) {
	p := NewPipeline(nil, nil, nil)
	res := p.Resolve(context.Background(), testMessage("bghit nchri had l7aja"), models.ConversationState{}, testTenant())
	found := false
	for _, tag := range res.LanguageTags {
		if tag == "ary" {
			found = true
		}
	}
	if !found {
		t.Errorf("language tags = %v, want to contain ary", res.LanguageTags)
	}
}

func TestExtractSlots(t *testing.T) {
	slots := ExtractSlots("looking for shoes under 1,500 dh", models.IntentBrowseProducts)
	if slots[models.SlotCategory] != "shoes" {
		t.Errorf("category = %q, want shoes", slots[models.SlotCategory])
	}
	if slots[models.SlotBudget] != "1500" {
		t.Errorf("budget = %q, want 1500 (separators stripped)", slots[models.SlotBudget])
	}

	slots = ExtractSlots("budget max 1500.99 dh", models.IntentBrowseProducts)
	if slots[models.SlotBudget] != "1500" {
		t.Errorf("budget = %q, want 1500 (decimal part truncated)", slots[models.SlotBudget])
	}

	slots = ExtractSlots("order #CMD-4821 fin weslat", models.IntentCheckOrderStatus)
	if slots[models.SlotOrderID] != "cmd-4821" {
		t.Errorf("order_id = %q, want cmd-4821", slots[models.SlotOrderID])
	}

	slots = ExtractSlots("demain à 10h30 svp", models.IntentBookAppointment)
	if slots[models.SlotDate] != "tomorrow" {
		t.Errorf("date = %q, want tomorrow", slots[models.SlotDate])
	}
	if slots[models.SlotTime] != "10h30" {
		t.Errorf("time = %q, want 10h30", slots[models.SlotTime])
	}

	slots = ExtractSlots("2 pcs please", models.IntentPlaceOrder)
	if slots[models.SlotQuantity] != "2" {
		t.Errorf("quantity = %q, want 2", slots[models.SlotQuantity])
	}

	if got := ExtractSlots("hello", models.IntentGreet); got != nil {
		t.Errorf("ExtractSlots for greet = %v, want nil", got)
	}
}

func TestClassifyRulesConfidenceBonus(t *testing.T) {
	// A message hitting several patterns of one group scores above the base.
	_, multi, ok := classifyRules("where is my order, commande dyali, فين الطلب")
	if !ok {
		t.Fatal("expected a rule match")
	}
	_, single, ok := classifyRules("where is my order")
	if !ok {
		t.Fatal("expected a rule match")
	}
	if multi <= single {
		t.Errorf("multi-pattern confidence %v not above single-pattern %v", multi, single)
	}
	if multi > ruleBaseConfidence+ruleMaxBonus {
		t.Errorf("confidence %v exceeds cap %v", multi, ruleBaseConfidence+ruleMaxBonus)
	}
}

func TestExpectedIntentTableCoversBuiltinFlows(t *testing.T) {
	flows := []string{
		models.FlowBrowsingProducts,
		models.FlowBrowsingServices,
		models.FlowOrdering,
		models.FlowBooking,
		models.FlowPayment,
		models.FlowAwaitingOrderID,
		models.FlowAwaitingHandoff,
	}
	for _, f := range flows {
		if _, ok := ExpectedIntent(f); !ok {
			t.Errorf("flow %q missing from expectation table", f)
		}
	}
	if _, ok := ExpectedIntent("no_such_flow"); ok {
		t.Error("unexpected mapping for unknown flow")
	}
}

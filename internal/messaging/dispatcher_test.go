package messaging

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/tajerhq/tajerbot/internal/cache"
	"github.com/tajerhq/tajerbot/internal/commerce"
	"github.com/tajerhq/tajerbot/internal/intent"
	"github.com/tajerhq/tajerbot/internal/models"
	"github.com/tajerhq/tajerbot/internal/refcontext"
	"github.com/tajerhq/tajerbot/internal/router"
	"github.com/tajerhq/tajerbot/internal/store"
)

type mockService struct {
	mu        sync.Mutex
	sent      []models.Action
	responses chan models.Response
}

func newMockService() *mockService {
	return &mockService{responses: make(chan models.Response, 10)}
}

func (m *mockService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

func (m *mockService) SendAction(ctx context.Context, to string, action models.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, action)
	return nil
}

func (m *mockService) Start(ctx context.Context) error    { return nil }
func (m *mockService) Stop() error                        { return nil }
func (m *mockService) Responses() <-chan models.Response  { return m.responses }

func (m *mockService) sentActions() []models.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Action, len(m.sent))
	copy(out, m.sent)
	return out
}

func newTestDispatcher(t *testing.T, svc Service) (*Dispatcher, store.Store) {
	t.Helper()
	st := store.NewInMemoryStore()
	if err := st.SaveTenant(models.TenantContext{
		ID:           "t1",
		BusinessName: "Atlas Bazaar",
		Currency:     "MAD",
		Languages:    []string{"en"},
	}); err != nil {
		t.Fatalf("SaveTenant failed: %v", err)
	}

	repo := commerce.NewInMemoryRepo()
	repo.AddProduct(models.Product{ID: "p1", TenantID: "t1", Name: "Argan Oil", Price: 12000, Stock: 3})
	repo.AddProduct(models.Product{ID: "p2", TenantID: "t1", Name: "Mint Tea Set", Price: 30000, Stock: 1})

	refs := refcontext.NewManager(st, cache.NewMemoryCache())
	p := intent.NewPipeline(nil, nil, st)
	r := router.NewRouter(repo, refs)
	return NewDispatcher(st, p, r, svc, "t1"), st
}

func dispatch(t *testing.T, d *Dispatcher, body, payloadID string) models.Action {
	t.Helper()
	action, err := d.Dispatch(context.Background(), models.InboundMessage{
		TenantID:       "t1",
		ConversationID: "t1:212600000001",
		CustomerID:     "212600000001",
		Body:           body,
		PayloadID:      payloadID,
	})
	if err != nil {
		t.Fatalf("Dispatch(%q) failed: %v", body, err)
	}
	return action
}

func TestDispatchPersistsStateAcrossTurns(t *testing.T) {
	svc := newMockService()
	d, st := newTestDispatcher(t, svc)

	action := dispatch(t, d, "show me your products", "")
	if action.Type != models.ActionTypeList {
		t.Fatalf("browse action type = %q, want LIST", action.Type)
	}

	state, err := st.GetConversationState("t1:212600000001")
	if err != nil || state == nil {
		t.Fatalf("state not persisted: %v", err)
	}
	if state.CurrentFlow != models.FlowBrowsingProducts {
		t.Errorf("flow = %q, want %q", state.CurrentFlow, models.FlowBrowsingProducts)
	}
	if state.LastMenu == nil || len(state.LastMenu.Items) != 2 {
		t.Fatalf("menu not persisted: %+v", state.LastMenu)
	}

	// The follow-up "1" must resolve against the persisted menu.
	action = dispatch(t, d, "1", "")
	if action.Type != models.ActionTypeCards {
		t.Fatalf("follow-up action type = %q, want CARDS", action.Type)
	}
	if len(svc.sentActions()) != 2 {
		t.Errorf("sent actions = %d, want 2", len(svc.sentActions()))
	}
}

func TestDispatchFullOrderConversation(t *testing.T) {
	svc := newMockService()
	d, _ := newTestDispatcher(t, svc)

	dispatch(t, d, "show me your products", "")
	dispatch(t, d, "1", "")
	action := dispatch(t, d, "yes, I want to buy it", "")
	if !action.HasSideEffect(models.SideEffectOrderCreated) {
		t.Fatalf("order not created, got %+v", action)
	}
}

func TestDispatchStructuredPayload(t *testing.T) {
	svc := newMockService()
	d, _ := newTestDispatcher(t, svc)

	action := dispatch(t, d, "", "product_p2")
	if action.Type != models.ActionTypeCards {
		t.Fatalf("payload action type = %q, want CARDS", action.Type)
	}
	if !strings.Contains(action.Text, "Mint Tea Set") {
		t.Errorf("action text = %q, want product name", action.Text)
	}
}

func TestDispatchNotifiesSideEffectObserver(t *testing.T) {
	svc := newMockService()
	d, _ := newTestDispatcher(t, svc)

	var observed []string
	d.SetSideEffectObserver(func(ctx context.Context, msg models.InboundMessage, action models.Action) {
		observed = append(observed, action.SideEffects...)
	})

	dispatch(t, d, "", "product_p1")
	dispatch(t, d, "bghit nchri", "")

	found := false
	for _, se := range observed {
		if se == models.SideEffectOrderCreated {
			found = true
		}
	}
	if !found {
		t.Errorf("observer saw %v, want order_created", observed)
	}
}

func TestDispatchEvictsConversationLocks(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := d.Dispatch(context.Background(), models.InboundMessage{
				TenantID:       "t1",
				ConversationID: "t1:21260000000" + string(rune('0'+n)),
				CustomerID:     "21260000000" + string(rune('0'+n)),
				Body:           "hello",
			})
			if err != nil {
				t.Errorf("Dispatch failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	d.mu.Lock()
	remaining := len(d.locks)
	d.mu.Unlock()
	if remaining != 0 {
		t.Errorf("lock table holds %d entries after all dispatches finished, want 0", remaining)
	}
}

func TestDispatchRejectsInvalidMessage(t *testing.T) {
	svc := newMockService()
	d, _ := newTestDispatcher(t, svc)

	_, err := d.Dispatch(context.Background(), models.InboundMessage{TenantID: "t1"})
	if err == nil {
		t.Fatal("expected validation error for empty message")
	}
}

func TestDispatchUnknownTenantStillAnswers(t *testing.T) {
	svc := newMockService()
	d, _ := newTestDispatcher(t, svc)

	action, err := d.Dispatch(context.Background(), models.InboundMessage{
		TenantID:       "t-unregistered",
		ConversationID: "t-unregistered:212600000002",
		CustomerID:     "212600000002",
		Body:           "hello",
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if action.Type == "" {
		t.Error("expected a well-formed action for an unregistered tenant")
	}
}

func TestRenderActionText(t *testing.T) {
	action := models.Action{
		Type: models.ActionTypeList,
		Text: "Here is what we have.",
		RichPayload: &models.RichPayload{
			ListType: "products",
			Items: []models.ListItem{
				{ID: "product_p1", Title: "Argan Oil", Description: "120.00 MAD"},
				{ID: "product_p2", Title: "Mint Tea Set"},
			},
		},
	}
	got := RenderActionText(action)
	if !strings.Contains(got, "1. Argan Oil — 120.00 MAD") {
		t.Errorf("rendered text missing numbered item: %q", got)
	}
	if !strings.Contains(got, "2. Mint Tea Set") {
		t.Errorf("rendered text missing second item: %q", got)
	}

	plain := RenderActionText(models.Action{Type: models.ActionTypeText, Text: "hi"})
	if plain != "hi" {
		t.Errorf("plain render = %q, want hi", plain)
	}
}

func TestCanonicalizePhone(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+212 600-000-001", "212600000001", false},
		{"212600000001", "212600000001", false},
		{"", "", true},
		{"abc", "", true},
		{"123", "", true},
	}
	for _, tc := range cases {
		got, err := canonicalizePhone(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("canonicalizePhone(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("canonicalizePhone(%q) = (%q, %v), want %q", tc.in, got, err, tc.want)
		}
	}
}

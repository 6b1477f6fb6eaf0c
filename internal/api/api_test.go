package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tajerhq/tajerbot/internal/cache"
	"github.com/tajerhq/tajerbot/internal/commerce"
	"github.com/tajerhq/tajerbot/internal/intent"
	"github.com/tajerhq/tajerbot/internal/messaging"
	"github.com/tajerhq/tajerbot/internal/models"
	"github.com/tajerhq/tajerbot/internal/refcontext"
	"github.com/tajerhq/tajerbot/internal/router"
	"github.com/tajerhq/tajerbot/internal/store"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
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

	refs := refcontext.NewManager(st, cache.NewMemoryCache())
	p := intent.NewPipeline(nil, nil, st)
	r := router.NewRouter(repo, refs)
	d := messaging.NewDispatcher(st, p, r, nil, "t1")
	return NewServer(d, st), st
}

func decodeEnvelope(t *testing.T, body string) models.APIResponse {
	t.Helper()
	var env models.APIResponse
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		t.Fatalf("response is not a valid envelope: %v\n%s", err, body)
	}
	return env
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("health body = %s", rec.Body.String())
	}
}

func TestMessagesEndpointDispatches(t *testing.T) {
	s, st := newTestServer(t)

	payload := `{"tenant_id":"t1","customer_id":"212600000001","body":"show me your products"}`
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(payload)))
	if rec.Code != http.StatusOK {
		t.Fatalf("dispatch status = %d, body = %s", rec.Code, rec.Body.String())
	}

	env := decodeEnvelope(t, rec.Body.String())
	if env.Status != models.APIStatusOK {
		t.Fatalf("envelope status = %q, want ok", env.Status)
	}
	raw, _ := json.Marshal(env.Result)
	var action models.Action
	if err := json.Unmarshal(raw, &action); err != nil {
		t.Fatalf("result is not an action: %v", err)
	}
	if action.Type != models.ActionTypeList {
		t.Errorf("action type = %q, want LIST", action.Type)
	}

	// The conversation id is derived from tenant and customer.
	state, err := st.GetConversationState("t1:212600000001")
	if err != nil || state == nil {
		t.Fatalf("dispatch did not persist state: %v", err)
	}
}

func TestMessagesEndpointRejectsBadInput(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(`{"tenant_id":"t1"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty message status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/messages", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}
}

func TestClassificationsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	payload := `{"tenant_id":"t1","customer_id":"212600000001","body":"hello"}`
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(payload)))
	if rec.Code != http.StatusOK {
		t.Fatalf("dispatch status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/classifications?tenant_id=t1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("classifications status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "GREET") {
		t.Errorf("classification log missing entry: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/classifications", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing tenant_id status = %d, want 400", rec.Code)
	}
}

func TestConversationEndpoint(t *testing.T) {
	s, st := newTestServer(t)
	if err := st.SaveConversationState(models.ConversationState{
		ConversationID: "t1:212600000009",
		TenantID:       "t1",
		CurrentFlow:    models.FlowBrowsingProducts,
	}); err != nil {
		t.Fatalf("SaveConversationState failed: %v", err)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/conversations/t1:212600000009", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("conversation status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), models.FlowBrowsingProducts) {
		t.Errorf("conversation body missing flow: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/conversations/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing conversation status = %d, want 404", rec.Code)
	}
}

func TestWebhookMount(t *testing.T) {
	st := store.NewInMemoryStore()
	d := messaging.NewDispatcher(st, intent.NewPipeline(nil, nil, st), router.NewRouter(commerce.NewInMemoryRepo(), nil), nil, "t1")

	called := false
	s := NewServer(d, st, WithTwilioWebhook(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/twilio", strings.NewReader("From=x&Body=y")))
	if !called || rec.Code != http.StatusOK {
		t.Errorf("webhook not mounted: called=%v status=%d", called, rec.Code)
	}
}

package classifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tajerhq/tajerbot/internal/store"
)

// stubChat returns a canned completion or error.
type stubChat struct {
	content string
	err     error
}

func (s *stubChat) New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.content}},
		},
	}, nil
}

func newTestGateway(chat chatService) *OpenAIGateway {
	return &OpenAIGateway{
		chat:    chat,
		model:   openai.ChatModelGPT4oMini,
		timeout: time.Second,
		labels:  []string{"GREET", "BROWSE_PRODUCTS", "UNKNOWN"},
	}
}

func TestClassifyParsesJSON(t *testing.T) {
	g := newTestGateway(&stubChat{content: `{"label": "browse_products", "confidence": 0.82, "slots": {"category": "shoes"}}`})
	res, err := g.Classify(context.Background(), "show me shoes", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Label != "BROWSE_PRODUCTS" {
		t.Errorf("label = %q, want BROWSE_PRODUCTS", res.Label)
	}
	if res.Confidence != 0.82 {
		t.Errorf("confidence = %v, want 0.82", res.Confidence)
	}
	if res.Slots["category"] != "shoes" {
		t.Errorf("slots = %v, want category=shoes", res.Slots)
	}
}

func TestClassifyStripsCodeFences(t *testing.T) {
	g := newTestGateway(&stubChat{content: "```json\n{\"label\": \"GREET\", \"confidence\": 0.9}\n```"})
	res, err := g.Classify(context.Background(), "hi", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Label != "GREET" || res.Confidence != 0.9 {
		t.Errorf("got %+v, want GREET/0.9", res)
	}
}

func TestClassifyClampsConfidence(t *testing.T) {
	g := newTestGateway(&stubChat{content: `{"label": "GREET", "confidence": 1.7}`})
	res, err := g.Classify(context.Background(), "hi", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Confidence != 1 {
		t.Errorf("confidence = %v, want clamp to 1", res.Confidence)
	}
}

func TestClassifyPropagatesRequestError(t *testing.T) {
	g := newTestGateway(&stubChat{err: errors.New("connection refused")})
	if _, err := g.Classify(context.Background(), "hi", ""); err == nil {
		t.Error("expected error from failing chat service")
	}
}

func TestClassifyRejectsGarbagePayload(t *testing.T) {
	g := newTestGateway(&stubChat{content: "sorry, I cannot help with that"})
	if _, err := g.Classify(context.Background(), "hi", ""); err == nil {
		t.Error("expected error for unparseable payload")
	}
}

func TestBudgetAllowAndRecord(t *testing.T) {
	st := store.NewInMemoryStore()
	b := NewBudget(st)

	if b.Allow("t1", 0) {
		t.Error("zero limit must disable the gateway")
	}
	if !b.Allow("t1", 2) {
		t.Error("fresh tenant should be allowed")
	}
	b.Record("t1")
	if !b.Allow("t1", 2) {
		t.Error("one call of two should still be allowed")
	}
	b.Record("t1")
	if b.Allow("t1", 2) {
		t.Error("budget of 2 should be exhausted after 2 calls")
	}
}

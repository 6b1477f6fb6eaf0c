// Package classifier provides the external classifier gateway used as the
// fallback stage of the intent resolution pipeline.
//
// The gateway wraps an external language-understanding service (OpenAI chat
// completions). It must be treated as unreliable and budget-limited: callers
// degrade to UNKNOWN on any error rather than retrying.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultTimeout bounds a single classification call.
const DefaultTimeout = 10 * time.Second

// Result is the gateway's answer for one message.
type Result struct {
	Label          string            `json:"label"`
	Confidence     float64           `json:"confidence"`
	Slots          map[string]string `json:"slots,omitempty"`
	BudgetExceeded bool              `json:"budget_exceeded,omitempty"`
}

// Gateway is the external classification contract consumed by the pipeline.
type Gateway interface {
	Classify(ctx context.Context, text, stateSummary string) (*Result, error)
}

// chatService defines the minimal interface for chat completions, allowing a
// stub in tests.
type chatService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIGateway implements Gateway over the OpenAI chat completion API.
type OpenAIGateway struct {
	chat    chatService
	model   openai.ChatModel
	timeout time.Duration
	labels  []string
}

// Opts holds configuration options for the OpenAI gateway.
type Opts struct {
	APIKey  string
	Model   openai.ChatModel
	Timeout time.Duration
}

// Option defines a configuration option for the OpenAI gateway.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel sets the chat model used for classification.
func WithModel(model openai.ChatModel) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// NewOpenAIGateway initializes the gateway, falling back to the
// OPENAI_API_KEY environment variable when no key option is given.
// The labels slice is the closed label vocabulary offered to the model.
func NewOpenAIGateway(labels []string, opts ...Option) (*OpenAIGateway, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	slog.Debug("OpenAIGateway initialized", "model", cfg.Model, "timeout", cfg.Timeout, "labels", len(labels))
	return &OpenAIGateway{
		chat:    &client.Chat.Completions,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		labels:  labels,
	}, nil
}

// classifierOutput is the JSON shape the model is instructed to return.
type classifierOutput struct {
	Label      string            `json:"label"`
	Confidence float64           `json:"confidence"`
	Slots      map[string]string `json:"slots"`
}

// Classify sends the message and a compact state summary to the model and
// parses its JSON verdict. The call is bounded by the configured timeout.
func (g *OpenAIGateway) Classify(ctx context.Context, text, stateSummary string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(g.systemPrompt()),
	}
	if stateSummary != "" {
		messages = append(messages, openai.SystemMessage("Conversation context: "+stateSummary))
	}
	messages = append(messages, openai.UserMessage(text))

	start := time.Now()
	resp, err := g.chat.New(ctx, openai.ChatCompletionNewParams{
		Model:    g.model,
		Messages: messages,
	})
	if err != nil {
		slog.Error("OpenAIGateway Classify request failed", "error", err, "elapsed", time.Since(start))
		return nil, fmt.Errorf("external classifier request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("external classifier returned no choices")
	}

	payload := stripCodeFences(resp.Choices[0].Message.Content)
	var out classifierOutput
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		slog.Error("OpenAIGateway Classify parse failed", "error", err, "payload_length", len(payload))
		return nil, fmt.Errorf("external classifier returned unparseable payload: %w", err)
	}

	label := strings.ToUpper(strings.TrimSpace(out.Label))
	if out.Confidence < 0 {
		out.Confidence = 0
	}
	if out.Confidence > 1 {
		out.Confidence = 1
	}
	slog.Debug("OpenAIGateway Classify succeeded", "label", label, "confidence", out.Confidence, "elapsed", time.Since(start))
	return &Result{Label: label, Confidence: out.Confidence, Slots: out.Slots}, nil
}

func (g *OpenAIGateway) systemPrompt() string {
	var b strings.Builder
	b.WriteString("You classify one customer message from a commerce chat into exactly one label. ")
	b.WriteString("Messages may be in English, French, Arabic, or Maghrebi Darija (including Latin-script spellings). ")
	b.WriteString("Valid labels: ")
	b.WriteString(strings.Join(g.labels, ", "))
	b.WriteString(". Respond with JSON only: {\"label\": string, \"confidence\": number between 0 and 1, ")
	b.WriteString("\"slots\": object of string values such as category, budget, quantity, date, time}. ")
	b.WriteString("Use label UNKNOWN when unsure.")
	return b.String()
}

// stripCodeFences removes a surrounding markdown code fence, which chat models
// sometimes wrap JSON responses in despite instructions.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

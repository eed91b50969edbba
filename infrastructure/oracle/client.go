// Package oracle implements the answer-generation oracle: a unified client
// over multiple LLM providers with middleware for rate limiting, retries,
// timeouts, and metrics.
//
// Providers are abstracted behind the CoreModel interface so operational
// concerns compose as middleware without touching provider logic:
//
//	client, err := oracle.NewClient("openai", oracle.ClientConfig{
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	    Model:  "gpt-4o",
//	    Middleware: []oracle.Middleware{
//	        oracle.RateLimitMiddleware(2, 4),
//	        oracle.RetryMiddleware(3, time.Second, 30*time.Second),
//	    },
//	})
package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/anna-assistant/annabench/infrastructure/eval"
	"github.com/anna-assistant/annabench/internal/domain"
	"github.com/anna-assistant/annabench/internal/ports"
)

// CoreModel is the minimal surface a provider must implement. Middleware
// wraps any conforming implementation.
type CoreModel interface {
	// DoRequest sends a prompt and returns the generated text together
	// with input and output token counts.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	// GetModel returns the currently configured model name.
	GetModel() string

	// SetModel updates the model used for subsequent requests.
	SetModel(model string)
}

// Middleware wraps a CoreModel to add cross-cutting behavior. Middleware
// listed first in ClientConfig executes outermost.
type Middleware func(CoreModel) CoreModel

// ClientConfig holds the settings for constructing an oracle client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model is the model identifier to query.
	Model string

	// BaseURL overrides the provider's default endpoint when non-empty.
	BaseURL string

	// Timeout bounds individual requests at the HTTP layer; zero means
	// no client-side timeout.
	Timeout time.Duration

	// SystemPrompt is sent with every generation request to frame the
	// assistant persona. Empty omits it.
	SystemPrompt string

	// Middleware is applied in order, first entry outermost.
	Middleware []Middleware
}

// Client queries a language model to answer corpus questions. It
// implements both ports.Oracle (question in, timed answer out) and
// ports.JudgeClient (raw prompt completion for the secondary judge).
type Client struct {
	core         CoreModel
	systemPrompt string
}

var (
	_ ports.Oracle      = (*Client)(nil)
	_ ports.JudgeClient = (*Client)(nil)
)

// ProviderFactory creates a CoreModel from configuration. The registry
// keyed by provider name lets callers choose providers by string without
// importing their SDKs directly.
type ProviderFactory func(ClientConfig) (CoreModel, error)

var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory registers a provider under the given name.
// Built-in providers register themselves during init.
func RegisterProviderFactory(name string, factory ProviderFactory) {
	providerFactories[name] = factory
}

// NewClient assembles a provider and its middleware chain.
func NewClient(provider string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	factory, ok := providerFactories[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	// Apply in reverse so the first middleware is outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	return &Client{core: core, systemPrompt: config.SystemPrompt}, nil
}

// Generate answers one corpus question, measuring wall-clock latency
// around the provider call. Failures are wrapped as domain.OracleError so
// the batch runner can downgrade the affected record instead of aborting.
func (c *Client) Generate(
	ctx context.Context,
	q domain.QuestionRecord,
	cfg domain.GenerationConfig,
) (domain.AnswerRecord, error) {
	opts := c.requestOptions(cfg)

	start := time.Now()
	text, _, _, err := c.core.DoRequest(ctx, q.Text(), opts)
	if err != nil {
		return domain.AnswerRecord{}, &domain.OracleError{QuestionID: q.ID, Err: err}
	}

	model := cfg.Model
	if model == "" {
		model = c.core.GetModel()
	}

	metrics := eval.CollectMetrics(text, start, time.Now())

	return domain.AnswerRecord{
		Text:       text,
		LatencyMS:  metrics.LatencyMS,
		Unmeasured: metrics.Unmeasured,
		Model:      model,
	}, nil
}

// Complete sends a raw prompt, for the secondary judge call. The system
// prompt is not applied: judge prompts carry their own framing.
func (c *Client) Complete(ctx context.Context, prompt string, cfg domain.GenerationConfig) (string, error) {
	opts := map[string]any{}
	if cfg.Model != "" {
		opts["model"] = cfg.Model
	}
	if cfg.Temperature != nil {
		opts["temperature"] = *cfg.Temperature
	}
	if cfg.MaxTokens > 0 {
		opts["max_tokens"] = cfg.MaxTokens
	}

	text, _, _, err := c.core.DoRequest(ctx, prompt, opts)
	return text, err
}

// Model returns the default model identifier this client queries.
func (c *Client) Model() string { return c.core.GetModel() }

// requestOptions maps a GenerationConfig onto the provider option map.
func (c *Client) requestOptions(cfg domain.GenerationConfig) map[string]any {
	opts := map[string]any{}
	if cfg.Model != "" {
		opts["model"] = cfg.Model
	}
	if cfg.Temperature != nil {
		opts["temperature"] = *cfg.Temperature
	}
	if cfg.MaxTokens > 0 {
		opts["max_tokens"] = cfg.MaxTokens
	}
	if c.systemPrompt != "" {
		opts["system"] = c.systemPrompt
	}
	return opts
}

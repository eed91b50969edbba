package oracle

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicDefaultModel is used when no model is configured for the
// anthropic provider.
const AnthropicDefaultModel = "claude-3-5-sonnet-20241022"

func init() {
	RegisterProviderFactory("anthropic", newAnthropicProvider)
}

// anthropicProvider implements CoreModel against Anthropic's Messages API.
type anthropicProvider struct {
	baseProvider
	client          anthropic.Client
	tokenCounter    *TokenCounter
	errorClassifier *ErrorClassifier
}

func newAnthropicProvider(config ClientConfig) (CoreModel, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = AnthropicDefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if timeout := ClampTimeout(config.Timeout); timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}

	return &anthropicProvider{
		baseProvider:    baseProvider{model: model},
		client:          anthropic.NewClient(opts...),
		tokenCounter:    NewTokenCounter(),
		errorClassifier: &ErrorClassifier{Provider: "anthropic"},
	}, nil
}

// DoRequest sends a message request and returns the generated text plus
// token usage.
func (p *anthropicProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	options := ParseRequestOptions(opts, p.model)

	message, err := p.client.Messages.New(ctx, p.buildParams(prompt, options))
	if err != nil {
		return "", 0, 0, p.handleError(err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(content.Text)
		}
	}

	response := text.String()
	if response == "" {
		return "", 0, 0, ErrEmptyResponse
	}

	tokensIn := p.tokenCounter.Count(int(message.Usage.InputTokens), prompt)
	tokensOut := p.tokenCounter.Count(int(message.Usage.OutputTokens), response)

	return response, tokensIn, tokensOut, nil
}

func (p *anthropicProvider) buildParams(prompt string, options RequestOptions) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(options.Model),
		MaxTokens: int64(options.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	if options.Temperature != nil {
		params.Temperature = anthropic.Float(ClampFloat64(*options.Temperature, MinTemperature, 1.0))
	}
	if options.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: options.System}}
	}

	return params
}

// handleError classifies Anthropic SDK failures into ProviderError values.
func (p *anthropicProvider) handleError(err error) error {
	if isContextError(err) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return p.errorClassifier.ClassifyHTTPError(apiErr.StatusCode, "", err)
	}

	return NewProviderError("anthropic", ErrorTypeUnknown, 0, "request failed", err)
}

package oracle

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIDefaultModel is used when no model is configured for the openai
// provider.
const OpenAIDefaultModel = "gpt-4o-mini"

func init() {
	RegisterProviderFactory("openai", newOpenAIProvider)
}

// openAIProvider implements CoreModel against OpenAI's chat completion
// API.
type openAIProvider struct {
	baseProvider
	client          *openai.Client
	tokenCounter    *TokenCounter
	errorClassifier *ErrorClassifier
}

func newOpenAIProvider(config ClientConfig) (CoreModel, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if timeout := ClampTimeout(config.Timeout); timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: timeout}
	}

	return &openAIProvider{
		baseProvider:    baseProvider{model: model},
		client:          openai.NewClientWithConfig(clientConfig),
		tokenCounter:    NewTokenCounter(),
		errorClassifier: &ErrorClassifier{Provider: "openai"},
	}, nil
}

// DoRequest sends a chat completion request and returns the generated text
// plus token usage.
func (p *openAIProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	options := ParseRequestOptions(opts, p.model)

	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(prompt, options))
	if err != nil {
		return "", 0, 0, p.handleError(err)
	}

	if len(resp.Choices) == 0 {
		return "", 0, 0, ErrNoResponseChoice
	}

	content := resp.Choices[0].Message.Content
	tokensIn := p.tokenCounter.Count(resp.Usage.PromptTokens, prompt)
	tokensOut := p.tokenCounter.Count(resp.Usage.CompletionTokens, content)

	return content, tokensIn, tokensOut, nil
}

func (p *openAIProvider) buildRequest(prompt string, options RequestOptions) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if options.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: options.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:    options.Model,
		Messages: messages,
	}

	if options.Temperature != nil {
		req.Temperature = float32(ClampFloat64(*options.Temperature, MinTemperature, MaxTemperature))
	}
	if options.MaxTokens > 0 {
		req.MaxTokens = options.MaxTokens
	}

	return req
}

// handleError classifies OpenAI API failures into ProviderError values.
func (p *openAIProvider) handleError(err error) error {
	if isContextError(err) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = "unknown error"
		}
		return p.errorClassifier.ClassifyHTTPError(apiErr.HTTPStatusCode, message, err)
	}

	return NewProviderError("openai", ErrorTypeUnknown, 0, "request failed", err)
}

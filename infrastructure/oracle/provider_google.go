package oracle

import (
	"context"
	"fmt"
	"math"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GoogleDefaultModel is used when no model is configured for the google
// provider.
const GoogleDefaultModel = "gemini-2.0-flash-exp"

func init() {
	RegisterProviderFactory("google", newGoogleProvider)
}

// googleProvider implements CoreModel against Google's Gemini API.
type googleProvider struct {
	baseProvider
	client          *genai.Client
	tokenCounter    *TokenCounter
	errorClassifier *ErrorClassifier
}

func newGoogleProvider(config ClientConfig) (CoreModel, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}

	return &googleProvider{
		baseProvider:    baseProvider{model: model},
		client:          client,
		tokenCounter:    NewTokenCounter(),
		errorClassifier: &ErrorClassifier{Provider: "google"},
	}, nil
}

// DoRequest sends a content generation request and returns the generated
// text plus token usage.
func (p *googleProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	options := ParseRequestOptions(opts, p.model)

	resp, err := p.client.Models.GenerateContent(ctx, options.Model,
		p.buildContents(prompt, options), p.buildGenerationConfig(options))
	if err != nil {
		return "", 0, 0, p.handleError(err)
	}

	content := resp.Text()
	if content == "" {
		return "", 0, 0, ErrEmptyResponse
	}

	tokensIn := p.usageTokens(resp.UsageMetadata, true, prompt)
	tokensOut := p.usageTokens(resp.UsageMetadata, false, content)

	return content, tokensIn, tokensOut, nil
}

// buildContents assembles the request content. Gemini has no separate
// system role, so a system prompt is prepended to the user prompt.
func (p *googleProvider) buildContents(prompt string, options RequestOptions) []*genai.Content {
	finalPrompt := prompt
	if options.System != "" {
		finalPrompt = fmt.Sprintf("System: %s\n\nUser: %s", options.System, prompt)
	}
	return []*genai.Content{genai.NewContentFromText(finalPrompt, genai.RoleUser)}
}

func (p *googleProvider) buildGenerationConfig(options RequestOptions) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}

	if options.Temperature != nil {
		temp := ClampFloat64(*options.Temperature, MinTemperature, MaxTemperature)
		config.Temperature = genai.Ptr(float32(temp))
	}

	if options.MaxTokens > 0 {
		if options.MaxTokens > math.MaxInt32 {
			config.MaxOutputTokens = math.MaxInt32
		} else {
			config.MaxOutputTokens = int32(options.MaxTokens)
		}
	}

	return config
}

func (p *googleProvider) usageTokens(usage *genai.GenerateContentResponseUsageMetadata, isInput bool, text string) int {
	if usage != nil {
		if isInput && usage.PromptTokenCount > 0 {
			return int(usage.PromptTokenCount)
		}
		if !isInput && usage.CandidatesTokenCount > 0 {
			return int(usage.CandidatesTokenCount)
		}
	}
	return p.tokenCounter.Count(0, text)
}

// handleError classifies Google API failures into ProviderError values.
// Safety-filter blocks are surfaced as content policy errors so callers can
// distinguish them from transport failures.
func (p *googleProvider) handleError(err error) error {
	if isContextError(err) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	if apiErr, ok := err.(*googleapi.Error); ok {
		message := apiErr.Message
		if message == "" && len(apiErr.Errors) > 0 {
			message = apiErr.Errors[0].Message
		}

		if isContentPolicyError(apiErr) {
			return NewProviderError("google", ErrorTypeContentPolicy, apiErr.Code,
				"request blocked by safety filters", err)
		}

		return p.errorClassifier.ClassifyHTTPError(apiErr.Code, message, err)
	}

	return NewProviderError("google", ErrorTypeUnknown, 0, "request failed", err)
}

func isContentPolicyError(apiErr *googleapi.Error) bool {
	if apiErr.Message != "" {
		lower := strings.ToLower(apiErr.Message)
		if strings.Contains(lower, "safety") ||
			strings.Contains(lower, "policy") ||
			strings.Contains(lower, "blocked") {
			return true
		}
	}

	for _, e := range apiErr.Errors {
		if e.Reason == "SAFETY" || e.Reason == "BLOCKED" {
			return true
		}
	}

	return false
}

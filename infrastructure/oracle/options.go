package oracle

import (
	"time"
)

// Parameter bounds shared by all providers.
const (
	// MinTemperature and MaxTemperature bound the sampling temperature;
	// the upper bound is 2.0 to accommodate Gemini.
	MinTemperature = 0.0
	MaxTemperature = 2.0

	// DefaultMaxTokens is used when a request does not set a limit.
	DefaultMaxTokens = 1000

	// MinRequestTimeout and MaxRequestTimeout clamp client-side request
	// timeouts to a sane range.
	MinRequestTimeout = 1 * time.Second
	MaxRequestTimeout = 10 * time.Minute
)

// RequestOptions is the standardized per-request parameter set extracted
// from the loosely typed option map.
type RequestOptions struct {
	// Model is the model identifier for this request.
	Model string

	// MaxTokens limits the generated answer length.
	MaxTokens int

	// Temperature controls sampling randomness; nil uses the provider
	// default.
	Temperature *float64

	// System is the system prompt, empty when not set.
	System string
}

// ParseRequestOptions extracts standardized parameters from an option map,
// falling back to defaults for missing or invalid entries.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	options := RequestOptions{
		Model:     optString(opts, "model", defaultModel),
		MaxTokens: optInt(opts, "max_tokens", DefaultMaxTokens),
		System:    optString(opts, "system", ""),
	}

	if raw, ok := opts["temperature"]; ok {
		if t, ok := toFloat64(raw); ok && t >= MinTemperature && t <= MaxTemperature {
			options.Temperature = &t
		}
	}

	return options
}

func optString(opts map[string]any, key, def string) string {
	if v, ok := opts[key].(string); ok && v != "" {
		return v
	}
	return def
}

func optInt(opts map[string]any, key string, def int) int {
	if raw, ok := opts[key]; ok {
		switch v := raw.(type) {
		case int:
			if v > 0 {
				return v
			}
		case int64:
			if v > 0 && int64(int(v)) == v {
				return int(v)
			}
		case float64:
			if v > 0 {
				return int(v)
			}
		}
	}
	return def
}

func toFloat64(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// ClampFloat64 restricts a value to [min, max].
func ClampFloat64(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// ClampTimeout keeps a client-side timeout within the supported range.
// Zero or negative means the provider default applies.
func ClampTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 0
	}
	if timeout < MinRequestTimeout {
		return MinRequestTimeout
	}
	if timeout > MaxRequestTimeout {
		return MaxRequestTimeout
	}
	return timeout
}

// TokenCounter estimates token counts when a provider response omits
// usage data. The ratio is a rough approximation for English text.
type TokenCounter struct {
	CharactersPerToken float64
}

// NewTokenCounter returns a counter with the default ratio.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{CharactersPerToken: 4.0}
}

// Count returns the actual count when available and positive, otherwise an
// estimate from the text length.
func (tc *TokenCounter) Count(actual int, text string) int {
	if actual > 0 {
		return actual
	}
	if len(text) == 0 {
		return 0
	}
	return int(float64(len(text)) / tc.CharactersPerToken)
}

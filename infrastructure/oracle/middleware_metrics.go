package oracle

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anna-assistant/annabench/internal/ports"
)

// metricsModel records request latency, outcomes, and token usage.
type metricsModel struct {
	next      CoreModel
	collector ports.MetricsCollector
}

// MetricsMiddleware creates middleware that reports per-request metrics to
// the given collector. A nil collector disables collection.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next CoreModel) CoreModel {
		return &metricsModel{next: next, collector: collector}
	}
}

// DoRequest executes the request while recording latency, status, and
// token usage labeled by provider and model.
func (m *metricsModel) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	start := time.Now()
	response, tokensIn, tokensOut, err := m.next.DoRequest(ctx, prompt, opts)

	if m.collector == nil {
		return response, tokensIn, tokensOut, err
	}

	labels := map[string]string{
		"provider": m.providerLabel(),
		"model":    m.next.GetModel(),
		"status":   statusLabel(ctx, err),
	}

	m.collector.RecordHistogram("oracle_request_seconds", time.Since(start).Seconds(), labels)
	m.collector.RecordCounter("oracle_requests_total", 1, labels)

	if err == nil {
		labels["token_type"] = "input"
		m.collector.RecordCounter("oracle_tokens_total", float64(tokensIn), labels)

		labels["token_type"] = "output"
		m.collector.RecordCounter("oracle_tokens_total", float64(tokensOut), labels)
	}

	return response, tokensIn, tokensOut, err
}

func statusLabel(ctx context.Context, err error) string {
	if err == nil {
		return "success"
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "timeout"
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		if s := provErr.Type.String(); s != "" {
			return s
		}
	}
	return "error"
}

// providerLabel infers the provider from the model name. Providers keep
// distinct model-name prefixes, so this is stable enough for labeling.
func (m *metricsModel) providerLabel() string {
	model := m.next.GetModel()
	switch {
	case strings.Contains(model, "gpt"):
		return "openai"
	case strings.Contains(model, "claude"):
		return "anthropic"
	case strings.Contains(model, "gemini"):
		return "google"
	default:
		return "unknown"
	}
}

// GetModel returns the model name from the wrapped implementation.
func (m *metricsModel) GetModel() string { return m.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (m *metricsModel) SetModel(model string) { m.next.SetModel(model) }

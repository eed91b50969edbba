package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// retryModel retries transient failures with exponential backoff.
type retryModel struct {
	next       CoreModel
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// RetryMiddleware creates middleware that retries failed requests with
// exponential backoff and jitter. Only errors classified as retryable
// (rate limits, server errors, network failures) are retried.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	return func(next CoreModel) CoreModel {
		return &retryModel{
			next:       next,
			maxRetries: maxRetries,
			baseDelay:  baseDelay,
			maxDelay:   maxDelay,
		}
	}
}

// DoRequest executes the request, retrying retryable failures until the
// attempt budget or the context runs out.
func (r *retryModel) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		response, tokensIn, tokensOut, err := r.next.DoRequest(ctx, prompt, opts)
		if err == nil {
			return response, tokensIn, tokensOut, nil
		}

		lastErr = err

		if ctx.Err() != nil || !isRetryable(err) || attempt == r.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return "", 0, 0, ctx.Err()
		case <-time.After(r.calculateDelay(attempt)):
		}
	}

	return "", 0, 0, fmt.Errorf("request failed after retries: %w", lastErr)
}

// isRetryable treats classified transient errors as retryable. Errors
// without a classification are retried too, since unclassified transport
// failures are more common than unclassified permanent ones.
func isRetryable(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.IsRetryable()
	}
	return true
}

func (r *retryModel) calculateDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}
	multiplier := 1 << uint(attempt)
	delay := time.Duration(float64(r.baseDelay) * float64(multiplier))

	// Jitter of ±25% spreads out retries from concurrent workers.
	jitter := time.Duration(rand.Float64() * float64(delay) * 0.5)
	delay = delay + jitter - (delay / 4)

	if delay > r.maxDelay {
		delay = r.maxDelay
	}
	return delay
}

// GetModel returns the model name from the wrapped implementation.
func (r *retryModel) GetModel() string { return r.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (r *retryModel) SetModel(m string) { r.next.SetModel(m) }

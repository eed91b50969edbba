package oracle

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// rateLimitedModel paces requests with a token bucket so batch runs stay
// inside provider rate limits.
type rateLimitedModel struct {
	next    CoreModel
	limiter *rate.Limiter
}

// RateLimitMiddleware creates middleware that enforces a sustained
// requests-per-second rate with a burst allowance. The limiter is shared
// across every request through this client, so concurrent batch workers
// are paced collectively.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next CoreModel) CoreModel {
		return &rateLimitedModel{next: next, limiter: limiter}
	}
}

// DoRequest blocks until a token is available, then forwards the request.
func (r *rateLimitedModel) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", 0, 0, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.DoRequest(ctx, prompt, opts)
}

// GetModel returns the model name from the wrapped implementation.
func (r *rateLimitedModel) GetModel() string { return r.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (r *rateLimitedModel) SetModel(m string) { r.next.SetModel(m) }

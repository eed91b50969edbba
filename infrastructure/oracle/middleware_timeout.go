package oracle

import (
	"context"
	"time"
)

// timeoutModel bounds each request with a deadline.
type timeoutModel struct {
	next    CoreModel
	timeout time.Duration
}

// TimeoutMiddleware creates middleware that enforces a per-request timeout
// so a hung provider call cannot stall a batch worker indefinitely.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next CoreModel) CoreModel {
		return &timeoutModel{next: next, timeout: ClampTimeout(timeout)}
	}
}

// DoRequest executes the request under a timeout context.
func (t *timeoutModel) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	if t.timeout <= 0 {
		return t.next.DoRequest(ctx, prompt, opts)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.DoRequest(ctx, prompt, opts)
}

// GetModel returns the model name from the wrapped implementation.
func (t *timeoutModel) GetModel() string { return t.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (t *timeoutModel) SetModel(m string) { t.next.SetModel(m) }

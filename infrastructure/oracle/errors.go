package oracle

import (
	"context"
	"errors"
	"fmt"
)

// Common errors returned by the oracle client and providers.
var (
	// ErrEmptyAPIKey indicates that an API key was required but missing.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")

	// ErrEmptyResponse indicates the provider returned no content.
	ErrEmptyResponse = errors.New("empty response from provider")

	// ErrNoResponseChoice indicates the response carried no choices.
	ErrNoResponseChoice = errors.New("no response choices returned")
)

// ErrorType classifies provider errors for standardized handling such as
// retryability decisions.
type ErrorType int

const (
	// ErrorTypeUnknown is an error of undetermined category.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeAuthentication covers invalid or rejected credentials.
	ErrorTypeAuthentication
	// ErrorTypeRateLimit covers exceeded provider rate limits.
	ErrorTypeRateLimit
	// ErrorTypeBadRequest covers malformed requests.
	ErrorTypeBadRequest
	// ErrorTypeNotFound covers missing models or endpoints.
	ErrorTypeNotFound
	// ErrorTypeServerError covers provider-side failures.
	ErrorTypeServerError
	// ErrorTypeContentPolicy covers safety-filter blocks.
	ErrorTypeContentPolicy
	// ErrorTypeNetwork covers client-side network failures and
	// cancellations.
	ErrorTypeNetwork
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeAuthentication:
		return "authentication"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeBadRequest:
		return "bad_request"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeServerError:
		return "server_error"
	case ErrorTypeContentPolicy:
		return "content_policy"
	case ErrorTypeNetwork:
		return "network"
	default:
		return ""
	}
}

// ProviderError normalizes provider-specific failures into one structured
// type carrying the classified category and HTTP status when known.
type ProviderError struct {
	// Type is the classified error category.
	Type ErrorType
	// Provider names the provider that produced the error.
	Provider string
	// StatusCode is the HTTP status, zero when not applicable.
	StatusCode int
	// Message is the provider's user-facing message.
	Message string
	// WrappedError is the original error for unwrapping.
	WrappedError error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	base := fmt.Sprintf("%s error", e.Provider)
	if e.StatusCode > 0 {
		base += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if s := e.Type.String(); s != "" {
		base += fmt.Sprintf(" [%s]", s)
	}
	if e.Message != "" {
		base += ": " + e.Message
	}
	if e.WrappedError != nil {
		base += fmt.Sprintf(": %v", e.WrappedError)
	}
	return base
}

// Unwrap returns the original error for errors.Is/As inspection.
func (e *ProviderError) Unwrap() error { return e.WrappedError }

// IsRetryable reports whether a request failing with this error should be
// retried. Rate limits, server errors, and network failures are transient.
func (e *ProviderError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeNetwork:
		return true
	default:
		return false
	}
}

// NewProviderError builds a ProviderError.
func NewProviderError(provider string, errType ErrorType, statusCode int, message string, wrapped error) *ProviderError {
	return &ProviderError{
		Type:         errType,
		Provider:     provider,
		StatusCode:   statusCode,
		Message:      message,
		WrappedError: wrapped,
	}
}

// ErrorClassifier converts provider-specific failures into ProviderError
// values based on HTTP status codes and context state.
type ErrorClassifier struct {
	// Provider names the provider this classifier serves.
	Provider string
}

// ClassifyHTTPError maps an HTTP status code onto an error category.
func (ec *ErrorClassifier) ClassifyHTTPError(statusCode int, message string, err error) *ProviderError {
	var errType ErrorType
	switch {
	case statusCode == 401 || statusCode == 403:
		errType = ErrorTypeAuthentication
		message = fmt.Sprintf("%s authentication failed", ec.Provider)
	case statusCode == 429:
		errType = ErrorTypeRateLimit
		message = fmt.Sprintf("%s rate limit exceeded", ec.Provider)
	case statusCode == 404:
		errType = ErrorTypeNotFound
	case statusCode >= 500:
		errType = ErrorTypeServerError
	case statusCode >= 400:
		errType = ErrorTypeBadRequest
	default:
		errType = ErrorTypeUnknown
	}
	return NewProviderError(ec.Provider, errType, statusCode, message, err)
}

// ClassifyContextError maps context cancellation and deadline errors.
func (ec *ErrorClassifier) ClassifyContextError(err error) *ProviderError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewProviderError(ec.Provider, ErrorTypeNetwork, 0, "context deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return NewProviderError(ec.Provider, ErrorTypeNetwork, 0, "request canceled", err)
	default:
		return NewProviderError(ec.Provider, ErrorTypeUnknown, 0, "", err)
	}
}

// isContextError reports whether err stems from context cancellation.
func isContextError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

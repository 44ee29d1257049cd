package mojang

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when a request exceeds the configured timeout.
	ErrTimeout = errors.New("mojang request timed out")

	// ErrUpstream is returned for unexpected status codes, malformed responses
	// and transport failures.
	ErrUpstream = errors.New("mojang upstream error")

	// ErrRateLimited is returned on 429 responses unless the client is
	// configured to treat them as absent content.
	ErrRateLimited = errors.New("mojang rate limit exceeded")
)

// UpstreamError carries the status code and body of an unexpected response.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("mojang API error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap lets callers match UpstreamError with errors.Is(err, ErrUpstream).
func (e *UpstreamError) Unwrap() error {
	return ErrUpstream
}

// NewUpstreamError creates an UpstreamError, substituting a generic message
// when the response body is empty.
func NewUpstreamError(statusCode int, body string) *UpstreamError {
	if body == "" {
		body = "unknown error"
	}
	return &UpstreamError{
		StatusCode: statusCode,
		Message:    body,
	}
}

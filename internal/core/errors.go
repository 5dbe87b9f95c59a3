// services/flickering/internal/core/errors.go
package core

import (
	"errors"
	"fmt"
)

// Client errors.
var (
	// Credential errors.
	ErrMissingCredentials = errors.New("missing API credentials")

	// Registry errors.
	ErrUnknownService  = errors.New("unknown service")
	ErrContainerClosed = errors.New("service container is closed")

	// Invocation errors.
	ErrEmptyMethod     = errors.New("method name is required")
	ErrMalformedResult = errors.New("malformed API response")
)

// APIError is a failure reported by the remote API in a well-formed response.
type APIError struct {
	Method  string `json:"method"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: error %d: %s", e.Method, e.Code, e.Message)
}

// HTTPError is a non-2xx response from the API endpoint.
type HTTPError struct {
	Method     string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: unexpected HTTP status %d", e.Method, e.StatusCode)
}

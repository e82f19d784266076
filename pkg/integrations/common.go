package integrations

import (
	"errors"
	"net/http"
	"net/url"
	"time"
)

const httpTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when a crate or sub-resource doesn't exist in the registry.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")

	// ErrRateLimited is returned for 429 responses. It also matches [ErrNetwork].
	ErrRateLimited = errors.New("rate limited")

	// ErrUnauthorized is returned for 401 and 403 responses to reads.
	ErrUnauthorized = errors.New("unauthorized")
)

// NewHTTPClient creates an HTTP client with a standard timeout for registry requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// PathEscape percent-encodes a crate name or owner login for use as one
// path segment.
func PathEscape(s string) string { return url.PathEscape(s) }

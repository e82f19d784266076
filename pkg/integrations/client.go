package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/matzehuels/cratewatch/pkg/cache"
	"github.com/matzehuels/cratewatch/pkg/httputil"
	"github.com/matzehuels/cratewatch/pkg/observability"
)

// Client provides shared HTTP functionality for registry API clients.
// Reads are cached and retried; writes are sent once and never cached.
type Client struct {
	http      *http.Client
	cache     cache.Cache
	keyer     cache.Keyer
	namespace string
	ttl       time.Duration
	headers   map[string]string
}

// NewClient creates a Client with the given cache backend and default headers.
// The namespace separates this client's entries from other registries in a
// shared backend. Pass nil for headers if no default headers are needed.
func NewClient(backend cache.Cache, namespace string, ttl time.Duration, headers map[string]string) *Client {
	if backend == nil {
		backend = cache.NewNullCache()
	}
	return &Client{
		http:      NewHTTPClient(),
		cache:     backend,
		keyer:     cache.NewDefaultKeyer(),
		namespace: namespace,
		ttl:       ttl,
		headers:   headers,
	}
}

// SetKeyer replaces the cache keyer, e.g. with a [cache.ScopedKeyer] per registry host.
func (c *Client) SetKeyer(k cache.Keyer) {
	if k != nil {
		c.keyer = k
	}
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(h *http.Client) {
	if h != nil {
		c.http = h
	}
}

// SetHeader sets a default header applied to every request.
func (c *Client) SetHeader(key, value string) {
	if c.headers == nil {
		c.headers = make(map[string]string)
	}
	c.headers[key] = value
}

// Cached retrieves a value from cache or executes fetch and caches the result.
// If refresh is true, the cache is bypassed and fetch is always called.
// The fetch function should populate v; on success, v is stored in the cache.
func (c *Client) Cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) error {
	key = c.keyer.HTTPKey(c.namespace, key)
	if !refresh {
		if data, ok, _ := c.cache.Get(ctx, key); ok && json.Unmarshal(data, v) == nil {
			observability.Cache().OnCacheHit(ctx, "http")
			return nil
		}
		observability.Cache().OnCacheMiss(ctx, "http")
	}
	if err := httputil.RetryWithBackoff(ctx, fetch); err != nil {
		return err
	}
	if data, err := json.Marshal(v); err == nil {
		if c.cache.Set(ctx, key, data, c.ttl) == nil {
			observability.Cache().OnCacheSet(ctx, "http", len(data))
		}
	}
	return nil
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	return c.GetWithHeaders(ctx, url, nil, v)
}

// GetWithHeaders performs an HTTP GET with additional headers merged with defaults.
// Request-specific headers override client defaults for the same key.
func (c *Client) GetWithHeaders(ctx context.Context, url string, headers map[string]string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, url, nil, headers)
	if err != nil {
		return &httputil.RetryableError{Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// Send performs a write request with an optional JSON body and decodes the
// response body into v when v is non-nil and the body is JSON.
//
// Send never retries and never maps status codes to errors: the status is
// returned as-is so callers can inspect the registry's own success flag.
// Only transport failures produce an error, wrapped with [ErrNetwork].
func (c *Client) Send(ctx context.Context, method, url string, body, v any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	resp, err := c.do(ctx, method, url, reader, map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}
	if v != nil && len(bytes.TrimSpace(data)) > 0 {
		// Error pages are not always JSON; the status is still meaningful.
		_ = json.Unmarshal(data, v)
	}
	return resp.StatusCode, nil
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, req.URL.Host, req.URL.Path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, req.URL.Host, req.URL.Path, err)
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	hooks.OnResponse(ctx, method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, code)
	case code == http.StatusTooManyRequests:
		return &httputil.RetryableError{
			Err:   fmt.Errorf("%w: %w: status %d", ErrRateLimited, ErrNetwork, code),
			After: httputil.RetryAfter(resp.Header, time.Now()),
		}
	case code >= 500:
		return &httputil.RetryableError{Err: fmt.Errorf("%w: status %d", ErrNetwork, code)}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

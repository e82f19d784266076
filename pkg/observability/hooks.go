// Package observability provides hooks for metrics, tracing, and logging.
//
// Consumers register hooks at startup to receive events about background
// relation loads, cache operations, and registry API calls. Libraries never
// depend on a concrete backend; they call the registered hooks, which default
// to no-ops.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetTaskHooks(&myTaskHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Task().OnTaskStart(ctx, "loadVersions", runID)
//	// ... run the load ...
//	observability.Task().OnTaskComplete(ctx, "loadVersions", runID, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Task Hooks
// =============================================================================

// TaskHooks receives events from background load tasks.
type TaskHooks interface {
	// OnTaskStart records a new run of a named task.
	OnTaskStart(ctx context.Context, task, runID string)

	// OnTaskJoin records an invocation that reused an in-flight run instead
	// of starting another one.
	OnTaskJoin(ctx context.Context, task, runID string)

	// OnTaskComplete records the end of a run. err is nil on success.
	OnTaskComplete(ctx context.Context, task, runID string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopTaskHooks is a no-op implementation of TaskHooks.
type NoopTaskHooks struct{}

func (NoopTaskHooks) OnTaskStart(context.Context, string, string)                        {}
func (NoopTaskHooks) OnTaskJoin(context.Context, string, string)                         {}
func (NoopTaskHooks) OnTaskComplete(context.Context, string, string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	taskHooks  TaskHooks  = NoopTaskHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	httpHooks  HTTPHooks  = NoopHTTPHooks{}
	hooksMu    sync.RWMutex
)

// SetTaskHooks registers custom task hooks.
// This should be called once at application startup before any loads run.
func SetTaskHooks(h TaskHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		taskHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Task returns the registered task hooks.
func Task() TaskHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return taskHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	taskHooks = NoopTaskHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}

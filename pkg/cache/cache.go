// Package cache provides byte-level caching backends for registry responses.
//
// The [Cache] interface is deliberately small so the HTTP layer can swap
// between a local [FileCache] for CLI use, a shared [RedisCache] for the
// API server, and [NullCache] when caching is disabled or under test.
//
// Only raw registry responses are cached here. Derived views over a crate
// (sorted version ids, release tracks) are never persisted; they are
// recomputed in memory from whatever the loader materialized.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys with an optional TTL.
//
// Implementations must be safe for concurrent use. A miss is reported as
// (nil, false, nil); errors are reserved for backend failures.
type Cache interface {
	// Get returns the stored value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer builds cache keys. Implementations decide namespacing so that
// different registries or tenants never share entries.
type Keyer interface {
	// HTTPKey returns the key for a cached HTTP response.
	HTTPKey(namespace, key string) string
}

// DefaultKeyer produces "http:<namespace>:<key>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// HTTPKey generates a key for HTTP response caching.
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

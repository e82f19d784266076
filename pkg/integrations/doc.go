// Package integrations provides HTTP clients for the crates.io registry API.
//
// # Overview
//
// The [Client] type holds the shared transport: default headers, response
// caching through a [cache.Cache] backend, retry with backoff on transient
// read failures, and observability hooks on every request. Registry-specific
// clients embed it:
//
//   - [crates]: crates.io crate, version and owner endpoints plus the
//     follow and owner write endpoints
//
// # Reads and Writes
//
// Reads go through [Client.Cached] and [Client.Get]: they are idempotent,
// cached for the configured TTL, and retried on 5xx and 429 responses.
//
// Writes go through [Client.Send]: they are sent once, never cached, and the
// status code is returned unchanged so the caller can decide what counts as
// success.
//
// [crates]: github.com/matzehuels/cratewatch/pkg/integrations/crates
// [cache.Cache]: github.com/matzehuels/cratewatch/pkg/cache.Cache
package integrations

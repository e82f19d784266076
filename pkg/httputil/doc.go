// Package httputil provides retry helpers for idempotent registry requests.
//
// Only GET requests go through [Retry]. Writes (follow, owner changes) are
// sent exactly once and their outcome is reported to the caller unchanged.
package httputil

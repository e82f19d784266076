// Package cli implements the cratewatch command-line interface.
//
// Commands load a crate aggregate from crates.io and print its derived
// views, or send follow and owner writes with the stored API token.
//
// # Commands
//
//   - versions, tracks, owners: read views of a crate
//   - follow, unfollow, owner invite|remove: registry writes
//   - serve: run the JSON HTTP API
//   - cache clear|path: manage the HTTP response cache
//   - login, logout: store or remove the API token
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// traces background load tasks through the observability hooks.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Loaded 42 versions (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// taskLogHooks logs background load tasks at debug level.
type taskLogHooks struct {
	logger *log.Logger
}

func (h taskLogHooks) OnTaskStart(_ context.Context, task, runID string) {
	h.logger.Debug("task started", "task", task, "run", runID)
}

func (h taskLogHooks) OnTaskJoin(_ context.Context, task, runID string) {
	h.logger.Debug("task joined", "task", task, "run", runID)
}

func (h taskLogHooks) OnTaskComplete(_ context.Context, task, runID string, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("task failed", "task", task, "run", runID, "duration", d.Round(time.Millisecond), "err", err)
		return
	}
	h.logger.Debug("task completed", "task", task, "run", runID, "duration", d.Round(time.Millisecond))
}

// httpLogHooks logs registry requests at debug level.
type httpLogHooks struct {
	logger *log.Logger
}

func (h httpLogHooks) OnRequest(context.Context, string, string, string) {}

func (h httpLogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("registry", "method", method, "host", host, "path", path, "status", status, "duration", d.Round(time.Millisecond))
}

func (h httpLogHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("registry error", "method", method, "host", host, "path", path, "err", err)
}

// cacheLogHooks logs response cache traffic at debug level.
type cacheLogHooks struct {
	logger *log.Logger
}

func (h cacheLogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h cacheLogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h cacheLogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

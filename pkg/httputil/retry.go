package httputil

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"
)

// RetryableError marks a failure as transient. After, when positive, is the
// wait the server asked for (Retry-After) and replaces the backoff delay
// for the next attempt.
type RetryableError struct {
	Err   error
	After time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Policy controls how often and how long [Policy.Do] waits between attempts.
type Policy struct {
	Attempts int           // total attempts, at least 1
	Delay    time.Duration // first backoff delay, doubled per attempt
	MaxDelay time.Duration // cap for any single wait, 0 means uncapped
}

// DefaultPolicy makes 3 attempts starting at 1s and never waits longer
// than 30s between them.
var DefaultPolicy = Policy{Attempts: 3, Delay: time.Second, MaxDelay: 30 * time.Second}

// Do runs fn until it succeeds, returns an error not marked with
// [RetryableError], or the attempts are used up. The last error is returned;
// ctx.Err() is returned if ctx ends while waiting.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Delay

	var lastErr error
	for i := range attempts {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		var re *RetryableError
		if !errors.As(lastErr, &re) {
			return lastErr
		}
		if i == attempts-1 {
			break
		}

		wait := delay
		if re.After > 0 {
			wait = re.After
		}
		if p.MaxDelay > 0 && wait > p.MaxDelay {
			wait = p.MaxDelay
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return lastErr
}

// Retry runs fn with the given attempts and initial delay and no cap.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	return Policy{Attempts: attempts, Delay: delay}.Do(ctx, fn)
}

// RetryWithBackoff runs fn under [DefaultPolicy].
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return DefaultPolicy.Do(ctx, fn)
}

// RetryAfter parses a Retry-After header given in seconds or as an HTTP
// date. It returns 0 when the header is absent or unusable.
func RetryAfter(h http.Header, now time.Time) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}

package httputil

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	shakerr "github.com/matzehuels/shakify/pkg/errors"
)

// MaxRetryAfter caps how long [Retry] honors a registry's Retry-After.
const MaxRetryAfter = 30 * time.Second

// RetryableError marks a transient registry or tarball failure: a network
// error, a 5xx response or a 429 carrying a [shakerr.RateLimitedError].
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry calls fn up to attempts times and retries only [RetryableError]s.
//
// Between attempts it waits for the delay a rate-limited response asked for
// (see [RetryAfter]); otherwise it waits for delay, which doubles after every
// failed attempt. It returns the last error once attempts run out, or
// ctx.Err() if ctx ends while waiting.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var err error
	for i := range attempts {
		if err = fn(); err == nil || !isRetryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}

		wait := delay
		if d, ok := RetryAfter(err); ok {
			wait = d
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
	return err
}

// RetryWithBackoff retries fn 3 times starting from a 1 second delay.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, 3, time.Second, fn)
}

// RetryAfter returns the wait requested by a rate-limited response in err's
// chain, capped at [MaxRetryAfter]. It reports false when err is not rate
// limited or the server gave no delay.
func RetryAfter(err error) (time.Duration, bool) {
	var rl *shakerr.RateLimitedError
	if !errors.As(err, &rl) || rl.RetryAfter <= 0 {
		return 0, false
	}
	return min(rl.RetryAfter, MaxRetryAfter), true
}

// ParseRetryAfter reads a Retry-After header, given either as delay seconds
// or as an HTTP date. Empty, malformed and past values yield zero.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(max(secs, 0)) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

package correction

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultRetryAttempts  = 5
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 10 * time.Second
)

// statusError is a non-2xx answer from the endpoint.
type statusError struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

// temporary reports whether the server may answer differently later.
func (e *statusError) temporary() bool {
	return e.Code == http.StatusRequestTimeout ||
		e.Code == http.StatusTooManyRequests ||
		e.Code >= http.StatusInternalServerError
}

// emptyReplyError is a 2xx answer without usable text, which vLLM produces
// when generation is cut off before the first token.
type emptyReplyError struct {
	Choices      int
	FinishReason string
	Snippet      string
}

func (e *emptyReplyError) Error() string {
	if e.Choices == 0 {
		return fmt.Sprintf("empty choices (response=%s)", e.Snippet)
	}
	return fmt.Sprintf("empty content (finish_reason=%q, response=%s)", e.FinishReason, e.Snippet)
}

type retryPolicy struct {
	attempts int
	base     time.Duration
	max      time.Duration
	sleeper  func(time.Duration)
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		attempts: defaultRetryAttempts,
		base:     defaultRetryBaseDelay,
		max:      defaultRetryMaxDelay,
	}
}

func (p retryPolicy) maxAttempts() int {
	return max(p.attempts, 1)
}

func (p retryPolicy) ceiling() time.Duration {
	if p.max <= 0 {
		return defaultRetryMaxDelay
	}
	return p.max
}

// next decides whether err after the given attempt deserves another try and
// how long to wait first.
func (p retryPolicy) next(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if attempt >= p.maxAttempts() || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var status *statusError
	var empty *emptyReplyError
	var netErr net.Error
	switch {
	case errors.As(err, &status):
		if !status.temporary() {
			return 0, false
		}
		if status.RetryAfter > 0 {
			return min(status.RetryAfter, p.ceiling()), true
		}
		return p.backoff(attempt), true
	case errors.As(err, &empty):
		return p.backoff(attempt), true
	case errors.As(err, &netErr) && netErr.Timeout():
		return p.backoff(attempt), true
	}
	return 0, false
}

// backoff doubles from the base delay per attempt, capped at the ceiling.
func (p retryPolicy) backoff(attempt int) time.Duration {
	if p.base <= 0 {
		return 0
	}
	ceiling := p.ceiling()
	delay := p.base
	for i := 1; i < attempt && delay < ceiling; i++ {
		delay *= 2
	}
	return min(delay, ceiling)
}

func (p retryPolicy) wait(ctx context.Context, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if delay <= 0 {
		return nil
	}
	if p.sleeper != nil {
		p.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter accepts both the delta-seconds and HTTP-date forms.
func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		if delay := time.Until(when); delay >= 0 {
			return delay, true
		}
	}
	return 0, false
}

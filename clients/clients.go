package clients

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const (
	defaultHTTPTimeout    = 60 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 10 * time.Second
)

type HTTP struct {
	c *http.Client

	attempts  int
	baseDelay time.Duration
	maxDelay  time.Duration
}

func NewHTTP(timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTP{
		c:         &http.Client{Timeout: timeout},
		attempts:  defaultRetryAttempts,
		baseDelay: defaultRetryBaseDelay,
		maxDelay:  defaultRetryMaxDelay,
	}
}

// withRetry overrides the bounded retry policy applied to idempotent calls.
func (h *HTTP) withRetry(attempts int, baseDelay, maxDelay time.Duration) *HTTP {
	h.attempts, h.baseDelay, h.maxDelay = attempts, baseDelay, maxDelay
	return h
}

type statusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s http %d: %s", e.Op, e.StatusCode, e.Body)
}

// retry runs fn until it succeeds, returns a non-retryable error or the
// attempt budget is spent.
func (h *HTTP) retry(ctx context.Context, op string, fn func() error) error {
	attempts := max(h.attempts, 1)
	delay := h.baseDelay
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == attempts || !retryable(ctx, lastErr) {
			break
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay = min(delay*2, h.maxDelay)
		}
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusRequestTimeout ||
			se.StatusCode == http.StatusTooManyRequests ||
			se.StatusCode >= http.StatusInternalServerError
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

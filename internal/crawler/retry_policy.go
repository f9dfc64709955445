package crawler

import (
	"context"
	"errors"
)

// LimitRetryPolicy retries a request until it has failed limit times.
type LimitRetryPolicy struct {
	limit int
}

// NewLimitRetryPolicy builds a policy allowing limit retries per request.
// Negative limits are treated as zero.
func NewLimitRetryPolicy(limit int) *LimitRetryPolicy {
	if limit < 0 {
		limit = 0
	}
	return &LimitRetryPolicy{limit: limit}
}

// Limit returns the configured number of retries.
func (p *LimitRetryPolicy) Limit() int {
	return p.limit
}

// ShouldRetry decides whether the error is retryable given how many attempts
// of the request have already failed.
func (p *LimitRetryPolicy) ShouldRetry(err error, failCount int) bool {
	if err == nil {
		return false
	}
	if failCount >= p.limit {
		return false
	}
	// Cancellation is not a fetch failure. Request timeouts are.
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

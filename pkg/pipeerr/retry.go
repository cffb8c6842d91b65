package pipeerr

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy defines the retry behavior for failed operations.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of retry attempts (0 = no retries, -1 = infinite)
	MaxAttempts int
	// InitialBackoff is the initial backoff duration
	InitialBackoff time.Duration
	// MaxBackoff is the maximum backoff duration
	MaxBackoff time.Duration
	// BackoffMultiplier is the multiplier for exponential backoff (default: 2.0)
	BackoffMultiplier float64
	// Jitter adds randomness to backoff to prevent thundering herd (0.0-1.0)
	Jitter float64
	// RetriableFunc determines if an error is retriable (optional)
	RetriableFunc func(error) bool
}

// DefaultRetryPolicy returns a sensible default retry policy.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
		RetriableFunc:     IsRetriable,
	}
}

// RetryResult contains the result of a retry operation.
type RetryResult struct {
	Success      bool
	Attempts     int
	LastError    error
	TotalBackoff time.Duration
}

// Execute executes an operation with retry logic. The operation is run once
// plus up to MaxAttempts retries; a non-retriable error or context
// cancellation stops early.
func (rp *RetryPolicy) Execute(ctx context.Context, operation func(ctx context.Context) error) *RetryResult {
	result := &RetryResult{}

	for attempt := 0; rp.MaxAttempts < 0 || attempt <= rp.MaxAttempts; attempt++ {
		result.Attempts++

		err := operation(ctx)
		if err == nil {
			result.Success = true
			return result
		}

		result.LastError = err

		if rp.RetriableFunc != nil && !rp.RetriableFunc(err) {
			return result
		}

		if rp.MaxAttempts >= 0 && attempt >= rp.MaxAttempts {
			return result
		}

		backoff := rp.calculateBackoff(attempt)
		result.TotalBackoff += backoff

		select {
		case <-ctx.Done():
			result.LastError = ctx.Err()
			return result
		case <-time.After(backoff):
		}
	}

	return result
}

// calculateBackoff calculates the backoff duration for a given attempt.
func (rp *RetryPolicy) calculateBackoff(attempt int) time.Duration {
	multiplier := rp.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	backoff := float64(rp.InitialBackoff) * math.Pow(multiplier, float64(attempt))
	if backoff > float64(rp.MaxBackoff) {
		backoff = float64(rp.MaxBackoff)
	}

	if rp.Jitter > 0 {
		jitterAmount := backoff * rp.Jitter
		backoff += (rand.Float64()*2 - 1) * jitterAmount
		if backoff < 0 {
			backoff = float64(rp.InitialBackoff)
		}
	}

	return time.Duration(backoff)
}

// NextBackoff returns the backoff duration for the next attempt.
func (rp *RetryPolicy) NextBackoff(attempt int) time.Duration {
	return rp.calculateBackoff(attempt)
}

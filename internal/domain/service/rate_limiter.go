package service

import (
	"context"
	"time"
)

// RateLimitDecision is the outcome of consuming one token from a client's bucket.
type RateLimitDecision struct {
	Allowed    bool          // Whether the request may proceed.
	Remaining  int64         // Tokens left in the current window after this request.
	RetryAfter time.Duration // Time until the bucket refills. Zero when Allowed.
}

// RateLimiter is the port guarding the authentication endpoints. The store
// behind it is injected so a single-instance deployment can use an in-process
// bucket registry while a multi-instance deployment shares a Redis-backed one;
// horizontal scaling must not silently multiply the effective limit.
type RateLimiter interface {
	// Allow atomically consumes one token from the bucket for the given
	// client key, creating the bucket on first sight. Buckets for distinct
	// keys are fully independent.
	Allow(ctx context.Context, key string) (*RateLimitDecision, error)
}

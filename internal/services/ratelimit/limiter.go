// Package ratelimit implements per-client fixed-window admission control.
package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Policy is the number of requests a client may make per window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long a rejected client should wait before the window resets.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || !d.ResetAt.After(now) {
		return 0
	}
	return d.ResetAt.Sub(now)
}

// Store records hits per client window. Implementations must be safe for concurrent use.
type Store interface {
	// Hit counts one request for key and returns the count in the current window.
	// A new window of the given length starts when none exists or the old one has elapsed.
	Hit(ctx context.Context, key string, window time.Duration, now time.Time) (count int, resetAt time.Time, err error)
}

type Limiter struct {
	name   string
	policy Policy
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewLimiter(name string, policy Policy, store Store, logger *zap.Logger) *Limiter {
	return &Limiter{
		name:   name,
		policy: policy,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (l *Limiter) Name() string   { return l.name }
func (l *Limiter) Policy() Policy { return l.policy }

// Admit records a request from clientID. It never fails: when the store is
// unreachable the request is admitted and the error is logged.
func (l *Limiter) Admit(ctx context.Context, clientID string) Decision {
	now := l.now()
	count, resetAt, err := l.store.Hit(ctx, l.name+":"+clientID, l.policy.Window, now)
	if err != nil {
		l.logger.Warn("Rate limit store unavailable, admitting request",
			zap.String("limiter", l.name),
			zap.String("client", clientID),
			zap.Error(err),
		)
		return Decision{Allowed: true, Limit: l.policy.Limit, Remaining: l.policy.Limit - 1, ResetAt: now.Add(l.policy.Window)}
	}

	remaining := l.policy.Limit - count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= l.policy.Limit,
		Limit:     l.policy.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Policy is a fixed-window budget: at most Limit requests per Window for each identity.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Validate reports configuration errors.
func (p Policy) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("rate limit policy name required")
	}
	if p.Limit <= 0 {
		return errors.New("rate limit must be > 0")
	}
	if p.Window <= 0 {
		return errors.New("rate limit window must be > 0")
	}
	return nil
}

// Decision describes the state of an identity's window after a request was counted.
type Decision struct {
	Allowed    bool
	Count      int
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, minimum one.
func (d Decision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 1
	}
	secs := int((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Store counts hits per key inside fixed windows. Increment must be atomic and must
// start a fresh window once the previous one has elapsed.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration, now time.Time) (count int64, resetAt time.Time, err error)
	Reset(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Limiter applies one Policy over a Store. Counts are never decremented by downstream
// outcomes.
type Limiter struct {
	store  Store
	policy Policy
	now    func() time.Time
}

// New validates policy and returns a Limiter. now defaults to time.Now.
func New(store Store, policy Policy, now func() time.Time) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("rate limit store required")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &Limiter{store: store, policy: policy, now: now}, nil
}

// Policy returns the limiter's policy.
func (l *Limiter) Policy() Policy {
	return l.policy
}

func (l *Limiter) key(identity string) string {
	return l.policy.Name + ":" + identity
}

// Allow counts one request for identity. When the budget is exhausted it returns the
// decision together with [ErrRateLimited]; store failures wrap [ErrStoreUnavailable].
func (l *Limiter) Allow(ctx context.Context, identity string) (Decision, error) {
	now := l.now()
	count, resetAt, err := l.store.Increment(ctx, l.key(identity), l.policy.Window, now)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		Count:   int(count),
		Limit:   l.policy.Limit,
		ResetAt: resetAt,
	}
	if remaining := l.policy.Limit - d.Count; remaining > 0 {
		d.Remaining = remaining
	}
	if d.Count <= l.policy.Limit {
		d.Allowed = true
		return d, nil
	}

	d.RetryAfter = resetAt.Sub(now)
	if d.RetryAfter < time.Second {
		d.RetryAfter = time.Second
	}
	return d, ErrRateLimited
}

// Reset clears the window for identity.
func (l *Limiter) Reset(ctx context.Context, identity string) error {
	return l.store.Reset(ctx, l.key(identity))
}

package ratelimit

import "errors"

var (
	// ErrRateLimited reports an exhausted window.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable wraps failures of a shared counter store.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
)

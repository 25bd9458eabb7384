package regAuth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/regAuth/ratelimit"
)

const (
	// ScopeGlobal is the policy applied to every request.
	ScopeGlobal = "global"
	// ScopeAuth is the policy applied to login, registration and code verification/resend.
	ScopeAuth = "auth"
)

// Allow describes the allow operation and its observable behavior.
//
// Allow counts one request of identity (the client address) against scope. An exhausted
// budget returns a [*RateLimitError] carrying the time until the window resets. A store
// failure lets global traffic through with a warning but rejects auth traffic with
// [ErrBackendUnavailable]. With rate limiting disabled Allow always succeeds.
// Allow does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Allow(ctx context.Context, scope, identity string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	limiter := e.limiter(scope)
	if limiter == nil {
		return nil
	}
	identity = strings.TrimSpace(identity)
	if identity == "" {
		identity = "unknown"
	}

	decision, err := limiter.Allow(ctx, identity)
	if err == nil {
		return nil
	}
	if errors.Is(err, ratelimit.ErrRateLimited) {
		e.emitRateLimit(ctx, scope, identity, decision.RetryAfter)
		return &RateLimitError{Scope: scope, RetryAfter: decision.RetryAfter}
	}

	if scope == ScopeGlobal {
		e.warn("regAuth: rate limit store unavailable, allowing request", "scope", scope, "error", err)
		return nil
	}
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}

// ResetRateLimit clears the window of identity in scope.
func (e *Engine) ResetRateLimit(ctx context.Context, scope, identity string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	limiter := e.limiter(scope)
	if limiter == nil {
		return nil
	}
	if err := limiter.Reset(ctx, identity); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (e *Engine) limiter(scope string) *ratelimit.Limiter {
	switch scope {
	case ScopeGlobal:
		return e.globalLimiter
	case ScopeAuth:
		return e.authLimiter
	default:
		return nil
	}
}

package regAuth

import (
	"context"
	"fmt"
	"time"

	internalflows "github.com/MrEthical07/regAuth/internal/flows"
	"github.com/MrEthical07/regAuth/jwt"
)

// Validate describes the validate operation and its observable behavior.
//
// Validate checks signature and expiry first, then that the token is an access token, then
// the revocation table. An expired token that was also revoked reports [ErrTokenExpired].
// A revocation backend failure rejects the token with [ErrBackendUnavailable].
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Validate(ctx context.Context, tokenStr string) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}

	result := e.flows.Validate(ctx, tokenStr, jwt.KindAccess)
	if result.Failure == internalflows.ValidateFailureNone {
		return authResult(result.Claims), nil
	}

	var (
		err    error
		reason string
	)
	switch result.Failure {
	case internalflows.ValidateFailureVerify:
		err, reason = mapVerifyError(result.Err), verifyCause(result.Err)
	case internalflows.ValidateFailureKindMismatch:
		err, reason = ErrTokenKind, "wrong_kind"
	case internalflows.ValidateFailureRevoked:
		err, reason = ErrTokenRevoked, "revoked"
		e.metricInc(MetricRevokedTokenRejected)
	default:
		err, reason = fmt.Errorf("%w: %v", ErrBackendUnavailable, result.Err), "backend_unavailable"
	}

	e.metricInc(MetricValidateFailure)
	userID := ""
	if result.Claims != nil {
		userID = result.Claims.Subject
	}
	e.emitAudit(ctx, auditEventTokenRejected, false, userID, "", err, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
	return nil, err
}

func authResult(claims *jwt.Claims) *AuthResult {
	return &AuthResult{
		UserID:    claims.Subject,
		Username:  claims.Username,
		Email:     claims.Email,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAtTime(),
	}
}

// Logout revokes accessToken until its natural expiry. See [Engine.LogoutWithRefresh].
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	return e.LogoutWithRefresh(ctx, accessToken, "")
}

// LogoutWithRefresh describes the logoutwithrefresh operation and its observable behavior.
//
// LogoutWithRefresh verifies accessToken ([ErrTokenExpired], [ErrTokenMalformed] or
// [ErrTokenKind] on failure) and revokes it. Logging out an already revoked token succeeds.
// A refresh token of the same subject is revoked too; an unusable one is ignored.
// LogoutWithRefresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LogoutWithRefresh(ctx context.Context, accessToken, refreshToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	result := e.flows.Logout(ctx, accessToken, refreshToken)

	var (
		err    error
		reason string
	)
	switch result.Failure {
	case internalflows.LogoutFailureNone:
		e.metricInc(MetricLogout)
		e.emitAudit(ctx, auditEventLogout, true, result.Claims.Subject, result.Claims.Username, nil, func() map[string]string {
			if result.RefreshRevoked {
				return map[string]string{"refresh_revoked": "true"}
			}
			return nil
		})
		return nil
	case internalflows.LogoutFailureVerify:
		err, reason = mapVerifyError(result.Err), verifyCause(result.Err)
	case internalflows.LogoutFailureKindMismatch:
		err, reason = ErrTokenKind, "wrong_kind"
	default:
		err, reason = fmt.Errorf("%w: %v", ErrBackendUnavailable, result.Err), "backend_unavailable"
	}

	userID := ""
	if result.Claims != nil {
		userID = result.Claims.Subject
	}
	e.emitAudit(ctx, auditEventLogoutFailure, false, userID, "", err, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
	return err
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh accepts only refresh tokens. The presented token is revoked and a new pair is
// minted; presenting it again returns [ErrTokenRevoked].
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	result := e.flows.Refresh(ctx, refreshToken)
	if result.Failure == internalflows.RefreshFailureNone {
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, result.UserID, result.Account.Username, nil, nil)
		return toTokenPair(result.Tokens), nil
	}

	var (
		err    error
		reason string
	)
	switch result.Failure {
	case internalflows.RefreshFailureVerify:
		err, reason = mapVerifyError(result.Err), verifyCause(result.Err)
	case internalflows.RefreshFailureKindMismatch:
		err, reason = ErrTokenKind, "wrong_kind"
	case internalflows.RefreshFailureReuse:
		err, reason = ErrTokenRevoked, "reuse"
	case internalflows.RefreshFailureAccountGone:
		err, reason = ErrTokenRevoked, "account_missing"
	case internalflows.RefreshFailureIssue:
		err, reason = result.Err, "issue_failed"
	default:
		err, reason = fmt.Errorf("%w: %v", ErrBackendUnavailable, result.Err), "backend_unavailable"
	}

	e.metricInc(MetricRefreshFailure)
	e.emitAudit(ctx, auditEventRefreshInvalid, false, result.UserID, "", err, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
	return nil, err
}

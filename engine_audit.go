package regAuth

import (
	"context"
	"errors"
	"strconv"
	"time"
)

const (
	auditEventRegisterSuccess   = "register_success"
	auditEventRegisterFailure   = "register_failure"
	auditEventRegisterDuplicate = "register_duplicate"
	auditEventLoginSuccess      = "login_success"
	auditEventLoginFailure      = "login_failure"
	auditEventMFARequired       = "mfa_required"
	auditEventOTPDeliveryFailed = "otp_delivery_failed"
	auditEventOTPSuccess        = "otp_success"
	auditEventOTPFailure        = "otp_failure"
	auditEventOTPLocked         = "otp_locked"
	auditEventOTPResend         = "otp_resend"
	auditEventMFAEnabled        = "mfa_enabled"
	auditEventMFADisabled       = "mfa_disabled"
	auditEventMFADisableFailure = "mfa_disable_failure"
	auditEventLogout            = "logout"
	auditEventLogoutFailure     = "logout_failure"
	auditEventRefreshSuccess    = "refresh_success"
	auditEventRefreshInvalid    = "refresh_invalid"
	auditEventTokenRejected     = "token_rejected"
	auditEventRateLimited       = "rate_limit_triggered"
	auditEventPasswordUpgraded  = "password_upgraded"
)

// AuditErrorCode is the machine-readable cause recorded in [AuditEvent.Error].
type AuditErrorCode string

const (
	auditErrInvalidInput     AuditErrorCode = "invalid_input"
	auditErrUserNotFound     AuditErrorCode = "user_not_found"
	auditErrPasswordMismatch AuditErrorCode = "password_mismatch"
	auditErrPasswordPolicy   AuditErrorCode = "password_policy"
	auditErrDuplicate        AuditErrorCode = "duplicate"
	auditErrHashing          AuditErrorCode = "hashing_failure"
	auditErrTokenExpired     AuditErrorCode = "token_expired"
	auditErrTokenMalformed   AuditErrorCode = "token_malformed"
	auditErrTokenRevoked     AuditErrorCode = "token_revoked"
	auditErrTokenKind        AuditErrorCode = "token_wrong_kind"
	auditErrMFALocked        AuditErrorCode = "mfa_locked"
	auditErrOTPMismatch      AuditErrorCode = "otp_mismatch"
	auditErrOTPExpired       AuditErrorCode = "otp_expired"
	auditErrOTPNotPending    AuditErrorCode = "otp_not_pending"
	auditErrRateLimited      AuditErrorCode = "rate_limited"
	auditErrUnavailable      AuditErrorCode = "backend_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	identifier string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:  e.now().UTC(),
		EventType:  eventType,
		UserID:     userID,
		Identifier: identifier,
		IP:         ClientIPFromContext(ctx),
		UserAgent:  userAgentFromContext(ctx),
		Success:    success,
		Metadata:   metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope, identity string, retryAfter time.Duration) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimited, false, "", "", ErrRateLimited, func() map[string]string {
		return map[string]string{
			"scope":               scope,
			"identity":            identity,
			"retry_after_seconds": strconv.Itoa(RetryAfterSeconds(retryAfter)),
		}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return auditErrInvalidInput
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrPasswordMismatch
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrHashingFailure):
		return auditErrHashing
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenMalformed):
		return auditErrTokenMalformed
	case errors.Is(err, ErrTokenRevoked):
		return auditErrTokenRevoked
	case errors.Is(err, ErrTokenKind):
		return auditErrTokenKind
	case errors.Is(err, ErrMFALocked):
		return auditErrMFALocked
	case errors.Is(err, ErrOTPInvalid):
		return auditErrOTPMismatch
	case errors.Is(err, ErrOTPExpired):
		return auditErrOTPExpired
	case errors.Is(err, ErrOTPNotPending):
		return auditErrOTPNotPending
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrBackendUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

package flows

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/regAuth/otp"
)

// Challenge describes an issued one-time code. DebugCode is only set when diagnostics
// asked for the code to be echoed.
type Challenge struct {
	UserID    string
	Email     string
	Delivered bool
	ExpiresAt time.Time
	DebugCode string
}

type OTPMetrics struct {
	ChallengeIssued int
	DeliveryFailure int
	OTPSuccess      int
	OTPFailure      int
	OTPLockout      int
	OTPResend       int
}

type OTPEvents struct {
	DeliveryFailed string
	OTPSuccess     string
	OTPFailure     string
	OTPLocked      string
	OTPResend      string
}

type OTPErrors struct {
	EngineNotReady     error
	NotPending         error
	UserNotFound       error
	BackendUnavailable error
	// Locked builds the lockout error for the remaining lock time.
	Locked func(time.Duration) error
	// Rejected builds the error for a failed code below the lockout threshold.
	Rejected func(reason otp.Reason, attemptsRemaining int) error
}

// OTPDeps captures second-factor dependencies.
type OTPDeps struct {
	TTL          time.Duration
	MaxAttempts  int
	LockDuration time.Duration

	Store       otp.Store
	Now         func() time.Time
	FindByID    func(context.Context, string) (Account, error)
	SendCode    func(context.Context, string, string, string) (bool, error)
	Diagnose    func(context.Context, string, string) bool
	IssueTokens func(context.Context, Account) (Tokens, error)

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics OTPMetrics
	Events  OTPEvents
	Errors  OTPErrors
}

// OTPVerifyResult is returned on a successful code verification.
type OTPVerifyResult struct {
	Account Account
	Tokens  Tokens
}

func normalizeOTPDeps(deps *OTPDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.TTL <= 0 {
		deps.TTL = otp.DefaultTTL
	}
	if deps.MaxAttempts <= 0 {
		deps.MaxAttempts = otp.DefaultMaxAttempts
	}
	if deps.LockDuration <= 0 {
		deps.LockDuration = otp.DefaultLockDuration
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.Errors.Locked == nil {
		locked := deps.Errors.BackendUnavailable
		deps.Errors.Locked = func(time.Duration) error { return locked }
	}
}

func (d OTPDeps) ready() bool {
	return d.Store != nil && d.FindByID != nil && d.IssueTokens != nil && d.Errors.Rejected != nil
}

// RunIssueChallenge stores a fresh record for account, superseding any previous one,
// then dispatches the code. A record that is still locked is never superseded. Delivery
// happens after the record is stored and a delivery failure leaves the record in place.
func RunIssueChallenge(ctx context.Context, account Account, deps OTPDeps) (Challenge, error) {
	normalizeOTPDeps(&deps)
	if deps.Store == nil {
		return Challenge{}, deps.Errors.EngineNotReady
	}

	issued, err := otp.Issue(deps.Now(), deps.TTL)
	if err != nil {
		return Challenge{}, fmt.Errorf("%w: %v", deps.Errors.BackendUnavailable, err)
	}
	current, err := deps.Store.Replace(ctx, otp.NewRecord(account.ID, issued), deps.LockDuration)
	if err != nil {
		if errors.Is(err, otp.ErrLocked) {
			lockErr := deps.Errors.Locked(current.LockRemaining(issued.CreatedAt, deps.LockDuration))
			deps.EmitAudit(ctx, deps.Events.OTPLocked, false, account.ID, account.Username, lockErr, func() map[string]string {
				return map[string]string{
					"reason": "issue_while_locked",
				}
			})
			return Challenge{}, lockErr
		}
		return Challenge{}, fmt.Errorf("%w: %v", deps.Errors.BackendUnavailable, err)
	}

	challenge := Challenge{
		UserID:    account.ID,
		Email:     account.Email,
		ExpiresAt: issued.ExpiresAt,
	}

	if deps.SendCode != nil {
		delivered, sendErr := deps.SendCode(ctx, account.Email, issued.Code, account.DisplayName())
		challenge.Delivered = delivered && sendErr == nil
		if sendErr != nil {
			deps.Warn("regAuth: otp delivery failed", "user_id", account.ID, "error", sendErr)
		}
	}
	if !challenge.Delivered {
		deps.MetricInc(deps.Metrics.DeliveryFailure)
		deps.EmitAudit(ctx, deps.Events.DeliveryFailed, false, account.ID, account.Username, nil, nil)
	}

	if deps.Diagnose != nil && deps.Diagnose(ctx, account.ID, issued.Code) {
		challenge.DebugCode = issued.Code
	}

	deps.MetricInc(deps.Metrics.ChallengeIssued)
	return challenge, nil
}

// RunVerifyOTP checks code against the pending record of userID. The store decides the
// attempt atomically: a locked record rejects every code until the lock lifts, a lifted
// lock resets the counter, a match consumes the record and the failure that reaches
// MaxAttempts locks it.
func RunVerifyOTP(ctx context.Context, userID, code string, deps OTPDeps) (*OTPVerifyResult, error) {
	normalizeOTPDeps(&deps)
	if !deps.ready() {
		return nil, deps.Errors.EngineNotReady
	}

	now := deps.Now()
	attempt, err := deps.Store.Attempt(ctx, userID, code, now, deps.MaxAttempts, deps.LockDuration)
	if err != nil {
		if errors.Is(err, otp.ErrNotFound) {
			deps.MetricInc(deps.Metrics.OTPFailure)
			deps.EmitAudit(ctx, deps.Events.OTPFailure, false, userID, "", deps.Errors.NotPending, nil)
			return nil, deps.Errors.NotPending
		}
		return nil, fmt.Errorf("%w: %v", deps.Errors.BackendUnavailable, err)
	}

	if attempt.Refused {
		lockErr := deps.Errors.Locked(attempt.Record.LockRemaining(now, deps.LockDuration))
		deps.EmitAudit(ctx, deps.Events.OTPLocked, false, userID, "", lockErr, func() map[string]string {
			return map[string]string{
				"reason": "attempt_while_locked",
			}
		})
		return nil, lockErr
	}

	if !attempt.Accepted() {
		updated := attempt.Record
		if updated.Locked {
			remaining := updated.LockRemaining(now, deps.LockDuration)
			if remaining <= 0 {
				remaining = deps.LockDuration
			}
			lockErr := deps.Errors.Locked(remaining)
			deps.MetricInc(deps.Metrics.OTPLockout)
			deps.EmitAudit(ctx, deps.Events.OTPLocked, false, userID, "", lockErr, func() map[string]string {
				return map[string]string{
					"reason":   string(attempt.Result.Reason),
					"attempts": strconv.Itoa(updated.Attempts),
				}
			})
			return nil, lockErr
		}

		attemptsRemaining := deps.MaxAttempts - updated.Attempts
		rejected := deps.Errors.Rejected(attempt.Result.Reason, attemptsRemaining)
		deps.MetricInc(deps.Metrics.OTPFailure)
		deps.EmitAudit(ctx, deps.Events.OTPFailure, false, userID, "", rejected, func() map[string]string {
			return map[string]string{
				"reason":             string(attempt.Result.Reason),
				"attempts_remaining": strconv.Itoa(attemptsRemaining),
			}
		})
		return nil, rejected
	}

	account, err := deps.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, deps.Errors.UserNotFound) {
			return nil, deps.Errors.NotPending
		}
		return nil, fmt.Errorf("%w: %v", deps.Errors.BackendUnavailable, err)
	}

	tokens, err := deps.IssueTokens(ctx, account)
	if err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.OTPSuccess)
	deps.EmitAudit(ctx, deps.Events.OTPSuccess, true, account.ID, account.Username, nil, nil)

	return &OTPVerifyResult{Account: account, Tokens: tokens}, nil
}

// RunResendOTP replaces the pending record of userID with a fresh code. It requires a
// pending record and refuses while that record is locked.
func RunResendOTP(ctx context.Context, userID string, deps OTPDeps) (Challenge, error) {
	normalizeOTPDeps(&deps)
	if !deps.ready() {
		return Challenge{}, deps.Errors.EngineNotReady
	}

	record, err := deps.Store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, otp.ErrNotFound) {
			deps.EmitAudit(ctx, deps.Events.OTPResend, false, userID, "", deps.Errors.NotPending, nil)
			return Challenge{}, deps.Errors.NotPending
		}
		return Challenge{}, fmt.Errorf("%w: %v", deps.Errors.BackendUnavailable, err)
	}

	now := deps.Now()
	if record.IsLocked(now, deps.LockDuration) {
		lockErr := deps.Errors.Locked(record.LockRemaining(now, deps.LockDuration))
		deps.EmitAudit(ctx, deps.Events.OTPResend, false, userID, "", lockErr, nil)
		return Challenge{}, lockErr
	}

	account, err := deps.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, deps.Errors.UserNotFound) {
			_ = deps.Store.Delete(ctx, userID)
			return Challenge{}, deps.Errors.NotPending
		}
		return Challenge{}, fmt.Errorf("%w: %v", deps.Errors.BackendUnavailable, err)
	}

	challenge, err := RunIssueChallenge(ctx, account, deps)
	if err != nil {
		return Challenge{}, err
	}

	deps.MetricInc(deps.Metrics.OTPResend)
	deps.EmitAudit(ctx, deps.Events.OTPResend, true, account.ID, account.Username, nil, func() map[string]string {
		return map[string]string{
			"delivered": strconv.FormatBool(challenge.Delivered),
		}
	})
	return challenge, nil
}

package regAuth

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/MrEthical07/regAuth/password"
)

var (
	// ErrInvalidInput is an exported constant or variable used by the authentication engine.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is an exported constant or variable used by the authentication engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists is an exported constant or variable used by the authentication engine.
	ErrAccountExists = errors.New("account already exists")
	// ErrPasswordPolicy is an exported constant or variable used by the authentication engine.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrHashingFailure is an exported constant or variable used by the authentication engine.
	ErrHashingFailure = errors.New("password hashing failed")
	// ErrTokenExpired is an exported constant or variable used by the authentication engine.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is an exported constant or variable used by the authentication engine.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenRevoked is an exported constant or variable used by the authentication engine.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrTokenKind is an exported constant or variable used by the authentication engine.
	ErrTokenKind = errors.New("token kind not accepted here")
	// ErrMFALocked is an exported constant or variable used by the authentication engine.
	ErrMFALocked = errors.New("mfa locked")
	// ErrOTPInvalid is an exported constant or variable used by the authentication engine.
	ErrOTPInvalid = errors.New("invalid one-time code")
	// ErrOTPExpired is an exported constant or variable used by the authentication engine.
	ErrOTPExpired = errors.New("one-time code expired")
	// ErrOTPNotPending is an exported constant or variable used by the authentication engine.
	ErrOTPNotPending = errors.New("no one-time code pending")
	// ErrRateLimited is an exported constant or variable used by the authentication engine.
	ErrRateLimited = errors.New("rate limited")
	// ErrBackendUnavailable is an exported constant or variable used by the authentication engine.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// LockedError reports an MFA lockout. It unwraps to [ErrMFALocked].
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("mfa locked, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *LockedError) Unwrap() error { return ErrMFALocked }

// RateLimitError reports a rejected request. It unwraps to [ErrRateLimited].
type RateLimitError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (%s), retry in %s", e.Scope, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// OTPError reports a failed code verification below the lockout threshold. It unwraps
// to [ErrOTPInvalid] or [ErrOTPExpired].
type OTPError struct {
	Err               error
	AttemptsRemaining int
}

func (e *OTPError) Error() string {
	return fmt.Sprintf("%v (%d attempts remaining)", e.Err, e.AttemptsRemaining)
}

func (e *OTPError) Unwrap() error { return e.Err }

// PolicyError carries the full strength checklist of a rejected password. It unwraps to
// [ErrPasswordPolicy].
type PolicyError struct {
	Report password.StrengthReport
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("password policy violation: %d rules failed", len(e.Report.Violations))
}

func (e *PolicyError) Unwrap() error { return ErrPasswordPolicy }

// RetryAfter extracts the retry-after duration from lockout and rate-limit errors.
func RetryAfter(err error) (time.Duration, bool) {
	var locked *LockedError
	if errors.As(err, &locked) {
		return locked.RetryAfter, true
	}
	var limited *RateLimitError
	if errors.As(err, &limited) {
		return limited.RetryAfter, true
	}
	return 0, false
}

// RetryAfterSeconds rounds d up to whole seconds with a floor of one.
func RetryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
